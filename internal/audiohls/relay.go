package audiohls

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultRelayBufferSize is the size of one relayed chunk.
	DefaultRelayBufferSize = 32 * 1024
	// DefaultMaxManifestBytes caps a buffered manifest read.
	DefaultMaxManifestBytes = 10 << 20
)

// ErrStreamInterrupted is returned by Relay.Stream when the transfer fails
// after the response header has been written. The client response cannot be
// repaired at that point.
var ErrStreamInterrupted = errors.New("relay interrupted mid-stream")

var errManifestTooLarge = errors.New("manifest exceeds size limit")

// RelayOptions tunes the upstream client. Zero values select defaults; a zero
// timeout means none.
type RelayOptions struct {
	// HeaderTimeout bounds the wait for upstream response headers.
	HeaderTimeout time.Duration
	// ManifestTimeout bounds a whole buffered Fetch.
	ManifestTimeout  time.Duration
	MaxManifestBytes int64
	BufferSize       int
	// UserAgent, if set, replaces the Go client's default.
	UserAgent string
}

// Relay performs GETs against origin servers, either buffered (manifests) or
// streamed straight into a client response (segments).
type Relay struct {
	client  *http.Client
	opts    RelayOptions
	bufPool sync.Pool
}

// NewRelay returns a Relay with its own transport.
func NewRelay(opts RelayOptions) *Relay {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.HeaderTimeout,
	}
	return NewRelayWithClient(&http.Client{Transport: transport}, opts)
}

// NewRelayWithClient returns a Relay that sends requests through client.
func NewRelayWithClient(client *http.Client, opts RelayOptions) *Relay {
	if opts.MaxManifestBytes <= 0 {
		opts.MaxManifestBytes = DefaultMaxManifestBytes
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultRelayBufferSize
	}
	r := &Relay{client: client, opts: opts}
	size := opts.BufferSize
	r.bufPool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return r
}

// Fetch reads the whole body of target. It is meant for manifests and fails
// with an *UpstreamError when the body exceeds the configured limit.
func (r *Relay) Fetch(ctx context.Context, target string) ([]byte, error) {
	if r.opts.ManifestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.ManifestTimeout)
		defer cancel()
	}

	resp, err := r.open(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.opts.MaxManifestBytes+1))
	if err != nil {
		return nil, &UpstreamError{URL: target, Err: errors.Wrap(err, "read body")}
	}
	if int64(len(body)) > r.opts.MaxManifestBytes {
		return nil, &UpstreamError{URL: target, Err: errManifestTooLarge}
	}
	return body, nil
}

// Stream copies the body of target into w chunk by chunk, flushing after
// each one, so memory use stays at one buffer whatever the payload size.
// The upstream Content-Type is forwarded verbatim.
//
// Errors returned before anything is written to w are ErrInvalidInput or an
// *UpstreamError. Once the header is out, failures wrap ErrStreamInterrupted.
func (r *Relay) Stream(ctx context.Context, w http.ResponseWriter, target string) (RelayStats, error) {
	resp, err := r.open(ctx, target)
	if err != nil {
		return RelayStats{}, err
	}
	defer resp.Body.Close()

	stats := RelayStats{ContentType: resp.Header.Get("Content-Type")}
	if stats.ContentType != "" {
		w.Header().Set("Content-Type", stats.ContentType)
	}
	if resp.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	bufp := r.bufPool.Get().(*[]byte)
	defer r.bufPool.Put(bufp)
	buf := *bufp

	rc := http.NewResponseController(w)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return stats, errors.Wrapf(ErrStreamInterrupted, "write client: %v", werr)
			}
			stats.Bytes += int64(n)
			stats.Chunks++
			if ferr := rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
				return stats, errors.Wrapf(ErrStreamInterrupted, "flush client: %v", ferr)
			}
		}
		if rerr == io.EOF {
			return stats, nil
		}
		if rerr != nil {
			return stats, errors.Wrapf(ErrStreamInterrupted, "read upstream: %v", rerr)
		}
	}
}

// open issues the GET and turns transport failures and non-2xx statuses
// into *UpstreamError. On success the caller owns resp.Body.
func (r *Relay) open(ctx context.Context, target string) (*http.Response, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidInput, "build request: %v", err)
	}
	if r.opts.UserAgent != "" {
		req.Header.Set("User-Agent", r.opts.UserAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{URL: target, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &UpstreamError{URL: target, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func validateTarget(target string) error {
	if target == "" {
		return errors.Wrap(ErrInvalidInput, "missing url")
	}
	u, err := url.Parse(target)
	if err != nil {
		return errors.Wrapf(ErrInvalidInput, "parse url: %v", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(ErrInvalidInput, "unsupported url %q", target)
	}
	return nil
}
