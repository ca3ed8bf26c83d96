package audiohls

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const (
	watchURLPrefix = "https://www.youtube.com/watch?v="

	// DefaultUserAgent is sent to the extractor when the caller has none.
	DefaultUserAgent = "mozilla/5.0"
	// DefaultReferer is the Referer the extractor presents to the origin.
	DefaultReferer = "youtube.com"
	// DefaultGeoBypassCountry is the country the extractor pretends to be in.
	DefaultGeoBypassCountry = "US"
)

// Extractor turns a watch URL into the list of variants an origin offers.
// Implementations may shell out, call a library or a remote service.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) ([]StreamVariant, error)
}

// ResolverOptions controls the identity and flags passed to the Extractor.
type ResolverOptions struct {
	DefaultUserAgent    string
	Referer             string
	GeoBypass           bool
	GeoBypassCountry    string
	NoCheckCertificates bool
}

// DefaultResolverOptions returns the options the service runs with unless
// configured otherwise.
func DefaultResolverOptions() ResolverOptions {
	return ResolverOptions{
		DefaultUserAgent:    DefaultUserAgent,
		Referer:             DefaultReferer,
		GeoBypass:           true,
		GeoBypassCountry:    DefaultGeoBypassCountry,
		NoCheckCertificates: true,
	}
}

// Resolver selects the audio-only segmented variant of a video.
type Resolver struct {
	extractor Extractor
	opts      ResolverOptions
}

// NewResolver returns a Resolver backed by extractor. Empty identity fields
// in opts fall back to the package defaults.
func NewResolver(extractor Extractor, opts ResolverOptions) *Resolver {
	if opts.DefaultUserAgent == "" {
		opts.DefaultUserAgent = DefaultUserAgent
	}
	if opts.Referer == "" {
		opts.Referer = DefaultReferer
	}
	if opts.GeoBypass && opts.GeoBypassCountry == "" {
		opts.GeoBypassCountry = DefaultGeoBypassCountry
	}
	return &Resolver{extractor: extractor, opts: opts}
}

// WatchURL returns the canonical watch page for videoID.
func WatchURL(videoID string) string {
	return watchURLPrefix + url.QueryEscape(videoID)
}

// Resolve asks the extractor for the variants of videoID and returns the
// first one that is audio-only and segmented, in the extractor's order.
//
// It returns ErrInvalidInput for an empty id (the extractor is not called),
// ErrNotFound when nothing qualifies, and a *ResolutionError when the
// extractor itself fails. There is no retry.
func (r *Resolver) Resolve(ctx context.Context, videoID, userAgent string) (StreamVariant, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return StreamVariant{}, errors.Wrap(ErrInvalidInput, "missing video id")
	}

	if userAgent == "" {
		userAgent = r.opts.DefaultUserAgent
	}

	variants, err := r.extractor.Extract(ctx, ExtractRequest{
		WatchURL:            WatchURL(videoID),
		UserAgent:           userAgent,
		Referer:             r.opts.Referer,
		GeoBypass:           r.opts.GeoBypass,
		GeoBypassCountry:    r.opts.GeoBypassCountry,
		NoCheckCertificates: r.opts.NoCheckCertificates,
	})
	if err != nil {
		var rerr *ResolutionError
		if errors.As(err, &rerr) {
			return StreamVariant{}, rerr
		}
		return StreamVariant{}, newResolutionError("", err)
	}

	if v, ok := SelectAudioVariant(variants); ok {
		return v, nil
	}
	return StreamVariant{}, errors.Wrapf(ErrNotFound, "video %s", videoID)
}

// SelectAudioVariant returns the first audio-only streamable variant.
func SelectAudioVariant(variants []StreamVariant) (StreamVariant, bool) {
	for _, v := range variants {
		if v.AudioOnlyStreamable() {
			return v, true
		}
	}
	return StreamVariant{}, false
}
