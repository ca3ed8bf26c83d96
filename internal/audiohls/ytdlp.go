package audiohls

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

// DefaultYTDLPPath is the executable looked up on PATH when none is configured.
const DefaultYTDLPPath = "yt-dlp"

// YTDLP is an Extractor that runs the yt-dlp command line tool and decodes
// its single-JSON dump.
type YTDLP struct {
	path    string
	timeout time.Duration
}

// NewYTDLP returns an extractor running the binary at path. A zero timeout
// leaves the call bounded only by ctx.
func NewYTDLP(path string, timeout time.Duration) *YTDLP {
	if path == "" {
		path = DefaultYTDLPPath
	}
	return &YTDLP{path: path, timeout: timeout}
}

type ytdlpFormat struct {
	FormatID string `json:"format_id"`
	Protocol string `json:"protocol"`
	ACodec   string `json:"acodec"`
	VCodec   string `json:"vcodec"`
	URL      string `json:"url"`
}

type ytdlpInfo struct {
	ID      string        `json:"id"`
	Formats []ytdlpFormat `json:"formats"`
}

// Args returns the command line passed to yt-dlp for req.
func (y *YTDLP) Args(req ExtractRequest) []string {
	args := []string{"--dump-single-json", "--no-warnings", "--skip-download"}
	if req.GeoBypass {
		args = append(args, "--geo-bypass")
		if req.GeoBypassCountry != "" {
			args = append(args, "--geo-bypass-country", req.GeoBypassCountry)
		}
	}
	if req.NoCheckCertificates {
		args = append(args, "--no-check-certificates")
	}
	if req.Referer != "" {
		args = append(args, "--add-header", "referer:"+req.Referer)
	}
	if req.UserAgent != "" {
		args = append(args, "--add-header", "user-agent:"+req.UserAgent)
	}
	return append(args, "--", req.WatchURL)
}

// Extract implements Extractor.
func (y *YTDLP) Extract(ctx context.Context, req ExtractRequest) ([]StreamVariant, error) {
	if y.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, y.path, y.Args(req)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = errors.Wrap(ctx.Err(), "yt-dlp")
		}
		return nil, newResolutionError(stderr.String(), errors.Wrap(err, "run yt-dlp"))
	}

	variants, err := decodeYTDLP(stdout.Bytes())
	if err != nil {
		return nil, newResolutionError(stderr.String(), err)
	}
	return variants, nil
}

func decodeYTDLP(data []byte) ([]StreamVariant, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, errors.Wrap(err, "decode yt-dlp output")
	}

	variants := make([]StreamVariant, 0, len(info.Formats))
	for _, f := range info.Formats {
		variants = append(variants, StreamVariant{
			Protocol:   ParseProtocol(f.Protocol),
			AudioCodec: f.ACodec,
			VideoCodec: f.VCodec,
			MediaURL:   f.URL,
		})
	}
	return variants, nil
}
