package audiohls

import "strings"

// Protocol classifies how a variant is delivered by its origin.
type Protocol int

const (
	ProtocolOther Protocol = iota
	// ProtocolSegmentedHTTP is a manifest-based (HLS) delivery.
	ProtocolSegmentedHTTP
	// ProtocolProgressive is a single plain HTTP(S) download.
	ProtocolProgressive
)

func (p Protocol) String() string {
	switch p {
	case ProtocolSegmentedHTTP:
		return "segmented-http"
	case ProtocolProgressive:
		return "progressive"
	default:
		return "other"
	}
}

// ParseProtocol maps an extractor protocol name ("m3u8_native", "https", ...)
// onto a Protocol.
func ParseProtocol(s string) Protocol {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(s, "m3u8"):
		return ProtocolSegmentedHTTP
	case s == "http" || s == "https":
		return ProtocolProgressive
	default:
		return ProtocolOther
	}
}

// codecNone is the extractor's marker for a missing audio or video track.
const codecNone = "none"

// StreamVariant is one candidate encoding offered for a video.
type StreamVariant struct {
	Protocol   Protocol
	AudioCodec string
	VideoCodec string
	MediaURL   string
}

// HasAudio reports whether the variant carries an audio track.
func (v StreamVariant) HasAudio() bool { return v.AudioCodec != codecNone }

// HasVideo reports whether the variant carries a video track.
func (v StreamVariant) HasVideo() bool { return v.VideoCodec != codecNone }

// AudioOnlyStreamable reports whether v is a segmented stream with audio and
// no video.
func (v StreamVariant) AudioOnlyStreamable() bool {
	return v.Protocol == ProtocolSegmentedHTTP && v.HasAudio() && !v.HasVideo()
}

// ExtractRequest is what the resolver hands to an Extractor.
type ExtractRequest struct {
	WatchURL            string
	UserAgent           string
	Referer             string
	GeoBypass           bool
	GeoBypassCountry    string
	NoCheckCertificates bool
}

// RelayStats describes one completed (or interrupted) relay.
type RelayStats struct {
	ContentType string
	Bytes       int64
	Chunks      int
}
