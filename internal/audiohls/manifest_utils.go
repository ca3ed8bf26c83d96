package audiohls

import (
	"net/url"
	"strings"
	"unicode"
)

// ManifestContentType is the media type of every rewritten manifest.
const ManifestContentType = "application/vnd.apple.mpegurl"

// SegmentProxyPath is the route rewritten references point at.
const SegmentProxyPath = "/proxy/segment"

// ProxyReference returns the same-origin URL that relays target through
// baseURL. Decoding its "url" query parameter yields target unchanged.
func ProxyReference(baseURL, target string) string {
	q := url.Values{"url": []string{target}}
	return strings.TrimRight(baseURL, "/") + SegmentProxyPath + "?" + q.Encode()
}

// RewriteManifest replaces every absolute URL immediately followed by a line
// terminator ("\n" or "\r\n") with a ProxyReference built from baseURL.
// Terminators are copied verbatim and every other byte is left as it is, so
// a final line with no terminator is never rewritten.
func RewriteManifest(text, baseURL string) string {
	var b strings.Builder
	b.Grow(len(text))

	rest := text
	for len(rest) > 0 {
		line, term := rest, ""
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			line, term = rest[:i], "\n"
			if strings.HasSuffix(line, "\r") {
				line, term = line[:len(line)-1], "\r\n"
			}
			rest = rest[i+1:]
		} else {
			rest = ""
		}

		if at := trailingURLStart(line); at >= 0 && term != "" {
			b.WriteString(line[:at])
			b.WriteString(ProxyReference(baseURL, line[at:]))
		} else {
			b.WriteString(line)
		}
		b.WriteString(term)
	}

	return b.String()
}

// trailingURLStart returns the leftmost index from which the remainder of
// line is an http(s) URL free of whitespace and quotes, or -1.
func trailingURLStart(line string) int {
	start := strings.LastIndexFunc(line, isURLBreak) + 1
	tail := line[start:]
	for off := 0; ; {
		i := strings.Index(tail[off:], "http")
		if i < 0 {
			return -1
		}
		off += i
		if n := schemeLen(tail[off:]); n > 0 && len(tail) > off+n {
			return start + off
		}
		off++
	}
}

// schemeLen returns the length of a leading "http://" or "https://", or 0.
func schemeLen(s string) int {
	for _, p := range [...]string{"http://", "https://"} {
		if strings.HasPrefix(s, p) {
			return len(p)
		}
	}
	return 0
}

func isURLBreak(r rune) bool {
	return r == '"' || r == '\'' || unicode.IsSpace(r)
}
