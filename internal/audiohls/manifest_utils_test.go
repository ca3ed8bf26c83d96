package audiohls

import (
	"net/url"
	"strings"
	"testing"
)

const testBase = "http://proxy.local:3000"

func TestRewriteManifest_no_urls_is_identity(t *testing.T) {
	in := "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:6\n\n#EXTINF:5.0,\nseg0.ts\n#EXT-X-ENDLIST\n"
	if out := RewriteManifest(in, testBase); out != in {
		t.Errorf("expected identity, got %q", out)
	}
}

func TestRewriteManifest_empty(t *testing.T) {
	if out := RewriteManifest("", testBase); out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestRewriteManifest_origin_example(t *testing.T) {
	in := "#EXTM3U\nhttp://origin/seg1.ts\n"
	want := "#EXTM3U\n" + testBase + "/proxy/segment?url=http%3A%2F%2Forigin%2Fseg1.ts\n"
	if out := RewriteManifest(in, testBase); out != want {
		t.Errorf("got %q\nwant %q", out, want)
	}
}

func TestRewriteManifest_key_uri_untouched(t *testing.T) {
	in := "#EXTM3U\n#EXT-X-KEY:METHOD=AES-128,URI=\"https://example.com/key\"\n#EXTINF:4.0,\nhttps://example.com/seg0.ts\n"
	out := RewriteManifest(in, testBase)

	lines := strings.Split(out, "\n")
	if lines[1] != "#EXT-X-KEY:METHOD=AES-128,URI=\"https://example.com/key\"" {
		t.Errorf("key line changed: %q", lines[1])
	}
	if !strings.HasPrefix(lines[3], testBase+"/proxy/segment?url=") {
		t.Errorf("segment line not rewritten: %q", lines[3])
	}
}

func TestRewriteManifest_preserves_crlf(t *testing.T) {
	in := "#EXTM3U\r\n#EXTINF:4.0,\r\nhttps://cdn.example/a.ts\r\n#EXT-X-ENDLIST\r\n"
	out := RewriteManifest(in, testBase)

	if strings.Count(out, "\r\n") != 4 {
		t.Errorf("expected 4 CRLF terminators: %q", out)
	}
	if strings.Contains(out, "https://cdn.example/a.ts") {
		t.Errorf("segment URL should be encoded: %q", out)
	}
	if strings.Contains(out, "%0D") {
		t.Errorf("carriage return leaked into reference: %q", out)
	}
}

func TestRewriteManifest_mixed_terminators(t *testing.T) {
	in := "#EXTM3U\nhttp://a/1.ts\r\nhttp://a/2.ts\n"
	out := RewriteManifest(in, testBase)
	want := "#EXTM3U\n" +
		ProxyReference(testBase, "http://a/1.ts") + "\r\n" +
		ProxyReference(testBase, "http://a/2.ts") + "\n"
	if out != want {
		t.Errorf("got %q\nwant %q", out, want)
	}
}

func TestRewriteManifest_last_line_without_terminator(t *testing.T) {
	in := "#EXTM3U\nhttps://example.com/seg0.ts"
	if out := RewriteManifest(in, "http://svc"); out != in {
		t.Errorf("expected unchanged, got %q", out)
	}

	in = "#EXTM3U\nhttps://example.com/seg0.ts\nhttps://example.com/seg1.ts"
	want := "#EXTM3U\n" + ProxyReference("http://svc", "https://example.com/seg0.ts") +
		"\nhttps://example.com/seg1.ts"
	if out := RewriteManifest(in, "http://svc"); out != want {
		t.Errorf("got %q\nwant %q", out, want)
	}
}

func TestRewriteManifest_url_followed_by_text_untouched(t *testing.T) {
	in := "#EXT-X-MAP:URI=https://a/init.mp4 BYTERANGE=1\nhttps://a/x.ts trailing\n"
	if out := RewriteManifest(in, testBase); out != in {
		t.Errorf("expected unchanged, got %q", out)
	}
}

func TestRewriteManifest_url_suffix_after_prefix(t *testing.T) {
	in := "#EXT-X-PRELOAD:https://a/p.ts\n"
	want := "#EXT-X-PRELOAD:" + ProxyReference(testBase, "https://a/p.ts") + "\n"
	if out := RewriteManifest(in, testBase); out != want {
		t.Errorf("got %q\nwant %q", out, want)
	}
}

func TestRewriteManifest_non_http_scheme_untouched(t *testing.T) {
	in := "skd://key-id\nftp://host/file\nhttp://\n"
	if out := RewriteManifest(in, testBase); out != in {
		t.Errorf("expected unchanged, got %q", out)
	}
}

func TestRewriteManifest_round_trip(t *testing.T) {
	urls := []string{
		"http://origin/seg1.ts",
		"https://rr3---sn-abc.googlevideo.com/videoplayback/id/abc.1/itag/234/source/yt_live_broadcast/expire/1700000000/sparams/a,b,c/sig/AOq0QJ8wRAIg/file/seg.ts",
		"https://cdn.example/path%20with%20escapes/seg.ts?token=a+b&x=1#frag",
		"https://example.com/ünïcödé/seg.aac",
	}
	for _, u := range urls {
		out := RewriteManifest("#EXTINF:5.0,\n"+u+"\n", testBase)
		line := strings.Split(out, "\n")[1]

		ref, err := url.Parse(line)
		if err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		if ref.Path != SegmentProxyPath {
			t.Errorf("path: got %q", ref.Path)
		}
		if got := ref.Query().Get("url"); got != u {
			t.Errorf("round trip: got %q want %q", got, u)
		}
	}
}

func TestProxyReference_trims_trailing_slash(t *testing.T) {
	got := ProxyReference("https://svc.example/", "http://o/a.ts")
	want := "https://svc.example/proxy/segment?url=http%3A%2F%2Fo%2Fa.ts"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}
