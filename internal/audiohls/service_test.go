package audiohls

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newOrigin(t *testing.T) *httptest.Server {
	t.Helper()
	var origin *httptest.Server
	origin = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/playlist.m3u8":
			w.Header().Set("Content-Type", "application/x-mpegURL")
			w.Write([]byte("#EXTM3U\n#EXTINF:5.0,\n" + origin.URL + "/seg1.ts\n#EXT-X-ENDLIST\n"))
		case "/seg1.ts":
			w.Header().Set("Content-Type", "video/mp2t")
			w.Write([]byte("TS-DATA"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(origin.Close)
	return origin
}

func newTestService(ext Extractor) *Service {
	return NewService(NewResolver(ext, DefaultResolverOptions()), NewRelay(RelayOptions{}))
}

func TestService_AudioManifest(t *testing.T) {
	origin := newOrigin(t)
	svc := newTestService(&fakeExtractor{variants: []StreamVariant{audioHLS(origin.URL + "/playlist.m3u8")}})

	res, err := svc.AudioManifest(context.Background(), "abc", "", testBase)
	if err != nil {
		t.Fatalf("AudioManifest: %v", err)
	}
	want := ProxyReference(testBase, origin.URL+"/seg1.ts")
	if !strings.Contains(res.Manifest, "\n"+want+"\n") {
		t.Errorf("segment not rewritten:\n%s", res.Manifest)
	}
	if res.Variant.MediaURL != origin.URL+"/playlist.m3u8" {
		t.Errorf("variant = %+v", res.Variant)
	}
}

func TestService_AudioManifest_fetch_failure(t *testing.T) {
	origin := newOrigin(t)
	svc := newTestService(&fakeExtractor{variants: []StreamVariant{audioHLS(origin.URL + "/missing.m3u8")}})

	_, err := svc.AudioManifest(context.Background(), "abc", "", testBase)
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestService_AudioManifest_bad_variant_url_is_not_invalid_input(t *testing.T) {
	svc := newTestService(&fakeExtractor{variants: []StreamVariant{audioHLS("")}})

	_, err := svc.AudioManifest(context.Background(), "abc", "", testBase)
	if errors.Is(err, ErrInvalidInput) {
		t.Errorf("extractor URL problem reported as invalid input: %v", err)
	}
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestService_ProxyManifest(t *testing.T) {
	origin := newOrigin(t)
	svc := newTestService(&fakeExtractor{})

	out, err := svc.ProxyManifest(context.Background(), origin.URL+"/playlist.m3u8", testBase)
	if err != nil {
		t.Fatalf("ProxyManifest: %v", err)
	}
	if strings.Contains(out, origin.URL+"/seg1.ts\n") {
		t.Errorf("segment left un-proxied:\n%s", out)
	}
	if !strings.HasPrefix(out, "#EXTM3U\n#EXTINF:5.0,\n") || !strings.HasSuffix(out, "#EXT-X-ENDLIST\n") {
		t.Errorf("directives changed:\n%s", out)
	}
}

func TestService_RelaySegment(t *testing.T) {
	origin := newOrigin(t)
	svc := newTestService(&fakeExtractor{})

	rec := httptest.NewRecorder()
	stats, err := svc.RelaySegment(context.Background(), rec, origin.URL+"/seg1.ts")
	if err != nil {
		t.Fatalf("RelaySegment: %v", err)
	}
	if rec.Body.String() != "TS-DATA" || stats.ContentType != "video/mp2t" {
		t.Errorf("body %q stats %+v", rec.Body.String(), stats)
	}
}
