package audiohls

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
)

// Resolution is the outcome of AudioManifest: the chosen variant and the
// rewritten manifest text.
type Resolution struct {
	Variant  StreamVariant
	Manifest string
}

// Service composes the resolver, relay and rewriter into the three exposed
// operations. It holds no per-request state.
type Service struct {
	resolver *Resolver
	relay    *Relay
}

// NewService returns a Service using resolver and relay.
func NewService(resolver *Resolver, relay *Relay) *Service {
	return &Service{resolver: resolver, relay: relay}
}

// AudioManifest resolves videoID, fetches the selected variant's manifest and
// rewrites it against baseURL.
func (s *Service) AudioManifest(ctx context.Context, videoID, userAgent, baseURL string) (Resolution, error) {
	v, err := s.resolver.Resolve(ctx, videoID, userAgent)
	if err != nil {
		return Resolution{}, err
	}

	body, err := s.relay.Fetch(ctx, v.MediaURL)
	if err != nil {
		// A bad URL from the extractor is a resolution failure, not bad input.
		if errors.Is(err, ErrInvalidInput) {
			err = &UpstreamError{URL: v.MediaURL, Err: errors.Errorf("variant url: %v", err)}
		}
		return Resolution{Variant: v}, errors.Wrap(err, "fetch variant manifest")
	}
	return Resolution{Variant: v, Manifest: RewriteManifest(string(body), baseURL)}, nil
}

// ProxyManifest fetches the manifest at manifestURL and rewrites it against
// baseURL.
func (s *Service) ProxyManifest(ctx context.Context, manifestURL, baseURL string) (string, error) {
	body, err := s.relay.Fetch(ctx, manifestURL)
	if err != nil {
		return "", err
	}
	return RewriteManifest(string(body), baseURL), nil
}

// RelaySegment streams segmentURL into w.
func (s *Service) RelaySegment(ctx context.Context, w http.ResponseWriter, segmentURL string) (RelayStats, error) {
	return s.relay.Stream(ctx, w, segmentURL)
}
