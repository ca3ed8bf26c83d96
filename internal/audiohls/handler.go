package audiohls

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"audio-hls-proxy/internal/platform/logger"
	"audio-hls-proxy/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// HandlerOptions controls how the externally visible base URL is derived.
type HandlerOptions struct {
	// PublicBaseURL, when set, is used for every rewritten reference.
	PublicBaseURL string
	// TrustForwardedHeaders honours X-Forwarded-Proto and X-Forwarded-Host.
	TrustForwardedHeaders bool
}

// Handler exposes the audio HLS endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
	opts    HandlerOptions
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics, opts HandlerOptions) *Handler {
	return &Handler{svc: svc, log: log, metrics: m, opts: opts}
}

// Routes mounts the three proxy endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/audio-hls/{videoId}", h.GetAudioManifest)
	r.Get("/api/audio-hls/", h.GetAudioManifest)
	r.Get("/proxy/manifest", h.ProxyManifest)
	r.Get(SegmentProxyPath, h.ProxySegment)
}

// GetAudioManifest handles GET /api/audio-hls/{videoId}.
func (h *Handler) GetAudioManifest(w http.ResponseWriter, r *http.Request) {
	videoID := strings.TrimSpace(chi.URLParam(r, "videoId"))
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "Missing videoId")
		return
	}

	res, err := h.svc.AudioManifest(r.Context(), videoID, r.UserAgent(), h.baseURL(r))
	if err != nil {
		var rerr *ResolutionError
		switch {
		case errors.Is(err, ErrNotFound):
			h.countResolution(metrics.ResultNotFound)
			h.log.Info("no audio-only variant",
				slog.String("video_id", videoID),
				slog.String("request_id", logger.RequestID(r.Context())))
			writeError(w, http.StatusNotFound, "No HLS audio format found")
		case errors.As(err, &rerr):
			h.countResolution(metrics.ResultError)
			h.log.Error("resolve failed",
				slog.String("video_id", videoID),
				slog.String("request_id", logger.RequestID(r.Context())),
				slog.String("error", err.Error()))
			msg := rerr.Diagnostic
			if msg == "" {
				msg = "yt-dlp failed"
			}
			writeError(w, http.StatusInternalServerError, msg)
		case errors.Is(err, ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Missing videoId")
		default:
			// Resolution succeeded; the variant manifest could not be fetched.
			h.countResolution(metrics.ResultOK)
			h.log.Error("variant manifest fetch failed",
				slog.String("video_id", videoID),
				slog.String("request_id", logger.RequestID(r.Context())),
				slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "Failed to fetch audio manifest")
		}
		return
	}

	h.countResolution(metrics.ResultOK)
	h.log.Debug("audio manifest served",
		slog.String("video_id", videoID),
		slog.String("variant_url", res.Variant.MediaURL))
	h.writeManifest(w, res.Manifest)
}

// ProxyManifest handles GET /proxy/manifest?url=.
func (h *Handler) ProxyManifest(w http.ResponseWriter, r *http.Request) {
	manifestURL := r.URL.Query().Get("url")
	if manifestURL == "" {
		writeError(w, http.StatusBadRequest, "Missing manifest URL")
		return
	}

	manifest, err := h.svc.ProxyManifest(r.Context(), manifestURL, h.baseURL(r))
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			h.log.Debug("invalid manifest url", slog.String("error", err.Error()))
			writeError(w, http.StatusBadRequest, "Invalid manifest URL")
			return
		}
		h.log.Error("manifest proxy failed",
			slog.String("request_id", logger.RequestID(r.Context())),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to proxy manifest")
		return
	}

	h.writeManifest(w, manifest)
}

// ProxySegment handles GET /proxy/segment?url=. The body is streamed; if the
// upstream fails after the header was sent the client connection is aborted.
func (h *Handler) ProxySegment(w http.ResponseWriter, r *http.Request) {
	segmentURL := r.URL.Query().Get("url")
	if segmentURL == "" {
		writeError(w, http.StatusBadRequest, "Missing segment URL")
		return
	}

	if h.metrics != nil {
		defer h.metrics.RelayStarted()()
	}

	stats, err := h.svc.RelaySegment(r.Context(), w, segmentURL)
	if h.metrics != nil {
		h.metrics.AddRelayBytes(stats.Bytes)
	}

	switch {
	case err == nil:
		h.log.Debug("segment relayed",
			slog.Int64("bytes", stats.Bytes),
			slog.Int("chunks", stats.Chunks),
			slog.String("content_type", stats.ContentType))
	case errors.Is(err, ErrInvalidInput):
		h.log.Debug("invalid segment url", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "Invalid segment URL")
	case errors.Is(err, ErrStreamInterrupted):
		if r.Context().Err() != nil {
			h.log.Debug("client closed segment stream",
				slog.Int64("bytes", stats.Bytes),
				slog.String("request_id", logger.RequestID(r.Context())))
			return
		}
		h.log.Warn("segment relay interrupted",
			slog.Int64("bytes", stats.Bytes),
			slog.String("request_id", logger.RequestID(r.Context())),
			slog.String("error", err.Error()))
		panic(http.ErrAbortHandler)
	default:
		h.log.Error("segment proxy failed",
			slog.String("request_id", logger.RequestID(r.Context())),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to proxy segment")
	}
}

func (h *Handler) writeManifest(w http.ResponseWriter, manifest string) {
	w.Header().Set("Content-Type", ManifestContentType)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(manifest))
	if h.metrics != nil {
		h.metrics.IncManifestsRewritten()
	}
}

func (h *Handler) countResolution(result string) {
	if h.metrics != nil {
		h.metrics.IncResolutions(result)
	}
}

// baseURL is the scheme and host clients use to reach this service.
func (h *Handler) baseURL(r *http.Request) string {
	if h.opts.PublicBaseURL != "" {
		return strings.TrimRight(h.opts.PublicBaseURL, "/")
	}

	scheme, host := "http", r.Host
	if r.TLS != nil {
		scheme = "https"
	}
	if h.opts.TrustForwardedHeaders {
		if p := firstHeaderValue(r.Header.Get("X-Forwarded-Proto")); p != "" {
			scheme = p
		}
		if fh := firstHeaderValue(r.Header.Get("X-Forwarded-Host")); fh != "" {
			host = fh
		}
	}
	return scheme + "://" + host
}

func firstHeaderValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: msg})
}
