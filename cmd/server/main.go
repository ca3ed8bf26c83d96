package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"audio-hls-proxy/internal/audiohls"
	"audio-hls-proxy/internal/platform/config"
	"audio-hls-proxy/internal/platform/cors"
	"audio-hls-proxy/internal/platform/logger"
	"audio-hls-proxy/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "3000")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	resolverOpts := audiohls.ResolverOptions{
		DefaultUserAgent:    config.GetEnv("DEFAULT_USER_AGENT", audiohls.DefaultUserAgent),
		Referer:             config.GetEnv("RESOLVER_REFERER", audiohls.DefaultReferer),
		GeoBypass:           config.GetEnvBool("GEO_BYPASS", true),
		GeoBypassCountry:    config.GetEnv("GEO_BYPASS_COUNTRY", audiohls.DefaultGeoBypassCountry),
		NoCheckCertificates: config.GetEnvBool("NO_CHECK_CERTIFICATES", true),
	}
	extractor := audiohls.NewYTDLP(
		config.GetEnv("YTDLP_PATH", audiohls.DefaultYTDLPPath),
		config.GetEnvDuration("RESOLVE_TIMEOUT", 45*time.Second),
	)
	relay := audiohls.NewRelay(audiohls.RelayOptions{
		HeaderTimeout:    config.GetEnvDuration("UPSTREAM_HEADER_TIMEOUT", 15*time.Second),
		ManifestTimeout:  config.GetEnvDuration("MANIFEST_TIMEOUT", 15*time.Second),
		MaxManifestBytes: config.GetEnvInt64("MAX_MANIFEST_BYTES", audiohls.DefaultMaxManifestBytes),
		BufferSize:       config.GetEnvInt("RELAY_BUFFER_SIZE", audiohls.DefaultRelayBufferSize),
		UserAgent:        config.GetEnv("RELAY_USER_AGENT", ""),
	})

	svc := audiohls.NewService(audiohls.NewResolver(extractor, resolverOpts), relay)
	met := metrics.New()
	h := audiohls.NewHandler(svc, log, met, audiohls.HandlerOptions{
		PublicBaseURL:         config.GetEnv("PUBLIC_BASE_URL", ""),
		TrustForwardedHeaders: config.GetEnvBool("TRUST_FORWARDED_HEADERS", false),
	})

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll())
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", met.Handler())
	h.Routes(r)

	addr := ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"log_level", logLevel,
		"geo_bypass", resolverOpts.GeoBypass,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
