package cors

import (
	"net/http"

	chicors "github.com/go-chi/cors"
)

// AllowAll returns chi middleware that permits any origin without
// credentials and answers preflight requests itself.
func AllowAll() func(next http.Handler) http.Handler {
	return chicors.Handler(chicors.Options{
		AllowedOrigins:       []string{"*"},
		AllowedMethods:       []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders:       []string{"*"},
		ExposedHeaders:       []string{"Content-Type", "Content-Length", "X-Request-Id"},
		AllowCredentials:     false,
		MaxAge:               86400,
		OptionsSuccessStatus: http.StatusNoContent,
	})
}
