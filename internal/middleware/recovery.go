package middleware

import (
	"net/http"

	"github.com/onnwee/metro-map/backend/internal/apierr"
	"github.com/onnwee/metro-map/backend/internal/errorreporting"
	"github.com/onnwee/metro-map/backend/internal/logger"
)

// RecoverWithSentry turns handler panics into a SYSTEM_INTERNAL response and
// reports them to Sentry.
func RecoverWithSentry(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			err := errorreporting.CapturePanic(rec, map[string]string{
				"method": r.Method,
				"route":  r.URL.Path,
			})
			logger.ErrorContext(r.Context(), "Panic recovered",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path,
			)

			apierr.WriteErrorWithContext(w, r, apierr.SystemInternal(""))
		}()

		next.ServeHTTP(w, r)
	})
}
