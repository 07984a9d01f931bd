package middleware

import (
	"net/http"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// LogRequest logs every incoming request with a generated request id, so
// log lines of one request can be grepped together.
func LogRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()
			log.Tracef(
				" ====> request [%s] [%s] path: [%s] [UA: %s]",
				requestID, r.Method, r.URL.Path, r.Header.Get("User-Agent"),
			)
			w.Header().Set("X-Request-Id", requestID)
			next.ServeHTTP(w, r)
		})
	}
}
