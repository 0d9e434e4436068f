package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// LogRequest logs every request once it is served. Frames arrive many times a
// second, so successful requests stay at trace level and only server errors
// are logged as warnings.
func LogRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			begin := time.Now()
			resp := &responseWriter{w, http.StatusOK}

			next.ServeHTTP(resp, r)

			fields := log.Fields{
				"method":   r.Method,
				"route":    routeName(r),
				"status":   resp.statusCode,
				"duration": time.Since(begin).String(),
			}
			if id := mux.Vars(r)["id"]; id != "" {
				fields["session"] = id
			}

			entry := log.WithFields(fields)
			if resp.statusCode >= http.StatusInternalServerError {
				entry.Warnf("request [%s] failed", r.URL.Path)
				return
			}
			entry.Tracef("request [%s] [UA: %s]", r.URL.Path, r.Header.Get("User-Agent"))
		})
	}
}
