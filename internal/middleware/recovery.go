package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/2beens/posecoach/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// PanicRecovery turns a handler panic into a 500 and an error log, which the
// sentry hook forwards. http.ErrAbortHandler is re-raised so net/http can
// abort the connection quietly.
func PanicRecovery(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(respWriter http.ResponseWriter, req *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				if metricsManager != nil {
					metricsManager.CounterHandleRequestPanic.Inc()
				}
				log.WithFields(log.Fields{
					"route":   routeName(req),
					"session": mux.Vars(req)["id"],
				}).Errorf("http: panic serving %s: %v\n%s", req.URL.Path, rec, debug.Stack())
				http.Error(respWriter, "internal server error", http.StatusInternalServerError)
			}()

			next.ServeHTTP(respWriter, req)
		})
	}
}
