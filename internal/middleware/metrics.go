package middleware

import (
	"net/http"

	"github.com/campuskit/access-api/internal/metrics"
	"github.com/campuskit/access-api/internal/request"
	"github.com/gorilla/mux"
)

// Metrics records one event per handled request into the injected sink.
// Apply after Auth so the subject id is visible; on public routes the
// subject is empty.
func Metrics(sink metrics.Sink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			subjectID := ""
			if claims := request.ClaimsFromContext(r); claims != nil {
				subjectID = claims.SubjectID
			}
			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			sink.RecordRequest(subjectID, r.Method, route, wrapped.statusCode)
		})
	}
}

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (mw *metricsResponseWriter) WriteHeader(code int) {
	mw.statusCode = code
	mw.ResponseWriter.WriteHeader(code)
}
