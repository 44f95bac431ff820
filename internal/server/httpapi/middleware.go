package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/mycloud/internal/common"
	"github.com/dmitrijs2005/mycloud/internal/logging"
	"github.com/dmitrijs2005/mycloud/internal/server/models"
)

type contextKey string

const subjectKey contextKey = "subject"

// subjectFrom returns the authenticated user attached by sessionMiddleware,
// or nil for anonymous requests.
func subjectFrom(ctx context.Context) *models.UserInfo {
	subject, _ := ctx.Value(subjectKey).(*models.UserInfo)
	return subject
}

// sessionMiddleware resolves the session cookie to a user and attaches it to
// the request context. Anonymous requests pass through with a nil subject;
// it is each handler's service call that decides whether that is acceptable.
func (h *Handlers) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(common.SessionCookieName); err == nil {
			token = c.Value
		}

		subject, err := h.sessions.Resolve(r.Context(), token)
		if err != nil {
			h.logger.Error(r.Context(), "session resolution failed", "error", err)
			writeError(w, common.ErrorTransient)
			return
		}

		if subject != nil {
			r = r.WithContext(context.WithValue(r.Context(), subjectKey, subject))
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// requestLogger logs one line per request with method, path, status, and
// duration.
func requestLogger(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
