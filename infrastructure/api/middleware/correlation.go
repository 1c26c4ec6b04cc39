package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/skyvisionhq/skyvision/internal/log"
)

// CorrelationIDHeader is the header carrying the request correlation ID.
const CorrelationIDHeader = "X-Correlation-ID"

// CorrelationID attaches a correlation ID to each request. An incoming
// X-Correlation-ID header is honored so IDs survive proxies; otherwise a new
// one is generated. The ID is echoed on the response and stamped into the
// request context, where the log handler adds it to every record logged
// through a *Context method during the request.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := log.WithCorrelationID(r.Context(), id)
		w.Header().Set(CorrelationIDHeader, id)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCorrelationID returns the correlation ID from the context, or an empty
// string when the middleware did not run.
func GetCorrelationID(ctx context.Context) string {
	return log.CorrelationID(ctx)
}
