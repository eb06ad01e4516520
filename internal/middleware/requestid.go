package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	sessionIDKey contextKey = "session_id"

	HeaderRequestID = "X-Request-ID"
	HeaderSessionID = "X-Session-ID"
)

// RequestID tags the request with an id (the caller's, or a fresh uuid) and
// the Mini App session id when the client sends one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, rid)
		if sid := strings.TrimSpace(r.Header.Get(HeaderSessionID)); sid != "" && len(sid) <= 128 {
			ctx = context.WithValue(ctx, sessionIDKey, sid)
		}
		w.Header().Set(HeaderRequestID, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// SessionKey scopes the UI session id to the authenticated owner. Without the
// header every request of that owner shares one key.
func SessionKey(ctx context.Context) string {
	owner := UserIDFromContext(ctx)
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		return owner + "/" + v
	}
	return owner
}
