package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/solarerp/internal/core"
	"github.com/JonMunkholm/solarerp/internal/web/middleware"
)

// WithRequestMetadata records the client IP and User-Agent of r as the
// audit origin.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.WithOrigin(ctx, core.Origin{
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
}

// auditMetadata attaches request metadata to every request context so
// mutations record who made them.
func auditMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithRequestMetadata(r.Context(), r)))
	})
}
