package middleware

import (
	"log/slog"
	"net/http"
)

// NewRequestLogger logs each upgrade request that passed authentication. It
// sits after auth in the chain so the line carries the resolved user;
// rejected requests are logged by the auth middleware itself.
func NewRequestLogger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if reqMeta, ok := ReqMetadataFrom(r.Context()); ok {
				logger.Info("Upgrade request",
					slog.String("path", r.URL.Path),
					slog.String("ip", reqMeta.IP),
					slog.String("userID", reqMeta.User.ID),
					slog.String("username", reqMeta.User.Username),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}
