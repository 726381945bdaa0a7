package middleware

import (
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/n8Develop/BeeBeeBee/internal/directory"
	"github.com/n8Develop/BeeBeeBee/internal/metrics"
	"github.com/n8Develop/BeeBeeBee/internal/session"
)

// NewAuthMiddleware authenticates the websocket upgrade request from the
// "token" cookie the web app sets at login. The token's subject is resolved
// against the user directory so a valid token for a deleted user is still
// rejected, and so the session carries a current username.
func NewAuthMiddleware(logger *slog.Logger, jwtSecret string, dir directory.Directory) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Metadata missing means a broken middleware order, not a bad client.
			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			cookie, err := r.Cookie("token")
			if err != nil || cookie.Value == "" {
				logger.Warn("No auth token attached to request", slog.String("ip", reqMeta.IP))
				metrics.AuthFailures.Inc()
				http.Error(w, "Missing token", http.StatusUnauthorized)
				return
			}

			token, err := jwt.ParseWithClaims(cookie.Value, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("Invalid JWT token presented", slog.String("ip", reqMeta.IP), slog.Any("error", err))
				metrics.AuthFailures.Inc()
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(*jwt.RegisteredClaims)
			if !ok || claims.Subject == "" {
				logger.Warn("Valid token missing 'sub' claim", slog.String("ip", reqMeta.IP))
				metrics.AuthFailures.Inc()
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := dir.FindUserByID(r.Context(), claims.Subject)
			if err != nil {
				logger.Error("User lookup failed during auth",
					slog.String("ip", reqMeta.IP), slog.Any("error", err))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if user == nil {
				logger.Warn("Token subject does not exist",
					slog.String("ip", reqMeta.IP), slog.String("userID", claims.Subject))
				metrics.AuthFailures.Inc()
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			reqMeta.User = session.User{ID: user.ID, Username: user.Username}
			next.ServeHTTP(w, r)
		})
	}
}
