package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Saketh-spark/KLH-UniConnect-sub001/pkg/protocol"
)

// AppClaims defines our custom JWT claims structure.
type AppClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// NewIdentityMiddleware resolves the connecting user's id and role. It tries
// a signed session token first (cookie, then bearer header) and falls back to
// the handshake's `userId` / `role` query parameters. It never rejects here:
// an unresolved identity leaves UserID empty and the upgrade handler closes
// the channel with a policy-violation status.
func NewIdentityMiddleware(logger *slog.Logger, jwtSecret string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			if claims := parseToken(logger, r, jwtSecret); claims != nil && claims.Subject != "" {
				reqMeta.UserID = claims.Subject
				reqMeta.Role = normalizeRole(claims.Role)
				next.ServeHTTP(w, r)
				return
			}

			// Handshake query parameters are the documented fallback for
			// clients without a session token.
			query := r.URL.Query()
			reqMeta.UserID = query.Get("userId")
			reqMeta.Role = normalizeRole(query.Get("role"))
			if reqMeta.UserID == "" {
				logger.Warn("No resolvable user id on handshake", slog.String("ip", reqMeta.IP))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseToken(logger *slog.Logger, r *http.Request, jwtSecret string) *AppClaims {
	var tokenString string
	if cookie, err := r.Cookie("session-token"); err == nil {
		tokenString = cookie.Value
	} else if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		tokenString = strings.TrimPrefix(auth, "Bearer ")
	}
	if tokenString == "" {
		return nil
	}

	// Parse and validate the JWT token with HMAC signing
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		logger.Warn("Invalid session token presented", slog.Any("error", err))
		return nil
	}

	claims, ok := token.Claims.(*AppClaims)
	if !ok {
		logger.Warn("Failed to parse custom JWT claims")
		return nil
	}
	return claims
}

func normalizeRole(role string) string {
	switch strings.ToUpper(role) {
	case protocol.RoleFaculty:
		return protocol.RoleFaculty
	default:
		return protocol.RoleStudent
	}
}
