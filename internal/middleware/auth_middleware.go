package middleware

import (
	"context"
	"net/http"

	"custody/internal/errs"

	"github.com/golang-jwt/jwt/v4"
	"github.com/zeromicro/go-zero/rest/httpx"
)

type ctxKey string

// CtxKeyUserId carries the authenticated user id through the request context.
const CtxKeyUserId ctxKey = "userId"

// AuthMiddleware verifies the auth_token cookie and injects the user id.
// Login/signup live elsewhere; the core only consumes the resulting identity.
type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("auth_token")
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, errs.New(errs.KindUnauthorized, "not authenticated"))
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errs.New(errs.KindUnauthorized, "unexpected signing method")
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			httpx.ErrorCtx(r.Context(), w, errs.New(errs.KindUnauthorized, "invalid token"))
			return
		}

		userId, _ := claims["userId"].(string)
		if userId == "" {
			httpx.ErrorCtx(r.Context(), w, errs.New(errs.KindUnauthorized, "invalid token"))
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), CtxKeyUserId, userId)))
	}
}

// UserIdFromCtx extracts the authenticated user id set by the middleware.
func UserIdFromCtx(ctx context.Context) string {
	userId, _ := ctx.Value(CtxKeyUserId).(string)
	return userId
}
