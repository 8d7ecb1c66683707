package middleware

import (
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	apperrors "github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/errors"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/httputil"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/logging"
)

// Auth is the authorization hook. When a signing secret is configured
// it requires a valid HS256 bearer token and stamps the subject into
// the request context; policy beyond token validity is out of scope.
// With an empty secret the hook passes every request through.
func Auth(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}

		key := []byte(secret)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httputil.WriteError(w, apperrors.Unauthorized("missing bearer token"))
				return
			}

			token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return key, nil
			})
			if err != nil || !token.Valid {
				httputil.WriteError(w, apperrors.Unauthorized("invalid token"))
				return
			}

			if subject, subErr := token.Claims.GetSubject(); subErr == nil && subject != "" {
				r = r.WithContext(logging.WithOperator(r.Context(), subject))
			}
			next.ServeHTTP(w, r)
		})
	}
}
