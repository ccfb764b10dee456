package middleware

import (
	"net/http"
	"strings"

	"github.com/tenantedu/campus/internal/httputil"
	"github.com/tenantedu/campus/pkg/auth"
)

// Auth creates middleware that validates a bearer session token and
// attaches the authenticated user to the request context. A request
// without a token passes through unauthenticated; the guard decides
// whether identity is required. Any present-but-invalid token fails
// closed with 401.
//
// Must run after Tenant: the token's tenant claim is checked against the
// resolved tenant, so a token minted for one tenant is useless against
// another tenant's subdomain.
func Auth(tokens *auth.TokenService, users auth.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					tokenString = parts[1]
				}
			}

			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Verify(tokenString, auth.PurposeLogin)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			userID, tokenTenantID, err := claims.SubjectIDs()
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid token subject")
				return
			}

			// Public allow-list paths resolve no tenant. A token there has
			// nothing to bind against, so the request proceeds
			// unauthenticated rather than failing closed; the guard still
			// rejects wherever identity is required.
			tenant, ok := GetTenant(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			if tenant.ID != tokenTenantID {
				httputil.Error(w, http.StatusUnauthorized, "token not valid for this tenant")
				return
			}

			// Load the identity fresh so role and status changes take
			// effect immediately, not at token expiry.
			user, err := users.GetByID(r.Context(), tenant.ID, userID)
			if err != nil || !user.IsActive() {
				httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
