package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tenantedu/campus/internal/httputil"
	"github.com/tenantedu/campus/pkg/domain"
	"github.com/tenantedu/campus/pkg/tenancy"
)

// Paths that may be served without a resolved tenant: health checks and
// tenant provisioning. Everything else requires a tenant subdomain.
var publicPaths = map[string]bool{
	"/health":                true,
	"/v1/tenants":            true,
	"/v1/tenants/slug-check": true,
}

// Tenant creates middleware that resolves the request's host to a tenant
// and attaches it to the request context. Resolution happens per request;
// nothing is cached across requests.
func Tenant(directory *tenancy.Directory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[strings.TrimSuffix(r.URL.Path, "/")] {
				next.ServeHTTP(w, r)
				return
			}

			tenant, err := directory.Resolve(r.Context(), r.Host)
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrTenantRequired):
					httputil.Error(w, http.StatusBadRequest, "tenant subdomain required")
				case errors.Is(err, domain.ErrTenantNotFound):
					httputil.Error(w, http.StatusNotFound, "tenant not found")
				case errors.Is(err, domain.ErrTenantSuspended):
					httputil.Error(w, http.StatusForbidden, "tenant account is suspended")
				default:
					httputil.Error(w, http.StatusInternalServerError, "tenant resolution failed")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tenant)))
		})
	}
}
