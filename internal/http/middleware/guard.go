package middleware

import (
	"net/http"

	"github.com/tenantedu/campus/internal/httputil"
	"github.com/tenantedu/campus/pkg/domain"
)

// Requirement declares a handler's preconditions. The guard always
// evaluates them in the fixed order tenant context, authenticated
// identity, role, feature entitlement, short-circuiting on the first
// failure, regardless of which fields are set. Role or feature
// requirements imply the tenant and identity checks.
type Requirement struct {
	// Identity requires an authenticated user even when Roles is empty.
	Identity bool
	// Roles restricts access to the given role set.
	Roles domain.RoleSet
	// Feature requires the tenant's plan to grant the named feature flag.
	Feature string
}

// Guard creates middleware enforcing a Requirement. It reads only what
// the Tenant and Auth middleware attached to the context; evaluating it
// twice with the same context yields the same verdict.
func Guard(req Requirement) func(http.Handler) http.Handler {
	needsIdentity := req.Identity || len(req.Roles) > 0 || req.Feature != ""
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant, ok := GetTenant(r.Context())
			if !ok {
				httputil.Error(w, http.StatusBadRequest, "tenant context required")
				return
			}

			user, authed := GetUser(r.Context())
			if needsIdentity && !authed {
				httputil.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}

			if len(req.Roles) > 0 && !req.Roles.Contains(user.Role) {
				httputil.Error(w, http.StatusForbidden, "insufficient role")
				return
			}

			if req.Feature != "" && !tenant.Entitlements().HasFeature(req.Feature) {
				httputil.UpgradeRequired(w,
					"this feature requires "+req.Feature+" which is not available in your current plan",
					string(tenant.Tier))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
