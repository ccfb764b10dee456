package tenancy

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tenantedu/campus/pkg/domain"
)

// Reserved subdomain labels that never resolve to a tenant.
var reservedLabels = map[string]bool{
	"www": true,
	"app": true,
	"api": true,
}

// TenantStore is the lookup surface the directory needs.
// *repository.TenantsRepository satisfies it.
type TenantStore interface {
	GetBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error)
}

// Directory maps a request's host to a tenant record and enforces tenant
// activation status. It holds no per-request state; resolution results
// live only in the request context.
type Directory struct {
	store      TenantStore
	mainDomain string
	hostRe     *regexp.Regexp
}

// NewDirectory creates a directory for the given main domain.
func NewDirectory(store TenantStore, mainDomain string) *Directory {
	mainDomain = strings.ToLower(mainDomain)
	// Anchor at exactly one label before the main domain:
	// a.b.maindomain.com must not match.
	pattern := fmt.Sprintf(`^(?:([a-z0-9-]+)\.)?%s$`, regexp.QuoteMeta(mainDomain))
	return &Directory{
		store:      store,
		mainDomain: mainDomain,
		hostRe:     regexp.MustCompile(pattern),
	}
}

// ExtractLabel returns the tenant subdomain label for a host, or "" when
// the host carries no usable label (bare main domain, reserved label,
// foreign domain, or more than one label). Casing is normalized and any
// port is stripped before matching.
func (d *Directory) ExtractLabel(host string) string {
	host = strings.ToLower(host)
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	m := d.hostRe.FindStringSubmatch(host)
	if m == nil {
		return ""
	}
	label := m[1]
	if label == "" || reservedLabels[label] {
		return ""
	}
	return label
}

// Resolve maps a host to its tenant. It fails with ErrTenantRequired when
// no usable label is present, ErrTenantNotFound when no tenant owns the
// subdomain, and ErrTenantSuspended when the tenant is not active.
func (d *Directory) Resolve(ctx context.Context, host string) (*domain.Tenant, error) {
	label := d.ExtractLabel(host)
	if label == "" {
		return nil, domain.ErrTenantRequired
	}

	tenant, err := d.store.GetBySubdomain(ctx, label+"."+d.mainDomain)
	if err != nil {
		return nil, err
	}

	if !tenant.IsActive() {
		return nil, domain.ErrTenantSuspended
	}
	return tenant, nil
}

// Subdomain returns the full subdomain for a slug.
func (d *Directory) Subdomain(slug string) string {
	return slug + "." + d.mainDomain
}
