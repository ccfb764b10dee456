package tenancy

import (
	"context"
	"fmt"
	"regexp"
)

var slugRe = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidSlug reports whether slug contains only lowercase letters, digits,
// and hyphens.
func ValidSlug(slug string) bool {
	return slugRe.MatchString(slug)
}

// SlugChecker reports whether a slug is already taken.
// *repository.TenantsRepository satisfies it.
type SlugChecker interface {
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
}

// SuggestSlugs generates up to count available alternatives for a taken
// base slug by appending a numeric suffix. The search tries at most
// 5*count suffixes, so a densely taken namespace yields fewer than count
// suggestions rather than an unbounded query loop.
func SuggestSlugs(ctx context.Context, store SlugChecker, base string, count int) ([]string, error) {
	var suggestions []string
	for counter := 1; counter <= 5*count && len(suggestions) < count; counter++ {
		candidate := fmt.Sprintf("%s-%d", base, counter)
		taken, err := store.ExistsBySlug(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if !taken {
			suggestions = append(suggestions, candidate)
		}
	}
	return suggestions, nil
}
