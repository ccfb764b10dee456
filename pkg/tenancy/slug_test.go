package tenancy

import (
	"context"
	"testing"
)

func TestValidSlug(t *testing.T) {
	tests := []struct {
		slug string
		want bool
	}{
		{"acme", true},
		{"my-school", true},
		{"school42", true},
		{"", false},
		{"Acme", false},
		{"my_school", false},
		{"my school", false},
		{"school.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			if got := ValidSlug(tt.slug); got != tt.want {
				t.Errorf("ValidSlug(%q) = %v, want %v", tt.slug, got, tt.want)
			}
		})
	}
}

type fakeSlugChecker struct {
	taken   map[string]bool
	all     bool
	queries int
}

func (c *fakeSlugChecker) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	c.queries++
	return c.all || c.taken[slug], nil
}

func TestSuggestSlugs(t *testing.T) {
	checker := &fakeSlugChecker{taken: map[string]bool{
		"acme":   true,
		"acme-1": true,
		"acme-3": true,
	}}

	got, err := SuggestSlugs(context.Background(), checker, "acme", 3)
	if err != nil {
		t.Fatalf("SuggestSlugs() error: %v", err)
	}

	want := []string{"acme-2", "acme-4", "acme-5"}
	if len(got) != len(want) {
		t.Fatalf("SuggestSlugs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SuggestSlugs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSuggestSlugs_DenseNamespace(t *testing.T) {
	checker := &fakeSlugChecker{all: true}

	got, err := SuggestSlugs(context.Background(), checker, "acme", 3)
	if err != nil {
		t.Fatalf("SuggestSlugs() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("SuggestSlugs() = %v, want none", got)
	}
	if checker.queries > 15 {
		t.Errorf("queries = %d, want at most 15", checker.queries)
	}
}
