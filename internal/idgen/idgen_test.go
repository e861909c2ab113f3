package idgen

import (
	"regexp"
	"strings"
	"testing"
)

func TestGenerate_InstancePrefix(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !strings.HasPrefix(id, PrefixInstance) {
		t.Errorf("Generate() = %q, want prefix %q", id, PrefixInstance)
	}
	if want := len(PrefixInstance) + Length; len(id) != want {
		t.Errorf("Generate() length = %d, want %d (id=%q)", len(id), want, id)
	}
}

func TestTag(t *testing.T) {
	for _, prefix := range []string{PrefixPull, PrefixToken} {
		pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `[a-zA-Z0-9]+$`)
		id := Tag(prefix)
		if !pattern.MatchString(id) {
			t.Errorf("Tag(%q) = %q, does not match expected pattern", prefix, id)
		}
	}
}

func TestTag_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id := Tag(PrefixPull)
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}
