package permission

import (
	"sort"
	"strings"
)

// Set is a deduplicated, unordered collection of permission strings.
type Set map[string]struct{}

func NewSet(perms ...string) Set {
	s := make(Set, len(perms))
	s.Add(perms...)
	return s
}

func (s Set) Add(perms ...string) {
	for _, p := range perms {
		if p == "" {
			continue
		}
		s[p] = struct{}{}
	}
}

func (s Set) Union(other Set) {
	for p := range other {
		s[p] = struct{}{}
	}
}

func (s Set) Has(perm string) bool {
	_, ok := s[perm]
	return ok
}

// HasAny is false for an empty list.
func (s Set) HasAny(perms ...string) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll is true for an empty list.
func (s Set) HasAll(perms ...string) bool {
	return len(s.Missing(perms...)) == 0
}

// Missing returns the requested permissions that are not in the set, in request order.
func (s Set) Missing(perms ...string) []string {
	var missing []string
	for _, p := range perms {
		if !s.Has(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

func (s Set) Len() int {
	return len(s)
}

// Sorted returns the permissions in lexical order for stable output.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Normalize trims entries, drops empty ones and removes duplicates while
// keeping first-seen order.
func Normalize(perms []string) []string {
	if len(perms) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
