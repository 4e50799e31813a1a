package api

import "strings"

// NormalizeRoles trims every role, drops empty ones and removes duplicates,
// keeping first-seen order. A nil input stays nil so "no change" survives;
// any other input yields a non-nil slice.
func NormalizeRoles(roles []string) []string {
	if roles == nil {
		return nil
	}
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// ParseRoles splits comma-separated free text into normalized roles.
func ParseRoles(text string) []string {
	return NormalizeRoles(strings.Split(text, ","))
}
