package keywords

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the full Unicode case folding of s. A fresh caser is built per
// call; cases.Caser values must not be shared across goroutines.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ParseList splits a comma-separated list, trims each item, drops empty items
// and collapses entries that are equal under case folding to the first
// spelling seen.
func ParseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := Fold(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Match returns every entry of list whose folded form is a substring of the
// folded text, in list order.
func Match(text string, list []string) []string {
	if text == "" || len(list) == 0 {
		return nil
	}
	folded := Fold(text)
	var out []string
	for _, kw := range list {
		k := Fold(kw)
		if k == "" {
			continue
		}
		if strings.Contains(folded, k) {
			out = append(out, kw)
		}
	}
	return out
}
