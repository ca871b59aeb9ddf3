// Package util provides shared utility functions used across the codebase.
package util

// Truncate caps a string at max runes, appending "..." when anything was
// cut. A string of exactly max runes is returned untouched; only content
// beyond the limit triggers the ellipsis marker.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// Dedupe returns the input with duplicate strings removed. The relative
// order of first occurrences is preserved. A nil or empty input yields an
// empty (non-nil) slice so callers can marshal it as [] rather than null.
func Dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
