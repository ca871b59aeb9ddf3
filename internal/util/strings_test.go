package util

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"empty", "", 10, ""},
		{"shorter than max", "hello", 10, "hello"},
		{"exactly max", strings.Repeat("a", 500), 500, strings.Repeat("a", 500)},
		{"one over max", strings.Repeat("a", 501), 500, strings.Repeat("a", 500) + "..."},
		{"zero max", "hello", 0, ""},
		{"multibyte runes", "héllo wörld", 5, "héllo..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestDedupe(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil input", nil, []string{}},
		{"no duplicates", []string{"a", "b"}, []string{"a", "b"}},
		{"duplicates collapse", []string{"a", "b", "a", "c", "b"}, []string{"a", "b", "c"}},
		{"all identical", []string{"x", "x", "x"}, []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dedupe(tt.in)
			if got == nil {
				t.Fatal("Dedupe returned nil, want non-nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Dedupe(%v) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Dedupe(%v)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}
