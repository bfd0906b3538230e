package capsule

import (
	"testing"
)

func TestCleanField(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "unchanged", input: "Ada", want: "Ada"},
		{name: "trim whitespace", input: "  Ada Lovelace \n", want: "Ada Lovelace"},
		{name: "only whitespace", input: "   \t\n   ", want: ""},
		{name: "empty string", input: "", want: ""},
		{name: "keeps case", input: " a@B.com ", want: "a@B.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanField(tt.input)
			if got != tt.want {
				t.Errorf("CleanField(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{name: "short", input: "hello", max: 10, want: "hello"},
		{name: "collapses whitespace", input: "hello\n\n  world", max: 20, want: "hello world"},
		{name: "truncates", input: "hello world", max: 5, want: "hello…"},
		{name: "multibyte", input: "héllo wörld", max: 4, want: "héll…"},
		{name: "no limit", input: "hello world", max: 0, want: "hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Excerpt(tt.input, tt.max)
			if got != tt.want {
				t.Errorf("Excerpt(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
		})
	}
}

func TestCountChars(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"hello", 5},
		{"héllo", 5},
		{"日本語", 3},
		{"👋🌍", 2},
	}

	for _, tt := range tests {
		got := CountChars(tt.input)
		if got != tt.want {
			t.Errorf("CountChars(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
