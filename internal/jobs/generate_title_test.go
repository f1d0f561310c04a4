package jobs

import (
	"strings"
	"testing"
)

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"plain", "Planning a trip to Japan", "Planning a trip to Japan"},
		{"surrounding quotes", `"Planning a trip to Japan"`, "Planning a trip to Japan"},
		{"single quotes", "'Weekend recipes'", "Weekend recipes"},
		{"whitespace", "  Budget review  \n", "Budget review"},
		{"multiline keeps first line", "Budget review\nHere is why I chose it", "Budget review"},
		{"empty", "   ", ""},
		{"long reply clamped", strings.Repeat("word ", 30), strings.Repeat("word ", 10) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanTitle(tt.reply); got != tt.want {
				t.Errorf("cleanTitle(%q) = %q, want %q", tt.reply, got, tt.want)
			}
		})
	}
}
