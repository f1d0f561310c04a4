package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleFromMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"short message", "Hello there", "Hello there"},
		{"exactly at limit", strings.Repeat("a", MaxTitleLength), strings.Repeat("a", MaxTitleLength)},
		{"one over limit", strings.Repeat("a", MaxTitleLength+1), strings.Repeat("a", MaxTitleLength) + "..."},
		{"surrounding whitespace trimmed", "  Hello  ", "Hello"},
		{"empty message", "", ""},
		{"whitespace only", "   \n\t  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFromMessage(tt.message))
		})
	}
}

func TestTitleFromMessage_CountsRunesNotBytes(t *testing.T) {
	// 60 multibyte characters: well past the limit in bytes, truncation
	// must still land on a character boundary.
	message := strings.Repeat("é", 60)

	title := TitleFromMessage(message)

	assert.Equal(t, strings.Repeat("é", MaxTitleLength)+"...", title)
	assert.True(t, strings.HasSuffix(title, "..."))
}

func TestMessageRole_Valid(t *testing.T) {
	assert.True(t, MessageRoleUser.Valid())
	assert.True(t, MessageRoleAssistant.Valid())
	assert.False(t, MessageRole("system").Valid())
	assert.False(t, MessageRole("").Valid())
}
