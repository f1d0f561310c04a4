package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validAgent() *CustomAgent {
	return &CustomAgent{
		Name:         "Researcher",
		Description:  "Digs into sources before answering",
		SystemPrompt: "You are a careful research assistant.",
		Temperature:  AgentDefaultTemperature,
		MaxTokens:    AgentDefaultMaxTokens,
	}
}

func TestCustomAgent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CustomAgent)
		wantErr string
	}{
		{"valid agent", func(a *CustomAgent) {}, ""},
		{"missing name", func(a *CustomAgent) { a.Name = "" }, "name is required"},
		{"name too long", func(a *CustomAgent) { a.Name = strings.Repeat("x", 101) }, "100 characters or less"},
		{"description too long", func(a *CustomAgent) { a.Description = strings.Repeat("x", 501) }, "500 characters or less"},
		{"system prompt too short", func(a *CustomAgent) { a.SystemPrompt = "short" }, "at least 10 characters"},
		{"system prompt too long", func(a *CustomAgent) { a.SystemPrompt = strings.Repeat("x", 5001) }, "5000 characters or less"},
		{"temperature below range", func(a *CustomAgent) { a.Temperature = -0.1 }, "temperature"},
		{"temperature above range", func(a *CustomAgent) { a.Temperature = 2.1 }, "temperature"},
		{"temperature at upper bound", func(a *CustomAgent) { a.Temperature = AgentMaxTemperature }, ""},
		{"max tokens too low", func(a *CustomAgent) { a.MaxTokens = 255 }, "max tokens"},
		{"max tokens too high", func(a *CustomAgent) { a.MaxTokens = 4097 }, "max tokens"},
		{"max tokens at bounds", func(a *CustomAgent) { a.MaxTokens = AgentMaxMaxTokens }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := validAgent()
			tt.mutate(agent)

			err := agent.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, EINVALID, ErrorCode(err))
			}
		})
	}
}
