package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrompt(t *testing.T) {
	assert.Equal(t, ProsePrompt, Prompt(FormatProse))
	assert.Equal(t, JSONPrompt, Prompt(FormatJSON))
	assert.Equal(t, JSONPrompt, Prompt("yaml"))
	assert.Contains(t, ProsePrompt, "Please Retake Picture")
	assert.Contains(t, JSONPrompt, `"error"`)
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{StatusCode: 429, Body: "rate limited"}
	assert.Equal(t, "API Error: 429 - rate limited", err.Error())
}
