package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageRequestValidate(t *testing.T) {
	valid := SendMessageRequest{
		SessionID: "4f2d9c1e-8b3a-4d5e-9f6a-1b2c3d4e5f60",
		Content:   "what is 7 x 8?",
		Mode:      "quiz",
	}
	assert.NoError(t, valid.Validate())

	// Session id and mode are optional.
	assert.NoError(t, SendMessageRequest{Content: "hi"}.Validate())

	assert.Error(t, SendMessageRequest{}.Validate())
	assert.Error(t, SendMessageRequest{Content: strings.Repeat("a", 4001)}.Validate())
	assert.Error(t, SendMessageRequest{Content: "hi", Mode: "lecture"}.Validate())
	assert.Error(t, SendMessageRequest{Content: "hi", SessionID: "not-a-uuid"}.Validate())
}

func TestUpdateSettingsRequestValidate(t *testing.T) {
	dark := "dark"
	quiz := "quiz"
	assert.NoError(t, UpdateSettingsRequest{Theme: &dark, DefaultMode: &quiz}.Validate())

	assert.NoError(t, UpdateSettingsRequest{}.Validate())

	neon := "neon"
	assert.Error(t, UpdateSettingsRequest{Theme: &neon}.Validate())

	long := strings.Repeat("n", 61)
	assert.Error(t, UpdateSettingsRequest{DisplayName: &long}.Validate())
}

func TestValidationErrorFormatting(t *testing.T) {
	err := SendMessageRequest{}.Validate()
	require.Error(t, err)

	formatted := FormatValidationErrors(err)
	require.Len(t, formatted, 1)
	assert.Equal(t, "Content", formatted[0].Field)
	assert.Contains(t, formatted[0].Message, "required")

	resp := CreateValidationErrorResponse(err)
	assert.Equal(t, 400, resp.Code)
	assert.Len(t, resp.Errors, 1)
}
