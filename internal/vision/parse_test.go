package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

func TestParseFields(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected domain.CardFields
	}{
		{
			name: "bare object",
			raw:  `{"fullName":"Ann Lee","jobTitle":"CTO","company":"Acme","email":"ann@acme.com","phone":"555","website":"acme.com","address":"1 Main St"}`,
			expected: domain.CardFields{
				FullName: "Ann Lee", JobTitle: "CTO", Company: "Acme", Email: "ann@acme.com",
				Phone: "555", Website: "acme.com", Address: "1 Main St",
			},
		},
		{
			name: "wrapped in prose and code fence",
			raw: "Here is the data:\n```json\n{\n  \"fullName\": \" Bo Chen \",\n  \"company\": \"Initech\"\n}\n```\nLet me know!",
			expected: domain.CardFields{FullName: "Bo Chen", Company: "Initech"},
		},
		{
			name:     "numeric phone and nulls",
			raw:      `{"fullName":"Cy","phone":15551234567,"email":null}`,
			expected: domain.CardFields{FullName: "Cy", Phone: "15551234567"},
		},
		{
			name:     "all fields empty",
			raw:      `{"fullName":"","jobTitle":"","company":"","email":"","phone":"","website":"","address":""}`,
			expected: domain.CardFields{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFields(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseFieldsErrors(t *testing.T) {
	_, err := ParseFields("   ")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = ParseFields("I could not read this card.")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ParseFields(`{"fullName": "Ann",}`)
	assert.Error(t, err)
}

func TestDataURL(t *testing.T) {
	img := domain.Image{Data: []byte("hi"), MimeType: "image/heic"}
	assert.Equal(t, "data:image/jpeg;base64,aGk=", DataURL(img))

	img.MimeType = "image/png"
	assert.Equal(t, "data:image/png;base64,aGk=", DataURL(img))
}
