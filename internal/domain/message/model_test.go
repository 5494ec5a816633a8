package message

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/greeter/internal/errors"
)

func TestGreeting(t *testing.T) {
	assert.Equal(t, "Hello, Test User!", Greeting("Test User"))
}

func TestCreateInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"valid", "Test User", ""},
		{"exactly max length", strings.Repeat("a", MaxNameLength), ""},
		{"multibyte within limit", strings.Repeat("é", MaxNameLength), ""},
		{"empty", "", "Name is required"},
		{"whitespace only", "   \t", "Name is required"},
		{"too long", strings.Repeat("a", MaxNameLength+1), "Name must be less than 100 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CreateInput{Name: tt.input}.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			se := errors.GetServiceError(err)
			require.NotNil(t, se)
			assert.Equal(t, errors.CodeValidation, se.Code)
			assert.Equal(t, tt.wantErr, se.Message)
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	for _, raw := range []string{"", "abc", "0", "-3", "1.5"} {
		_, err := ParseID(raw)
		assert.True(t, errors.IsValidation(err), "ParseID(%q) should be a validation error", raw)
	}
}
