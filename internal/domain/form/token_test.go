package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		token, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, token, TokenLength)
		assert.NoError(t, ValidateToken(token))
		seen[token] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "AB12CD34", NormalizeToken("  ab12cd34 "))
}

func TestValidateToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid", "AB12CD34", false},
		{"too short", "AB12", true},
		{"too long", "AB12CD345", true},
		{"lowercase", "ab12cd34", true},
		{"symbols", "AB12-D34", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateToken(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
