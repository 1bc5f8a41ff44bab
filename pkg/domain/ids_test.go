package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "amicable/pkg/domain-errors"
)

// TestParseID_TrustBoundary validates the parsing invariant:
// "IDs must be positive decimal integers with no surrounding noise".
func TestParseID_TrustBoundary(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "1; DROP TABLE accident;--", true},
		{"Path traversal", "../../1", true},
		{"Null byte injection", "1\x00", true},
		{"Oversized input", strings.Repeat("9", 40), true},
		{"Empty string", "", true},
		{"Zero", "0", true},
		{"Negative", "-4", true},
		{"Whitespace padded", " 7 ", true},
		{"Hex", "0x10", true},

		{"Valid", "42", false},
		{"Max int64", "9223372036854775807", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAccidentID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	t.Run("all accept valid id", func(t *testing.T) {
		_, errUser := ParseUserID("3")
		_, errAccident := ParseAccidentID("3")
		_, errStatement := ParseStatementID("3")
		_, errInvite := ParseInviteID("3")
		_, errVehicle := ParseVehicleID("3")
		_, errImage := ParseImageID("3")

		require.NoError(t, errUser)
		require.NoError(t, errAccident)
		require.NoError(t, errStatement)
		require.NoError(t, errInvite)
		require.NoError(t, errVehicle)
		require.NoError(t, errImage)
	})

	t.Run("round trip through String", func(t *testing.T) {
		id, err := ParseInviteID("128")
		require.NoError(t, err)
		assert.Equal(t, "128", id.String())
	})
}
