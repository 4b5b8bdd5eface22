package awb

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	ok := Validate(Shipment{AWBNumber: "123-12345678", WeightKg: 10.5})
	assert.True(t, ok.Valid)
	assert.Equal(t, []string{}, ok.Messages)

	bad := Validate(Shipment{AWBNumber: "123-INVALID", WeightKg: -4})
	assert.False(t, bad.Valid)
	assert.Equal(t, []string{
		"AWB format must be XXX-XXXXXXXX",
		"Weight must be positive",
	}, bad.Messages)
}

func TestValidateFormatEdgeCases(t *testing.T) {
	for _, tc := range []struct {
		awb   string
		valid bool
	}{
		{"180-12345675", true},
		{"18-12345675", false},
		{"180-1234567", false},
		{"180-123456789", false},
		{"18012345675", false},
	} {
		out := Validate(Shipment{AWBNumber: tc.awb, WeightKg: 1})
		assert.Equal(t, tc.valid, out.Valid, "awb %q", tc.awb)
	}
}

func TestValidationOutcomeWireShape(t *testing.T) {
	raw, err := json.Marshal(Validate(Shipment{AWBNumber: "123-12345678", WeightKg: 10.5}))
	require.NoError(t, err)
	// messages must serialize as an empty array, never null.
	assert.JSONEq(t, `{"valid":true,"messages":[]}`, string(raw))
}
