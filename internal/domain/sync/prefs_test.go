package sync

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePreferences(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name: "full valid payload",
			raw: `{"dietaryRestrictions":["vegan"],"allergies":[],"preferredUnits":"metric",
				"language":"en","theme":"dark","weekStartsOn":"monday",
				"notificationsEnabled":true,"expirationWarningDays":3,"householdSize":2}`,
		},
		{
			name: "empty object",
			raw:  `{}`,
		},
		{
			name: "null field tolerated",
			raw:  `{"language":null}`,
		},
		{
			name:    "unrecognized field",
			raw:     `{"favouriteColour":"blue"}`,
			wantErr: `unrecognized preference field "favouriteColour"`,
		},
		{
			name:    "wrong kind",
			raw:     `{"householdSize":"two"}`,
			wantErr: `preference field "householdSize" must be a number, got string`,
		},
		{
			name:    "array instead of string",
			raw:     `{"language":["en","fi"]}`,
			wantErr: `preference field "language" must be a string, got array`,
		},
		{
			name:    "not an object",
			raw:     `["metric"]`,
			wantErr: "preferences must be an object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePreferences(json.RawMessage(tt.raw))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidatePreferences_ReportsFirstKeyAlphabetically(t *testing.T) {
	raw := json.RawMessage(`{"zzz":1,"aaa":1}`)

	err := ValidatePreferences(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"aaa"`)
}

func TestJSONKind(t *testing.T) {
	assert.Equal(t, "object", jsonKind(json.RawMessage(`  {"a":1}`)))
	assert.Equal(t, "array", jsonKind(json.RawMessage(`[1]`)))
	assert.Equal(t, "string", jsonKind(json.RawMessage(`"x"`)))
	assert.Equal(t, "boolean", jsonKind(json.RawMessage(`false`)))
	assert.Equal(t, "null", jsonKind(json.RawMessage(`null`)))
	assert.Equal(t, "number", jsonKind(json.RawMessage(`-3.5`)))
}
