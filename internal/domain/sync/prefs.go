package sync

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Recognized preference fields and the JSON kind each must carry. Preferences
// are the only blob section that is validated; everything else is stored
// verbatim.
var preferenceFields = map[string]string{
	"dietaryRestrictions":   "array",
	"allergies":             "array",
	"dislikedIngredients":   "array",
	"favoriteCuisines":      "array",
	"preferredUnits":        "string",
	"language":              "string",
	"theme":                 "string",
	"weekStartsOn":          "string",
	"notificationsEnabled":  "boolean",
	"expirationWarningDays": "number",
	"householdSize":         "number",
}

// ValidatePreferences checks a preferences payload against the recognized
// field schema. A failure never aborts the surrounding sync; the caller
// reports it through the prefsSynced flag instead.
func ValidatePreferences(raw json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("preferences must be an object: %w", err)
	}

	// Deterministic order so the reported error is stable.
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		want, ok := preferenceFields[key]
		if !ok {
			return fmt.Errorf("unrecognized preference field %q", key)
		}
		if got := jsonKind(fields[key]); got != want && got != "null" {
			return fmt.Errorf("preference field %q must be a %s, got %s", key, want, got)
		}
	}
	return nil
}

func jsonKind(raw json.RawMessage) string {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return "object"
		case '[':
			return "array"
		case '"':
			return "string"
		case 't', 'f':
			return "boolean"
		case 'n':
			return "null"
		default:
			return "number"
		}
	}
	return "null"
}
