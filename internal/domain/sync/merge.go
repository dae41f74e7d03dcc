package sync

import (
	"bytes"
	"encoding/json"
)

// mergeArrayBlob appends incoming entries to an existing array blob without
// ever removing existing entries. Entries carrying an id are deduplicated by
// id; entries without one are deduplicated by exact content. The returned
// bool reports whether anything was appended.
func mergeArrayBlob(existing, incoming json.RawMessage) (json.RawMessage, bool, error) {
	var incomingEntries []json.RawMessage
	if err := json.Unmarshal(incoming, &incomingEntries); err != nil {
		return nil, false, err
	}
	if len(incomingEntries) == 0 {
		return existing, false, nil
	}

	var existingEntries []json.RawMessage
	if !isEmptyValue(existing) {
		if err := json.Unmarshal(existing, &existingEntries); err != nil {
			return nil, false, err
		}
	}

	seenIDs := make(map[string]bool, len(existingEntries))
	seenBodies := make(map[string]bool, len(existingEntries))
	for _, entry := range existingEntries {
		if id := entryID(entry); id != "" {
			seenIDs[id] = true
		} else if body, ok := compactEntry(entry); ok {
			seenBodies[body] = true
		}
	}

	merged := existingEntries
	var appended bool
	for _, entry := range incomingEntries {
		if id := entryID(entry); id != "" {
			if seenIDs[id] {
				continue
			}
			seenIDs[id] = true
		} else if body, ok := compactEntry(entry); ok {
			if seenBodies[body] {
				continue
			}
			seenBodies[body] = true
		}
		merged = append(merged, entry)
		appended = true
	}

	if !appended {
		return existing, false, nil
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// entryID extracts an entry's identifier, tolerating string and numeric ids.
func entryID(entry json.RawMessage) string {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(entry, &probe); err != nil {
		return ""
	}
	if len(probe.ID) == 0 || string(probe.ID) == "null" {
		return ""
	}
	return string(probe.ID)
}

func compactEntry(entry json.RawMessage) (string, bool) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, entry); err != nil {
		return "", false
	}
	return buf.String(), true
}
