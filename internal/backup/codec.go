package backup

import (
	"encoding/json"
	"fmt"
)

// The store only ever holds strings, but values are opportunistically JSON.
// These two functions pin down the dual encoding so export/import round
// trips stay stable.

// DecodeStoredValue interprets a stored string: if it parses as JSON the
// decoded value is returned, otherwise the raw string. This lets structured
// values round-trip as structured JSON rather than double-encoded strings.
func DecodeStoredValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// EncodeForStorage converts a decoded value back to its stored string form:
// strings are stored as-is, anything else is JSON-encoded.
func EncodeForStorage(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding value: %w", err)
	}
	return string(b), nil
}
