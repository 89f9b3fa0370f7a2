// Package backup serializes the persistent store to a JSON backup document
// and merges such documents back in.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store is the narrow persistent-store surface the engine needs. Satisfied
// by *storage.Store and by test fakes.
type Store interface {
	GetItem(key string) (string, error)
	SetItem(key, value string) error
	HasItem(key string) (bool, error)
	Keys() ([]string, error)
}

// Policy selects how an imported document is merged into the store.
type Policy string

const (
	// PolicyOverwrite writes every imported key, replacing existing values.
	PolicyOverwrite Policy = "overwrite"
	// PolicyAddOnly writes only keys not already present in the store.
	PolicyAddOnly Policy = "add-only"
)

// ParsePolicy validates a policy name from the API or CLI.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyOverwrite, PolicyAddOnly:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown import policy %q (want %q or %q)", s, PolicyOverwrite, PolicyAddOnly)
}

// ErrNotObject is returned when an import document is valid JSON but not an
// object at the top level (arrays, primitives, and null are rejected).
var ErrNotObject = errors.New("backup file must contain a JSON object at the top level")

// Result summarizes a completed import.
type Result struct {
	Policy Policy `json:"policy"`
	Added  int    `json:"added"` // keys actually written
	Total  int    `json:"total"` // keys in the import document
}

// Export snapshots every key in the store into a pretty-printed JSON object.
// Stored strings that parse as JSON appear as structured values.
func Export(store Store) ([]byte, error) {
	keys, err := store.Keys()
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}

	doc := make(map[string]any, len(keys))
	for _, key := range keys {
		value, err := store.GetItem(key)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", key, err)
		}
		doc[key] = DecodeStoredValue(value)
	}

	return json.MarshalIndent(doc, "", "  ")
}

// Filename returns the conventional download name for an export captured at t,
// e.g. assignments-export-2026-08-29-14-30-05.json.
func Filename(t time.Time) string {
	return "assignments-export-" + t.Format("2006-01-02-15-04-05") + ".json"
}

// Import merges a backup document into the store under the given policy.
// The document must decode to a JSON object; any decode or shape failure
// aborts before a single key is written.
func Import(store Store, data []byte, policy Policy) (Result, error) {
	var top any
	if err := json.Unmarshal(data, &top); err != nil {
		return Result{}, fmt.Errorf("parsing backup file: %w", err)
	}

	doc, ok := top.(map[string]any)
	if !ok {
		return Result{}, ErrNotObject
	}

	res := Result{Policy: policy, Total: len(doc)}
	for key, value := range doc {
		if policy == PolicyAddOnly {
			exists, err := store.HasItem(key)
			if err != nil {
				return res, fmt.Errorf("checking %q: %w", key, err)
			}
			if exists {
				continue
			}
		}

		encoded, err := EncodeForStorage(value)
		if err != nil {
			return res, fmt.Errorf("encoding value for %q: %w", key, err)
		}
		if err := store.SetItem(key, encoded); err != nil {
			return res, fmt.Errorf("writing %q: %w", key, err)
		}
		res.Added++
	}

	return res, nil
}
