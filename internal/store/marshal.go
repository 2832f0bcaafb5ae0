package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/overdrive/internal/canonical"
)

// marshalStrings converts a string list to canonical JSON TEXT.
// A nil list is stored as "[]".
func marshalStrings(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := canonical.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("marshal strings: %w", err)
	}
	return string(data), nil
}

// unmarshalStrings parses a JSON string list. Empty input yields an empty,
// non-nil slice.
func unmarshalStrings(data string) ([]string, error) {
	out := []string{}
	if data == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal strings: %w", err)
	}
	return out, nil
}

// marshalValue converts a success value to canonical JSON TEXT.
// nil (no value, i.e. a failure) maps to SQL NULL.
func marshalValue(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	data, err := canonical.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	s := string(data)
	return &s, nil
}
