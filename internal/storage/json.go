package storage

import (
	"encoding/json"
	"fmt"
)

// GetJSON decodes the value at key into v. It returns ErrKeyNotFound untouched so
// callers can fall back to defaults.
func GetJSON(s Store, key string, v any) error {
	raw, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

// EncodeJSON marshals v for storage under key.
func EncodeJSON(key string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", key, err)
	}
	return string(data), nil
}

func SetJSON(s Store, key string, v any) error {
	value, err := EncodeJSON(key, v)
	if err != nil {
		return err
	}
	return s.Set(key, value)
}
