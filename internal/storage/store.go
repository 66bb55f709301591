// Package storage defines the string key-value persistence contract shared by the
// local cache and the simulated remote. Implementations live in the sqlite, postgres
// and memory subpackages.
package storage

import "errors"

var ErrKeyNotFound = errors.New("key not found")

type Store interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Get returns ErrKeyNotFound when key has never been set or was removed.
	Get(key string) (string, error)
	Set(key, value string) error
	// SetMany writes all entries atomically.
	SetMany(entries map[string]string) error
	// Remove deletes keys atomically; missing keys are ignored.
	Remove(keys ...string) error
	Keys() ([]string, error)

	// Utils
	GetConfigPath() string
}
