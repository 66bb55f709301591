// Package storagetest holds the behaviour every storage.Store implementation must share.
package storagetest

import (
	"errors"
	"sort"
	"testing"

	"github.com/julianstephens/habitquest/internal/storage"
)

// Run exercises s, which must already be initialized and empty.
func Run(t *testing.T, s storage.Store) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		if _, err := s.Get("missing"); !errors.Is(err, storage.ErrKeyNotFound) {
			t.Errorf("Get(missing) error = %v, want ErrKeyNotFound", err)
		}
	})

	t.Run("SetGetOverwrite", func(t *testing.T) {
		if err := s.Set("habits", `[]`); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := s.Set("habits", `[{"id":"1"}]`); err != nil {
			t.Fatalf("Set (overwrite) failed: %v", err)
		}
		got, err := s.Get("habits")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != `[{"id":"1"}]` {
			t.Errorf("Get(habits) = %q", got)
		}
	})

	t.Run("SetManyAndKeys", func(t *testing.T) {
		err := s.SetMany(map[string]string{
			"user_progress": `{"xp":10,"level":1}`,
			"daily_records": `[]`,
		})
		if err != nil {
			t.Fatalf("SetMany failed: %v", err)
		}
		keys, err := s.Keys()
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		sort.Strings(keys)
		want := []string{"daily_records", "habits", "user_progress"}
		if len(keys) != len(want) {
			t.Fatalf("Keys() = %v, want %v", keys, want)
		}
		for i := range want {
			if keys[i] != want[i] {
				t.Errorf("Keys() = %v, want %v", keys, want)
				break
			}
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if err := s.Remove("habits", "user_progress", "never_set"); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		for _, k := range []string{"habits", "user_progress"} {
			if _, err := s.Get(k); !errors.Is(err, storage.ErrKeyNotFound) {
				t.Errorf("Get(%s) after Remove error = %v, want ErrKeyNotFound", k, err)
			}
		}
		if _, err := s.Get("daily_records"); err != nil {
			t.Errorf("Remove touched an unrelated key: %v", err)
		}
		if err := s.Remove(); err != nil {
			t.Errorf("Remove() with no keys = %v", err)
		}
	})

	t.Run("JSONHelpers", func(t *testing.T) {
		type payload struct {
			XP int `json:"xp"`
		}
		if err := storage.SetJSON(s, "json_key", payload{XP: 42}); err != nil {
			t.Fatalf("SetJSON failed: %v", err)
		}
		var got payload
		if err := storage.GetJSON(s, "json_key", &got); err != nil {
			t.Fatalf("GetJSON failed: %v", err)
		}
		if got.XP != 42 {
			t.Errorf("GetJSON() = %+v", got)
		}

		if err := s.Set("json_key", "{not json"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := storage.GetJSON(s, "json_key", &got); err == nil || errors.Is(err, storage.ErrKeyNotFound) {
			t.Errorf("GetJSON(corrupt) error = %v, want a decode error", err)
		}
	})
}
