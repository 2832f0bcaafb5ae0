package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// createTestStore opens a fresh store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStartedAt = time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)

func mustWriteRun(t *testing.T, s *Store, id, scenario string) {
	t.Helper()
	err := s.WriteRun(context.Background(), Run{
		ID:        id,
		Scenario:  scenario,
		Pass:      true,
		StartedAt: testStartedAt,
	})
	if err != nil {
		t.Fatalf("WriteRun(%s) failed: %v", id, err)
	}
}

func strPtr(s string) *string { return &s }
