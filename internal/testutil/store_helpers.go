package testutil

import (
	"path/filepath"
	"testing"

	"github.com/wesm/chatvault/internal/store"
)

// NewTestStore creates an archive with the schema applied in a temporary
// directory. It is closed when the test completes.
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "chatvault.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})

	if err := st.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return st
}
