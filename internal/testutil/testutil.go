// Package testutil provides shared test helpers for setting up ledgers and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/anxi/internal/interpreter"
	"github.com/starford/anxi/internal/journal"
	"github.com/starford/anxi/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestDB creates a temporary journal database that is automatically cleaned up.
func TestDB(t *testing.T) *journal.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "anxi-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := journal.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a ledger file store in a temporary directory.
func TestStore(t *testing.T) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(filepath.Join(t.TempDir(), "data", "tasks.txt"), Logger())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestInterpreter opens an interpreter over a fresh store and submits lines.
func TestInterpreter(t *testing.T, opts []interpreter.Option, lines ...string) (*interpreter.Interpreter, *storage.FS) {
	t.Helper()
	store := TestStore(t)
	opts = append([]interpreter.Option{interpreter.WithLogger(Logger())}, opts...)
	in := interpreter.Open(store, opts...)
	for _, l := range lines {
		in.Submit(l)
	}
	return in, store
}
