package storage

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/anxi/internal/apperr"
	"github.com/starford/anxi/internal/checksum"
	"github.com/starford/anxi/internal/task"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func tempStore(t *testing.T) *FS {
	t.Helper()
	s, err := NewFS(filepath.Join(t.TempDir(), "data", "tasks.txt"), quietLogger())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func readFile(t *testing.T, s *FS) string {
	t.Helper()
	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read ledger file: %v", err)
	}
	return string(data)
}

func mustTask(t *testing.T, line string) task.Task {
	t.Helper()
	tk, err := task.ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine(%q): %v", line, err)
	}
	return tk
}

func TestLoad_CreatesDirAndFile(t *testing.T) {
	s := tempStore(t)
	tasks, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("len = %d, want 0", len(tasks))
	}
	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("ledger file not created: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("size = %d, want 0", info.Size())
	}
}

func TestAppend_SeparatorOnlyBetweenLines(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(mustTask(t, "T | 0 | read book")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := readFile(t, s); got != "T | 0 | read book" {
		t.Errorf("after first append = %q", got)
	}
	if err := s.Append(mustTask(t, "D | 0 | return book | 2019-10-15 18:00")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	want := "T | 0 | read book\nD | 0 | return book | 2019-10-15 18:00"
	if got := readFile(t, s); got != want {
		t.Errorf("after second append = %q, want %q", got, want)
	}
	if s.Checksum() != checksum.Sum([]byte(want)) {
		t.Error("checksum not updated after append")
	}
}

func TestAppend_WithoutLoadCreatesFile(t *testing.T) {
	s := tempStore(t)
	if err := s.Append(mustTask(t, "T | 0 | first")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := readFile(t, s); got != "T | 0 | first" {
		t.Errorf("content = %q", got)
	}
}

func seed(t *testing.T, s *FS, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if err := s.Append(mustTask(t, l)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRewriteAt_ReplacesOnlyTargetLine(t *testing.T) {
	s := tempStore(t)
	seed(t, s, "T | 0 | a", "T | 0 | b", "T | 0 | c")

	if err := s.RewriteAt(1, mustTask(t, "T | 1 | b")); err != nil {
		t.Fatalf("RewriteAt: %v", err)
	}
	if got := readFile(t, s); got != "T | 0 | a\nT | 1 | b\nT | 0 | c" {
		t.Errorf("content = %q", got)
	}
}

func TestRemoveAt_KeepsOrder(t *testing.T) {
	s := tempStore(t)
	seed(t, s, "T | 0 | a", "T | 0 | b", "T | 0 | c")

	if err := s.RemoveAt(0); err != nil {
		t.Fatalf("RemoveAt: %v", err)
	}
	if got := readFile(t, s); got != "T | 0 | b\nT | 0 | c" {
		t.Errorf("content = %q", got)
	}
	if err := s.RemoveAt(1); err != nil {
		t.Fatalf("RemoveAt last: %v", err)
	}
	if got := readFile(t, s); got != "T | 0 | b" {
		t.Errorf("content = %q", got)
	}
	if err := s.RemoveAt(0); err != nil {
		t.Fatalf("RemoveAt only: %v", err)
	}
	if got := readFile(t, s); got != "" {
		t.Errorf("content = %q, want empty", got)
	}
}

func TestRewrite_OutOfSync(t *testing.T) {
	s := tempStore(t)
	seed(t, s, "T | 0 | a")

	if err := s.RewriteAt(3, mustTask(t, "T | 1 | a")); !errors.Is(err, apperr.ErrOutOfSync) {
		t.Errorf("RewriteAt error = %v, want ErrOutOfSync", err)
	}
	if err := s.RemoveAt(-1); !errors.Is(err, apperr.ErrOutOfSync) {
		t.Errorf("RemoveAt error = %v, want ErrOutOfSync", err)
	}
	if got := readFile(t, s); got != "T | 0 | a" {
		t.Errorf("file changed: %q", got)
	}
}

func TestRewrite_NoLeftoverTempFiles(t *testing.T) {
	s := tempStore(t)
	seed(t, s, "T | 0 | a", "T | 0 | b")
	if err := s.RewriteAt(0, mustTask(t, "T | 1 | a")); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveAt(1); err != nil {
		t.Fatal(err)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), ".anxi-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestLoad_SaveLoadIsIdentityOnDisplay(t *testing.T) {
	s := tempStore(t)
	lines := []string{
		"T | 1 | read book",
		"D | 0 | return book | 2019-10-15 18:00",
		"E | 0 | meeting | 2019-10-15 14:00 | 16:00",
	}
	seed(t, s, lines...)

	want := make([]string, len(lines))
	for i, l := range lines {
		want[i] = mustTask(t, l).DisplayString()
	}

	reopened, err := NewFS(s.Path(), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	tasks, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != len(want) {
		t.Fatalf("len = %d, want %d", len(tasks), len(want))
	}
	for i := range want {
		if tasks[i].DisplayString() != want[i] {
			t.Errorf("task %d = %q, want %q", i, tasks[i].DisplayString(), want[i])
		}
	}
	if _, err := os.Stat(s.Path() + ".bak"); !errors.Is(err, os.ErrNotExist) {
		t.Error("clean file should not produce a backup")
	}
}

func TestLoad_SkipsCorruptLinesAndRepairs(t *testing.T) {
	s := tempStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	original := "T | 0 | keep me\nX | 0 | unknown tag\n\nD | 1 | pay rent | 2019-10-15 18:00\nD | 0 | broken | whenever\n"
	if err := os.WriteFile(s.Path(), []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	tasks, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len = %d, want 2", len(tasks))
	}
	if tasks[1].Description != "pay rent" || !tasks[1].Done {
		t.Errorf("task 1 = %+v", tasks[1])
	}

	want := "T | 0 | keep me\nD | 1 | pay rent | 2019-10-15 18:00"
	if got := readFile(t, s); got != want {
		t.Errorf("repaired = %q, want %q", got, want)
	}
	bak, err := os.ReadFile(s.Path() + ".bak")
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(bak) != original {
		t.Errorf("backup = %q", bak)
	}

	// Line numbers now match the ledger.
	if err := s.RewriteAt(1, tasks[0]); err != nil {
		t.Fatalf("RewriteAt after repair: %v", err)
	}
}

func TestLoad_NormalisesTrailingNewlineWithoutBackup(t *testing.T) {
	s := tempStore(t)
	_ = os.MkdirAll(filepath.Dir(s.Path()), 0o755)
	if err := os.WriteFile(s.Path(), []byte("T | 0 | a\r\nT | 0 | b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tasks, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len = %d", len(tasks))
	}
	if got := readFile(t, s); got != "T | 0 | a\nT | 0 | b" {
		t.Errorf("content = %q", got)
	}
	if _, err := os.Stat(s.Path() + ".bak"); !errors.Is(err, os.ErrNotExist) {
		t.Error("no lines were skipped, backup should not exist")
	}
	if err := s.Append(mustTask(t, "T | 0 | c")); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, s); !strings.HasSuffix(got, "T | 0 | b\nT | 0 | c") {
		t.Errorf("append after normalise = %q", got)
	}
}

func TestLoad_UnreadablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "data")
	if err := os.WriteFile(blocker, []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewFS(filepath.Join(blocker, "tasks.txt"), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(); err == nil {
		t.Error("expected error when parent path is a file")
	}
}

func TestNewFS_EmptyPath(t *testing.T) {
	if _, err := NewFS("  ", nil); err == nil {
		t.Error("expected error for empty path")
	}
}

var errReadOnly = errors.New("read-only file system")

func failWrites(string, []byte) error { return errReadOnly }

func TestLoad_NormaliseFailureKeepsTasksAndBlocksWrites(t *testing.T) {
	s := tempStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(), []byte("T | 0 | a\r\n\r\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.writeFile = failWrites

	tasks, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Description != "a" {
		t.Fatalf("tasks = %+v", tasks)
	}

	// The file's lines do not match the ledger yet, so nothing may be added.
	if err := s.Append(mustTask(t, "T | 0 | b")); !errors.Is(err, apperr.ErrOutOfSync) {
		t.Errorf("Append error = %v, want ErrOutOfSync", err)
	}
	if err := s.RewriteAt(0, mustTask(t, "T | 1 | a")); !errors.Is(err, apperr.ErrOutOfSync) {
		t.Errorf("RewriteAt error = %v, want ErrOutOfSync", err)
	}
	if got := readFile(t, s); got != "T | 0 | a\r\n\r\n" {
		t.Errorf("file = %q, want untouched", got)
	}

	// Once the directory is writable again the repair happens before the write.
	s.writeFile = writeAtomic
	if err := s.Append(mustTask(t, "T | 0 | b")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := readFile(t, s); got != "T | 0 | a\nT | 0 | b" {
		t.Errorf("file = %q", got)
	}
}

func TestLoad_BackupFailureStillReturnsTasks(t *testing.T) {
	s := tempStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(), []byte("T | 0 | a\nX | 0 | junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.writeFile = failWrites

	tasks, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("tasks = %+v", tasks)
	}
	if _, err := os.Stat(s.Path() + ".bak"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("backup should not exist: %v", err)
	}
	if err := s.RemoveAt(0); !errors.Is(err, apperr.ErrOutOfSync) {
		t.Errorf("RemoveAt error = %v, want ErrOutOfSync", err)
	}
}

func TestReplace_ClearsPendingRepair(t *testing.T) {
	s := tempStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(), []byte("T | 0 | a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.writeFile = failWrites
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}

	s.writeFile = writeAtomic
	if err := s.Replace([]task.Task{mustTask(t, "T | 1 | z")}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := s.RewriteAt(0, mustTask(t, "T | 0 | z")); err != nil {
		t.Fatalf("RewriteAt: %v", err)
	}
	if got := readFile(t, s); got != "T | 0 | z" {
		t.Errorf("file = %q", got)
	}
}
