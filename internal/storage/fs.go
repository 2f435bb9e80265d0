package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/starford/anxi/internal/apperr"
	"github.com/starford/anxi/internal/checksum"
	"github.com/starford/anxi/internal/task"
)

const lineSep = "\n"

// FS implements Provider backed by a single file on the local file system.
type FS struct {
	path   string // absolute path to the ledger file
	logger *slog.Logger

	mu    sync.Mutex
	sum   string
	stale bool // file not canonical since Load; see repair

	writeFile func(path string, content []byte) error
}

// NewFS creates a provider for the ledger file at path. Neither the file nor
// its directory has to exist yet.
func NewFS(path string, logger *slog.Logger) (*FS, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FS{path: abs, logger: logger, writeFile: writeAtomic}, nil
}

// Path returns the absolute ledger file path.
func (f *FS) Path() string {
	return f.path
}

// Checksum returns the digest of the content this store last read or wrote.
func (f *FS) Checksum() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sum
}

// Load reads the ledger. Lines that cannot be decoded are logged and
// skipped; when that happens the original file is kept as <path>.bak. A file
// that is not in canonical form is rewritten so line numbers match the ledger
// again. If that rewrite fails the tasks are still returned and the repair is
// retried before the next write.
func (f *FS) Load() ([]task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensure(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("storage: read: %w", err)
	}

	tasks, skipped := f.decode(data)
	if err := f.normalize(data, tasks, skipped); err != nil {
		f.stale = true
		f.logger.Warn("storage: could not normalise ledger file, will retry before next write",
			slog.String("path", f.path),
			slog.String("error", err.Error()))
		return tasks, nil
	}
	f.stale = false
	return tasks, nil
}

func (f *FS) decode(data []byte) ([]task.Task, int) {
	var tasks []task.Task
	skipped := 0
	for n, line := range splitLines(data) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		t, err := task.ParseLine(line)
		if err != nil {
			skipped++
			f.logger.Warn("storage: skipping unreadable line",
				slog.String("path", f.path),
				slog.Int("line", n+1),
				slog.String("error", err.Error()))
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, skipped
}

// normalize rewrites data in canonical form unless it already is.
func (f *FS) normalize(data []byte, tasks []task.Task, skipped int) error {
	canonical := []byte(encode(tasks))
	if string(canonical) == string(data) {
		f.sum = checksum.Sum(data)
		return nil
	}

	if skipped > 0 {
		if err := f.writeFile(f.path+".bak", data); err != nil {
			return fmt.Errorf("storage: backup: %w", err)
		}
		f.logger.Warn("storage: repaired ledger file",
			slog.String("path", f.path),
			slog.String("backup", f.path+".bak"),
			slog.Int("skipped", skipped))
	}
	return f.write(canonical)
}

// repair retries a normalisation that failed during Load. Writes are refused
// while the file is not canonical, since its lines would not match the ledger.
func (f *FS) repair() error {
	if !f.stale {
		return nil
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("storage: read: %w", err)
	}
	tasks, skipped := f.decode(data)
	if err := f.normalize(data, tasks, skipped); err != nil {
		return fmt.Errorf("storage: file needs repair: %w: %w", apperr.ErrOutOfSync, err)
	}
	f.stale = false
	return nil
}

// Append writes t at the end of the file. No separator precedes the first
// line. A failed write is truncated back to the previous size.
func (f *FS) Append(t task.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensure(); err != nil {
		return err
	}
	if err := f.repair(); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("storage: open: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("storage: stat: %w", err)
	}
	size := info.Size()

	payload := t.SaveLine()
	if size > 0 {
		payload = lineSep + payload
	}
	if _, err := file.WriteString(payload); err != nil {
		_ = file.Truncate(size)
		_ = file.Close()
		return fmt.Errorf("storage: append: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Truncate(size)
		_ = file.Close()
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("storage: close: %w", err)
	}

	sum, err := checksum.File(f.path)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	f.sum = sum
	return nil
}

// RewriteAt replaces line i with t, leaving every other line untouched.
func (f *FS) RewriteAt(i int, t task.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	lines, err := f.readLines(i)
	if err != nil {
		return err
	}
	lines[i] = t.SaveLine()
	return f.write([]byte(strings.Join(lines, lineSep)))
}

// RemoveAt drops line i, leaving every other line in order.
func (f *FS) RemoveAt(i int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	lines, err := f.readLines(i)
	if err != nil {
		return err
	}
	lines = append(lines[:i], lines[i+1:]...)
	return f.write([]byte(strings.Join(lines, lineSep)))
}

// Replace writes tasks as the entire file.
func (f *FS) Replace(tasks []task.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensure(); err != nil {
		return err
	}
	if err := f.write([]byte(encode(tasks))); err != nil {
		return err
	}
	f.stale = false
	return nil
}

// readLines returns the current lines and checks that i addresses one.
func (f *FS) readLines(i int) ([]string, error) {
	if err := f.repair(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("storage: read: %w", err)
	}
	lines := splitLines(data)
	if i < 0 || i >= len(lines) {
		return nil, fmt.Errorf("storage: line %d of %d: %w", i+1, len(lines), apperr.ErrOutOfSync)
	}
	return lines, nil
}

func (f *FS) write(content []byte) error {
	if err := f.writeFile(f.path, content); err != nil {
		return err
	}
	f.sum = checksum.Sum(content)
	return nil
}

// ensure creates the ledger directory and an empty file if either is missing.
func (f *FS) ensure() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("storage: create: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("storage: create: %w", err)
	}
	f.logger.Info("storage: created ledger file", slog.String("path", f.path))
	return nil
}

// writeAtomic writes content: tmp file → fsync → rename.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".anxi-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// splitLines splits file content on \n, dropping a trailing empty line and
// any \r left by CRLF editors.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	lines := strings.Split(string(data), lineSep)
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func encode(tasks []task.Task) string {
	lines := make([]string, len(tasks))
	for i, t := range tasks {
		lines[i] = t.SaveLine()
	}
	return strings.Join(lines, lineSep)
}
