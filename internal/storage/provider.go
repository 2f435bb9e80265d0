// Package storage persists the task ledger as a line-per-task text file.
package storage

import "github.com/starford/anxi/internal/task"

// Provider is the durable mirror of the ledger. Line i of the file always
// holds task i of the ledger after a successful call.
type Provider interface {
	// Load reads every task, creating an empty file (and its directory) if absent.
	Load() ([]task.Task, error)
	// Append writes t as a new last line.
	Append(t task.Task) error
	// RewriteAt atomically replaces line i with t.
	RewriteAt(i int, t task.Task) error
	// RemoveAt atomically drops line i.
	RemoveAt(i int) error
	// Replace atomically writes tasks as the whole file.
	Replace(tasks []task.Task) error
	// Checksum returns the digest of the content last written by this store.
	Checksum() string
	// Path returns the absolute file path.
	Path() string
}
