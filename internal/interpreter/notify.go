package interpreter

import (
	"github.com/starford/anxi/internal/journal"
	"github.com/starford/anxi/internal/task"
)

// ChangeKind names a committed ledger change.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "task.added"
	ChangeUpdated  ChangeKind = "task.updated"
	ChangeDeleted  ChangeKind = "task.deleted"
	ChangeReloaded ChangeKind = "ledger.reloaded"
)

// Change describes a ledger mutation after it has been persisted and
// committed. Index is 0-based and is -1 for ChangeReloaded.
type Change struct {
	Kind  ChangeKind
	Index int
	Task  task.Task
	Size  int
}

// Notifier receives committed changes. It is called with the interpreter
// locked and must not call back into it.
type Notifier interface {
	Notify(c Change)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(c Change)

// Notify calls f(c).
func (f NotifierFunc) Notify(c Change) { f(c) }

// Recorder stores one journal entry per submitted line.
type Recorder interface {
	Record(e journal.Entry) error
}
