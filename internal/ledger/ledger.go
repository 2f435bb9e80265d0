// Package ledger holds the ordered in-memory task collection for a session.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/anxi/internal/apperr"
	"github.com/starford/anxi/internal/task"
	"github.com/starford/anxi/internal/timeparse"
)

// Ledger is an ordered, index-addressable list of tasks. Indexes are
// 0-based. A Ledger is not safe for concurrent use.
type Ledger struct {
	tasks []task.Task
}

// Match is a Find hit and its 0-based position in the ledger.
type Match struct {
	Index int
	Task  task.Task
}

// New returns a ledger holding a copy of tasks.
func New(tasks []task.Task) *Ledger {
	l := &Ledger{}
	l.tasks = append(l.tasks, tasks...)
	return l
}

// Size returns the number of tasks.
func (l *Ledger) Size() int {
	return len(l.tasks)
}

// Tasks returns a copy of the tasks in ledger order.
func (l *Ledger) Tasks() []task.Task {
	out := make([]task.Task, len(l.tasks))
	copy(out, l.tasks)
	return out
}

// Get returns the task at i.
func (l *Ledger) Get(i int) (task.Task, error) {
	if err := l.checkIndex(i); err != nil {
		return task.Task{}, err
	}
	return l.tasks[i], nil
}

// AddToDo appends a to-do.
func (l *Ledger) AddToDo(description string) (task.Task, error) {
	t, err := task.NewToDo(description)
	if err != nil {
		return task.Task{}, err
	}
	return l.add(t), nil
}

// AddDeadline appends a deadline due at by.
func (l *Ledger) AddDeadline(description string, by time.Time) (task.Task, error) {
	t, err := task.NewDeadlineAt(description, by)
	if err != nil {
		return task.Task{}, err
	}
	return l.add(t), nil
}

// AddEvent appends an event running from from until to on the same day.
func (l *Ledger) AddEvent(description string, from time.Time, to timeparse.Clock) (task.Task, error) {
	t, err := task.NewEventAt(description, from, to)
	if err != nil {
		return task.Task{}, err
	}
	return l.add(t), nil
}

func (l *Ledger) add(t task.Task) task.Task {
	l.tasks = append(l.tasks, t)
	return t
}

// MarkDone flags the task at i as done.
func (l *Ledger) MarkDone(i int) (task.Task, error) {
	return l.setDone(i, true)
}

// MarkUndone clears the done flag of the task at i.
func (l *Ledger) MarkUndone(i int) (task.Task, error) {
	return l.setDone(i, false)
}

func (l *Ledger) setDone(i int, done bool) (task.Task, error) {
	if err := l.checkIndex(i); err != nil {
		return task.Task{}, err
	}
	l.tasks[i].SetDone(done)
	return l.tasks[i], nil
}

// Delete removes and returns the task at i. Later tasks move down by one.
func (l *Ledger) Delete(i int) (task.Task, error) {
	if err := l.checkIndex(i); err != nil {
		return task.Task{}, err
	}
	removed := l.tasks[i]
	l.tasks = append(l.tasks[:i], l.tasks[i+1:]...)
	return removed, nil
}

// Find returns the tasks whose description contains term, case-sensitively,
// in ledger order.
func (l *Ledger) Find(term string) []Match {
	var out []Match
	for i, t := range l.tasks {
		if strings.Contains(t.Description, term) {
			out = append(out, Match{Index: i, Task: t})
		}
	}
	return out
}

// Clone returns an independent copy for staged mutation.
func (l *Ledger) Clone() *Ledger {
	return New(l.tasks)
}

// Commit replaces l's contents with those of staged.
func (l *Ledger) Commit(staged *Ledger) {
	l.tasks = staged.Tasks()
}

func (l *Ledger) checkIndex(i int) error {
	if i < 0 || i >= len(l.tasks) {
		return apperr.Validation("Index out of bounds, no task found.",
			fmt.Errorf("index %d of %d: %w", i+1, len(l.tasks), apperr.ErrIndexOutOfRange))
	}
	return nil
}
