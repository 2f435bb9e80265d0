// Package task defines the three task variants and their display and
// persisted line encodings.
package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/anxi/internal/apperr"
	"github.com/starford/anxi/internal/timeparse"
)

// Kind identifies a task variant.
type Kind int

const (
	KindToDo Kind = iota + 1
	KindDeadline
	KindEvent
)

// Tag returns the single-letter type tag used on disk and in display.
func (k Kind) Tag() string {
	switch k {
	case KindToDo:
		return "T"
	case KindDeadline:
		return "D"
	case KindEvent:
		return "E"
	default:
		return "?"
	}
}

func (k Kind) String() string {
	switch k {
	case KindToDo:
		return "todo"
	case KindDeadline:
		return "deadline"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Task is a to-do, deadline or event. By is set for deadlines; From and To
// are set for events.
type Task struct {
	Kind        Kind
	Description string
	Done        bool
	By          time.Time
	From        time.Time
	To          timeparse.Clock
}

// NewToDo builds a to-do from user input.
func NewToDo(description string) (Task, error) {
	desc, err := cleanDescription(description)
	if err != nil {
		return Task{}, err
	}
	return Task{Kind: KindToDo, Description: desc}, nil
}

// NewDeadline builds a deadline from user input, parsing by.
func NewDeadline(description, by string) (Task, error) {
	when, err := timeparse.ParseDateTime(by)
	if err != nil {
		return Task{}, err
	}
	return NewDeadlineAt(description, when)
}

// NewDeadlineAt builds a deadline due at by.
func NewDeadlineAt(description string, by time.Time) (Task, error) {
	desc, err := cleanDescription(description)
	if err != nil {
		return Task{}, err
	}
	return Task{Kind: KindDeadline, Description: desc, By: by}, nil
}

// NewEvent builds an event from user input. The end time may not precede
// the start's time of day.
func NewEvent(description, from, to string) (Task, error) {
	start, err := timeparse.ParseDateTime(from)
	if err != nil {
		return Task{}, err
	}
	end, err := timeparse.ParseTime(to)
	if err != nil {
		return Task{}, err
	}
	return NewEventAt(description, start, end)
}

// NewEventAt builds an event running from from until to on the same day.
func NewEventAt(description string, from time.Time, to timeparse.Clock) (Task, error) {
	desc, err := cleanDescription(description)
	if err != nil {
		return Task{}, err
	}
	if err := CheckWindow(from, to); err != nil {
		return Task{}, err
	}
	return Task{Kind: KindEvent, Description: desc, From: from, To: to}, nil
}

// CheckWindow rejects an event that ends before it starts.
func CheckWindow(from time.Time, to timeparse.Clock) error {
	if to.Before(timeparse.Of(from)) {
		return apperr.Validation(
			fmt.Sprintf("An event cannot end (%s) before it starts (%s).", to, timeparse.Of(from)),
			apperr.ErrInvalidEventWindow)
	}
	return nil
}

func cleanDescription(s string) (string, error) {
	desc := strings.TrimSpace(s)
	if desc == "" {
		return "", apperr.Parse("The description cannot be empty.")
	}
	if strings.Contains(desc, "|") {
		return "", apperr.Parse("The description cannot contain '|'.")
	}
	return desc, nil
}

// SetDone sets the completion flag.
func (t *Task) SetDone(done bool) {
	t.Done = done
}

func (t Task) statusIcon() string {
	if t.Done {
		return "X"
	}
	return " "
}

// DisplayString renders the task for the user.
func (t Task) DisplayString() string {
	head := fmt.Sprintf("[%s][%s] %s", t.Kind.Tag(), t.statusIcon(), t.Description)
	switch t.Kind {
	case KindToDo:
		return head
	case KindDeadline:
		return fmt.Sprintf("%s (by: %s)", head, t.By.Format(timeparse.DisplayDateTimeLayout))
	case KindEvent:
		return fmt.Sprintf("%s (from: %s to: %s)", head,
			t.From.Format(timeparse.DisplayDateTimeLayout),
			t.To.Format(timeparse.DisplayClockLayout))
	default:
		return head
	}
}

// String implements fmt.Stringer.
func (t Task) String() string {
	return t.DisplayString()
}
