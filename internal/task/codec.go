package task

import (
	"fmt"
	"strings"

	"github.com/starford/anxi/internal/apperr"
	"github.com/starford/anxi/internal/timeparse"
)

const fieldSep = " | "

// SaveLine renders the task as one persisted line:
//
//	T | 0 | read book
//	D | 0 | return book | 2019-10-15 18:00
//	E | 1 | meeting | 2019-10-15 14:00 | 16:00
func (t Task) SaveLine() string {
	done := "0"
	if t.Done {
		done = "1"
	}
	fields := []string{t.Kind.Tag(), done, t.Description}
	switch t.Kind {
	case KindToDo:
	case KindDeadline:
		fields = append(fields, t.By.Format(timeparse.SaveDateTimeLayout))
	case KindEvent:
		fields = append(fields, t.From.Format(timeparse.SaveDateTimeLayout), t.To.String())
	}
	return strings.Join(fields, fieldSep)
}

// ParseLine decodes a persisted line. Fields are trimmed and the type tag is
// case-insensitive.
func ParseLine(line string) (Task, error) {
	fields := strings.Split(line, "|")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) < 3 {
		return Task{}, fmt.Errorf("task: want at least 3 fields, got %d", len(fields))
	}

	t := Task{
		Description: fields[2],
		Done:        fields[1] == "1",
	}
	if t.Description == "" {
		return Task{}, fmt.Errorf("task: empty description")
	}

	switch strings.ToUpper(fields[0]) {
	case "T":
		if len(fields) != 3 {
			return Task{}, fmt.Errorf("task: todo wants 3 fields, got %d", len(fields))
		}
		t.Kind = KindToDo
	case "D":
		if len(fields) != 4 {
			return Task{}, fmt.Errorf("task: deadline wants 4 fields, got %d", len(fields))
		}
		by, err := timeparse.ParseDateTime(fields[3])
		if err != nil {
			return Task{}, fmt.Errorf("task: deadline date: %w", err)
		}
		t.Kind = KindDeadline
		t.By = by
	case "E":
		if len(fields) != 5 {
			return Task{}, fmt.Errorf("task: event wants 5 fields, got %d", len(fields))
		}
		from, err := timeparse.ParseDateTime(fields[3])
		if err != nil {
			return Task{}, fmt.Errorf("task: event start: %w", err)
		}
		to, err := timeparse.ParseTime(fields[4])
		if err != nil {
			return Task{}, fmt.Errorf("task: event end: %w", err)
		}
		t.Kind = KindEvent
		t.From = from
		t.To = to
	default:
		return Task{}, fmt.Errorf("task: tag %q: %w", fields[0], apperr.ErrUnknownKind)
	}
	return t, nil
}
