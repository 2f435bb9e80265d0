package api

import (
	"time"

	"github.com/starford/anxi/internal/journal"
	"github.com/starford/anxi/internal/task"
	"github.com/starford/anxi/internal/timeparse"
)

// CommandRequest is the request body for submitting a command line.
type CommandRequest struct {
	Line *string `json:"line"`
}

// CommandResponse is the interpreter's reply.
type CommandResponse struct {
	Response string `json:"response"`
	Exit     bool   `json:"exit"`
}

// TaskDTO is one ledger entry. Number is the 1-based position accepted by
// mark, unmark and delete.
type TaskDTO struct {
	Number      int        `json:"number"`
	Kind        string     `json:"kind"`
	Description string     `json:"description"`
	Done        bool       `json:"done"`
	Display     string     `json:"display"`
	By          *time.Time `json:"by,omitempty"`
	From        *time.Time `json:"from,omitempty"`
	To          string     `json:"to,omitempty"`
}

// TaskListResponse wraps a task listing or search result.
type TaskListResponse struct {
	Tasks []TaskDTO `json:"tasks"`
	Total int       `json:"total"`
}

// HistoryResponse wraps journal entries, newest first.
type HistoryResponse struct {
	Entries []journal.Entry `json:"entries"`
}

func toTaskDTO(number int, t task.Task) TaskDTO {
	dto := TaskDTO{
		Number:      number,
		Kind:        t.Kind.String(),
		Description: t.Description,
		Done:        t.Done,
		Display:     t.DisplayString(),
	}
	switch t.Kind {
	case task.KindDeadline:
		by := t.By
		dto.By = &by
	case task.KindEvent:
		from := t.From
		dto.From = &from
		dto.To = t.To.Format(timeparse.SaveClockLayout)
	}
	return dto
}
