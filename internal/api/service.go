package api

import (
	"github.com/starford/anxi/internal/interpreter"
	"github.com/starford/anxi/internal/journal"
	"github.com/starford/anxi/internal/ledger"
	"github.com/starford/anxi/internal/task"
)

// Service is the task surface the handlers drive. *interpreter.Interpreter
// implements it.
type Service interface {
	Submit(line string) interpreter.Response
	Tasks() []task.Task
	Find(term string) []ledger.Match
}

// History reads the command journal. *journal.DB implements it.
type History interface {
	Recent(limit int) ([]journal.Entry, error)
	Search(term string, limit int) ([]journal.Entry, error)
}

var (
	_ Service = (*interpreter.Interpreter)(nil)
	_ History = (*journal.DB)(nil)
)
