// Package interpreter turns command lines into ledger changes and replies.
package interpreter

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/starford/anxi/internal/apperr"
	"github.com/starford/anxi/internal/journal"
	"github.com/starford/anxi/internal/ledger"
	"github.com/starford/anxi/internal/storage"
	"github.com/starford/anxi/internal/task"
)

// Response is the reply to one submitted line. Exit is set by "bye".
type Response struct {
	Text string `json:"response"`
	Exit bool   `json:"exit"`
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLoadFailureHook registers fn to be called once if Open cannot load the
// ledger file.
func WithLoadFailureHook(fn func(error)) Option {
	return func(in *Interpreter) { in.onLoadFailure = fn }
}

// WithJournal records every submitted line in r.
func WithJournal(r Recorder) Option {
	return func(in *Interpreter) { in.journal = r }
}

// WithNotifier sends committed changes to n.
func WithNotifier(n Notifier) Option {
	return func(in *Interpreter) { in.notifier = n }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) { in.logger = l }
}

// WithSessionID sets the session recorded in journal entries.
func WithSessionID(id string) Option {
	return func(in *Interpreter) { in.session = id }
}

// Interpreter executes commands against a ledger and mirrors every change
// to its store. It is safe for concurrent use; commands run one at a time.
type Interpreter struct {
	mu     sync.Mutex
	ledger *ledger.Ledger
	store  storage.Provider
	// unloaded is set while the ledger does not reflect the file, after a
	// failed initial load. Mutations are refused until Reload succeeds.
	unloaded bool

	journal       Recorder
	notifier      Notifier
	logger        *slog.Logger
	session       string
	onLoadFailure func(error)
}

// Open loads the ledger from store. A load failure is not fatal: the hook
// fires and the interpreter starts with an empty, read-only ledger.
func Open(store storage.Provider, opts ...Option) *Interpreter {
	in := newInterpreter(ledger.New(nil), store, opts)

	tasks, err := store.Load()
	if err != nil {
		lerr := apperr.Load(err)
		in.logger.Warn("interpreter: could not load ledger, starting empty",
			slog.String("path", store.Path()),
			slog.String("error", err.Error()))
		in.unloaded = true
		if in.onLoadFailure != nil {
			in.onLoadFailure(lerr)
		}
		return in
	}
	in.ledger = ledger.New(tasks)
	in.logger.Info("interpreter: ledger loaded",
		slog.String("path", store.Path()),
		slog.Int("tasks", len(tasks)))
	return in
}

// New returns an interpreter over an already loaded ledger.
func New(l *ledger.Ledger, store storage.Provider, opts ...Option) *Interpreter {
	return newInterpreter(l, store, opts)
}

func newInterpreter(l *ledger.Ledger, store storage.Provider, opts []Option) *Interpreter {
	in := &Interpreter{ledger: l, store: store}
	for _, o := range opts {
		o(in)
	}
	if in.logger == nil {
		in.logger = slog.Default()
	}
	if in.session == "" {
		in.session = uuid.NewString()
	}
	return in
}

// SessionID returns the session recorded in journal entries.
func (in *Interpreter) SessionID() string {
	return in.session
}

// Submit executes one line and returns the reply.
func (in *Interpreter) Submit(line string) Response {
	in.mu.Lock()
	defer in.mu.Unlock()

	name, rest := splitCommand(line)
	resp, change, err := in.dispatch(name, rest)
	outcome := "ok"
	if err != nil {
		resp = Response{Text: failureText(err)}
		outcome = apperr.KindOf(err).String()
		in.logger.Debug("interpreter: command rejected",
			slog.String("command", name),
			slog.String("outcome", outcome),
			slog.String("error", err.Error()))
	}

	in.record(strings.ToLower(name), line, outcome, resp.Text)
	if change != nil && in.notifier != nil {
		in.notifier.Notify(*change)
	}
	return resp
}

// Reload replaces the ledger with the store's current content.
func (in *Interpreter) Reload() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	tasks, err := in.store.Load()
	if err != nil {
		return apperr.Load(err)
	}
	in.ledger = ledger.New(tasks)
	in.unloaded = false
	in.logger.Info("interpreter: ledger reloaded",
		slog.String("path", in.store.Path()),
		slog.Int("tasks", len(tasks)))
	if in.notifier != nil {
		in.notifier.Notify(Change{Kind: ChangeReloaded, Index: -1, Size: len(tasks)})
	}
	return nil
}

// Tasks returns a copy of the ledger.
func (in *Interpreter) Tasks() []task.Task {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.ledger.Tasks()
}

// Find returns the tasks whose description contains term.
func (in *Interpreter) Find(term string) []ledger.Match {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.ledger.Find(term)
}

func (in *Interpreter) record(command, input, outcome, text string) {
	if in.journal == nil {
		return
	}
	err := in.journal.Record(journal.Entry{
		Session:  in.session,
		At:       time.Now(),
		Command:  command,
		Input:    input,
		Outcome:  outcome,
		Response: text,
	})
	if err != nil {
		in.logger.Warn("interpreter: journal record failed", slog.String("error", err.Error()))
	}
}

// splitCommand returns the first word and the trimmed remainder.
func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i:])
}

func failureText(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Kind == apperr.KindPersistence {
		return "Could not save your change: " + e.Err.Error()
	}
	return apperr.MessageOf(err)
}
