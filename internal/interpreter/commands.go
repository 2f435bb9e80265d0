package interpreter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/anxi/internal/apperr"
	"github.com/starford/anxi/internal/ledger"
	"github.com/starford/anxi/internal/storage"
	"github.com/starford/anxi/internal/task"
	"github.com/starford/anxi/internal/timeparse"
)

const (
	farewell = "Bye. Hope to see you again soon!"

	flagBy   = "/by"
	flagFrom = "/from"
	flagTo   = "/to"
)

// mutation is a staged ledger change and the reply to send once it is saved.
type mutation struct {
	change Change
	reply  string
}

func (in *Interpreter) dispatch(name, rest string) (Response, *Change, error) {
	if name == "" {
		return Response{}, nil, apperr.Parse("Please enter a command.")
	}

	switch strings.ToLower(name) {
	case "bye":
		return Response{Text: farewell, Exit: true}, nil, nil
	case "list":
		return Response{Text: listText(in.ledger.Tasks())}, nil, nil
	case "find":
		text, err := in.find(rest)
		return Response{Text: text}, nil, err
	case "todo":
		return in.apply(func(l *ledger.Ledger) (*mutation, error) { return stageToDo(l, rest) })
	case "deadline":
		return in.apply(func(l *ledger.Ledger) (*mutation, error) { return stageDeadline(l, rest) })
	case "event":
		return in.apply(func(l *ledger.Ledger) (*mutation, error) { return stageEvent(l, rest) })
	case "mark":
		return in.apply(func(l *ledger.Ledger) (*mutation, error) { return stageMark(l, rest, true) })
	case "unmark":
		return in.apply(func(l *ledger.Ledger) (*mutation, error) { return stageMark(l, rest, false) })
	case "delete":
		return in.apply(func(l *ledger.Ledger) (*mutation, error) { return stageDelete(l, rest) })
	default:
		return Response{}, nil, apperr.Parse(fmt.Sprintf("I'm sorry, I don't know what %q means.", name))
	}
}

// apply runs stage on a clone of the ledger, persists the result and only
// then commits the clone. On any failure the live ledger is unchanged.
func (in *Interpreter) apply(stage func(*ledger.Ledger) (*mutation, error)) (Response, *Change, error) {
	staged := in.ledger.Clone()
	m, err := stage(staged)
	if err != nil {
		return Response{}, nil, err
	}
	if in.unloaded {
		return Response{}, nil, apperr.Persistence(apperr.ErrNotLoaded)
	}
	if err := m.persist(in.store); err != nil {
		return Response{}, nil, apperr.Persistence(err)
	}
	in.ledger.Commit(staged)
	return Response{Text: m.reply}, &m.change, nil
}

// persist applies the file operation that mirrors the staged change.
func (m *mutation) persist(store storage.Provider) error {
	c := m.change
	switch c.Kind {
	case ChangeAdded:
		return store.Append(c.Task)
	case ChangeUpdated:
		return store.RewriteAt(c.Index, c.Task)
	case ChangeDeleted:
		return store.RemoveAt(c.Index)
	default:
		return nil
	}
}

func stageToDo(l *ledger.Ledger, rest string) (*mutation, error) {
	if rest == "" {
		return nil, apperr.Parse("The description of a todo cannot be empty.")
	}
	t, err := l.AddToDo(rest)
	if err != nil {
		return nil, err
	}
	return added(l, t), nil
}

func stageDeadline(l *ledger.Ledger, rest string) (*mutation, error) {
	if rest == "" {
		return nil, apperr.Parse("The description of a deadline cannot be empty.")
	}
	i := strings.Index(rest, flagBy)
	if i < 0 {
		return nil, apperr.Parse("Please give the deadline a due date using /by.")
	}
	desc := strings.TrimSpace(rest[:i])
	if desc == "" {
		return nil, apperr.Parse("The description of a deadline cannot be empty.")
	}
	when := strings.TrimSpace(rest[i+len(flagBy):])
	if when == "" {
		return nil, apperr.Parse("The due date after /by cannot be empty.")
	}
	by, err := timeparse.ParseDateTime(when)
	if err != nil {
		return nil, err
	}
	t, err := l.AddDeadline(desc, by)
	if err != nil {
		return nil, err
	}
	return added(l, t), nil
}

func stageEvent(l *ledger.Ledger, rest string) (*mutation, error) {
	if rest == "" {
		return nil, apperr.Parse("The description of an event cannot be empty.")
	}
	// Only the first /from and the first /to delimit fields.
	fromAt := strings.Index(rest, flagFrom)
	if fromAt < 0 {
		return nil, apperr.Parse("Please give the event a start using /from.")
	}
	toAt := strings.Index(rest, flagTo)
	if toAt < 0 {
		return nil, apperr.Parse("Please give the event an end using /to.")
	}
	if toAt < fromAt {
		return nil, apperr.Parse("Please put /to after /from.")
	}

	desc := strings.TrimSpace(rest[:fromAt])
	if desc == "" {
		return nil, apperr.Parse("The description of an event cannot be empty.")
	}
	start := strings.TrimSpace(rest[fromAt+len(flagFrom) : toAt])
	if start == "" {
		return nil, apperr.Parse("The start time after /from cannot be empty.")
	}
	end := strings.TrimSpace(rest[toAt+len(flagTo):])
	if end == "" {
		return nil, apperr.Parse("The end time after /to cannot be empty.")
	}

	from, err := timeparse.ParseDateTime(start)
	if err != nil {
		return nil, err
	}
	to, err := timeparse.ParseTime(end)
	if err != nil {
		return nil, err
	}
	t, err := l.AddEvent(desc, from, to)
	if err != nil {
		return nil, err
	}
	return added(l, t), nil
}

func stageMark(l *ledger.Ledger, rest string, done bool) (*mutation, error) {
	i, err := parseIndex(rest)
	if err != nil {
		return nil, err
	}
	var t task.Task
	if done {
		t, err = l.MarkDone(i)
	} else {
		t, err = l.MarkUndone(i)
	}
	if err != nil {
		return nil, err
	}

	reply := "Nice! I've marked this task as done:\n  " + t.DisplayString()
	if !done {
		reply = "OK, I've marked this task as not done yet:\n  " + t.DisplayString()
	}
	return &mutation{
		change: Change{Kind: ChangeUpdated, Index: i, Task: t, Size: l.Size()},
		reply:  reply,
	}, nil
}

func stageDelete(l *ledger.Ledger, rest string) (*mutation, error) {
	i, err := parseIndex(rest)
	if err != nil {
		return nil, err
	}
	t, err := l.Delete(i)
	if err != nil {
		return nil, err
	}
	return &mutation{
		change: Change{Kind: ChangeDeleted, Index: i, Task: t, Size: l.Size()},
		reply: fmt.Sprintf("Noted. I've removed this task:\n  %s\n%s",
			t.DisplayString(), countText(l.Size())),
	}, nil
}

func added(l *ledger.Ledger, t task.Task) *mutation {
	return &mutation{
		change: Change{Kind: ChangeAdded, Index: l.Size() - 1, Task: t, Size: l.Size()},
		reply: fmt.Sprintf("Got it. I've added this task:\n  %s\n%s",
			t.DisplayString(), countText(l.Size())),
	}
}

func (in *Interpreter) find(term string) (string, error) {
	if term == "" {
		return "", apperr.Parse("Please give a search term.")
	}
	matches := in.ledger.Find(term)
	if len(matches) == 0 {
		return fmt.Sprintf("No matching tasks found for %q.", term), nil
	}
	var b strings.Builder
	b.WriteString("Here are the matching tasks in your list:")
	for _, m := range matches {
		fmt.Fprintf(&b, "\n%d.%s", m.Index+1, m.Task.DisplayString())
	}
	return b.String(), nil
}

// parseIndex converts a 1-based task number into a ledger index. Range
// checks are left to the ledger.
func parseIndex(rest string) (int, error) {
	if rest == "" {
		return 0, apperr.Parse("Please give the task number.")
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, apperr.Parse(fmt.Sprintf("%q is not a valid task number.", rest))
	}
	return n - 1, nil
}

func listText(tasks []task.Task) string {
	if len(tasks) == 0 {
		return "Your task list is empty."
	}
	var b strings.Builder
	b.WriteString("Here are the tasks in your list:")
	for i, t := range tasks {
		fmt.Fprintf(&b, "\n%d.%s", i+1, t.DisplayString())
	}
	return b.String()
}

func countText(n int) string {
	noun := "tasks"
	if n == 1 {
		noun = "task"
	}
	return fmt.Sprintf("Now you have %d %s in the list.", n, noun)
}
