package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/anxi/internal/journal"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// Handler holds API route handlers.
type Handler struct {
	svc     Service
	history History
}

// NewHandler creates a new Handler. history may be nil.
func NewHandler(svc Service, history History) *Handler {
	return &Handler{svc: svc, history: history}
}

// SubmitCommand handles POST /api/commands. Command-level failures such as
// an unknown command are part of the reply text, not HTTP errors.
func (h *Handler) SubmitCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Line == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("line is required"))
		return
	}
	resp := h.svc.Submit(*req.Line)
	writeJSON(w, http.StatusOK, CommandResponse{Response: resp.Text, Exit: resp.Exit})
}

// ListTasks handles GET /api/tasks. With ?q=term only matching tasks are
// returned, numbered by their ledger position.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	out := TaskListResponse{Tasks: []TaskDTO{}}

	if q, ok := r.URL.Query()["q"]; ok {
		if len(q) == 0 || q[0] == "" {
			writeJSON(w, http.StatusBadRequest, errorBody("query parameter q must not be empty"))
			return
		}
		for _, m := range h.svc.Find(q[0]) {
			out.Tasks = append(out.Tasks, toTaskDTO(m.Index+1, m.Task))
		}
	} else {
		for i, t := range h.svc.Tasks() {
			out.Tasks = append(out.Tasks, toTaskDTO(i+1, t))
		}
	}
	out.Total = len(out.Tasks)
	writeJSON(w, http.StatusOK, out)
}

// History handles GET /api/history?limit=n&q=term.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultHistoryLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	out := HistoryResponse{Entries: []journal.Entry{}}
	if h.history == nil {
		writeJSON(w, http.StatusOK, out)
		return
	}

	var (
		entries []journal.Entry
		err     error
	)
	if term := q.Get("q"); term != "" {
		entries, err = h.history.Search(term, limit)
	} else {
		entries, err = h.history.Recent(limit)
	}
	if err != nil {
		slog.Error("history query failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if entries != nil {
		out.Entries = entries
	}
	writeJSON(w, http.StatusOK, out)
}
