package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/starford/anxi/internal/interpreter"
	"github.com/starford/anxi/internal/journal"
	"github.com/starford/anxi/internal/storage"
	"github.com/starford/anxi/internal/testutil"
)

// testEnv sets up a temp ledger, journal, interpreter, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*interpreter.Interpreter, storage.Provider, http.Handler) {
	t.Helper()
	db := testutil.TestDB(t)
	in, store := testutil.TestInterpreter(t, []interpreter.Option{interpreter.WithJournal(db)})
	router := NewRouter(in, db, authToken != "", authToken, nil)
	return in, store, router
}

func submit(t *testing.T, router http.Handler, line string) CommandResponse {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"line": line})
	req := httptest.NewRequest(http.MethodPost, "/commands", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("submit %q status = %d, body = %s", line, w.Code, w.Body.String())
	}
	var resp CommandResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func getJSON(t *testing.T, router http.Handler, target string, v any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if v != nil && w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
			t.Fatalf("decode %s: %v", target, err)
		}
	}
	return w.Code
}

func TestSubmitCommand(t *testing.T) {
	_, store, router := testEnv(t, "")

	resp := submit(t, router, "todo read book")
	if !strings.HasPrefix(resp.Response, "Got it. I've added this task:") || resp.Exit {
		t.Errorf("resp = %+v", resp)
	}
	data, _ := os.ReadFile(store.Path())
	if string(data) != "T | 0 | read book" {
		t.Errorf("file = %q", data)
	}

	resp = submit(t, router, "frobnicate")
	if resp.Response != `I'm sorry, I don't know what "frobnicate" means.` {
		t.Errorf("unknown = %q", resp.Response)
	}

	resp = submit(t, router, "bye")
	if !resp.Exit {
		t.Error("bye should set exit")
	}
}

func TestSubmitCommand_EmptyLineIsACommand(t *testing.T) {
	_, _, router := testEnv(t, "")
	if resp := submit(t, router, ""); resp.Response != "Please enter a command." {
		t.Errorf("resp = %q", resp.Response)
	}
}

func TestSubmitCommand_BadBody(t *testing.T) {
	_, _, router := testEnv(t, "")

	for _, body := range []string{`not json`, `{}`, `{"line": "list", "extra": 1}`} {
		req := httptest.NewRequest(http.MethodPost, "/commands", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestListTasks(t *testing.T) {
	_, _, router := testEnv(t, "")
	submit(t, router, "todo read book")
	submit(t, router, "deadline return book /by 2019-10-15 1800")
	submit(t, router, "event meeting /from 2019-10-15 1400 /to 1600")
	submit(t, router, "mark 1")

	var out TaskListResponse
	if code := getJSON(t, router, "/tasks", &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if out.Total != 3 || len(out.Tasks) != 3 {
		t.Fatalf("total = %d, tasks = %d", out.Total, len(out.Tasks))
	}
	if !out.Tasks[0].Done || out.Tasks[0].Display != "[T][X] read book" {
		t.Errorf("task 1 = %+v", out.Tasks[0])
	}
	if out.Tasks[1].By == nil || out.Tasks[1].By.Hour() != 18 || out.Tasks[1].Kind != "deadline" {
		t.Errorf("task 2 = %+v", out.Tasks[1])
	}
	if out.Tasks[2].From == nil || out.Tasks[2].To != "16:00" || out.Tasks[2].Number != 3 {
		t.Errorf("task 3 = %+v", out.Tasks[2])
	}
}

func TestListTasks_Empty(t *testing.T) {
	_, _, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `"tasks":[]`) {
		t.Errorf("empty list should encode as [], got %s", w.Body.String())
	}
}

func TestListTasks_Find(t *testing.T) {
	_, _, router := testEnv(t, "")
	submit(t, router, "todo buy milk")
	submit(t, router, "todo read book")

	var out TaskListResponse
	getJSON(t, router, "/tasks?q=book", &out)
	if out.Total != 1 || out.Tasks[0].Number != 2 {
		t.Errorf("find = %+v", out)
	}

	if code := getJSON(t, router, "/tasks?q=", nil); code != http.StatusBadRequest {
		t.Errorf("empty q status = %d, want 400", code)
	}
}

func TestHistory(t *testing.T) {
	_, _, router := testEnv(t, "")
	submit(t, router, "todo read book")
	submit(t, router, "mark 7")
	submit(t, router, "list")

	var out HistoryResponse
	if code := getJSON(t, router, "/history?limit=2", &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(out.Entries) != 2 || out.Entries[0].Input != "list" || out.Entries[1].Outcome != "validation_error" {
		t.Errorf("entries = %+v", out.Entries)
	}

	getJSON(t, router, "/history?q=book", &out)
	if len(out.Entries) != 1 || out.Entries[0].Command != "todo" {
		t.Errorf("search = %+v", out.Entries)
	}

	if code := getJSON(t, router, "/history?limit=abc", nil); code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", code)
	}
}

func TestHistory_JournalDisabled(t *testing.T) {
	in, _ := testutil.TestInterpreter(t, nil)
	router := NewRouter(in, nil, false, "", nil)

	var out HistoryResponse
	if code := getJSON(t, router, "/history", &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if out.Entries == nil || len(out.Entries) != 0 {
		t.Errorf("entries = %+v", out.Entries)
	}
}

// failingHistory reports an error from every query.
type failingHistory struct{}

func (failingHistory) Recent(int) ([]journal.Entry, error) { return nil, os.ErrClosed }

func (failingHistory) Search(string, int) ([]journal.Entry, error) { return nil, os.ErrClosed }

func TestHistory_QueryError(t *testing.T) {
	in, _ := testutil.TestInterpreter(t, nil)
	router := NewRouter(in, failingHistory{}, false, "", nil)
	if code := getJSON(t, router, "/history", nil); code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, _, router := testEnv(t, "secret123")

	body, _ := json.Marshal(map[string]string{"line": "todo authed"})
	req := httptest.NewRequest(http.MethodPost, "/commands", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed submit = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	in, _, router := testEnv(t, "secret123")

	body, _ := json.Marshal(map[string]string{"line": "todo sneaky"})
	req := httptest.NewRequest(http.MethodPost, "/commands", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
	if len(in.Tasks()) != 0 {
		t.Error("unauthenticated command reached the ledger")
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, _, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, _, router := testEnv(t, "")

	if code := getJSON(t, router, "/tasks", nil); code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", code)
	}
}

// SSE endpoint auth tests.

// testEnvWithSSE creates a router with a dummy SSE handler to test auth on /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	in, _ := testutil.TestInterpreter(t, nil)

	// Minimal SSE handler stub: writes headers and blocks until context done.
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})

	return NewRouter(in, nil, authEnabled, token, sseHandler)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	router := testEnvWithSSE(t, false, "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
