// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the task ledger as tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/anxi/internal/interpreter"
	"github.com/starford/anxi/internal/ledger"
	"github.com/starford/anxi/internal/task"
)

const grammarURI = "anxi://command-grammar"

// Ledger is the task surface the tools drive. *interpreter.Interpreter
// implements it.
type Ledger interface {
	Submit(line string) interpreter.Response
	Tasks() []task.Task
	Find(term string) []ledger.Match
}

const baseInstructions = "anxi keeps a personal task list. Use submit_command with the grammar from get_command_grammar."

// Server wraps the MCP server with anxi tools.
type Server struct {
	mcp    *server.MCPServer
	ledger Ledger

	loadWarning  string
	instructions string
}

// Option configures a Server.
type Option func(*Server)

// WithLoadFailure reports that the task file could not be loaded. Clients
// see it in the server instructions and next to every listing.
func WithLoadFailure(err error) Option {
	return func(s *Server) {
		if err != nil {
			s.loadWarning = fmt.Sprintf("warning: the saved task list could not be loaded (%v); "+
				"the list is empty and changes are not saved until the file can be read", err)
		}
	}
}

// taskItem is the JSON shape of one task in tool results.
type taskItem struct {
	Number  int    `json:"number"`
	Kind    string `json:"kind"`
	Done    bool   `json:"done"`
	Display string `json:"display"`
}

// New creates a new MCP server with all anxi tools registered.
func New(l Ledger, version string, opts ...Option) *Server {
	s := &Server{ledger: l}
	for _, o := range opts {
		o(s)
	}
	s.instructions = baseInstructions
	if s.loadWarning != "" {
		s.instructions += "\n\n" + s.loadWarning
	}

	s.mcp = server.NewMCPServer(
		"anxi",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions(s.instructions),
	)

	s.mcp.AddTool(mcp.NewTool("submit_command",
		mcp.WithDescription("Run one anxi command line (todo, deadline, event, mark, unmark, delete, find, list) "+
			"and return the reply text. Read the grammar first via the get_command_grammar tool or the "+
			grammarURI+" resource."),
		mcp.WithString("line", mcp.Required(), mcp.Description("The command line, e.g. \"todo read book\"")),
	), s.submitCommand)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List every task as JSON, numbered as the list command numbers them."),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("find_tasks",
		mcp.WithDescription("Case-sensitive search in task descriptions. Results keep their list numbers."),
		mcp.WithString("term", mcp.Required(), mcp.Description("Substring to look for")),
	), s.findTasks)

	s.mcp.AddTool(mcp.NewTool("get_command_grammar",
		mcp.WithDescription("Returns the anxi command grammar. "+
			"Call this before submitting commands to use the right syntax and date formats."),
	), s.getCommandGrammar)

	// Resource: command grammar.
	s.mcp.AddResource(
		mcp.NewResource(grammarURI, "Command Grammar",
			mcp.WithResourceDescription("Commands, arguments and date formats accepted by submit_command."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGrammarResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// submitCommand runs the line. A "bye" only produces the farewell text; the
// stdio session stays open.
func (s *Server) submitCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line, err := req.RequireString("line")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp := s.ledger.Submit(line)
	return mcp.NewToolResultText(resp.Text), nil
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks := s.ledger.Tasks()
	items := make([]taskItem, len(tasks))
	for i, t := range tasks {
		items[i] = newTaskItem(i, t)
	}
	return s.listing(items)
}

func (s *Server) findTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := req.RequireString("term")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if term == "" {
		return mcp.NewToolResultError("term must not be empty"), nil
	}
	matches := s.ledger.Find(term)
	items := make([]taskItem, len(matches))
	for i, m := range matches {
		items[i] = newTaskItem(m.Index, m.Task)
	}
	return s.listing(items)
}

func (s *Server) getCommandGrammar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CommandGrammar), nil
}

func (s *Server) readGrammarResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      grammarURI,
			MIMEType: "text/markdown",
			Text:     CommandGrammar,
		},
	}, nil
}

func newTaskItem(index int, t task.Task) taskItem {
	return taskItem{
		Number:  index + 1,
		Kind:    t.Kind.String(),
		Done:    t.Done,
		Display: t.DisplayString(),
	}
}

// listing returns items as JSON, followed by the load warning if any.
func (s *Server) listing(items []taskItem) (*mcp.CallToolResult, error) {
	res, err := jsonResult(items)
	if err != nil || res.IsError || s.loadWarning == "" {
		return res, err
	}
	res.Content = append(res.Content, mcp.NewTextContent(s.loadWarning))
	return res, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
