package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/reroll/internal/compiler"
	"github.com/aretw0/reroll/internal/logging"
	"github.com/aretw0/reroll/internal/presentation"
	"github.com/aretw0/reroll/internal/sanitize"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// DefaultSession is used when a tool call names no session.
const DefaultSession = "mcp"

// TemplatesURI is the resource listing the loaded templates.
const TemplatesURI = "reroll://templates"

// Engine is the part of the reroll engine the MCP tools need.
type Engine interface {
	Templates() []*domain.Template
	Instantiate(ctx context.Context, index int) (*domain.Prompt, error)
	Roll(ctx context.Context, src string) (*domain.Prompt, []compiler.Diagnostic, error)
	Compile(p *domain.Prompt) string
}

// History records and reads session entries.
type History interface {
	Generate(ctx context.Context, sessionID string) (*domain.Entry, error)
	Record(ctx context.Context, sessionID string, action domain.Action, parentID string, p *domain.Prompt) (*domain.Entry, error)
	Override(ctx context.Context, sessionID, ref string, fragmentID, option int) (*domain.Entry, error)
	Entry(ctx context.Context, sessionID, ref string) (*domain.Entry, error)
	History(ctx context.Context, sessionID string, limit int) ([]*domain.Entry, error)
}

// EntryResult aligns with the OpenAPI Entry schema so every adapter answers alike.
type EntryResult struct {
	ID       string        `json:"id" jsonschema_description:"Entry id; pass it (or a unique prefix) to override and fragments"`
	ParentID string        `json:"parent_id,omitempty" jsonschema_description:"Entry this one was derived from"`
	Action   domain.Action `json:"action" jsonschema_description:"generate, reroll, override or revisit"`
	Text     string        `json:"text" jsonschema_description:"Compiled prompt"`
	Sentence string        `json:"sentence" jsonschema_description:"Compiled prompt with its first letter capitalized"`
}

type FragmentsResult struct {
	Entry     string                  `json:"entry"`
	Fragments []presentation.Fragment `json:"fragments" jsonschema_description:"Overridable fragments in rendering order, alternatives sorted by text"`
}

type HistoryResult struct {
	Entries []EntryResult `json:"entries" jsonschema_description:"Newest entries, oldest first"`
}

type CompileResult struct {
	Text        string                `json:"text"`
	Sentence    string                `json:"sentence"`
	Diagnostics []compiler.Diagnostic `json:"diagnostics,omitempty"`
}

type GenerateArgs struct {
	Session  string `json:"session,omitempty"`
	Template *int   `json:"template,omitempty"`
}

type OverrideArgs struct {
	Session  string `json:"session,omitempty"`
	Entry    string `json:"entry,omitempty"`
	Fragment *int   `json:"fragment"`
	Option   *int   `json:"option"`
}

type FragmentsArgs struct {
	Session string `json:"session,omitempty"`
	Entry   string `json:"entry,omitempty"`
}

type HistoryArgs struct {
	Session string `json:"session,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

type CompileArgs struct {
	Template string `json:"template"`
}

// Server wraps the reroll engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	history   History
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, history History, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		history:   history,
		logger:    logger,
		mcpServer: server.NewMCPServer("reroll-mcp", strings.TrimSpace(version), server.WithToolCapabilities(false)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	sessionArg := mcp.WithString("session", mcp.Description("Session id (default \""+DefaultSession+"\")"))
	entryArg := mcp.WithString("entry", mcp.Description("Entry id, unique id prefix or \"latest\" (default latest)"))

	s.mcpServer.AddTool(mcp.NewTool("generate",
		mcp.WithDescription("Generate a prompt from a random template (or the given one) and record it."),
		sessionArg,
		mcp.WithNumber("template", mcp.Description("Template index from the reroll://templates resource"), mcp.Min(0)),
		mcp.WithOutputSchema[EntryResult](),
	), mcp.NewStructuredToolHandler(s.handleGenerate))

	s.mcpServer.AddTool(mcp.NewTool("override",
		mcp.WithDescription("Record a copy of an entry with exactly one fragment switched to another option."),
		sessionArg,
		entryArg,
		mcp.WithNumber("fragment", mcp.Required(), mcp.Description("Fragment id from the fragments tool")),
		mcp.WithNumber("option", mcp.Required(), mcp.Description("Option index from the fragment's alternatives")),
		mcp.WithOutputSchema[EntryResult](),
	), mcp.NewStructuredToolHandler(s.handleOverride))

	s.mcpServer.AddTool(mcp.NewTool("fragments",
		mcp.WithDescription("List the overridable fragments of an entry and their alternatives."),
		sessionArg,
		entryArg,
		mcp.WithOutputSchema[FragmentsResult](),
	), mcp.NewStructuredToolHandler(s.handleFragments))

	s.mcpServer.AddTool(mcp.NewTool("history",
		mcp.WithDescription("List the newest entries of a session, oldest first."),
		sessionArg,
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries (0 for all kept)"), mcp.Min(0)),
		mcp.WithOutputSchema[HistoryResult](),
	), mcp.NewStructuredToolHandler(s.handleHistory))

	s.mcpServer.AddTool(mcp.NewTool("compile",
		mcp.WithDescription("Draw one prompt from an ad-hoc template using the loaded lists."),
		mcp.WithString("template", mcp.Required(), mcp.Description("Template such as \"a {red|blue} {?very }{#animal}\"")),
		mcp.WithOutputSchema[CompileResult](),
	), mcp.NewStructuredToolHandler(s.handleCompile))
}

func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest, args GenerateArgs) (EntryResult, error) {
	id, err := sessionID(args.Session)
	if err != nil {
		return EntryResult{}, err
	}
	var entry *domain.Entry
	if args.Template == nil {
		entry, err = s.history.Generate(ctx, id)
	} else {
		var p *domain.Prompt
		p, err = s.engine.Instantiate(ctx, *args.Template)
		if err == nil {
			entry, err = s.history.Record(ctx, id, domain.ActionGenerate, "", p)
		}
	}
	if err != nil {
		return EntryResult{}, fmt.Errorf("generate failed: %w", err)
	}
	return mapEntry(entry), nil
}

func (s *Server) handleOverride(ctx context.Context, request mcp.CallToolRequest, args OverrideArgs) (EntryResult, error) {
	id, err := sessionID(args.Session)
	if err != nil {
		return EntryResult{}, err
	}
	if args.Fragment == nil || args.Option == nil {
		return EntryResult{}, fmt.Errorf("fragment and option are required")
	}
	entry, err := s.history.Override(ctx, id, args.Entry, *args.Fragment, *args.Option)
	if err != nil {
		s.logger.Debug("MCP override rejected", "session_id", id, "fragment_id", *args.Fragment, "err", err)
		return EntryResult{}, fmt.Errorf("override failed: %w", err)
	}
	return mapEntry(entry), nil
}

func (s *Server) handleFragments(ctx context.Context, request mcp.CallToolRequest, args FragmentsArgs) (FragmentsResult, error) {
	id, err := sessionID(args.Session)
	if err != nil {
		return FragmentsResult{}, err
	}
	entry, err := s.history.Entry(ctx, id, args.Entry)
	if err != nil {
		return FragmentsResult{}, fmt.Errorf("fragments failed: %w", err)
	}
	fragments := presentation.Fragments(entry.Prompt)
	if fragments == nil {
		fragments = []presentation.Fragment{}
	}
	return FragmentsResult{Entry: entry.ID, Fragments: fragments}, nil
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest, args HistoryArgs) (HistoryResult, error) {
	id, err := sessionID(args.Session)
	if err != nil {
		return HistoryResult{}, err
	}
	entries, err := s.history.History(ctx, id, args.Limit)
	if err != nil {
		return HistoryResult{}, fmt.Errorf("history failed: %w", err)
	}
	out := HistoryResult{Entries: make([]EntryResult, len(entries))}
	for i, e := range entries {
		out.Entries[i] = mapEntry(e)
	}
	return out, nil
}

func (s *Server) handleCompile(ctx context.Context, request mcp.CallToolRequest, args CompileArgs) (CompileResult, error) {
	src, err := sanitize.Template(args.Template)
	if err != nil {
		s.logger.Warn("MCP compile: template rejected", "err", err, "size", len(args.Template))
		return CompileResult{}, fmt.Errorf("template rejected: %w", err)
	}
	p, diags, err := s.engine.Roll(ctx, src)
	if err != nil {
		return CompileResult{}, fmt.Errorf("compile failed: %w", err)
	}
	text := s.engine.Compile(p)
	return CompileResult{Text: text, Sentence: presentation.Sentence(text), Diagnostics: diags}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TemplatesURI, "Loaded Templates",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      TemplatesURI,
				MIMEType: "application/json",
				Text:     s.templatesJSON(),
			},
		}, nil
	})
}

type templateInfo struct {
	Index        int    `json:"index"`
	Source       string `json:"source"`
	Alternations int    `json:"alternations"`
}

func (s *Server) templatesJSON() string {
	templates := s.engine.Templates()
	out := make([]templateInfo, len(templates))
	for i, tpl := range templates {
		out[i] = templateInfo{Index: i, Source: tpl.Source, Alternations: tpl.CountAlternations()}
	}
	jsonBytes, _ := json.Marshal(out)
	return string(jsonBytes)
}

func sessionID(raw string) (string, error) {
	if raw == "" {
		return DefaultSession, nil
	}
	return sanitize.SessionID(raw)
}

func mapEntry(e *domain.Entry) EntryResult {
	return EntryResult{
		ID:       e.ID,
		ParentID: e.ParentID,
		Action:   e.Action,
		Text:     e.Text,
		Sentence: presentation.Sentence(e.Text),
	}
}
