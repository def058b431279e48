package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/reroll/internal/compiler"
	"github.com/aretw0/reroll/internal/logging"
	"github.com/aretw0/reroll/internal/presentation"
	"github.com/aretw0/reroll/internal/sanitize"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine is the part of the reroll engine the API reads from directly.
type Engine interface {
	Templates() []*domain.Template
	Instantiate(ctx context.Context, index int) (*domain.Prompt, error)
	Roll(ctx context.Context, src string) (*domain.Prompt, []compiler.Diagnostic, error)
	Compile(p *domain.Prompt) string
	Watch(ctx context.Context) (<-chan string, error)
}

// History records and reads session entries.
type History interface {
	Generate(ctx context.Context, sessionID string) (*domain.Entry, error)
	Record(ctx context.Context, sessionID string, action domain.Action, parentID string, p *domain.Prompt) (*domain.Entry, error)
	Reroll(ctx context.Context, sessionID, ref string) (*domain.Entry, error)
	Revisit(ctx context.Context, sessionID, ref string) (*domain.Entry, error)
	Override(ctx context.Context, sessionID, ref string, fragmentID, option int) (*domain.Entry, error)
	Entry(ctx context.Context, sessionID, ref string) (*domain.Entry, error)
	History(ctx context.Context, sessionID string, limit int) ([]*domain.Entry, error)
	Clear(ctx context.Context, sessionID string) error
}

// Server implements ServerInterface.
type Server struct {
	Engine   Engine
	Recorder History
	Streams  *StreamManager
	logger   *slog.Logger
}

var _ ServerInterface = (*Server)(nil)

type handlerConfig struct {
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// HandlerOption configures NewHandler.
type HandlerOption func(*handlerConfig)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(c *handlerConfig) {
		c.logger = logger
	}
}

// WithMetrics serves the gatherer's metrics at /metrics.
func WithMetrics(g prometheus.Gatherer) HandlerOption {
	return func(c *handlerConfig) {
		c.gatherer = g
	}
}

// NewHandler creates the HTTP handler for the API, the spec, health and metrics.
func NewHandler(engine Engine, history History, opts ...HandlerOption) http.Handler {
	cfg := handlerConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewNop()
	}

	server := &Server{
		Engine:   engine,
		Recorder: history,
		Streams:  NewStreamManager(cfg.logger),
		logger:   cfg.logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		if _, err := GetSwagger(); err != nil {
			http.Error(w, "Failed to load spec", http.StatusInternalServerError)
			cfg.logger.Error("Failed to load OpenAPI spec", "err", err)
			return
		}
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))
	}

	handler := HandlerFromMux(server, r)
	return enableCORS(handler)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -- Wire types --

type Error struct {
	Error string `json:"error"`
}

type TemplateInfo struct {
	Index        int    `json:"index"`
	Source       string `json:"source"`
	Alternations int    `json:"alternations"`
}

type GenerateRequest struct {
	Template *int `json:"template,omitempty"`
}

type OverrideRequest struct {
	Fragment *int `json:"fragment"`
	Option   *int `json:"option"`
}

type CompileRequest struct {
	Template string `json:"template"`
}

type CompileResponse struct {
	Text        string                `json:"text"`
	Sentence    string                `json:"sentence"`
	Diagnostics []compiler.Diagnostic `json:"diagnostics,omitempty"`
}

type Entry struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	ParentID  string        `json:"parent_id,omitempty"`
	Action    domain.Action `json:"action"`
	CreatedAt time.Time     `json:"created_at"`
	Text      string        `json:"text"`
	Sentence  string        `json:"sentence"`
}

func mapEntry(e *domain.Entry) Entry {
	return Entry{
		ID:        e.ID,
		SessionID: e.SessionID,
		ParentID:  e.ParentID,
		Action:    e.Action,
		CreatedAt: e.CreatedAt,
		Text:      e.Text,
		Sentence:  presentation.Sentence(e.Text),
	}
}

// -- Handlers --

// ListTemplates handles GET /templates.
func (s *Server) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := s.Engine.Templates()
	resp := make([]TemplateInfo, len(templates))
	for i, tpl := range templates {
		resp[i] = TemplateInfo{Index: i, Source: tpl.Source, Alternations: tpl.CountAlternations()}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CompileTemplate handles POST /compile.
func (s *Server) CompileTemplate(w http.ResponseWriter, r *http.Request) {
	var body CompileRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	src, err := sanitize.Template(body.Template)
	if err != nil {
		s.logger.Warn("Compile: template rejected", "err", err, "size", len(body.Template))
		s.writeError(w, r, err)
		return
	}

	p, diags, err := s.Engine.Roll(r.Context(), src)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	text := s.Engine.Compile(p)
	writeJSON(w, http.StatusOK, CompileResponse{
		Text:        text,
		Sentence:    presentation.Sentence(text),
		Diagnostics: diags,
	})
}

// Generate handles POST /sessions/{session}/generate.
func (s *Server) Generate(w http.ResponseWriter, r *http.Request, session string) {
	var body GenerateRequest
	if err := decodeBody(r, &body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	s.record(w, r, session, func(ctx context.Context, id string) (*domain.Entry, error) {
		if body.Template == nil {
			return s.Recorder.Generate(ctx, id)
		}
		p, err := s.Engine.Instantiate(ctx, *body.Template)
		if err != nil {
			return nil, err
		}
		return s.Recorder.Record(ctx, id, domain.ActionGenerate, "", p)
	})
}

// Reroll handles POST /sessions/{session}/entries/{entry}/reroll.
func (s *Server) Reroll(w http.ResponseWriter, r *http.Request, session string, entry string) {
	s.record(w, r, session, func(ctx context.Context, id string) (*domain.Entry, error) {
		return s.Recorder.Reroll(ctx, id, entry)
	})
}

// Revisit handles POST /sessions/{session}/entries/{entry}/revisit.
func (s *Server) Revisit(w http.ResponseWriter, r *http.Request, session string, entry string) {
	s.record(w, r, session, func(ctx context.Context, id string) (*domain.Entry, error) {
		return s.Recorder.Revisit(ctx, id, entry)
	})
}

// Override handles POST /sessions/{session}/entries/{entry}/override.
func (s *Server) Override(w http.ResponseWriter, r *http.Request, session string, entry string) {
	var body OverrideRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if body.Fragment == nil || body.Option == nil {
		s.writeError(w, r, fmt.Errorf("%w: fragment and option are required", errBadRequest))
		return
	}
	s.record(w, r, session, func(ctx context.Context, id string) (*domain.Entry, error) {
		return s.Recorder.Override(ctx, id, entry, *body.Fragment, *body.Option)
	})
}

// Fragments handles GET /sessions/{session}/entries/{entry}/fragments.
func (s *Server) Fragments(w http.ResponseWriter, r *http.Request, session string, entry string) {
	id, err := sanitize.SessionID(session)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.Recorder.Entry(r.Context(), id, entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	fragments := presentation.Fragments(e.Prompt)
	if fragments == nil {
		fragments = []presentation.Fragment{}
	}
	writeJSON(w, http.StatusOK, fragments)
}

// History handles GET /sessions/{session}/history.
func (s *Server) History(w http.ResponseWriter, r *http.Request, session string, params HistoryParams) {
	id, err := sanitize.SessionID(session)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit := 0
	if params.Limit != nil {
		if *params.Limit < 0 {
			s.writeError(w, r, fmt.Errorf("%w: limit must not be negative", errBadRequest))
			return
		}
		limit = *params.Limit
	}
	entries, err := s.Recorder.History(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := make([]Entry, len(entries))
	for i, e := range entries {
		resp[i] = mapEntry(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ClearSession handles DELETE /sessions/{session}.
func (s *Server) ClearSession(w http.ResponseWriter, r *http.Request, session string) {
	id, err := sanitize.SessionID(session)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Recorder.Clear(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// record runs fn for a validated session id, answers with the new entry and
// broadcasts it to the session's subscribers.
func (s *Server) record(w http.ResponseWriter, r *http.Request, session string, fn func(context.Context, string) (*domain.Entry, error)) {
	id, err := sanitize.SessionID(session)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := fn(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := mapEntry(e)
	if payload, err := json.Marshal(resp); err == nil {
		s.Streams.Broadcast(id, string(payload))
	}
	writeJSON(w, http.StatusCreated, resp)
}

// -- Server-sent events --

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// SubscribeEvents handles GET /events. Without a session it streams corpus
// reloads; with one it streams every entry recorded in that session.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request, params SubscribeEventsParams) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var events <-chan string
	if params.SessionId == nil {
		watch, err := s.Engine.Watch(r.Context())
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %v", errUnsupported, err))
			return
		}
		events = watch
	} else {
		id, err := sanitize.SessionID(*params.SessionId)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ch, cancel := s.Streams.Subscribe(id)
		defer cancel()
		events = ch
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

var (
	errBadRequest  = errors.New("invalid request")
	errUnsupported = errors.New("not supported")
)

// StatusFor maps domain and input errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, sanitize.ErrInvalidUTF8),
		errors.Is(err, sanitize.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, sanitize.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrEntryNotFound),
		errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrFragmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOptionOutOfRange),
		errors.Is(err, domain.ErrFixedFragment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrEmptyCorpus):
		return http.StatusConflict
	case errors.Is(err, errUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, Error{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
