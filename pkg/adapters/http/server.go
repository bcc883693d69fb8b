// Package http exposes agents over a JSON HTTP API with chi, plus
// server-sent events for selection changes and definition reloads.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/seltree"
	"github.com/aretw0/seltree/internal/logging"
	"github.com/aretw0/seltree/pkg/agent"
	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/ports"
	"github.com/aretw0/seltree/pkg/session"
	"github.com/aretw0/seltree/pkg/tree"
)

// Server serves the agent API.
type Server struct {
	Sessions  *session.Manager
	Templates ports.TemplateSource
	Watcher   ports.Watchable
	Streams   *StreamManager

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWatcher enables global reload events on GET /events.
func WithWatcher(w ports.Watchable) Option {
	return func(s *Server) {
		s.Watcher = w
	}
}

// WithGatherer serves the given metrics on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewServer creates a server over the session manager and template source.
func NewServer(sessions *session.Manager, templates ports.TemplateSource, opts ...Option) *Server {
	s := &Server{
		Sessions:  sessions,
		Templates: templates,
		Streams:   NewStreamManager(),
		gatherer:  prometheus.DefaultGatherer,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// NewHandler creates the HTTP handler for sessions and templates.
func NewHandler(sessions *session.Manager, templates ports.TemplateSource, opts ...Option) http.Handler {
	return NewServer(sessions, templates, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/events", s.SubscribeEvents)

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", s.ListTemplates)
		r.Get("/{name}", s.GetTemplate)
	})

	r.Route("/agents", func(r chi.Router) {
		r.Get("/", s.ListAgents)
		r.Post("/", s.CreateAgent)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetAgent)
			r.Delete("/", s.DeleteAgent)
			r.Post("/tick", s.Tick)
			r.Put("/variables", s.SetVariables)
			r.Post("/signals/{signal}", s.Signal)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AgentView is the JSON representation of an agent.
type AgentView struct {
	ID            string          `json:"id"`
	Template      string          `json:"template"`
	CurrentNodeID domain.NodeID   `json:"current_node_id"`
	Behavior      string          `json:"behavior"`
	Path          string          `json:"path,omitempty"`
	Variables     map[string]bool `json:"variables"`
	Matched       *bool           `json:"matched,omitempty"`
}

func viewOf(a *agent.Agent) AgentView {
	return AgentView{
		ID:            a.ID(),
		Template:      a.Template().Name(),
		CurrentNodeID: a.Current(),
		Behavior:      a.Behavior(),
		Path:          a.Template().Path(a.Current()),
		Variables:     a.NamedVariables(),
	}
}

// TemplateView is the JSON representation of a template.
type TemplateView struct {
	Name      string          `json:"name"`
	Type      string          `json:"type,omitempty"`
	File      string          `json:"file,omitempty"`
	Variables map[string]bool `json:"variables"`
	Signals   []string        `json:"signals"`
	Nodes     []NodeView      `json:"nodes"`
}

// NodeView describes one node of a template.
type NodeView struct {
	ID       domain.NodeID `json:"id"`
	Name     string        `json:"name"`
	Kind     string        `json:"kind"`
	Parent   domain.NodeID `json:"parent"`
	Behavior string        `json:"behavior,omitempty"`
}

func templateView(t *tree.Template) TemplateView {
	decls := t.Declarations()
	v := TemplateView{
		Name:      t.Name(),
		Type:      t.Type(),
		File:      t.File(),
		Variables: make(map[string]bool, decls.Len()),
		Signals:   t.Signals().Signals(),
	}
	for i, name := range decls.Names() {
		v.Variables[name] = decls.Default(domain.VariableID(i))
	}
	for i, n := range t.Nodes() {
		id := domain.NodeIDFromIndex(i)
		nv := NodeView{ID: id, Name: n.Name, Kind: n.Kind.String(), Parent: n.Parent}
		if name, ok := t.Translator().Translate(id); ok {
			nv.Behavior = name
		}
		v.Nodes = append(v.Nodes, nv)
	}
	return v
}

// CreateAgentRequest is the body of POST /agents.
type CreateAgentRequest struct {
	ID       string `json:"id,omitempty"`
	Template string `json:"template"`
}

// TickRequest is the optional body of POST /agents/{id}/tick.
type TickRequest struct {
	Variables map[string]bool `json:"variables,omitempty"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":       "seltree-http",
		"version":   strings.TrimSpace(seltree.Version),
		"templates": len(s.Templates.Names()),
	})
}

// ListTemplates handles GET /templates, optionally filtered by ?type=.
func (s *Server) ListTemplates(w http.ResponseWriter, r *http.Request) {
	var names []string
	if tag, ok := r.URL.Query()["type"]; ok {
		names = s.Templates.LookupByTypeTag(tag[0])
	} else {
		names = s.Templates.Names()
	}
	if names == nil {
		names = []string{}
	}
	s.writeJSON(w, http.StatusOK, names)
}

// GetTemplate handles GET /templates/{name}.
func (s *Server) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.Templates.Template(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, templateView(tmpl))
}

// ListAgents handles GET /agents.
func (s *Server) ListAgents(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	sort.Strings(ids)
	s.writeJSON(w, http.StatusOK, ids)
}

// CreateAgent handles POST /agents. A missing id is generated.
func (s *Server) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var body CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("CreateAgent: Invalid request body", "error", err)
		return
	}
	if body.Template == "" {
		http.Error(w, "template is required", http.StatusBadRequest)
		return
	}
	if body.ID == "" {
		body.ID = uuid.NewString()
	}

	snap, err := s.Sessions.Create(r.Context(), body.ID, body.Template)
	if err != nil {
		s.writeError(w, err)
		return
	}
	a, err := s.Sessions.Agent(snap)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("agent created", "agent_id", body.ID, "template", snap.Template)
	s.writeJSON(w, http.StatusCreated, viewOf(a))
}

// GetAgent handles GET /agents/{id}.
func (s *Server) GetAgent(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	a, err := s.Sessions.Agent(snap)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(a))
}

// DeleteAgent handles DELETE /agents/{id}.
func (s *Server) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tick handles POST /agents/{id}/tick. Variables in the body are written
// before the evaluation.
func (s *Server) Tick(w http.ResponseWriter, r *http.Request) {
	var body TickRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			s.logger.Warn("Tick: Invalid request body", "error", err)
			return
		}
	}
	s.update(w, r, func(a *agent.Agent) (*bool, error) {
		if err := setAll(a, body.Variables); err != nil {
			return nil, err
		}
		a.Tick()
		return nil, nil
	})
}

// SetVariables handles PUT /agents/{id}/variables.
func (s *Server) SetVariables(w http.ResponseWriter, r *http.Request) {
	var vars map[string]bool
	if err := json.NewDecoder(r.Body).Decode(&vars); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("SetVariables: Invalid request body", "error", err)
		return
	}
	s.update(w, r, func(a *agent.Agent) (*bool, error) {
		return nil, setAll(a, vars)
	})
}

// Signal handles POST /agents/{id}/signals/{signal}.
func (s *Server) Signal(w http.ResponseWriter, r *http.Request) {
	signal := chi.URLParam(r, "signal")
	s.update(w, r, func(a *agent.Agent) (*bool, error) {
		matched := a.Signal(signal)
		return &matched, nil
	})
}

func setAll(a *agent.Agent, vars map[string]bool) error {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := a.Set(name, vars[name]); err != nil {
			return fmt.Errorf("%w: %q", err, name)
		}
	}
	return nil
}

// update runs fn on the agent under its session lock, then responds with
// the new view and broadcasts the snapshot diff to subscribers.
func (s *Server) update(w http.ResponseWriter, r *http.Request, fn func(*agent.Agent) (*bool, error)) {
	id := chi.URLParam(r, "id")
	var (
		prev    *domain.Snapshot
		view    AgentView
		matched *bool
	)
	next, err := s.Sessions.Update(r.Context(), id, func(a *agent.Agent) error {
		prev = a.Snapshot()
		var err error
		if matched, err = fn(a); err != nil {
			return err
		}
		view = viewOf(a)
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	view.Matched = matched

	if diff := domain.Diff(prev, next); diff != nil && !diff.Empty() {
		if data, err := json.Marshal(diff); err == nil {
			s.Streams.Broadcast(id, string(data))
		}
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound), errors.Is(err, domain.ErrTemplateNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownVariable):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSnapshotMismatch):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}
