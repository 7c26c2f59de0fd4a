package service

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/c360/widgetflow/errors"
	"github.com/c360/widgetflow/eventbus"
	"github.com/c360/widgetflow/manifest"
	"github.com/c360/widgetflow/metric"
	"github.com/c360/widgetflow/pipeline"
	"github.com/c360/widgetflow/pipelinestore"
	"github.com/c360/widgetflow/wiring"
)

// maxBodyBytes bounds request bodies; pipelines are small documents
const maxBodyBytes = 1 << 20

// Catalog lists and resolves widget definitions
type Catalog interface {
	manifest.Provider
	IDs() []string
}

// Dependencies are the collaborators of PipelineService. Store, Bus and
// Editor are required.
type Dependencies struct {
	Store   pipelinestore.Gateway
	Bus     eventbus.Bus
	Editor  *wiring.Editor
	Catalog Catalog
	IDs     pipeline.IDGenerator
	Logger  *slog.Logger
	Metrics *metric.Metrics
	Limiter *rate.Limiter // optional, shared by all endpoints
}

// PipelineService exposes pipeline storage, graph operations and
// interactive wiring over HTTP, plus a websocket stream of pipeline events.
type PipelineService struct {
	store    pipelinestore.Gateway
	bus      eventbus.Bus
	editor   *wiring.Editor
	catalog  Catalog
	merger   *pipeline.Merger
	logger   *slog.Logger
	metrics  *metric.Metrics
	limiter  *rate.Limiter
	upgrader websocket.Upgrader
}

// NewPipelineService creates the service
func NewPipelineService(deps Dependencies) (*PipelineService, error) {
	if deps.Store == nil || deps.Bus == nil || deps.Editor == nil {
		return nil, errors.WrapInvalid(errors.New("store, bus and editor are required"),
			"PipelineService", "NewPipelineService", "check dependencies")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	merger := pipeline.NewMerger()
	if deps.IDs != nil {
		merger.IDs = deps.IDs
	}

	return &PipelineService{
		store:   deps.Store,
		bus:     deps.Bus,
		editor:  deps.Editor,
		catalog: deps.Catalog,
		merger:  merger,
		logger:  logger.With("component", "pipeline-service"),
		metrics: deps.Metrics,
		limiter: deps.Limiter,
		upgrader: websocket.Upgrader{
			// Editors are served from other origins during development
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}, nil
}

// RegisterHTTPHandlers registers HTTP endpoints under prefix
func (s *PipelineService) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	// Storage
	s.handle(mux, "GET "+prefix+"canvases/{canvas}/pipelines", s.handleListPipelines)
	s.handle(mux, "GET "+prefix+"canvases/{canvas}/pipelines/{id}", s.handleGetPipeline)
	s.handle(mux, "PUT "+prefix+"pipelines/{id}", s.handleSavePipeline)
	s.handle(mux, "DELETE "+prefix+"canvases/{canvas}/pipelines/{id}", s.handleDeletePipeline)

	// Pure graph operations
	s.handle(mux, "POST "+prefix+"pipelines/validate", s.handleValidate)
	s.handle(mux, "POST "+prefix+"pipelines/merge", s.handleMerge)
	s.handle(mux, "POST "+prefix+"pipelines/route", s.handleRoute)
	s.handle(mux, "POST "+prefix+"suggestions", s.handleSuggestions)

	// Interactive wiring
	s.handle(mux, "POST "+prefix+"canvases/{canvas}/connections", s.handleConnect)
	s.handle(mux, "DELETE "+prefix+"canvases/{canvas}/connections/{id}", s.handleDeleteConnection)
	s.handle(mux, "DELETE "+prefix+"canvases/{canvas}/nodes/{id}", s.handleDeleteNode)
	s.handle(mux, "POST "+prefix+"canvases/{canvas}/widgets/sync", s.handleSyncWidgets)
	s.handle(mux, "POST "+prefix+"canvases/{canvas}/autowire", s.handleAutoWire)

	// Widget catalog
	s.handle(mux, "GET "+prefix+"widgets", s.handleListWidgets)
	s.handle(mux, "GET "+prefix+"widgets/{id}/ports", s.handleWidgetPorts)

	s.handle(mux, "GET "+prefix+"events", s.handleEvents)

	s.logger.Info("Pipeline service HTTP handlers registered", "prefix", prefix)
}

func (s *PipelineService) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, s.limited(h))
}

// limited rejects requests beyond the limiter's rate with 429
func (s *PipelineService) limited(h http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			s.writeJSONError(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		h(w, r)
	}
}

// decode reads a JSON request body into v
func (s *PipelineService) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// writeJSON writes a JSON response and logs encoding errors
func (s *PipelineService) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

// writeJSONError writes an error response in JSON format
func (s *PipelineService) writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeError maps a classified error onto a status code
func (s *PipelineService) writeError(w http.ResponseWriter, err error, action string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "action", action, "error", err)
	}
	s.writeJSONError(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, errors.ErrPipelineNotFound):
		return http.StatusNotFound
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	case errors.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// resolveWidget fills in ports from the catalog when the caller sent none
func (s *PipelineService) resolveWidget(w pipeline.Widget) pipeline.Widget {
	if len(w.Inputs) > 0 || len(w.Outputs) > 0 || w.DefID == "" || s.catalog == nil {
		return w
	}
	return manifest.Describe(s.catalog, w.ID, w.DefID)
}

func (s *PipelineService) resolveWidgets(widgets []pipeline.Widget) []pipeline.Widget {
	resolved := make([]pipeline.Widget, len(widgets))
	for i, w := range widgets {
		resolved[i] = s.resolveWidget(w)
	}
	return resolved
}
