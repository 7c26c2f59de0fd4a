package service

import (
	"context"
	"net/http"
	"time"

	"github.com/c360/widgetflow/eventbus"
	"github.com/c360/widgetflow/pipeline"
	"github.com/c360/widgetflow/pipelinestore"
)

func (s *PipelineService) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	pipelines, err := s.store.ListForCanvas(r.Context(), r.PathValue("canvas"))
	if err != nil {
		s.writeError(w, err, "list pipelines")
		return
	}
	if pipelines == nil {
		pipelines = []*pipeline.Pipeline{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"pipelines": pipelines})
}

func (s *PipelineService) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.Context(), r.PathValue("canvas"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err, "get pipeline")
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

// handleSavePipeline stores a whole pipeline. The body's version must match
// the stored version; the response is a SaveResult with the new version.
func (s *PipelineService) handleSavePipeline(w http.ResponseWriter, r *http.Request) {
	var p pipeline.Pipeline
	if !s.decode(w, r, &p) {
		return
	}
	if p.ID != r.PathValue("id") {
		s.writeJSONError(w, "ID mismatch", http.StatusBadRequest)
		return
	}

	err := s.store.Save(r.Context(), &p)
	if err != nil {
		s.writeJSON(w, statusFor(err), pipelinestore.ResultOf(err))
		return
	}
	s.publish(r.Context(), eventbus.Saved(&p, time.Now()))

	s.writeJSON(w, http.StatusOK, struct {
		pipelinestore.SaveResult
		Version int64 `json:"version"`
	}{pipelinestore.ResultOf(nil), p.Version})
}

func (s *PipelineService) handleDeletePipeline(w http.ResponseWriter, r *http.Request) {
	result, err := s.editor.DeletePipeline(r.Context(), r.PathValue("canvas"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err, "delete pipeline")
		return
	}
	s.writeResult(w, result)
}

// validationResponse lists problems; an empty list means the pipeline may
// be saved
type validationResponse struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
}

func (s *PipelineService) handleValidate(w http.ResponseWriter, r *http.Request) {
	var p pipeline.Pipeline
	if !s.decode(w, r, &p) {
		return
	}
	problems := pipeline.ValidatePipeline(&p)
	s.metrics.RecordValidation(len(problems))
	if problems == nil {
		problems = []string{}
	}
	s.writeJSON(w, http.StatusOK, validationResponse{Valid: len(problems) == 0, Problems: problems})
}

type mergeRequest struct {
	Base     *pipeline.Pipeline `json:"base"`
	Addition *pipeline.Pipeline `json:"addition"`
}

type mergeResponse struct {
	Pipeline *pipeline.Pipeline   `json:"pipeline"`
	Report   pipeline.MergeReport `json:"report"`
}

func (s *PipelineService) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Base == nil {
		s.writeJSONError(w, "base pipeline is required", http.StatusBadRequest)
		return
	}
	merged, report := s.merger.Merge(req.Base, req.Addition)
	s.metrics.RecordMerge(report.NodesAdded, report.NodesReused, report.ConnectionsAdded, report.ConnectionsSkipped)
	s.writeJSON(w, http.StatusOK, mergeResponse{Pipeline: merged, Report: report})
}

type routeRequest struct {
	Pipeline *pipeline.Pipeline `json:"pipeline"`
	From     pipeline.Endpoint  `json:"from"`
}

// handleRoute answers which input ports receive what an output port emits
func (s *PipelineService) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Pipeline == nil {
		s.writeJSONError(w, "pipeline is required", http.StatusBadRequest)
		return
	}
	targets := pipeline.Route(req.Pipeline, req.From)
	if targets == nil {
		targets = []pipeline.Endpoint{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"targets": targets})
}

type widgetsRequest struct {
	Widgets []pipeline.Widget `json:"widgets"`
}

func (s *PipelineService) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req widgetsRequest
	if !s.decode(w, r, &req) {
		return
	}
	suggestions := pipeline.SuggestConnections(s.resolveWidgets(req.Widgets))
	if suggestions == nil {
		suggestions = []pipeline.Suggestion{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *PipelineService) publish(ctx context.Context, ev eventbus.Event) {
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.logger.Warn("Failed to publish pipeline event", "type", ev.Type, "pipeline_id", ev.PipelineID, "error", err)
	}
}
