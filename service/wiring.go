package service

import (
	"net/http"

	"github.com/c360/widgetflow/pipeline"
	"github.com/c360/widgetflow/wiring"
)

type connectRequest struct {
	From pipeline.WidgetPort `json:"from"`
	To   pipeline.WidgetPort `json:"to"`
}

func (s *PipelineService) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.From.Widget = s.resolveWidget(req.From.Widget)
	req.To.Widget = s.resolveWidget(req.To.Widget)

	result, err := s.editor.Connect(r.Context(), r.PathValue("canvas"), req.From, req.To)
	if err != nil {
		s.writeError(w, err, "connect")
		return
	}
	s.writeResult(w, result)
}

func (s *PipelineService) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	result, err := s.editor.DeleteConnection(r.Context(), r.PathValue("canvas"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err, "delete connection")
		return
	}
	s.writeResult(w, result)
}

func (s *PipelineService) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	result, err := s.editor.DeleteNode(r.Context(), r.PathValue("canvas"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err, "delete node")
		return
	}
	s.writeResult(w, result)
}

func (s *PipelineService) handleSyncWidgets(w http.ResponseWriter, r *http.Request) {
	var req widgetsRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.editor.SyncWidgets(r.Context(), r.PathValue("canvas"), s.resolveWidgets(req.Widgets))
	if err != nil {
		s.writeError(w, err, "sync widgets")
		return
	}
	s.writeResult(w, result)
}

func (s *PipelineService) handleAutoWire(w http.ResponseWriter, r *http.Request) {
	var req widgetsRequest
	if !s.decode(w, r, &req) {
		return
	}
	report, err := s.editor.AutoWire(r.Context(), r.PathValue("canvas"), s.resolveWidgets(req.Widgets))
	if err != nil {
		s.writeError(w, err, "auto-wire")
		return
	}
	if report.Suggestions == nil {
		report.Suggestions = []pipeline.Suggestion{}
	}
	s.writeJSON(w, http.StatusOK, report)
}

// writeResult maps an editor outcome onto a status code. Rejected edits are
// not server errors; the body explains what happened.
func (s *PipelineService) writeResult(w http.ResponseWriter, result wiring.Result) {
	status := http.StatusOK
	switch result.Outcome {
	case wiring.OutcomeCreated:
		status = http.StatusCreated
	case wiring.OutcomeSelfConnection, wiring.OutcomeMissingWidget:
		status = http.StatusUnprocessableEntity
	case wiring.OutcomeNotFound:
		status = http.StatusNotFound
	}
	s.writeJSON(w, status, result)
}
