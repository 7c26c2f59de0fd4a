package service

import (
	"net/http"

	"github.com/c360/widgetflow/manifest"
)

type widgetPorts struct {
	ID      string         `json:"id"`
	Name    string         `json:"name,omitempty"`
	Version string         `json:"version,omitempty"`
	Inputs  []portResponse `json:"inputs"`
	Outputs []portResponse `json:"outputs"`
}

type portResponse struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

func (s *PipelineService) handleListWidgets(w http.ResponseWriter, _ *http.Request) {
	ids := []string{}
	if s.catalog != nil {
		ids = append(ids, s.catalog.IDs()...)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"widgets": ids})
}

// handleWidgetPorts returns the normalized ports of a widget definition
func (s *PipelineService) handleWidgetPorts(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.writeJSONError(w, "no widget catalog configured", http.StatusNotFound)
		return
	}
	def, ok := s.catalog.Lookup(r.PathValue("id"))
	if !ok {
		s.writeJSONError(w, "unknown widget definition: "+r.PathValue("id"), http.StatusNotFound)
		return
	}

	inputs, outputs := manifest.Normalize(def.Manifest)
	resp := widgetPorts{ID: def.ID, Name: def.Name, Version: def.Version, Inputs: []portResponse{}, Outputs: []portResponse{}}
	for _, p := range inputs {
		resp.Inputs = append(resp.Inputs, portResponse{Name: p.Name, Type: p.Type, Description: p.Description})
	}
	for _, p := range outputs {
		resp.Outputs = append(resp.Outputs, portResponse{Name: p.Name, Type: p.Type, Description: p.Description})
	}
	s.writeJSON(w, http.StatusOK, resp)
}
