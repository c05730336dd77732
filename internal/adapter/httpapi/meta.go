package httpapi

import (
	"net/http"

	"github.com/whenwx/forecast-timing-service/internal/domain"
)

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	events := domain.Events()
	out := make([]EventSummary, len(events))
	for i, e := range events {
		out[i] = EventSummary{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Variable:    e.Variable,
			Threshold:   e.ThresholdDisplay,
			Operator:    string(e.Operator),
			Unit:        e.Unit,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (s *Server) handleVariables(w http.ResponseWriter, _ *http.Request) {
	variables := domain.Variables()
	out := make([]VariableSummary, len(variables))
	for i, v := range variables {
		out[i] = VariableSummary{
			ID:      v.ID,
			Label:   v.Label,
			Unit:    v.DisplayUnit,
			Derived: v.Derived,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"variables": out})
}
