package httpapi

import (
	"net/http"

	"zenith-backend/internal/services"
)

func (s *Server) MetricsHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), services.DefaultHistorySize)
	items, err := s.Metrics.History(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]services.MetricSampleView, 0, len(items))
	for _, item := range items {
		out = append(out, services.SamplePayload(item))
	}
	WriteJSON(w, http.StatusOK, ItemsResponse[services.MetricSampleView]{Items: out})
}
