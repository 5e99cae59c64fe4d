package httpapi

import "net/http"

// webhookTestRequest lets an operator fire a synthetic event through the
// Notifier to confirm a configured webhook URL or SMTP relay is reachable,
// without waiting for a pipeline to trigger one naturally.
type webhookTestRequest struct {
	EventType  string         `json:"event_type"`
	Data       map[string]any `json:"data"`
	Recipients []string       `json:"recipients"`
	Subject    string         `json:"subject"`
	Body       string         `json:"body"`
}

func (s *Server) webhookTestHandler(w http.ResponseWriter, r *http.Request) {
	var req webhookTestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.EventType == "" {
		writeDetail(w, "event_type is required", http.StatusBadRequest)
		return
	}

	s.notifier.Dispatch(r.Context(), req.EventType, req.Data, req.Recipients, req.Subject, req.Body)
	writeJSON(w, map[string]string{"status": "dispatched"}, http.StatusAccepted)
}
