package httpapi

import "net/http"

type agentChatRequest struct {
	ExternalID string `json:"external_id"`
	Message    string `json:"message"`
}

// agentChatHandler demonstrates the tool-calling loop over HTTP (the
// Telegram adapter is the production-shaped channel for this; this
// endpoint exists so the agent surface is reachable without a bot token
// during local testing and demos).
func (s *Server) agentChatHandler(w http.ResponseWriter, r *http.Request) {
	var req agentChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ExternalID == "" || req.Message == "" {
		writeDetail(w, "external_id and message are required", http.StatusBadRequest)
		return
	}

	reply, err := s.surface.Handle(r.Context(), req.ExternalID, req.Message)
	if err != nil {
		writeDetail(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"reply": reply}, http.StatusOK)
}
