package httpapi

import "net/http"

type otpLinkRequest struct {
	ExternalID string `json:"external_id"`
	WorkEmail  string `json:"work_email"`
	Username   string `json:"username"`
}

func (s *Server) otpLinkHandler(w http.ResponseWriter, r *http.Request) {
	var req otpLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ExternalID == "" || req.WorkEmail == "" {
		writeDetail(w, "external_id and work_email are required", http.StatusBadRequest)
		return
	}

	code, err := s.auth.LinkStart(r.Context(), req.ExternalID, req.WorkEmail, req.Username)
	if err != nil {
		writeDetail(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := map[string]any{"status": "code_sent"}
	if code != "" {
		resp["demo_code"] = code
	}
	writeJSON(w, resp, http.StatusOK)
}

type otpVerifyRequest struct {
	ExternalID string `json:"external_id"`
	Code       string `json:"code"`
}

func (s *Server) otpVerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ExternalID == "" || req.Code == "" {
		writeDetail(w, "external_id and code are required", http.StatusBadRequest)
		return
	}

	if err := s.auth.Verify(r.Context(), req.ExternalID, req.Code); err != nil {
		writeDetail(w, err.Error(), http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]string{"status": "bound"}, http.StatusOK)
}

type otpUnlinkRequest struct {
	ExternalID string `json:"external_id"`
}

func (s *Server) otpUnlinkHandler(w http.ResponseWriter, r *http.Request) {
	var req otpUnlinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ExternalID == "" {
		writeDetail(w, "external_id is required", http.StatusBadRequest)
		return
	}

	if err := s.auth.Unlink(r.Context(), req.ExternalID); err != nil {
		writeDetail(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "unlinked"}, http.StatusOK)
}

func (s *Server) otpStateHandler(w http.ResponseWriter, r *http.Request) {
	externalID := r.URL.Query().Get("external_id")
	if externalID == "" {
		writeDetail(w, "external_id query parameter is required", http.StatusBadRequest)
		return
	}

	state, err := s.auth.State(r.Context(), externalID)
	if err != nil {
		writeDetail(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"state": string(state)}, http.StatusOK)
}
