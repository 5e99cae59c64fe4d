package httpapi

import (
	"encoding/json"
	"net/http"
)

// detailResponse is the error body shape spec.md §6 names: {"detail": "..."}.
type detailResponse struct {
	Detail string `json:"detail"`
}

func writeDetail(w http.ResponseWriter, msg string, code int) {
	v, _ := json.Marshal(detailResponse{Detail: msg})
	writeJSONBytes(w, v, code)
}

func writeJSON(w http.ResponseWriter, v any, code int) {
	b, err := json.Marshal(v)
	if err != nil {
		writeDetail(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	writeJSONBytes(w, b, code)
}

func writeJSONBytes(w http.ResponseWriter, b []byte, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(b)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
