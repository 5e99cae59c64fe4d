package httpapi

import "net/http"

func (s *Server) listJobsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.scheduler.List(), http.StatusOK)
}

func (s *Server) triggerJobHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("job_id")
	if err := s.scheduler.Trigger(r.Context(), id); err != nil {
		writeDetail(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"status": "triggered", "id": id}, http.StatusAccepted)
}

func (s *Server) pauseJobHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("job_id")
	if err := s.scheduler.Pause(id); err != nil {
		writeDetail(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"status": "paused", "id": id}, http.StatusOK)
}

func (s *Server) resumeJobHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("job_id")
	if err := s.scheduler.Resume(id); err != nil {
		writeDetail(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"status": "resumed", "id": id}, http.StatusOK)
}
