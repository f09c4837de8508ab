package httpapi

import (
	"net/http"

	"obs-engine/internal/snapshot"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	entries, err := snapshot.Index(s.cfg.ArtifactsDir, s.cfg.SnapshotsDir)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := SnapshotsResponse{Labels: make([]SnapshotEntry, 0, len(entries))}
	for _, e := range entries {
		se := SnapshotEntry{Label: e.Label, Valid: e.Valid}
		if e.Summary != nil {
			se.GeneratedAt = e.Summary.GeneratedAt
			se.NodeCount = e.Summary.NodeCount
		}
		resp.Labels = append(resp.Labels, se)
	}
	writeJSON(w, http.StatusOK, resp)
}
