package api

import (
	"net/http"
	"strconv"
)

func (s *Server) handleAllReports(w http.ResponseWriter, r *http.Request) {
	reports, failed, err := s.deps.Reports.AllListingReports(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports, "failed": failed})
}

func (s *Server) handleListingReport(w http.ResponseWriter, r *http.Request) {
	id, ok := listingID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	report, err := s.deps.Reports.ListingReport(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleOwners lists owners, filtered by ?q= on name, email or company
func (s *Server) handleOwners(w http.ResponseWriter, r *http.Request) {
	owners, err := s.deps.Reports.OwnerSummaries(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, owners)
}

func (s *Server) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Logs == nil {
		writeMessage(w, http.StatusNotFound, "activity log not configured")
		return
	}
	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	logs, err := s.deps.Logs.RecentLogs(limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.deps.Refresher == nil {
		writeMessage(w, http.StatusNotFound, "report refresh not configured")
		return
	}
	s.deps.Refresher.Trigger()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// handleReportSnapshot returns the report stored by the last scheduled refresh
func (s *Server) handleReportSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.deps.Snapshots == nil {
		writeMessage(w, http.StatusNotFound, "report snapshots not configured")
		return
	}
	id, ok := listingID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	snap, err := s.deps.Snapshots.GetReportSnapshot(id.String())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if snap == nil {
		writeMessage(w, http.StatusNotFound, "no snapshot for this listing yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Snapshots == nil {
		writeMessage(w, http.StatusNotFound, "report snapshots not configured")
		return
	}
	run, err := s.deps.Snapshots.GetLastRun()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if run == nil {
		writeMessage(w, http.StatusNotFound, "no report run yet")
		return
	}
	writeJSON(w, http.StatusOK, run)
}
