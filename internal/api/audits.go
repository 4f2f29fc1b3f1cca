package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
	"github.com/JakeFAU/lighthouse-dashboard/internal/pagespeed"
)

const maxAuditRequestBytes = 1 << 20

type auditRequest struct {
	URL string `json:"url"`
}

type auditResponse struct {
	ID        string        `json:"id"`
	FetchTime time.Time     `json:"fetch_time,omitempty"`
	Entries   []audit.Entry `json:"entries"`
	Known     bool          `json:"known"`
}

func (s *Server) listURLs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"urls": s.store.URLs()})
}

// previewAudit runs one audit without touching any session or the database.
func (s *Server) previewAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	body := http.MaxBytesReader(w, r.Body, maxAuditRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	target, err := audit.ValidateURL(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.auditor.Audit(r.Context(), target)
	if err != nil {
		s.logger.Error("audit preview failed", zap.String("url", target), zap.Error(err))
		writeError(w, auditErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, auditResponse{
		ID:        report.ID,
		FetchTime: report.FetchTime,
		Entries:   audit.Entries(report.Scores),
		Known:     s.store.Contains(report.ID),
	})
}

func auditErrorStatus(err error) int {
	var apiErr *pagespeed.APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
