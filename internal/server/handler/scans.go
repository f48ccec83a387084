package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

// ScanHandler serves archived scan snapshots so a disputed recommendation
// can be replayed against the exact offers that produced it.
type ScanHandler struct {
	archive domain.BlobReader // nil when archival is disabled
	logger  *slog.Logger
}

// NewScanHandler creates a ScanHandler. archive may be nil, in which case
// every request answers 404.
func NewScanHandler(archive domain.BlobReader, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{
		archive: archive,
		logger:  logger,
	}
}

// scanInfo is one archived snapshot in the listing payload.
type scanInfo struct {
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified"`
}

// ListScans lists the snapshots archived on one day.
// GET /api/scans/{date}
func (h *ScanHandler) ListScans(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusNotFound, "scan archiving is not enabled")
		return
	}

	date := pathParam(r, "date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	infos, err := h.archive.List(r.Context(), "scans/"+date+"/")
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list scans failed",
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list archived scans")
		return
	}

	out := make([]scanInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, scanInfo{
			Path:         info.Path,
			Size:         info.Size,
			LastModified: info.LastModified.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "scans": out})
}

// GetScan streams one archived snapshot as JSONL.
// GET /api/scans/{date}/{cycle}
func (h *ScanHandler) GetScan(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusNotFound, "scan archiving is not enabled")
		return
	}

	date := pathParam(r, "date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	path := fmt.Sprintf("scans/%s/%s.jsonl", date, pathParam(r, "cycle"))
	body, err := h.archive.Get(r.Context(), path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no archived scan at this path")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get scan failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to fetch archived scan")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "handler: stream scan interrupted",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
