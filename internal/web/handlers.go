package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/flowimport/internal/core"
)

type importRequest struct {
	Files  []string `json:"files"`
	DryRun bool     `json:"dry_run"`
}

type importResponse struct {
	RunID  string        `json:"run_id"`
	DryRun bool          `json:"dry_run"`
	Total  int           `json:"total"`
	Failed int           `json:"failed"`
	Files  []fileOutcome `json:"files"`
}

type fileOutcome struct {
	Path       string            `json:"path"`
	Filename   string            `json:"filename"`
	OK         bool              `json:"ok"`
	Count      int               `json:"count"`
	Parsed     int               `json:"parsed"`
	Imported   int               `json:"imported"`
	FlowFileID string            `json:"flow_file_id,omitempty"`
	DurationMS int64             `json:"duration_ms"`
	Error      *core.UserMessage `json:"error,omitempty"`
}

type healthResponse struct {
	Status  string                   `json:"status"`
	Store   string                   `json:"store"`
	Imports core.ImportLimiterStatus `json:"imports"`
}

// handleImport runs one batch over the listed server-side paths.
// The response carries per-file outcomes; failed files do not change the status code.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req importRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondBadRequest(w, r, "invalid request body: "+err.Error())
		return
	}
	if len(req.Files) == 0 {
		respondBadRequest(w, r, "no files given")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.importTimeout)
	defer cancel()

	var batch *core.BatchResult
	err := s.limiter.Run(ctx, func(ctx context.Context) error {
		batch = s.service.ImportBatch(ctx, req.Files, core.BatchOptions{DryRun: req.DryRun})
		return nil
	})
	switch {
	case errors.Is(err, core.ErrTooManyImports):
		w.Header().Set("Retry-After", "5")
		respondError(w, r, err, http.StatusTooManyRequests)
		return
	case err != nil:
		respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, newImportResponse(batch))
}

func newImportResponse(b *core.BatchResult) importResponse {
	resp := importResponse{
		RunID:  b.RunID.String(),
		DryRun: b.DryRun,
		Total:  b.Total,
		Failed: b.Failed,
		Files:  make([]fileOutcome, 0, len(b.Files)),
	}

	for _, f := range b.Files {
		out := fileOutcome{
			Path:       f.Path,
			Filename:   f.Filename,
			OK:         f.OK(),
			Count:      f.Count(),
			Parsed:     f.Parsed,
			Imported:   f.Imported,
			DurationMS: f.Duration.Milliseconds(),
		}
		if f.FlowFile != nil {
			out.FlowFileID = f.FlowFile.ID.String()
		}
		if f.Err != nil {
			msg := core.MapError(f.Err)
			out.Error = &msg
		}
		resp.Files = append(resp.Files, out)
	}

	return resp
}

// handleHealth reports store reachability and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Store:   "ok",
		Imports: s.limiter.Status(),
	}

	if err := s.service.Ping(r.Context()); err != nil {
		resp.Status = "unavailable"
		resp.Store = core.MapError(err).Code
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
