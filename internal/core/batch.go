package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/flowimport/internal/logging"
	"github.com/google/uuid"
)

// BatchOptions controls an ImportBatch run.
type BatchOptions struct {
	DryRun bool
}

// BatchResult summarizes one run over a list of files.
type BatchResult struct {
	RunID  uuid.UUID
	DryRun bool
	Files  []FileResult // in input order

	Total  int // sum of Count over successful files
	Failed int
}

// OK reports whether every file succeeded.
func (b *BatchResult) OK() bool {
	return b.Failed == 0
}

// ImportBatch imports paths one at a time, in order. A failing file is
// recorded and the batch moves on; files never share a transaction.
func (s *Service) ImportBatch(ctx context.Context, paths []string, opts BatchOptions) *BatchResult {
	res := &BatchResult{
		RunID:  uuid.New(),
		DryRun: opts.DryRun,
		Files:  make([]FileResult, 0, len(paths)),
	}

	ctx = ContextWithRunID(ctx, res.RunID)
	logger := logging.WithFields(ctx, "run_id", res.RunID)
	logger.Info("import batch started", "files", len(paths), "dry_run", opts.DryRun)

	start := time.Now()
	for _, path := range paths {
		fr, err := s.ImportFile(ctx, path, opts.DryRun)
		if err != nil {
			res.Failed++
		} else {
			res.Total += fr.Count()
		}
		res.Files = append(res.Files, fr)
	}

	logger.Info("import batch finished",
		"total", res.Total,
		"failed", res.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return res
}
