package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/flowimport/internal/core"
	"github.com/JonMunkholm/flowimport/internal/store"
	"github.com/spf13/cobra"
)

// errImportFailed is returned after the report when any file failed. main
// exits non-zero without printing it again.
var errImportFailed = errors.New("one or more files failed to import")

func newImportCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import flow files, each in its own transaction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Import.Timeout)
			defer cancel()

			pool, err := a.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			opts, err := a.serviceOptions()
			if err != nil {
				return err
			}
			svc := core.NewService(store.New(pool), opts...)

			return runImport(ctx, cmd.OutOrStdout(), svc, args, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and validate without writing")

	return cmd
}

// runImport imports paths as one batch and writes the report to w.
func runImport(ctx context.Context, w io.Writer, svc *core.Service, paths []string, dryRun bool) error {
	batch := svc.ImportBatch(ctx, paths, core.BatchOptions{DryRun: dryRun})
	if err := writeReport(w, batch); err != nil {
		return err
	}
	if !batch.OK() {
		return errImportFailed
	}
	return nil
}

// writeReport prints one line per file and a closing total.
func writeReport(w io.Writer, batch *core.BatchResult) error {
	verb := "imported"
	if batch.DryRun {
		verb = "would be imported"
	}

	for _, f := range batch.Files {
		var err error
		if f.OK() {
			_, err = fmt.Fprintf(w, "OK %s: %d readings %s\n", f.Path, f.Count(), verb)
		} else {
			msg := core.MapError(f.Err)
			_, err = fmt.Fprintf(w, "FAIL %s: %s [%s]\n", f.Path, f.Err, msg.Code)
		}
		if err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "Total: %d readings %s from %d of %d files\n",
		batch.Total, verb, len(batch.Files)-batch.Failed, len(batch.Files))
	return err
}
