// Command flowimport loads D0010 meter reading flow files into PostgreSQL.
//
//	flowimport import FILE... [--dry-run]
//	flowimport migrate [--down]
//	flowimport serve
//
// Configuration comes from the environment, optionally seeded from a .env file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errImportFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
