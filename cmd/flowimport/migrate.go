package main

import (
	"log/slog"

	"github.com/JonMunkholm/flowimport/internal/store"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := a.openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if down {
				if err := store.MigrateDown(pool); err != nil {
					return err
				}
			} else if err := store.MigrateUp(pool); err != nil {
				return err
			}

			version, dirty, err := store.SchemaVersion(pool)
			if err != nil {
				return err
			}
			slog.Info("schema migrated", "version", version, "dirty", dirty, "down", down)
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "Roll back every migration")

	return cmd
}
