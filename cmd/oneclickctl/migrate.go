package main

import (
	"fmt"

	"github.com/spf13/cobra"

	pgrepo "github.com/ivankudzin/oneclick/internal/repo/postgres"
	"github.com/ivankudzin/oneclick/internal/repo/postgres/migrations"
)

func migrateCmd(load configLoader) *cobra.Command {
	var (
		dsn    string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded Postgres schema",
		Long: `Apply every embedded migration that has not run yet.

Examples:
  oneclickctl migrate
  oneclickctl migrate --dsn postgres://user:pass@db:5432/oneclick
  oneclickctl migrate --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := migrations.Names()
			if err != nil {
				return err
			}
			if dryRun {
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			if dsn == "" {
				cfg, err := load()
				if err != nil {
					return err
				}
				dsn = cfg.Store.Postgres.DSN
			}

			pool, err := pgrepo.NewPool(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := migrations.Apply(cmd.Context(), pool)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres dsn, defaults to store.postgres.dsn")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the embedded migrations without connecting")

	return cmd
}
