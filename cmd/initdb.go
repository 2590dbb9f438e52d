package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/bookshelf/internal/config"
	"github.com/teemow/bookshelf/internal/storage/sqlite"
)

func newInitDBCmd() *cobra.Command {
	var (
		envFile string
		dbPath  string
	)

	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Create or upgrade the database schema",
		Long: `Create the SQLite database and apply every pending schema migration.
Running it against an existing database is safe; applied migrations are
skipped. serve runs the same migrations at startup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			return runInitDB(cmd, cfg.DBPath)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Env file loaded before parsing the environment. Missing files are ignored.")
	cmd.Flags().StringVar(&dbPath, "db", sqlite.DefaultPath, "SQLite database file. Can also use BOOKSHELF_DB_PATH env var.")

	return cmd
}

func runInitDB(cmd *cobra.Command, path string) error {
	st, err := sqlite.Open(cmd.Context(), sqlite.Config{Path: path})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Initialized the database at %s\n", path)
	return err
}
