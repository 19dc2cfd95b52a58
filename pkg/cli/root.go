// Package cli implements the reportctl command tree: local administration
// of the report database plus ad-hoc report runs from the terminal.
package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	internaldb "github.com/Mahaan-Amr/servaan-sub004/internal/db"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var dbPath string

	rootCmd := &cobra.Command{
		Use:           "reportctl",
		Short:         "Report engine administration CLI",
		Long:          "Command-line interface for administering the report database and running reports locally.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", envOr("DB_PATH", "reports.sqlite"), "path to the SQLite database")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newMigrateCmd(&dbPath))
	rootCmd.AddCommand(newSeedCmd(&dbPath))
	rootCmd.AddCommand(newFieldsCmd())
	rootCmd.AddCommand(newRunCmd(&dbPath))
	rootCmd.AddCommand(newPruneCmd(&dbPath))
	rootCmd.AddCommand(newTokenCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("reportctl %s (%s)\n", version, commit)
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// openPair opens the write/read pool pair the commands share.
func openPair(dbPath string) (writeDB, readDB *sql.DB, err error) {
	return internaldb.OpenReportStore(dbPath, 4)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
