package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Mahaan-Amr/servaan-sub004/internal/app"
	internaldb "github.com/Mahaan-Amr/servaan-sub004/internal/db"
	"github.com/Mahaan-Amr/servaan-sub004/internal/middleware"
	"github.com/Mahaan-Amr/servaan-sub004/internal/repository"
)

func newMigrateCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			writeDB, readDB, err := openPair(*dbPath)
			if err != nil {
				return err
			}
			defer writeDB.Close() //nolint:errcheck
			defer readDB.Close()  //nolint:errcheck

			if err := internaldb.Migrate(writeDB); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
}

func newSeedCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed demo inventory data for the " + app.SeedTenant + " tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			writeDB, readDB, err := openPair(*dbPath)
			if err != nil {
				return err
			}
			defer writeDB.Close() //nolint:errcheck
			defer readDB.Close()  //nolint:errcheck

			if err := internaldb.Migrate(writeDB); err != nil {
				return err
			}
			if err := app.Seed(cmd.Context(), writeDB); err != nil {
				return err
			}
			cmd.Println("demo inventory seeded")
			return nil
		},
	}
}

func newPruneCmd(dbPath *string) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete execution-ledger rows older than the retention horizon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			writeDB, readDB, err := openPair(*dbPath)
			if err != nil {
				return err
			}
			defer writeDB.Close() //nolint:errcheck
			defer readDB.Close()  //nolint:errcheck

			ledger := repository.NewExecutionRecordRepo(writeDB)
			cutoff := time.Now().UTC().AddDate(0, 0, -days)
			n, err := ledger.DeleteOlderThan(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			cmd.Printf("removed %d ledger rows older than %s\n", n, cutoff.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 90, "retention horizon in days")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		user   string
		tenant string
		secret string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development JWT for the report API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := middleware.IssueToken([]byte(secret), user, tenant)
			if err != nil {
				return err
			}
			cmd.Println(tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "dev-user", "subject claim")
	cmd.Flags().StringVar(&tenant, "tenant", app.SeedTenant, "tenant_id claim")
	cmd.Flags().StringVar(&secret, "secret", envOr("JWT_SECRET", "dev-secret"), "HS256 signing secret")
	return cmd
}
