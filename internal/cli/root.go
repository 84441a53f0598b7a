// Package cli implements erpctl, the administrative command line for the
// solar ERP: schema migrations, demo data, finance summaries, exports,
// imports and audit maintenance.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/solarerp/internal/config"
	"github.com/JonMunkholm/solarerp/internal/core"
	_ "github.com/JonMunkholm/solarerp/internal/core/resources" // Register all resources
	"github.com/JonMunkholm/solarerp/internal/database"
	"github.com/JonMunkholm/solarerp/internal/logging"
)

// app holds state shared by every command. The database is opened lazily so
// commands that only read the registry work without one.
type app struct {
	out    io.Writer
	errOut io.Writer

	envFile  string
	logLevel string
	quiet    bool

	cfg     *config.Config
	pool    *pgxpool.Pool
	service *core.Service
}

// NewRootCmd builds the erpctl command tree writing to out and errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "erpctl",
		Short:         "Solar ERP administration",
		Long:          "Manage the solar ERP database: migrations, demo data, finance summaries, exports and imports.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.loadEnv()
			logging.SetupWriter(a.errOut, a.logLevel, "text")
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			a.close()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", "", "Load environment from this file instead of .env")
	flags.StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Suppress progress output")

	root.AddCommand(
		a.newMigrateCmd(),
		a.newSeedCmd(),
		a.newFinanceCmd(),
		a.newExportCmd(),
		a.newImportCmd(),
		a.newResourcesCmd(),
		a.newResetCmd(),
		a.newAuditCmd(),
	)
	return root
}

// Execute runs erpctl with os.Args and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = core.WithOrigin(ctx, core.Origin{UserAgent: "erpctl"})

	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, Bad("error: %s", core.FormatUserError(err)))
		return 1
	}
	return 0
}

// loadEnv reads .env (or --env-file); a missing file is not an error.
func (a *app) loadEnv() {
	if a.envFile != "" {
		if err := godotenv.Overload(a.envFile); err != nil {
			fmt.Fprintln(a.errOut, Muted("env file %s not loaded: %v", a.envFile, err))
		}
		return
	}
	_ = godotenv.Overload()
}

// config loads and validates configuration once.
func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

// connect opens the pool and service on first use.
func (a *app) connect(ctx context.Context) (*core.Service, error) {
	if a.service != nil {
		return a.service, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	taxRate := decimal.NewFromFloat(cfg.Finance.TaxRate)
	a.service = core.NewService(pool, core.Options{TaxRate: &taxRate})
	return a.service, nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
		a.service = nil
	}
}

// progress prints a status line to errOut unless --quiet is set.
func (a *app) progress(format string, args ...any) {
	if a.quiet {
		return
	}
	fmt.Fprintln(a.errOut, Muted(format, args...))
}
