// Package cmd provides the ledgerctl commands.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/warp/household-ledger/config"
	"github.com/warp/household-ledger/generic"
	"github.com/warp/household-ledger/household"
	"github.com/warp/household-ledger/logging"
	"github.com/warp/household-ledger/store/sqlite"
)

// options holds the global flags shared by every subcommand.
type options struct {
	envFile string
	dbPath  string
	owner   string
	debug   bool
}

// NewRootCmd builds the command tree. Each call returns a fresh tree, so
// tests can run commands side by side.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Inspect and maintain stored household documents",
		Long: `ledgerctl works directly on the server's SQLite database.

It can:
- Resolve a month (charges, envelopes, totals) as the app would show it
- Export a household document and import it into another owner
- Archive or unarchive a month
- List the owners that have a stored document

Settings come from the same .env / environment variables as the server.

Example:
  ledgerctl month 2026-03 --owner alice
  ledgerctl export --owner alice --file alice.json
  ledgerctl import alice.json --owner bob
  ledgerctl archive 2026-02 --owner alice`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "environment file")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides DB_PATH)")
	root.PersistentFlags().StringVar(&opts.owner, "owner", "", "document owner (defaults to DEFAULT_OWNER)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newMonthCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newArchiveCmd(opts),
		newOwnersCmd(opts),
	)
	return root
}

// Execute runs the CLI. It is called by main.main().
func Execute() error {
	return NewRootCmd().Execute()
}

// session is what a subcommand works with once flags and config are resolved.
type session struct {
	cfg    *config.Config
	store  *sqlite.Store
	syncer *household.Syncer
	clock  generic.Clock
	log    *logging.Logger
}

// open loads configuration and opens the database. Callers close the session.
func (o *options) open(cmd *cobra.Command) (*session, error) {
	cfg := config.Load(o.envFile)
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.owner != "" {
		cfg.DefaultOwner = o.owner
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	if o.debug {
		level = slog.LevelDebug
	}
	log := logging.New(logging.Config{Level: level, Component: logging.ComponentApp, Output: cmd.ErrOrStderr()})

	log.Debug("opening database", "db_path", cfg.DBPath)
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &session{
		cfg:    cfg,
		store:  store,
		syncer: household.NewSyncer(store, log),
		clock:  generic.Clock(cfg.Clock()),
		log:    log,
	}, nil
}

func (s *session) Close() error { return s.store.Close() }

func (s *session) owner() string { return s.cfg.DefaultOwner }

// load returns the owner's stored document, with a readable error when
// there is none.
func (s *session) load(cmd *cobra.Command) (*household.State, error) {
	st, err := s.syncer.Load(cmd.Context(), s.owner())
	if errors.Is(err, generic.ErrRecordNotFound) {
		return nil, fmt.Errorf("no document stored for owner %q", s.owner())
	}
	return st, err
}
