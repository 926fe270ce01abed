package main

import (
	"context"
	"fmt"

	"github.com/dusk-indust/systrav/internal/config"
	"github.com/dusk-indust/systrav/internal/engine"
	"github.com/dusk-indust/systrav/internal/events"
	"github.com/dusk-indust/systrav/internal/seed"
	"github.com/dusk-indust/systrav/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configDir string
	backend   string
	seedRef   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "systrav",
		Short:         "Browse and edit a hierarchy of systems and their interfaces",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", ".", "directory holding systrav.yml and .env")
	root.PersistentFlags().StringVar(&a.backend, "backend", "", "store backend override: memory, postgres, mysql or kuzu")
	root.PersistentFlags().StringVar(&a.seedRef, "seed", "", `seed applied when the store is empty: a file path or "default"`)

	root.AddCommand(
		newServeCmd(a),
		newSeedCmd(a),
		newDiagramCmd(a),
		newExportCmd(a),
		newCheckCmd(a),
		newInterfacesCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.backend != "" {
		cfg.Store.Backend = a.backend
	}
	if a.seedRef != "" {
		cfg.Store.Seed = a.seedRef
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// openStore opens the configured backend, prepares its schema and applies
// the startup seed if the store is empty.
func (a *app) openStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch a.cfg.Store.Backend {
	case config.BackendMemory:
		st = store.NewMemStore()
	case config.BackendPostgres:
		st, err = store.OpenSQLStore(ctx, store.DialectPostgres, a.cfg.Store.DSN, a.logger)
	case config.BackendMySQL:
		st, err = store.OpenSQLStore(ctx, store.DialectMySQL, a.cfg.Store.DSN, a.logger)
	case config.BackendKuzu:
		st, err = openKuzu(a.cfg.Store.KuzuPath, a.logger)
	default:
		err = fmt.Errorf("unknown backend %q", a.cfg.Store.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := st.InitSchema(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	if err := a.seedIfEmpty(ctx, st); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func (a *app) seedIfEmpty(ctx context.Context, st store.Store) error {
	if a.cfg.Store.Seed == "" {
		return nil
	}
	systems, err := st.SelectSystems(ctx)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if len(systems) > 0 {
		a.logger.Debug("store not empty, skipping seed", zap.Int("systems", len(systems)))
		return nil
	}
	f, err := seed.Load(a.cfg.Store.Seed)
	if err != nil {
		return err
	}
	if _, err := seed.Apply(ctx, st, f, seed.Options{Logger: a.logger}); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}

// newEngine builds an engine over st and loads it.
func (a *app) newEngine(ctx context.Context, st store.Store, pub events.Publisher, reg prometheus.Registerer) (*engine.Engine, error) {
	eng := engine.New(st, engine.Options{
		Logger:       a.logger,
		DeletePolicy: a.cfg.Engine.DeletePolicy,
		StoreTimeout: a.cfg.Engine.StoreTimeout,
		Publisher:    pub,
		Registerer:   reg,
	})
	if _, err := eng.Reload(ctx); err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	return eng, nil
}

// loadGraph opens the store, loads an engine over it and hands both to fn.
// Used by the one-shot commands.
func (a *app) loadGraph(ctx context.Context, fn func(*engine.Engine) error) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	eng, err := a.newEngine(ctx, st, nil, nil)
	if err != nil {
		return err
	}
	return fn(eng)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Skips config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
