package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/corvid-labs/blueprint-engine/blueprint"
	"github.com/corvid-labs/blueprint-engine/core"
	"github.com/corvid-labs/blueprint-engine/executor"
	"github.com/corvid-labs/blueprint-engine/internal/config"
	"github.com/corvid-labs/blueprint-engine/internal/logging"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Starts an executor loop worker draining ready instructions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context())
		},
	}
}

// runWorker builds the configured backends and drains them forever
// (or until ctx is cancelled).
//
// Host applications register their own actions/adapters before routing
// real traffic through this worker; an empty namespace is enough to
// start the loop, since the store only resolves outcomes it is handed.
func runWorker(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}

	namespace := blueprint.NewNamespace()
	d, err := buildDeps(ctx, cfg, namespace)
	if err != nil {
		return err
	}

	loop := executor.NewLoop(
		d.store,
		d.bus,
		core.SystemClock{},
		logger,
		cfg.WorkerID,
		executor.WithLoopInterval(time.Duration(cfg.Worker.LoopIntervalMS)*time.Millisecond),
	)

	logger.Info("worker starting",
		core.StringLogField("worker_id", cfg.WorkerID),
		core.StringLogField("store_engine", cfg.Store.Engine),
		core.StringLogField("bus_engine", cfg.Bus.Engine),
	)

	return loop.Run(ctx, cfg.Worker.MaxIterations)
}
