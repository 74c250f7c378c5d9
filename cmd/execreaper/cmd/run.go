package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/psantana5/execreaper/pkg/auth"
	"github.com/psantana5/execreaper/pkg/shutdown"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reconciler as a daemon",
	Long: `Run reconciliation passes on a fixed interval until SIGINT or SIGTERM.
The first pass starts one interval after startup. Health, metrics and
optionally an on-demand trigger are served on server.addr.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Duration("interval", 0, "time between passes (overrides reconcile.interval)")
	runCmd.Flags().Bool("dry-run", false, "classify executions without terminating them")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(true); err != nil {
		return err
	}

	opts := cfg.Reconcile
	if cmd.Flags().Changed("interval") {
		opts.Interval, _ = cmd.Flags().GetDuration("interval")
	}
	if cmd.Flags().Changed("dry-run") {
		opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
	}

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}

	mgr := shutdown.New(cfg.ShutdownTimeout, a.logger)
	mgr.Register("logger", shutdown.CloseResource(a.logger))
	mgr.Register("tracer", a.tracer.Shutdown)
	mgr.Register("registry", shutdown.CloseResource(a.registry))

	runner := a.newRunner(opts)
	if err := runner.Init(); err != nil {
		mgr.Shutdown()
		return err
	}
	mgr.Register("reconciler", shutdown.CloseResource(runner))

	if cfg.Server.Addr != "" {
		var verifier *auth.TokenVerifier
		if len(cfg.Server.TriggerTokenHashes) > 0 {
			if verifier, err = auth.NewTokenVerifier(cfg.Server.TriggerTokenHashes...); err != nil {
				mgr.Shutdown()
				return err
			}
		} else if cfg.Server.EnableTrigger {
			a.logger.Warn("On-demand trigger is enabled without token hashes", map[string]interface{}{"addr": cfg.Server.Addr})
		}
		server := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           newOpsRouter(a.tracer, a.registry, a.metrics.Handler(), runner, cfg.Server, verifier),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			a.logger.Info("Operations endpoint listening", map[string]interface{}{"addr": cfg.Server.Addr})
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Operations endpoint failed", map[string]interface{}{"error": err})
			}
		}()
		mgr.Register("ops server", shutdown.StopHTTPServer(server))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	mgr.Wait(ctx)
	return mgr.Shutdown()
}
