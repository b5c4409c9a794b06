package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/hausdorff-ising/internal/logging"
	"github.com/nvandessel/hausdorff-ising/internal/metrics"
	"github.com/nvandessel/hausdorff-ising/pkg/ising"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a Monte Carlo simulation",
		Long: `Build the lattice, optionally randomize the spins, and run the configured
number of Monte Carlo sweeps. Ctrl-C stops the run after the current sweep
and still reports the state reached.

Examples:
  hising run --depth 4 --steps 1000
  hising run --dimension 2 --scaling splitting --method heatbath --threads 4
  hising run --method hybrid --randomize --trace --json`,
		RunE: runSimulation,
	}

	addLatticeFlags(cmd)
	addPhysicsFlags(cmd)
	addSamplerFlags(cmd)
	cmd.Flags().Bool("randomize", false, "Randomize spins before the run")
	cmd.Flags().Bool("trace", false, "Include the convergence trace in the output")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address during the run")

	return cmd
}

func runSimulation(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	randomize, _ := cmd.Flags().GetBool("randomize")
	showTrace, _ := cmd.Flags().GetBool("trace")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		cfg.Metrics.Addr = addr
	}

	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	model, err := ising.FromConfig(cfg,
		ising.WithLogger(logger),
		ising.WithMetrics(reg),
		ising.WithDecisionLog(cfg.Logging.Dir, cfg.Logging.Level),
	)
	if err != nil {
		return err
	}
	defer model.Close()

	if err := model.Setup(); err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	if randomize {
		if err := model.RandomizeSpins(); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	srvCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()

	var g errgroup.Group
	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr, reg)
		g.Go(func() error { return srv.ListenAndServe(srvCtx) })
		logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
	}

	start := time.Now()
	runErr := model.RunMonteCarlo(ctx)
	stopServer()
	if err := g.Wait(); err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	elapsed := time.Since(start)

	interrupted := runErr != nil && ctx.Err() != nil && errors.Is(runErr, ctx.Err())
	if runErr != nil && !interrupted {
		return fmt.Errorf("monte carlo run failed: %w", runErr)
	}

	snap, err := model.Snapshot()
	if err != nil {
		return err
	}
	if !showTrace {
		snap.Trace = nil
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return json.NewEncoder(out).Encode(runResult{
			Snapshot:    snap,
			Method:      model.MCMethod(),
			Elapsed:     elapsed.String(),
			Interrupted: interrupted,
		})
	}

	if interrupted {
		fmt.Fprintf(out, "Run interrupted after %d sweeps.\n", snap.Sweeps)
	}
	fmt.Fprintf(out, "Spins:          %d %v\n", snap.NumSpins, snap.Dimensions)
	fmt.Fprintf(out, "Method:         %s\n", model.MCMethod())
	fmt.Fprintf(out, "Sweeps:         %d (%s)\n", snap.Sweeps, elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Magnetization:  %d\n", snap.Magnetization)
	fmt.Fprintf(out, "Free energy:    %.6g\n", snap.FreeEnergy)
	fmt.Fprintf(out, "Trace length:   %d (mean %.4g, stddev %.4g)\n", snap.TraceLen, snap.TraceMean, snap.TraceStdDev)
	if showTrace {
		for i, d := range snap.Trace {
			fmt.Fprintf(out, "%d\t%.6g\n", i, d)
		}
	}
	return nil
}

type runResult struct {
	ising.Snapshot
	Method      string `json:"method"`
	Elapsed     string `json:"elapsed"`
	Interrupted bool   `json:"interrupted"`
}
