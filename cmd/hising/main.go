package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nvandessel/hausdorff-ising/internal/config"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hising",
		Short: "Ising model simulation on Hausdorff lattices",
		Long: `hising builds a self-similar lattice of fractional Hausdorff dimension,
places an Ising spin on every site and samples the configuration with
Metropolis, heat-bath or hybrid Monte Carlo sweeps.

Settings come from ~/.hising/config.yaml (or --config), HISING_* environment
variables and command flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.hising/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newPartitionCmd(),
		newLatticeCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

// loadConfig resolves the effective configuration: file, environment, then
// the global --log-level flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
