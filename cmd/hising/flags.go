package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nvandessel/hausdorff-ising/internal/config"
)

// addLatticeFlags registers the flags that shape the lattice.
func addLatticeFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("dimension", 0, "Hausdorff dimension D")
	cmd.Flags().Int("slices", 0, "Sub-cells per axis per level")
	cmd.Flags().Int("depth", 0, "Recursion depth")
	cmd.Flags().String("scaling", "", "Scaling method: scaling or splitting")
}

// addPhysicsFlags registers the Hamiltonian constants.
func addPhysicsFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("temperature", 0, "Temperature kbT")
	cmd.Flags().Float64("field", 0, "External field H")
	cmd.Flags().Float64("coupling", 0, "Coupling J")
	cmd.Flags().Float64("sigma", 0, "Distance exponent of the pair weight")
}

// addSamplerFlags registers the Monte Carlo settings.
func addSamplerFlags(cmd *cobra.Command) {
	cmd.Flags().String("method", "", "Monte Carlo method: metropolis, heatbath, hybrid")
	cmd.Flags().Int("steps", 0, "Number of sweeps")
	cmd.Flags().Int("threads", 0, "Heat-bath worker count")
	cmd.Flags().Int("blocks", 0, "Heat-bath blocks per sweep (0 = threads)")
	cmd.Flags().Int64("seed", 0, "Random seed")
}

// applyFlags copies every explicitly set flag over cfg. Flags that were not
// registered on cmd are skipped.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	set := func(name string, apply func(*pflag.FlagSet)) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			apply(flags)
		}
	}

	set("dimension", func(fs *pflag.FlagSet) { cfg.Lattice.Dimension, _ = fs.GetFloat64("dimension") })
	set("slices", func(fs *pflag.FlagSet) { cfg.Lattice.Slices, _ = fs.GetInt("slices") })
	set("depth", func(fs *pflag.FlagSet) { cfg.Lattice.Depth, _ = fs.GetInt("depth") })
	set("scaling", func(fs *pflag.FlagSet) { cfg.Lattice.Method, _ = fs.GetString("scaling") })

	set("temperature", func(fs *pflag.FlagSet) { cfg.Thermodynamics.Temperature, _ = fs.GetFloat64("temperature") })
	set("field", func(fs *pflag.FlagSet) { cfg.Thermodynamics.Field, _ = fs.GetFloat64("field") })
	set("coupling", func(fs *pflag.FlagSet) { cfg.Thermodynamics.Coupling, _ = fs.GetFloat64("coupling") })
	set("sigma", func(fs *pflag.FlagSet) { cfg.Thermodynamics.Sigma, _ = fs.GetFloat64("sigma") })

	set("method", func(fs *pflag.FlagSet) { cfg.MonteCarlo.Method, _ = fs.GetString("method") })
	set("steps", func(fs *pflag.FlagSet) { cfg.MonteCarlo.Steps, _ = fs.GetInt("steps") })
	set("threads", func(fs *pflag.FlagSet) { cfg.MonteCarlo.Threads, _ = fs.GetInt("threads") })
	set("blocks", func(fs *pflag.FlagSet) { cfg.MonteCarlo.Blocks, _ = fs.GetInt("blocks") })
	set("seed", func(fs *pflag.FlagSet) { cfg.MonteCarlo.Seed, _ = fs.GetInt64("seed") })
}
