package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/nvandessel/hausdorff-ising/pkg/ising"
)

func newPartitionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partition",
		Short: "Compute the exact partition function of a small lattice",
		Long: `Enumerate every spin configuration of the lattice and sum exp(-βH).
Only lattices with at most 20 active spins can be enumerated.

Examples:
  hising partition --depth 2
  hising partition --depth 0 --field 0 --start 1
  hising partition --depth 1 --flip 0,2 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			start, _ := cmd.Flags().GetInt("start")
			flips, _ := cmd.Flags().GetIntSlice("flip")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg)

			model, err := ising.FromConfig(cfg)
			if err != nil {
				return err
			}
			if err := model.Setup(); err != nil {
				return fmt.Errorf("setup failed: %w", err)
			}

			z, err := model.PartitionFunctionFrom(start, flips...)
			if errors.Is(err, ising.ErrCapacity) {
				return fmt.Errorf("lattice has %d spins: %w", model.NumSpins(), err)
			}
			if err != nil {
				return err
			}
			energy, err := model.FreeEnergy(flips...)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"num_spins":   model.NumSpins(),
					"start":       start,
					"flips":       flips,
					"z":           z,
					"log_z":       math.Log(z),
					"free_energy": energy,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Spins:        %d\n", model.NumSpins())
			fmt.Fprintf(out, "Z:            %.10g\n", z)
			fmt.Fprintf(out, "ln Z:         %.10g\n", math.Log(z))
			fmt.Fprintf(out, "Free energy:  %.10g\n", energy)
			return nil
		},
	}

	addLatticeFlags(cmd)
	addPhysicsFlags(cmd)
	cmd.Flags().Int("start", 0, "First spin index to enumerate; earlier spins are held fixed")
	cmd.Flags().IntSlice("flip", nil, "Spin indices to flip before enumerating")

	return cmd
}
