// Package config provides unified configuration loading for hising.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/hausdorff-ising/internal/constants"
	"github.com/nvandessel/hausdorff-ising/internal/energy"
	"github.com/nvandessel/hausdorff-ising/internal/lattice"
	"github.com/nvandessel/hausdorff-ising/internal/montecarlo"
	"github.com/nvandessel/hausdorff-ising/internal/simerr"
	"gopkg.in/yaml.v3"
)

// Config contains all settings for one simulation.
type Config struct {
	// Lattice describes the fractal construction.
	Lattice LatticeConfig `json:"lattice" yaml:"lattice"`

	// Thermodynamics holds the physical constants of the Hamiltonian.
	Thermodynamics ThermodynamicsConfig `json:"thermodynamics" yaml:"thermodynamics"`

	// MonteCarlo controls the sampler.
	MonteCarlo MonteCarloConfig `json:"monte_carlo" yaml:"monte_carlo"`

	// Logging contains settings for operational and sweep logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// LatticeConfig configures the Hausdorff lattice.
type LatticeConfig struct {
	// Dimension is the Hausdorff dimension D > 0.
	Dimension float64 `json:"dimension" yaml:"dimension"`

	// Slices is the number of sub-cells per axis per level, >= 2.
	Slices int `json:"slices" yaml:"slices"`

	// Depth is the recursion depth, >= 0.
	Depth int `json:"depth" yaml:"depth"`

	// Method is "scaling" or "splitting".
	Method string `json:"method" yaml:"method"`
}

// ThermodynamicsConfig holds the Hamiltonian constants.
type ThermodynamicsConfig struct {
	// Temperature is kbT, strictly positive.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Field is the external field H.
	Field float64 `json:"field" yaml:"field"`

	// Coupling is the interaction strength J.
	Coupling float64 `json:"coupling" yaml:"coupling"`

	// Sigma is the distance exponent applied to pair weights.
	Sigma float64 `json:"sigma" yaml:"sigma"`
}

// MonteCarloConfig controls the sampler.
type MonteCarloConfig struct {
	// Method is "metropolis", "heatbath" or "hybrid".
	Method string `json:"method" yaml:"method"`

	// Steps is the number of sweeps per run.
	Steps int `json:"steps" yaml:"steps"`

	// Threads is the heat-bath worker count.
	Threads int `json:"threads" yaml:"threads"`

	// Blocks is the number of heat-bath blocks per sweep. 0 uses Threads.
	Blocks int `json:"blocks,omitempty" yaml:"blocks,omitempty"`

	// Seed seeds the master random stream.
	Seed int64 `json:"seed" yaml:"seed"`
}

// LoggingConfig configures hising's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables sweep logging to <dir>/sweeps.jsonl.
	Level string `json:"level" yaml:"level"`

	// Dir receives the sweep log.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics during a run; empty disables it.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Lattice: LatticeConfig{
			Dimension: constants.DefaultHausdorffDimension,
			Slices:    constants.DefaultHausdorffSlices,
			Depth:     constants.DefaultLatticeDepth,
			Method:    "scaling",
		},
		Thermodynamics: ThermodynamicsConfig{
			Temperature: constants.DefaultTemperature,
			Field:       constants.DefaultField,
			Coupling:    constants.DefaultCoupling,
			Sigma:       constants.DefaultInteractionSigma,
		},
		MonteCarlo: MonteCarloConfig{
			Method:  "metropolis",
			Steps:   constants.DefaultMCSteps,
			Threads: constants.DefaultThreads,
			Seed:    constants.DefaultSeed,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   ".hising",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.hising/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".hising", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Keys absent
// from the file keep their defaults; environment overrides are applied.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Logging.Dir = expandEnvVars(config.Logging.Dir)
	applyEnvOverrides(config)

	return config, nil
}

// LatticeParams converts the lattice section.
func (c *Config) LatticeParams() (lattice.Params, error) {
	method, err := lattice.ParseScalingMethod(c.Lattice.Method)
	if err != nil {
		return lattice.Params{}, err
	}
	return lattice.Params{
		Dimension: c.Lattice.Dimension,
		Slices:    c.Lattice.Slices,
		Depth:     c.Lattice.Depth,
		Method:    method,
	}, nil
}

// EnergyParams converts the thermodynamics section.
func (c *Config) EnergyParams() energy.Params {
	return energy.Params{
		H:     c.Thermodynamics.Field,
		J:     c.Thermodynamics.Coupling,
		KbT:   c.Thermodynamics.Temperature,
		Sigma: c.Thermodynamics.Sigma,
	}
}

// Validate checks that the configuration is valid. Errors wrap
// simerr.ErrConfiguration.
func (c *Config) Validate() error {
	lp, err := c.LatticeParams()
	if err != nil {
		return err
	}
	if err := lp.Validate(); err != nil {
		return err
	}

	if err := c.EnergyParams().Validate(); err != nil {
		return err
	}

	if _, err := montecarlo.ParseMethod(c.MonteCarlo.Method); err != nil {
		return err
	}
	if c.MonteCarlo.Steps < 1 {
		return simerr.Config("steps", c.MonteCarlo.Steps, "must be >= 1")
	}
	if c.MonteCarlo.Threads < 1 {
		return simerr.Config("threads", c.MonteCarlo.Threads, "must be >= 1")
	}
	if c.MonteCarlo.Blocks < 0 {
		return simerr.Config("blocks", c.MonteCarlo.Blocks, "must be >= 0")
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[strings.ToLower(c.Logging.Level)] {
		return simerr.Config("log_level", c.Logging.Level, "valid: info, debug, trace, or empty for default")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Values that fail to parse are ignored.
func applyEnvOverrides(config *Config) {
	envFloat("HISING_DIMENSION", &config.Lattice.Dimension)
	envInt("HISING_SLICES", &config.Lattice.Slices)
	envInt("HISING_DEPTH", &config.Lattice.Depth)
	if v := os.Getenv("HISING_SCALING"); v != "" {
		config.Lattice.Method = v
	}

	envFloat("HISING_TEMPERATURE", &config.Thermodynamics.Temperature)
	envFloat("HISING_FIELD", &config.Thermodynamics.Field)
	envFloat("HISING_COUPLING", &config.Thermodynamics.Coupling)
	envFloat("HISING_SIGMA", &config.Thermodynamics.Sigma)

	if v := os.Getenv("HISING_METHOD"); v != "" {
		config.MonteCarlo.Method = v
	}
	envInt("HISING_STEPS", &config.MonteCarlo.Steps)
	envInt("HISING_THREADS", &config.MonteCarlo.Threads)
	if v := os.Getenv("HISING_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.MonteCarlo.Seed = n
		}
	}

	if v := os.Getenv("HISING_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("HISING_METRICS_ADDR"); v != "" {
		config.Metrics.Addr = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
