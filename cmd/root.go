package cmd

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/u0068/Biospheres-sub000/sim"
	_ "github.com/u0068/Biospheres-sub000/sim/cpu" // registers "cpu"
	_ "github.com/u0068/Biospheres-sub000/sim/gpu" // registers "gpu"
	"github.com/u0068/Biospheres-sub000/sim/trace"
)

var (
	// CLI flags shared by run, compare and watch
	genomePath     string  // Genome YAML; empty means the built-in single-mode genome
	scenarioPath   string  // Scenario YAML; explicit flags override its values
	numCells       int     // Random cells spawned before the first step
	steps          int     // Number of Simulate calls
	dt             float64 // Step size in seconds
	seed           int64   // Master seed for spawn and mutation
	backendName    string  // Registered backend name
	capacity       int     // Cell arena size
	worldRadius    float64 // Boundary sphere radius
	gridResolution int     // Spatial grid buckets per axis
	workers        int     // GPU workgroup goroutines (0 = GOMAXPROCS)
	traceLevel     string  // Trace verbosity: none, events

	// CLI flags for run outputs
	logLevel   string // Log verbosity level
	savePath   string // Scene file written after the run
	loadPath   string // Scene file restored instead of spawning
	metricsOut string // JSON metrics file
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "biospheres",
	Short: "Cell physics core for Biospheres: adhesion, division and cross-backend validation",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runOptions is the fully resolved input of a run: flags merged over the scenario.
type runOptions struct {
	Genome     *sim.Genome
	GenomePath string
	Config     sim.WorldConfig
	Cells      []CellSpec
	Spawn      int
	Steps      int
	Dt         float64
	LoadPath   string
}

// flagOptions snapshots the shared flags into runOptions without touching the filesystem.
func flagOptions() *runOptions {
	cfg := sim.DefaultWorldConfig()
	cfg.CellCapacity = capacity
	cfg.Backend = backendName
	cfg.Workers = workers
	cfg.Seed = seed
	cfg.TraceLevel = traceLevel
	cfg.Boundary.Radius = worldRadius
	cfg.Partition.Resolution = gridResolution
	return &runOptions{
		GenomePath: genomePath,
		Config:     cfg,
		Spawn:      numCells,
		Steps:      steps,
		Dt:         dt,
		LoadPath:   loadPath,
	}
}

// applyScenario copies every scenario value whose flag was not set explicitly.
func (o *runOptions) applyScenario(sc *Scenario, changed func(name string) bool) {
	keep := func(flag string, set bool) bool { return set && !changed(flag) }
	ws := sc.World
	if keep("genome", sc.Genome != "") {
		o.GenomePath = sc.Genome
	}
	if keep("capacity", ws.Capacity > 0) {
		o.Config.CellCapacity = ws.Capacity
	}
	if keep("world-radius", ws.WorldRadius > 0) {
		o.Config.Boundary.Radius = ws.WorldRadius
	}
	if keep("grid-resolution", ws.GridResolution > 0) {
		o.Config.Partition.Resolution = ws.GridResolution
	}
	if keep("backend", ws.Backend != "") {
		o.Config.Backend = ws.Backend
	}
	if keep("workers", ws.Workers > 0) {
		o.Config.Workers = ws.Workers
	}
	if keep("seed", ws.Seed != nil) {
		o.Config.Seed = *ws.Seed
	}
	if keep("dt", ws.Dt > 0) {
		o.Dt = ws.Dt
	}
	if keep("steps", ws.Steps > 0) {
		o.Steps = ws.Steps
	}
	if keep("cells", sc.Spawn > 0) {
		o.Spawn = sc.Spawn
	}
	o.Cells = append(o.Cells, sc.Cells...)
}

// resolveRunOptions merges the scenario file (if any) under the flags and loads the genome.
func resolveRunOptions(changed func(name string) bool) (*runOptions, error) {
	opts := flagOptions()
	if scenarioPath != "" {
		sc, err := loadScenario(scenarioPath)
		if err != nil {
			return nil, err
		}
		opts.applyScenario(sc, changed)
		logrus.Infof("Loaded scenario %q from %s", sc.Name, scenarioPath)
	}
	if err := opts.loadGenome(); err != nil {
		return nil, err
	}
	return opts, opts.validate()
}

func (o *runOptions) loadGenome() error {
	if o.GenomePath == "" {
		o.Genome = sim.DefaultGenome()
		return nil
	}
	g, err := sim.LoadGenome(o.GenomePath)
	if err != nil {
		return err
	}
	o.Genome = g
	return nil
}

func (o *runOptions) validate() error {
	if o.Dt <= 0 || math.IsNaN(o.Dt) || math.IsInf(o.Dt, 0) {
		return fmt.Errorf("dt must be a finite positive number, got %f", o.Dt)
	}
	if o.Steps < 0 {
		return fmt.Errorf("steps must be >= 0, got %d", o.Steps)
	}
	if o.Spawn < 0 {
		return fmt.Errorf("cells must be >= 0, got %d", o.Spawn)
	}
	for i, c := range o.Cells {
		if c.Mode < 0 || c.Mode >= len(o.Genome.Modes) {
			return fmt.Errorf("cells[%d].mode %d out of range [0, %d)", i, c.Mode, len(o.Genome.Modes))
		}
	}
	return nil
}

// buildWorld restores the scene at LoadPath, or starts empty, then places the explicit
// cells and spawns the random ones.
func buildWorld(o *runOptions) (*sim.World, error) {
	var (
		w   *sim.World
		err error
	)
	if o.LoadPath != "" {
		store, lerr := loadSceneFile(o.LoadPath)
		if lerr != nil {
			return nil, lerr
		}
		w, err = sim.NewWorldWithStore(o.Config, store)
	} else {
		w, err = sim.NewWorld(o.Config)
	}
	if err != nil {
		return nil, err
	}
	for i, c := range o.Cells {
		if _, err := w.Store().AddCell(c.params(o.Genome)); err != nil {
			return nil, fmt.Errorf("cells[%d]: %w", i, err)
		}
	}
	if o.Spawn > 0 {
		if err := w.SpawnRandom(o.Spawn, o.Genome); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// simulate steps w o.Steps times, logging progress roughly every tenth of the run.
func simulate(w *sim.World, o *runOptions) {
	every := o.Steps / 10
	if every == 0 {
		every = 1
	}
	for step := 1; step <= o.Steps; step++ {
		w.Simulate(o.Dt, o.Genome)
		if step%every == 0 {
			logrus.Debugf("step %d/%d: cells=%d connections=%d", step, o.Steps, w.Store().CellCount(), w.Store().ConnectionCount())
		}
	}
}

// printTraceSummary writes the division and bond event summary.
func printTraceSummary(out io.Writer, s *trace.TraceSummary) {
	fmt.Fprintln(out, "=== Trace Summary ===")
	fmt.Fprintf(out, "Divisions            : %d (completed %d, skipped %d)\n", s.TotalDivisions, s.CompletedDivisions, s.SkippedDivisions)
	fmt.Fprintf(out, "Inherited Bonds      : %d (failed %d)\n", s.InheritedBonds, s.FailedInheritances)
	zones := make([]string, 0, len(s.ZoneDistribution))
	for z := range s.ZoneDistribution {
		zones = append(zones, z)
	}
	sort.Strings(zones)
	for _, z := range zones {
		fmt.Fprintf(out, "  zone %-2s            : %d\n", z, s.ZoneDistribution[z])
	}
	fmt.Fprintf(out, "Broken Bonds         : %d (max force %.4f)\n", s.BrokenBonds, s.MaxBreakForce)
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Grow a genome on the chosen backend",
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := resolveRunOptions(cmd.Flags().Changed)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		w, err := buildWorld(opts)
		if err != nil {
			logrus.Fatalf("Failed to build world: %v", err)
		}
		logrus.Infof("Starting simulation: genome=%q cells=%d steps=%d dt=%g", opts.Genome.Name, w.Store().CellCount(), opts.Steps, opts.Dt)

		start := time.Now()
		simulate(w, opts)
		logrus.Infof("Simulation complete in %s", time.Since(start))

		s := w.Store()
		w.Metrics().Print(s.CellCount(), s.ConnectionCount())
		if w.Trace() != nil {
			printTraceSummary(os.Stdout, trace.Summarize(w.Trace()))
		}
		if savePath != "" {
			if err := saveSceneFile(savePath, s); err != nil {
				logrus.Fatalf("%v", err)
			}
		}
		if metricsOut != "" {
			out := w.Metrics().Output(w.Backend().Name(), opts.Config.Seed, s.CellCount(), s.ConnectionCount())
			if err := sim.SaveResults(out, metricsOut); err != nil {
				logrus.Fatalf("%v", err)
			}
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addWorldFlags registers the world and stepping flags on c.
func addWorldFlags(c *cobra.Command, defaultCapacity int) {
	def := sim.DefaultWorldConfig()
	c.Flags().StringVar(&genomePath, "genome", "", "Genome YAML file (default: built-in single-mode genome)")
	c.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file; explicit flags override its values")
	c.Flags().IntVar(&numCells, "cells", 1, "Random cells spawned before the first step")
	c.Flags().IntVar(&steps, "steps", 1000, "Number of simulation steps")
	c.Flags().Float64Var(&dt, "dt", 0.01, "Step size in seconds")
	c.Flags().Int64Var(&seed, "seed", def.Seed, "Master seed for spawning and mutation")
	c.Flags().StringVar(&backendName, "backend", def.Backend, fmt.Sprintf("Physics backend %v", sim.BackendNames()))
	c.Flags().IntVar(&capacity, "capacity", defaultCapacity, "Cell arena capacity")
	c.Flags().Float64Var(&worldRadius, "world-radius", def.Boundary.Radius, "Radius of the spherical world boundary")
	c.Flags().IntVar(&gridResolution, "grid-resolution", def.Partition.Resolution, "Spatial grid buckets per axis")
	c.Flags().IntVar(&workers, "workers", 0, "GPU workgroup goroutines (0 = GOMAXPROCS)")
	c.Flags().StringVar(&traceLevel, "trace", "none", "Event trace level (none, events)")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	addWorldFlags(runCmd, sim.DefaultWorldConfig().CellCapacity)
	runCmd.Flags().StringVar(&savePath, "save", "", "Write the final scene to this file")
	runCmd.Flags().StringVar(&loadPath, "load", "", "Start from a saved scene instead of an empty world")
	runCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write run metrics as JSON to this file")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
