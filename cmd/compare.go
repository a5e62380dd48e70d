package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/u0068/Biospheres-sub000/sim/cpu"
	"github.com/u0068/Biospheres-sub000/sim/crossval"
)

var (
	// CLI flags for cross-backend tolerances
	tolPosition float64
	tolVelocity float64
	tolEnergy   float64
)

// printCompareReport writes a cross-validation report.
func printCompareReport(out io.Writer, r *crossval.Report, tol crossval.Tolerances) {
	fmt.Fprintln(out, "=== Cross-Backend Validation ===")
	fmt.Fprintf(out, "Steps                : %d\n", r.Steps)
	fmt.Fprintf(out, "Cells (cpu/gpu)      : %d / %d\n", r.CellsCPU, r.CellsGPU)
	fmt.Fprintf(out, "Max Position Diff    : %.3e (tolerance %.1e, worst cell %d)\n", r.MaxPositionDiff, tol.Position, r.WorstCell)
	fmt.Fprintf(out, "Max Velocity Diff    : %.3e (tolerance %.1e)\n", r.MaxVelocityDiff, tol.Velocity)
	fmt.Fprintf(out, "Adhesion Energy      : %.6f / %.6f (rel diff %.3e, tolerance %.1e)\n", r.EnergyCPU, r.EnergyGPU, r.EnergyRelDiff, tol.EnergyRel)
	if r.TwistScaleSuspect {
		fmt.Fprintln(out, "Note                 : twist constraint enabled; backends use different twist scales")
	}
	for _, f := range r.Failures {
		fmt.Fprintf(out, "FAIL    %s\n", f)
	}
	if r.Passed() {
		fmt.Fprintln(out, "Result               : PASS")
	} else {
		fmt.Fprintln(out, "Result               : FAIL")
	}
}

// compareCmd steps the same scene on both backends and reports their divergence.
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run the cpu and gpu backends side by side and report divergence",
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := resolveRunOptions(cmd.Flags().Changed)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		opts.Config.Backend = cpu.Name
		w, err := buildWorld(opts)
		if err != nil {
			logrus.Fatalf("Failed to build scene: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		tol := crossval.Tolerances{Position: tolPosition, Velocity: tolVelocity, EnergyRel: tolEnergy}
		report, err := crossval.Run(ctx, w.Store(), opts.Genome, opts.Config, opts.Steps, opts.Dt, tol)
		if err != nil {
			logrus.Fatalf("Cross-validation aborted: %v", err)
		}
		printCompareReport(os.Stdout, report, tol)
		if !report.Passed() {
			stop()
			os.Exit(1)
		}
	},
}

func init() {
	def := crossval.DefaultTolerances()
	addWorldFlags(compareCmd, cpu.MaxCells)
	compareCmd.Flags().Float64Var(&tolPosition, "tol-position", def.Position, "Max per-axis position difference")
	compareCmd.Flags().Float64Var(&tolVelocity, "tol-velocity", def.Velocity, "Max per-axis velocity difference")
	compareCmd.Flags().Float64Var(&tolEnergy, "tol-energy", def.EnergyRel, "Max relative adhesion energy difference")

	rootCmd.AddCommand(compareCmd)
}
