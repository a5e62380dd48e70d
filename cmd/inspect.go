package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/u0068/Biospheres-sub000/sim"
)

func loadSceneFile(path string) (*sim.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scene: %w", err)
	}
	defer f.Close()
	s, err := sim.LoadScene(f)
	if err != nil {
		return nil, fmt.Errorf("loading scene %s: %w", path, err)
	}
	return s, nil
}

func saveSceneFile(path string, s *sim.Store) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating scene file: %w", err)
	}
	if err := sim.SaveScene(f, s); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing scene %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing scene %s: %w", path, err)
	}
	logrus.Infof("Saved scene with %d cells and %d connections to %s", s.CellCount(), s.ConnectionCount(), path)
	return nil
}

// printIntegrityReport writes store occupancy followed by every integrity finding.
func printIntegrityReport(out io.Writer, s *sim.Store, r *sim.IntegrityReport) {
	fmt.Fprintln(out, "=== Scene Integrity ===")
	fmt.Fprintf(out, "Cells                : %d / %d\n", s.CellCount(), s.CellCapacity())
	fmt.Fprintf(out, "Connections          : %d active, high-water %d / %d\n", r.ActiveConnections, s.ConnectionHighWater(), s.ConnectionCapacity())
	fmt.Fprintf(out, "Fragmentation        : %.3f\n", s.Fragmentation())
	fmt.Fprintf(out, "Orphaned Connections : %d\n", r.OrphanedConnections)
	fmt.Fprintf(out, "Orphaned Slots       : %d\n", r.OrphanedSlots)
	fmt.Fprintf(out, "Duplicate Pairs      : %d\n", r.DuplicatePairs)
	for _, e := range r.Errors {
		fmt.Fprintf(out, "ERROR   %s\n", e)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(out, "WARNING %s\n", w)
	}
	switch {
	case r.Clean():
		fmt.Fprintln(out, "Status               : clean")
	case r.OK():
		fmt.Fprintln(out, "Status               : ok with warnings")
	default:
		fmt.Fprintln(out, "Status               : corrupt")
	}
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <scene-file>",
	Short: "Load a saved scene and report its connection integrity",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := loadSceneFile(args[0])
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		report := s.ValidateIntegrity()
		printIntegrityReport(os.Stdout, s, report)
		if !report.OK() {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
