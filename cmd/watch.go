package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/u0068/Biospheres-sub000/sim"
	"github.com/u0068/Biospheres-sub000/sim/cpu"
)

// watchDebounce is how long the genome file must stay quiet before a reload.
const watchDebounce = 100 * time.Millisecond

// genomeWatcher reports settled changes to a single file. Editors that save by rename are
// handled by watching the parent directory.
type genomeWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	Changes  chan string
	closeCh  chan struct{}
	once     sync.Once
}

func newGenomeWatcher(path string, debounce time.Duration) (*genomeWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}
	gw := &genomeWatcher{
		watcher:  w,
		path:     abs,
		debounce: debounce,
		Changes:  make(chan string, 1),
		closeCh:  make(chan struct{}),
	}
	go gw.run()
	return gw, nil
}

func (gw *genomeWatcher) Close() error {
	var err error
	gw.once.Do(func() {
		close(gw.closeCh)
		err = gw.watcher.Close()
	})
	return err
}

func (gw *genomeWatcher) run() {
	defer close(gw.Changes)
	timer := time.NewTimer(gw.debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case event, ok := <-gw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != gw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(gw.debounce)
		case <-timer.C:
			// Coalesce with a change the consumer has not picked up yet.
			select {
			case gw.Changes <- gw.path:
			default:
			}
		case err, ok := <-gw.watcher.Errors:
			if !ok {
				return
			}
			logrus.Warnf("watch %s: %v", gw.path, err)
		case <-gw.closeCh:
			return
		}
	}
}

// preview grows g on the cpu backend from a fresh world and prints the metrics.
func preview(o *runOptions, g *sim.Genome) error {
	p := *o
	p.Genome = g
	p.Config.Backend = cpu.Name
	if p.Config.CellCapacity > cpu.MaxCells {
		p.Config.CellCapacity = cpu.MaxCells
	}
	if err := p.validate(); err != nil {
		return err
	}
	w, err := buildWorld(&p)
	if err != nil {
		return err
	}
	simulate(w, &p)
	s := w.Store()
	w.Metrics().Print(s.CellCount(), s.ConnectionCount())
	return nil
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run a cpu preview every time the genome file changes",
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := resolveRunOptions(cmd.Flags().Changed)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if opts.GenomePath == "" {
			logrus.Fatalf("watch needs a genome file (--genome or scenario genome)")
		}
		gw, err := newGenomeWatcher(opts.GenomePath, watchDebounce)
		if err != nil {
			logrus.Fatalf("Failed to watch %s: %v", opts.GenomePath, err)
		}
		defer gw.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := preview(opts, opts.Genome); err != nil {
			logrus.Errorf("preview: %v", err)
		}
		fmt.Printf("Watching %s (Ctrl-C to stop)\n", gw.path)
		for {
			select {
			case <-ctx.Done():
				return
			case path, ok := <-gw.Changes:
				if !ok {
					return
				}
				g, err := sim.LoadGenome(path)
				if err != nil {
					logrus.Warnf("Keeping previous genome: %v", err)
					continue
				}
				logrus.Infof("Reloaded genome %q", g.Name)
				if err := preview(opts, g); err != nil {
					logrus.Errorf("preview: %v", err)
				}
			}
		}
	},
}

func init() {
	addWorldFlags(watchCmd, cpu.MaxCells)
	rootCmd.AddCommand(watchCmd)
}
