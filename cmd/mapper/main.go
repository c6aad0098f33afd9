// mapper drives a mapping-space search to completion and prints the best
// mapping found. It is the only place in this module that reads flags,
// installs a signal handler, or exits the process with a non-zero status —
// everything else (config
// parsing, the search itself) stays a plain Go API, testable without a
// process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/niceyeti/mapcore/internal/demo"
	"github.com/niceyeti/mapcore/internal/events"
	"github.com/niceyeti/mapcore/internal/liveview"
	"github.com/niceyeti/mapcore/pkg/config"
	"github.com/niceyeti/mapcore/pkg/coordinator"
	"github.com/niceyeti/mapcore/pkg/engine"
	"github.com/niceyeti/mapcore/pkg/mapspace"
	"github.com/niceyeti/mapcore/pkg/search"
	"github.com/niceyeti/mapcore/pkg/stats"
	"github.com/niceyeti/mapcore/pkg/termination"
	"github.com/niceyeti/mapcore/pkg/worker"
)

var (
	configPath    *string
	mapspaceSize  *int
	liveAddr      *string
	demoNumLevels *int
)

// TODO: per 12-factor rules these should also accept env overrides; KISS
// for now, since config.Load already owns the one file-based path.
func init() {
	configPath = flag.String("config", "", "path to a run config yaml (see pkg/config); if empty, built-in defaults are used")
	mapspaceSize = flag.Int("mapspace-size", 200000, "size of the demo integer map space to search")
	liveAddr = flag.String("live-addr", ":7070", "address for the live-status page, when enabled")
	demoNumLevels = flag.Int("num-levels", 4, "number of topology levels the diagnostics report is sized for; the demo engine reports failures at level 0 only")
	flag.Parse()
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.Load(*configPath)
	}
	return &config.Config{
		NumThreads:       runtime.NumCPU(),
		Metrics:          []stats.Metric{stats.MetricEDP},
		Timeout:          1000,
		VictoryCondition: 500,
		LogStats:         true,
		Diagnostics:      true,
	}, nil
}

func runApp() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("mapper: %w", err)
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	term := termination.New()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("mapper: signal received, terminating search")
		term.Set()
		appCancel()
	}()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	mapSpace := &demo.ContiguousMapSpace{Size: *mapspaceSize}
	illegal := func(id int) bool { return id%17 == 0 }

	coordCfg := coordinator.Config{
		NumWorkers: cfg.NumThreads,
		MapSpace:   mapSpace,
		NewCursor: func(workerID int, sub mapspace.Subspace) (search.Algorithm, error) {
			cs, ok := sub.(*demo.ContiguousSubspace)
			if !ok {
				return nil, fmt.Errorf("mapper: worker %d: unexpected subspace type %T", workerID, sub)
			}
			return &demo.SequentialCursor{Lo: cs.Lo, Limit: cs.Hi}, nil
		},
		NewEngine: func(workerID int) (engine.Engine, error) {
			return &demo.DeterministicEngine{IllegalID: illegal}, nil
		},
		NumLevels:        *demoNumLevels,
		SearchSize:       cfg.PerWorkerSearchSize(cfg.NumThreads),
		Timeout:          cfg.Timeout,
		VictoryCondition: cfg.VictoryCondition,
		SyncInterval:     cfg.SyncInterval,
		Metrics:          cfg.Metrics,
		Diagnostics:      cfg.Diagnostics,
		LogStats:         cfg.LogStats,
		LogSuboptimal:    cfg.LogSuboptimal,
		Logger:           logger,
		EnableEvents:     cfg.LiveStatus,
	}

	if cfg.LiveStatus {
		coordCfg.OnWorkersStarted = func(workers []*worker.Worker, eventChans []<-chan events.Event) {
			hub := liveview.NewHub(workers, eventChans)
			go func() {
				if err := hub.Serve(appCtx, *liveAddr); err != nil {
					logger.Printf("live-status server stopped: %v", err)
				}
			}()
			logger.Printf("live-status page at http://%s/", *liveAddr)
		}
	}

	result, err := coordinator.Run(appCtx, coordCfg, term)
	if err != nil {
		return fmt.Errorf("mapper: search setup failed: %w", err)
	}

	printResult(result)
	return nil
}

func printResult(result *coordinator.Result) {
	if !result.Best.Valid {
		fmt.Println("mapper: no legal mapping found")
		if level, count, found := result.Diagnostics.WorstLevel(); found {
			fmt.Printf("mapper: most rejections (%d) occurred at topology level %d; "+
				"consider relaxing constraints there\n", count, level)
		}
		return
	}

	fmt.Printf("mapper: best mapping found, cost=%.3f utilization=%.2f cycles=%d energy=%.2f\n",
		stats.Cost(result.Best.Stats, stats.MetricEDP),
		result.Best.Stats.Utilization,
		result.Best.Stats.Cycles,
		result.Best.Stats.Energy)

	if level, count, found := result.Diagnostics.WorstLevel(); found {
		fmt.Printf("mapper: worst rejection level %d accounted for %d rejections\n", level, count)
	}
}

func main() {
	if err := runApp(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
