package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sozu-sh/sozuctl/internal/config"
	"github.com/sozu-sh/sozuctl/internal/dispatcher"
	"github.com/sozu-sh/sozuctl/internal/events"
	"github.com/sozu-sh/sozuctl/internal/logging"
	"github.com/sozu-sh/sozuctl/internal/metrics"
	"github.com/sozu-sh/sozuctl/internal/server"
	"github.com/sozu-sh/sozuctl/internal/snapshot"
	"github.com/sozu-sh/sozuctl/internal/worker"
)

var appVersion = "dev"

func main() {
	rt := config.DefaultRuntime()
	var (
		showVersion bool
		logLevel    string
	)

	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.StringVar(&logLevel, "log-level", "warning", "log level: debug, info, warning, error")
	flag.StringVar(&rt.SocketPath, "socket", rt.SocketPath, "control socket path")
	flag.IntVar(&rt.WorkerCount, "workers", rt.WorkerCount, "number of workers to launch at startup")
	flag.StringVar(&rt.InitialState, "state", rt.InitialState, "optional saved-state file to load at startup")
	flag.Parse()

	if showVersion {
		fmt.Printf("supervisord %s\n", appVersion)
		os.Exit(0)
	}

	if err := run(rt, logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "supervisord: %v\n", err)
		os.Exit(1)
	}
}

func run(rt config.Runtime, logLevel string) error {
	level := logging.Level(logLevel)
	if !level.IsValid() {
		level = logging.LevelWarning
	}
	logCfg := logging.New(level)
	log := logCfg.Named("supervisord")

	store := &config.StateStore{}
	state := config.New()
	if rt.InitialState != "" {
		loaded, err := snapshot.LoadState(store, rt.InitialState)
		if err != nil {
			return fmt.Errorf("loading initial state: %w", err)
		}
		state = loaded
	}

	workers := worker.NewRegistry()
	for i := 0; i < rt.WorkerCount; i++ {
		workers.Launch(0)
	}

	disp := dispatcher.New(logCfg.Named("dispatcher"), state, workers,
		events.New(), metrics.New(rt.MetricsNS), store, logCfg)

	srv := server.New(log, rt.SocketPath, disp)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Infof("listening on %s with %d worker(s)", rt.SocketPath, rt.WorkerCount)
	return srv.Run(ctx)
}
