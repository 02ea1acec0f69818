package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/subsets-io/valet-connector/internal/config"
	"github.com/subsets-io/valet-connector/internal/connector"
	"github.com/subsets-io/valet-connector/internal/dataset"
	"github.com/subsets-io/valet-connector/internal/logging"
	"github.com/subsets-io/valet-connector/internal/metrics"
	"github.com/subsets-io/valet-connector/internal/obstore"
	"github.com/subsets-io/valet-connector/internal/sink"
	"github.com/subsets-io/valet-connector/internal/state"
	"github.com/subsets-io/valet-connector/internal/storage"
	"github.com/subsets-io/valet-connector/internal/valet"
)

func main() {
	if err := run(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging)

	runID := logging.NewRunID()
	log := logging.RunLogger(runID)
	log.Info("starting valet connector", "version", connector.Version, "git_sha", connector.GitSHA)

	met := metrics.Init("valet_connector")
	if cfg.Metrics.Enabled {
		mlog := logging.Component("metrics")
		go func() {
			mlog.Info("metrics server listening", "address", cfg.Metrics.Address)
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				mlog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		log.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	mapping, err := dataset.LoadMapping(cfg.Connector.MappingPath)
	if err != nil {
		return err
	}

	objects, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer objects.Close()

	obs, err := obstore.New(objects)
	if err != nil {
		return fmt.Errorf("create observation store: %w", err)
	}
	defer obs.Close()

	client := valet.NewClient(valet.Config{
		BaseURL:           cfg.Valet.BaseURL,
		Timeout:           cfg.Valet.Timeout.Std(),
		RequestsPerSecond: cfg.Valet.RequestsPerSecond,
		Burst:             cfg.Valet.Burst,
	})
	states := state.NewManager(objects)
	snk := sink.NewParquetSink(objects, "valet-connector/"+connector.Version, log)

	c := connector.New(cfg, client, objects, obs, states, snk, mapping, log, met)
	if err := c.Run(ctx); err != nil {
		if ctx.Err() != nil {
			log.Info("shutdown complete")
			return nil
		}
		return err
	}

	log.Info("connector stopped cleanly")
	return nil
}
