package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stratumdb/stratum/api"
	"github.com/stratumdb/stratum/cluster"
	"github.com/stratumdb/stratum/config"
)

func main() {
	appctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	args := parseCliArgs()

	if !args.verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	conf, err := config.Load(args.configPath)
	if err != nil {
		level.Error(logger).Log("msg", "failed to load config", "path", args.configPath, "err", err)
		os.Exit(1)
	}

	opts := cluster.DefaultOptions()
	opts.Logger = logger

	registry, err := cluster.NewRegistry(conf, opts)
	if err != nil {
		level.Error(logger).Log("msg", "failed to build topology", "err", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	stats := newMetrics(promRegistry)
	stats.clusters.Set(float64(len(registry.Names())))

	level.Info(logger).Log(
		"msg", "topology built",
		"clusters", len(registry.Names()),
	)

	wg := sync.WaitGroup{}
	wg.Add(1)

	go func() {
		defer wg.Done()

		for {
			select {
			case <-appctx.Done():
				return
			case <-time.After(args.reloadInterval):
				reload(args.configPath, registry, stats, logger)
			}
		}
	}()

	router := api.CreateRouter(registry)
	router.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

	level.Info(logger).Log("msg", "starting admin server", "addr", args.bindAddr)

	if err := api.StartServer(appctx, router, logger, args.bindAddr); err != nil {
		level.Error(logger).Log("msg", "admin server failed", "err", err)
		cancel()
	}

	wg.Wait()
}

// reload re-reads the configuration and atomically swaps the registry
// contents. Queries holding a reference to the previous topology keep
// using it; a failed reload leaves the registry as it was.
func reload(path string, registry *cluster.Registry, stats *metrics, logger kitlog.Logger) {
	conf, err := config.Load(path)
	if err != nil {
		stats.reloadsTotal.WithLabelValues("config_error").Inc()
		level.Error(logger).Log("msg", "failed to load config", "path", path, "err", err)

		return
	}

	if err := registry.Update(conf); err != nil {
		stats.reloadsTotal.WithLabelValues("build_error").Inc()
		level.Error(logger).Log("msg", "topology reload failed for some clusters", "err", err)
	} else {
		stats.reloadsTotal.WithLabelValues("ok").Inc()
		level.Debug(logger).Log("msg", "topology reloaded")
	}

	stats.clusters.Set(float64(len(registry.Names())))
}
