package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dbehnke/mavtrap/pkg/config"
	"github.com/dbehnke/mavtrap/pkg/decoy"
	"github.com/dbehnke/mavtrap/pkg/events"
	"github.com/dbehnke/mavtrap/pkg/logger"
	"github.com/dbehnke/mavtrap/pkg/metrics"
	"github.com/dbehnke/mavtrap/pkg/network"
	"github.com/dbehnke/mavtrap/pkg/relay"
	"github.com/dbehnke/mavtrap/pkg/session"
	"github.com/dbehnke/mavtrap/pkg/vehicle"
	"github.com/dbehnke/mavtrap/pkg/web"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// engine is the mode specific control loop fed by the listener
type engine interface {
	Run(ctx context.Context, in <-chan network.Datagram) error
	Stats() *session.Stats
	Sessions() *session.Tracker
}

func main() {
	// Parse command line flags
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	mode := flag.String("mode", "", "Override the configured mode (decoy or relay)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mavtrap %s (commit %s, built %s)\n", version, commit, buildTime)
		os.Exit(0)
	}

	if *mode != "" {
		_ = os.Setenv("MAVTRAP_MODE", *mode)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *validate {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})
	defer func() { _ = log.Close() }()

	web.SetVersionInfo(version, commit, buildTime)

	log.Info("Starting mavtrap",
		logger.String("version", version),
		logger.String("build_time", buildTime),
		logger.String("mode", cfg.Mode),
		logger.String("config_file", *configFile))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("mavtrap stopped with error", logger.Error(err))
		_ = log.Close()
		os.Exit(1)
	}
	log.Info("mavtrap stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// abort stops what already runs when startup fails halfway
	abort := func(err error, sinks *eventSinks) error {
		cancel()
		_ = g.Wait()
		sinks.close()
		return err
	}

	listener := network.NewListener(cfg.Protocol.Listen, log)
	g.Go(func() error { return ignoreCanceled(listener.Start(ctx)) })
	if err := listener.WaitStarted(ctx); err != nil {
		if werr := g.Wait(); werr != nil {
			return werr
		}
		return err
	}

	collector := metrics.NewCollector()
	sinks, err := openSinks(ctx, cfg, log)
	if err != nil {
		return abort(err, sinks)
	}
	if sinks.db != nil {
		g.Go(func() error {
			sinks.db.RunPruner(ctx, cfg.Database.PruneInterval)
			return nil
		})
	}

	webServer := web.NewServer(cfg.Web, log)
	list := append(sinks.list, collector)
	if cfg.Web.Enabled {
		list = append(list, webServer.GetHub())
	}
	dispatcher := events.NewDispatcher(log, cfg.Events.BufferSize, list...)
	collector.WithDispatcher(dispatcher.Stats)

	eng, backend, err := newEngine(ctx, cfg, listener, dispatcher, log)
	if err != nil {
		return abort(err, sinks)
	}
	collector.WithTraffic(eng.Stats().Snapshot)

	api := webServer.API().WithEngine(cfg.Mode, eng).WithDispatcher(dispatcher.Stats)
	if sinks.db != nil {
		api.WithEventStore(sinks.db.Events())
	}

	g.Go(func() error { return dispatcher.Run(ctx) })
	if backend != nil {
		g.Go(func() error { return ignoreCanceled(backend.Start(ctx)) })
	}
	g.Go(func() error { return ignoreCanceled(eng.Run(ctx, listener.Packets())) })
	g.Go(func() error { return ignoreCanceled(webServer.Start(ctx)) })

	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		prom := metrics.NewPrometheusServer(metrics.PrometheusConfig{
			Enabled: cfg.Metrics.Prometheus.Enabled,
			Port:    cfg.Metrics.Prometheus.Port,
			Path:    cfg.Metrics.Prometheus.Path,
		}, collector, log)
		g.Go(func() error { return ignoreCanceled(prom.Start(ctx)) })
	}

	addr, _ := listener.Addr()
	log.Info("mavtrap running",
		logger.String("mode", cfg.Mode),
		logger.Any("listen", addr),
		logger.Any("sinks", dispatcher.Sinks()))

	err = g.Wait()
	if sinks.mqtt != nil {
		sinks.mqtt.Stop()
	}
	if sinks.db != nil {
		_ = sinks.db.Close()
	}
	report(log, eng.Stats().Snapshot(), dispatcher.Stats())
	return err
}

// newEngine builds the control loop for the configured mode. In relay mode
// the backend is dialed up front: failing to reach it is a startup error.
func newEngine(ctx context.Context, cfg *config.Config, listener *network.Listener, rec events.Recorder, log *logger.Logger) (engine, *network.Backend, error) {
	switch cfg.Mode {
	case config.ModeRelay:
		backend, err := network.Dial(ctx, network.BackendConfig{
			Network:     cfg.Relay.Backend.Network,
			Address:     cfg.Relay.Backend.Address,
			DialTimeout: cfg.Relay.Backend.DialTimeout,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		eng := relay.NewEngine(relay.Config{
			VerifyChecksum: cfg.Protocol.VerifyChecksum,
			NoiseFilter:    cfg.Relay.NoiseFilter,
			SessionTimeout: cfg.Protocol.SessionTimeout,
			TickInterval:   cfg.Relay.StatsInterval,
		}, listener, backend, log).WithRecorder(rec)
		return eng, backend, nil

	case config.ModeDecoy:
		return decoy.NewServer(decoyConfig(cfg), listener, log).WithRecorder(rec), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown mode %q", cfg.Mode)
}

func decoyConfig(cfg *config.Config) decoy.Config {
	v := cfg.Decoy.Vehicle
	params := make([]vehicle.Param, 0, len(cfg.Decoy.Params))
	for _, p := range cfg.Decoy.Params {
		params = append(params, vehicle.Param{ID: p.ID, Value: p.Value})
	}
	return decoy.Config{
		SystemID:    cfg.Decoy.SystemID,
		ComponentID: cfg.Decoy.ComponentID,
		Vehicle: vehicle.Config{
			Latitude:         v.Latitude,
			Longitude:        v.Longitude,
			Altitude:         v.Altitude,
			VehicleType:      v.VehicleType,
			Autopilot:        v.Autopilot,
			CustomMode:       v.CustomMode,
			Armed:            v.Armed,
			Satellites:       v.Satellites,
			BatteryVoltage:   v.BatteryVoltage,
			BatteryRemaining: v.BatteryRemaining,
		},
		Params:            params,
		TelemetryInterval: cfg.Decoy.TelemetryInterval,
		SessionTimeout:    cfg.Protocol.SessionTimeout,
		VerifyChecksum:    cfg.Protocol.VerifyChecksum,
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// report logs the final traffic counters
func report(log *logger.Logger, snap session.Snapshot, ds events.DispatcherStats) {
	human := snap.Human()
	log.Info("Traffic summary",
		logger.String("from_client", human["from_client"]),
		logger.String("to_client", human["to_client"]),
		logger.String("to_backend", human["to_backend"]),
		logger.String("from_backend", human["from_backend"]),
		logger.Uint64("sessions", snap.SessionsOpened),
		logger.Uint64("frames", snap.FramesParsed),
		logger.Uint64("events", snap.EventsRecorded),
		logger.Uint64("suppressed", snap.EventsSuppressed))
	log.Info("Event summary",
		logger.Uint64("written", ds.Written),
		logger.Uint64("failed", ds.Failed),
		logger.Uint64("dropped", ds.Dropped))
}
