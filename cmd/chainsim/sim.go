package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/bikesim/drivetrain/internal/chain"
	"github.com/bikesim/drivetrain/internal/channel"
	"github.com/bikesim/drivetrain/internal/config"
	"github.com/bikesim/drivetrain/internal/dispatcher"
	"github.com/bikesim/drivetrain/internal/handlers"
	"github.com/bikesim/drivetrain/internal/logging"
	"github.com/bikesim/drivetrain/internal/monitor"
	intOtel "github.com/bikesim/drivetrain/internal/otel"
	"github.com/bikesim/drivetrain/internal/physics"
	"github.com/bikesim/drivetrain/internal/rebuild"
	"github.com/bikesim/drivetrain/internal/sim"
	"github.com/bikesim/drivetrain/internal/storage"

	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// commandBuffer bounds console lines waiting for the loop.
const commandBuffer = 64

// session holds everything built for one simulation run.
type session struct {
	start    time.Time
	logFile  *os.File
	logMgr   *logging.SlogManager
	otel     *intOtel.Provider
	logger   *slog.Logger
	dbLogger zerolog.Logger
	backend  storage.Backend
	world    physics.World
	ctrl     *rebuild.Controller
	loop     *sim.Loop
	monitor  *monitor.Service
}

// setupLogging opens the session log file and wires slog, the OTel bridge and
// the zerolog logger used by the database layer.
func (s *session) setupLogging() {
	bootstrap := logging.NewSlogManager()
	bootstrap.Setup(nil, config.GetString("logLevel"), nil)
	logger := bootstrap.Logger()

	logsDir := config.GetString("logsDir")
	var file io.Writer
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	} else {
		path := logging.LogFilePath(logsDir, ServiceName, s.start)
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			logger.Error("Failed to create/open log file!", "error", err, "path", path)
		} else {
			s.logFile = f
			file = f
		}
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled && file != nil {
		p, err := intOtel.New(intOtel.Config{
			Enabled:      true,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    file,
			MetricWriter: file,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			s.otel = p
		}
	}

	var provider *sdklog.LoggerProvider
	if s.otel != nil {
		provider = s.otel.LoggerProvider()
	}
	s.logMgr = logging.NewSlogManager()
	s.logMgr.Setup(file, config.GetString("logLevel"), provider)
	s.logger = s.logMgr.Logger()

	dbOut := io.Writer(os.Stderr)
	if file != nil {
		dbOut = file
	}
	s.dbLogger = zerolog.New(dbOut).With().Timestamp().Str("component", "database").Logger()
}

func (s *session) setupStorage() error {
	cfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(cfg, storage.Dependencies{
		Logger:      s.logger,
		DBLogger:    s.dbLogger,
		ServiceName: ServiceName,
		DBConfig:    config.GetDBConfig(),
		Influx:      config.GetInfluxConfig(),
	})
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	s.backend = backend
	s.logger.Info("Storage backend initialized", "type", cfg.Type)
	return nil
}

func (s *session) setupWorld() error {
	pc := config.GetPhysicsConfig()
	world, err := physics.New(physics.Params{
		Backend:            pc.Backend,
		Gravity:            pc.Gravity,
		VelocityIterations: pc.VelocityIterations,
		PositionIterations: pc.PositionIterations,
	})
	if err != nil {
		return err
	}
	for _, p := range configuredProfiles(config.GetCogsConfig()) {
		if err := world.AddCog(p.Role, p.Center, p.Radius); err != nil {
			return fmt.Errorf("failed to add %s cog: %w", p.Role, err)
		}
	}
	s.world = world
	s.logger.Info("Physics world ready", "backend", pc.Backend)
	return nil
}

func (s *session) setupSim(ctx context.Context, opts *options, stdout io.Writer) error {
	cc := config.GetChainConfig()
	lc := config.GetLinkConfig()

	asm := chain.NewAssembler(s.world, chain.LinkParams{
		Radius:   lc.Radius,
		Mass:     lc.Mass,
		Friction: lc.Friction,
		Filter:   physics.ChainFilter,
	}, cc.Compliance)

	ctrl, err := rebuild.New(rebuild.Config{
		Wrap:     wrapParams(cc),
		Coalesce: cc.Coalesce,
	}, rebuild.Dependencies{
		Cogs:    s.world,
		Builder: asm,
		Journal: s.backend,
		Logger:  s.logger,
	})
	if err != nil {
		return err
	}
	s.ctrl = ctrl

	d, err := dispatcher.New(s.logger)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	dc := config.GetDriveConfig()
	s.loop, err = sim.New(sim.Config{
		TimeStep: config.GetPhysicsConfig().TimeStep,
		Paused:   opts.paused,
		MaxTicks: opts.ticks,
	}, sim.Dependencies{
		World:      s.world,
		Drive:      &physics.Drive{Torque: dc.Torque, MaxRPM: dc.MaxRPM},
		Dispatcher: d,
		Controller: ctrl,
		Logger:     s.logger,
		Output:     stdout,
	})
	if err != nil {
		return err
	}

	cogs := config.GetCogsConfig()
	handlers.NewService(ctx, handlers.Dependencies{
		World:      s.world,
		Controller: ctrl,
		Stepper:    s.loop,
		Logger:     s.logger,
		MinRadius:  cogs.MinRadius,
		MaxRadius:  cogs.MaxRadius,
	}).Register(d)

	mc := config.GetMonitorConfig()
	s.monitor = monitor.NewService(monitor.Dependencies{
		Controller: ctrl,
		Logger:     s.logger,
		Interval:   mc.Interval,
		StatusFile: mc.StatusFile,
	})
	return nil
}

// shutdown tears the chain down, closes storage, uploads the journal and
// flushes logs. It runs with a fresh context so an interrupt does not cut it short.
func (s *session) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.monitor != nil {
		s.monitor.Stop()
	}
	var st rebuild.Status
	if s.ctrl != nil {
		if err := s.ctrl.Teardown(ctx); err != nil {
			s.logger.Warn("Failed to tear down chain", "error", err)
		}
		st = s.ctrl.Status()
	}
	if s.backend != nil {
		if q, ok := s.backend.(storage.Queryable); ok {
			if recent, err := q.RecentRebuilds(ctx, 1); err == nil && len(recent) > 0 {
				s.logger.Info("Last journaled rebuild", "outcome", recent[0].Outcome, "trigger", recent[0].Trigger)
			}
		}
		if err := s.backend.Close(); err != nil {
			s.logger.Error("Failed to close storage backend", "error", err)
		} else {
			uploadJournal(ctx, config.GetAPIConfig(), s.backend, uploadMeta(st, time.Since(s.start)), s.logger)
		}
	}

	s.logger.Info("Session finished", "rebuilds", st.Rebuilds, "failures", st.Failures, "duration", time.Since(s.start))

	if err := s.logMgr.Flush(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "failed to flush logs:", err)
	}
	if s.otel != nil {
		if err := s.otel.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "failed to shut down otel:", err)
		}
	}
	if s.logFile != nil {
		s.logFile.Close()
	}
}

func runSim(ctx context.Context, opts *options, stdin io.Reader, stdout io.Writer) error {
	s := &session{start: time.Now()}
	s.setupLogging()
	defer s.shutdown()

	s.logger.Info("Starting up", "version", Version, "buildDate", BuildDate)
	if opts.configErr != nil {
		s.logger.Warn("Failed to load config, using defaults!", "error", opts.configErr)
	}

	if err := s.setupStorage(); err != nil {
		return err
	}
	if err := s.setupWorld(); err != nil {
		return err
	}
	if err := s.setupSim(ctx, opts, stdout); err != nil {
		return err
	}
	if err := s.monitor.Start(); err != nil {
		return err
	}

	s.ctrl.Enqueue(rebuild.ManualReset())

	input := channel.New[string](commandBuffer)
	go func() {
		defer input.Close()
		if err := sim.ReadCommands(ctx, stdin, input, s.logger); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("Command input stopped", "error", err)
		}
	}()
	return s.loop.Run(ctx, input)
}
