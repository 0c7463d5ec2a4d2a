package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"

	"github.com/oshokin/siren-guard/internal/api/grpc/control"
	"github.com/oshokin/siren-guard/internal/bus"
	"github.com/oshokin/siren-guard/internal/config"
	"github.com/oshokin/siren-guard/internal/device/actuator"
	"github.com/oshokin/siren-guard/internal/device/sensor"
	domain "github.com/oshokin/siren-guard/internal/domain/siren"
	"github.com/oshokin/siren-guard/internal/logger"
	"github.com/oshokin/siren-guard/internal/repository/thresholds"
	"github.com/oshokin/siren-guard/internal/service/instance"
	"github.com/oshokin/siren-guard/internal/service/siren"
	"github.com/oshokin/siren-guard/internal/version"
)

// Options controls the siren-guard process.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the listen address derived from the config.
	ListenAddress string
	// LogLevel overrides the log level from the config.
	LogLevel string
	// DryRun replaces the configured relay with the logging driver.
	DryRun bool
	// SkipInstanceCheck allows several daemons on one host, e.g. in tests.
	SkipInstanceCheck bool
}

// eventQueueLen is the per-subscriber queue of the event bus.
const eventQueueLen = 64

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// controlService joins the controller and the router behind the control API.
type controlService struct {
	*siren.Controller

	router *siren.Router
}

func (s controlService) Handles(topic string) bool {
	return s.router.Handles(topic)
}

func (s controlService) Enqueue(ctx context.Context, cmd *domain.Command) (string, error) {
	return s.router.Enqueue(ctx, cmd)
}

// Run starts the daemon and blocks until ctx is cancelled or the server stops.
// On return the relay has been switched off.
//
//nolint:funlen // Linear start-up sequence.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "siren-guard")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	levelName := cfg.LogLevel
	if opts.LogLevel != "" {
		levelName = opts.LogLevel
	}

	if err = logger.Configure(levelName); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Starting siren guard", version.Fields()...)

	if !opts.SkipInstanceCheck {
		if err = instance.Ensure(ctx); err != nil {
			return err
		}
	}

	listenAddress, err := resolveListenAddress(cfg.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	repo, closeRepo, err := openRepository(ctx, cfg.Store)
	if err != nil {
		return err
	}

	defer closeRepo()

	initial, err := thresholds.LoadOrDefault(ctx, repo, cfg.Thresholds)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to load thresholds, using configured defaults", "error", err)
	}

	if err = initial.Validate(cfg.MaxDistance); err != nil {
		logger.WarnKV(ctx, "Persisted thresholds are out of range", "error", err)
	}

	reader, err := sensor.Open(ctx, cfg.Sensor)
	if err != nil {
		return fmt.Errorf("open sensor: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	actuatorCfg := cfg.Actuator
	if opts.DryRun {
		actuatorCfg.Kind = config.ActuatorLog
	}

	relay, err := actuator.Open(actuatorCfg, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("open actuator: %w", err)
	}

	defer func() {
		_ = relay.Close()
	}()

	events := bus.New(eventQueueLen)

	controller := siren.NewController(ctx, &siren.Options{
		DeviceID:    cfg.DeviceID,
		Unit:        cfg.Unit,
		MaxDistance: cfg.MaxDistance,
		Thresholds:  initial,
		Repository:  repo,
		Actuator:    relay,
		Publisher:   siren.BusPublisher{Bus: events},
		Timings: siren.Timings{
			Unit:            cfg.Pattern.TimeUnit,
			WarningCooldown: cfg.Pattern.WarningCooldown,
			AlertCooldown:   cfg.Pattern.AlertCooldown,
			RebootPulse:     cfg.Pattern.RebootPulse,
		},
	})

	defer func() {
		if closeErr := controller.Close(ctx); closeErr != nil {
			logger.ErrorKV(ctx, "Failed to switch relay off on shutdown", "error", closeErr)
		}
	}()

	if err = controller.Start(ctx); err != nil {
		logger.WarnKV(ctx, "Initial relay reset failed, continuing", "error", err)
	}

	router := siren.NewRouter(controller, siren.DefaultQueueLen)
	loop := siren.NewLoop(controller, reader, cfg.SampleInterval)

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		events.Close()
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	control.RegisterControlServer(grpcServer, control.NewServer(controlService{
		Controller: controller,
		router:     router,
	}, events))

	logger.InfoKV(ctx, "Siren guard listening",
		"listen_address", listenAddress,
		"device_id", cfg.DeviceID,
		"sensor", cfg.Sensor.Kind,
		"actuator", actuatorCfg.Kind,
		"store", cfg.Store.Kind)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Go(func() { router.Run(runCtx) })
	wg.Go(func() { loop.Run(runCtx) })

	// Done is closed after GracefulStop so Run only returns once the server
	// has fully stopped.
	done := make(chan struct{})

	go func() {
		<-runCtx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		events.Close()
		grpcServer.GracefulStop()
		close(done)
	}()

	serveErr := grpcServer.Serve(lis)
	if errors.Is(serveErr, grpc.ErrServerStopped) {
		serveErr = nil
	}

	cancel()
	<-done
	wg.Wait()

	logger.Info(ctx, "GRPC server stopped")

	if serveErr != nil {
		return fmt.Errorf("serve gRPC: %w", serveErr)
	}

	return nil
}

// openRepository opens the configured threshold store.
//
//nolint:ireturn // The store kind is chosen at runtime.
func openRepository(ctx context.Context, cfg config.Store) (thresholds.Repository, func(), error) {
	switch cfg.Kind {
	case config.StoreSQLite:
		repo, err := thresholds.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open threshold database: %w", err)
		}

		return repo, func() { _ = repo.Close() }, nil
	default:
		return thresholds.NewFileRepository(cfg.Path), func() {}, nil
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	host, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Loopback stays loopback; anything else binds on all interfaces.
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return configAddr, nil
	}

	return ":" + port, nil
}
