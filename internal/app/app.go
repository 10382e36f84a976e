// Package app wires the scoring pipeline from configuration: storage,
// assistant directory, conversation backend, dispatcher, coordinator,
// callback reporter and the HTTP and gRPC surfaces.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/leadscore/internal/application/scoring"
	"github.com/turtacn/leadscore/internal/config"
	domain "github.com/turtacn/leadscore/internal/domain/scoring"
	"github.com/turtacn/leadscore/internal/infrastructure/database/postgres"
	"github.com/turtacn/leadscore/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/leadscore/internal/infrastructure/database/redis"
	"github.com/turtacn/leadscore/internal/infrastructure/directory"
	"github.com/turtacn/leadscore/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/leadscore/internal/infrastructure/secrets"
	"github.com/turtacn/leadscore/internal/infrastructure/storage/minio"
	"github.com/turtacn/leadscore/internal/intelligence/assistant"
	"github.com/turtacn/leadscore/internal/intelligence/common"
	grpcserver "github.com/turtacn/leadscore/internal/interfaces/grpc"
	httpserver "github.com/turtacn/leadscore/internal/interfaces/http"
	"github.com/turtacn/leadscore/internal/interfaces/http/handlers"
	"github.com/turtacn/leadscore/internal/interfaces/http/middleware"
	"github.com/turtacn/leadscore/pkg/errors"
)

const readinessInterval = 2 * time.Second

// Options replaces external collaborators. Nil fields are built from the
// configuration.
type Options struct {
	Blobs          domain.BlobReader
	Directory      domain.AssistantDirectory
	ServiceFactory assistant.ServiceFactory
	Publisher      domain.EventPublisher
	HTTPClient     *http.Client
}

type closer struct {
	name string
	fn   func() error
}

// App owns the scoring pipeline and the infrastructure it opened.
type App struct {
	cfg    *config.Config
	logger logging.Logger

	collector  prometheus.MetricsCollector
	metrics    *prometheus.ScoringMetrics
	dispatcher *common.Dispatcher[domain.ItemOutcome]
	reporter   *scoring.Reporter
	service    *scoring.Service

	checkers []handlers.HealthChecker
	closers  []closer
}

// New builds the pipeline. On error everything opened so far is closed.
func New(cfg *config.Config, logger logging.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.InvalidParam("config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	a := &App{cfg: cfg, logger: logger}
	if err := a.init(opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(opts Options) error {
	cfg := a.cfg

	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableGoMetrics:      true,
			EnableProcessMetrics: true,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		a.collector = collector
		a.metrics = prometheus.NewScoringMetrics(collector)
	}

	blobs := opts.Blobs
	if blobs == nil {
		client, err := minio.NewMinIOClient(&minio.MinIOConfig{
			Endpoint:        cfg.MinIO.Endpoint,
			AccessKeyID:     cfg.MinIO.AccessKey,
			SecretAccessKey: cfg.MinIO.SecretKey,
			UseSSL:          cfg.MinIO.UseSSL,
			Region:          cfg.MinIO.Region,
			MaxObjectSize:   cfg.MinIO.MaxObjectSize,
		}, a.logger.Named("minio"))
		if err != nil {
			return fmt.Errorf("minio: %w", err)
		}
		a.addCloser("minio", client.Close)
		a.addCheck("minio", func(ctx context.Context) error {
			_, err := client.HealthCheck(ctx)
			return err
		})
		blobs = minio.NewObjectRepository(client, a.logger.Named("blobs"))
	}

	dir := opts.Directory
	if dir == nil {
		var err error
		if dir, err = a.openDirectory(); err != nil {
			return err
		}
	}

	factory := opts.ServiceFactory
	if factory == nil {
		factory = assistant.NewOpenAIServiceFactory(cfg.Assistant.BaseURL)
	}
	connector, err := assistant.NewCredentialConnector(
		secrets.NewConfigProvider(cfg.Secrets), dir, factory, cfg.Assistant.APIKeySecretTemplate)
	if err != nil {
		return fmt.Errorf("assistant: %w", err)
	}

	observers := assistant.MultiObserver{assistant.NewLoggingObserver(a.logger.Named("operation"))}
	if a.metrics != nil {
		observers = append(observers, assistant.NewMetricsObserver(a.metrics))
	}
	runner := assistant.NewRunner(connector,
		assistant.WithPollInterval(cfg.Operation.PollInterval),
		assistant.WithMaxAttempts(cfg.Operation.MaxAttempts),
		assistant.WithRequestTimeout(cfg.Operation.RequestTimeout),
		assistant.WithMessageRole(cfg.Assistant.MessageRole),
		assistant.WithObserver(observers),
	)

	dopts := []common.DispatcherOption{
		common.WithMaxConcurrent(cfg.Dispatcher.MaxConcurrent),
		common.WithWindow(cfg.Dispatcher.Window),
		common.WithDispatcherLogger(a.logger.Named("dispatcher")),
	}
	copts := []scoring.CoordinatorOption{}
	ropts := []scoring.ReporterOption{scoring.WithHTTPClient(opts.HTTPClient)}
	if a.metrics != nil {
		dopts = append(dopts, common.WithDispatcherMetrics(a.metrics))
		copts = append(copts, scoring.WithBatchMetrics(a.metrics))
		ropts = append(ropts, scoring.WithDeliveryMetrics(a.metrics))
	}
	a.dispatcher = common.NewDispatcher[domain.ItemOutcome](dopts...)

	coordinator, err := scoring.NewCoordinator(a.dispatcher, runner, a.logger.Named("coordinator"), copts...)
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}
	a.reporter = scoring.NewReporter(cfg.Callback.Timeout, a.logger.Named("reporter"), ropts...)

	publisher := opts.Publisher
	if publisher == nil && cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka, a.logger.Named("kafka"))
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		a.addCloser("kafka", producer.Close)
		publisher = producer
	}

	a.service, err = scoring.NewService(scoring.ServiceConfig{
		Blobs:       blobs,
		Coordinator: coordinator,
		Reporter:    a.reporter,
		Publisher:   publisher,
		Logger:      a.logger.Named("service"),
	})
	if err != nil {
		return fmt.Errorf("service: %w", err)
	}
	a.checkers = append([]handlers.HealthChecker{handlers.CheckFunc{
		CheckerName: "scoring",
		Fn: func(context.Context) error {
			if !a.Ready() {
				return errors.New(errors.ErrCodeServiceUnavailable, "scoring service is draining")
			}
			return nil
		},
	}}, a.checkers...)

	a.logger.Info("scoring pipeline initialized",
		logging.Int("max_concurrent", cfg.Dispatcher.MaxConcurrent),
		logging.Duration("window", cfg.Dispatcher.Window),
		logging.String("directory", cfg.Directory.Backend),
		logging.Bool("kafka", publisher != nil),
		logging.Bool("metrics", a.metrics != nil),
	)
	return nil
}

// openDirectory resolves assistant ids from postgres, optionally behind the
// redis cache, or from the static map.
func (a *App) openDirectory() (domain.AssistantDirectory, error) {
	cfg := a.cfg
	if cfg.Directory.Backend != "postgres" {
		return directory.NewStaticDirectory(cfg.Directory.Static), nil
	}

	conn, err := postgres.NewConnection(cfg.Database, a.logger.Named("postgres"))
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	a.addCloser("postgres", conn.Close)
	a.addCheck("postgres", conn.HealthCheck)

	var dir domain.AssistantDirectory = repositories.NewSubscriptionRepository(conn, a.logger.Named("subscriptions"))
	if !cfg.Redis.Enabled {
		return dir, nil
	}

	client, err := redis.NewClient(cfg.Redis, a.logger.Named("redis"))
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	a.addCloser("redis", client.Close)
	a.addCheck("redis", client.Ping)

	var copts []redis.CacheOption
	if cfg.Redis.KeyPrefix != "" {
		copts = append(copts, redis.WithPrefix(cfg.Redis.KeyPrefix))
	}
	if cfg.Directory.CacheTTL > 0 {
		copts = append(copts, redis.WithTTL(cfg.Directory.CacheTTL))
	}
	return redis.NewAssistantCache(client, dir, a.logger.Named("directory"), copts...), nil
}

func (a *App) addCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *App) addCheck(name string, fn func(ctx context.Context) error) {
	a.checkers = append(a.checkers, handlers.CheckFunc{CheckerName: name, Fn: fn})
}

// Service returns the batch use case.
func (a *App) Service() *scoring.Service { return a.service }

// Reporter returns the callback reporter.
func (a *App) Reporter() *scoring.Reporter { return a.reporter }

// Ready reports whether new batches are accepted.
func (a *App) Ready() bool {
	return a.service.Accepting() && !a.dispatcher.Stats().Closed
}

// Router builds the HTTP route tree.
func (a *App) Router(version string) http.Handler {
	cfg := a.cfg
	log := a.logger.Named("http")

	lc := middleware.DefaultLoggingConfig()
	lc.SkipPaths = append(lc.SkipPaths, cfg.Metrics.Path)

	rc := httpserver.RouterConfig{
		SubmitHandler: handlers.NewSubmitHandler(a.service, cfg.Server.MaxBodySize, log),
		AssetsHandler: handlers.NewAssetsHandler(cfg.Server.AssetsDir, log),
		HealthHandler: handlers.NewHealthHandler(version, a.checkers,
			handlers.WithPipelineStats(func() interface{} { return a.dispatcher.Stats() })),
		Logger:        log,
		LoggingConfig: &lc,
		MetricsPath:   cfg.Metrics.Path,
	}
	if a.metrics != nil {
		rc.HTTPMetrics = a.metrics
		rc.MetricsCollector = a.collector
	}
	if cfg.Server.SubmitRate > 0 {
		rc.SubmitRateLimit = &middleware.RateLimitConfig{
			RequestsPerSecond: cfg.Server.SubmitRate,
			Burst:             cfg.Server.SubmitBurst,
		}
	}
	return httpserver.NewRouter(rc)
}

// Run serves HTTP, and gRPC health when enabled, until ctx is cancelled or
// a server fails, then drains the pipeline.
func (a *App) Run(ctx context.Context, version string) error {
	httpSrv := httpserver.NewServer(a.cfg.Server, a.Router(version), a.logger.Named("http"))

	var grpcSrv *grpcserver.Server
	if a.cfg.GRPC.Enabled {
		var err error
		grpcSrv, err = grpcserver.NewServer(a.cfg.GRPC,
			grpcserver.WithLogger(a.logger.Named("grpc")),
			grpcserver.WithGracefulTimeout(a.cfg.Server.ShutdownTimeout),
			grpcserver.WithReflection(a.cfg.Server.Mode == "debug"),
		)
		if err != nil {
			return fmt.Errorf("grpc: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpSrv.Start)
	if grpcSrv != nil {
		g.Go(grpcSrv.Start)
		g.Go(func() error {
			grpcSrv.WatchReadiness(gctx, a.Ready, readinessInterval)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		return a.stop(sctx, httpSrv, grpcSrv)
	})
	return g.Wait()
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return config.DefaultShutdownTimeout
}

// stop closes the surfaces first so no new batch arrives, then drains the
// pipeline and finally stops gRPC so health reflects the drain.
func (a *App) stop(ctx context.Context, httpSrv *httpserver.Server, grpcSrv *grpcserver.Server) error {
	if grpcSrv != nil {
		grpcSrv.SetServing(false)
	}

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(httpSrv.Stop(ctx))
	record(a.Shutdown(ctx))
	if grpcSrv != nil {
		record(grpcSrv.Stop(ctx))
	}
	return firstErr
}

// Shutdown stops accepting batches, waits for running ones and then stops
// the dispatcher.
func (a *App) Shutdown(ctx context.Context) error {
	serr := a.service.Shutdown(ctx)
	derr := a.dispatcher.Shutdown(ctx)
	if serr != nil {
		return serr
	}
	return derr
}

// Close releases infrastructure in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("close failed", logging.String("component", c.name), logging.Err(err))
		}
	}
	a.closers = nil
}

//Personal.AI order the ending
