package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/config"
	kafkainfra "github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/kafka"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/logger"
	redisinfra "github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/redis"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/security"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/telemetry"
	transportgrpc "github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/grpc"
	grpcinterceptors "github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/grpc/interceptors"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/http/middleware"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/http/routes"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/usecase"
)

var timeNow = time.Now

const shutdownTimeout = 10 * time.Second

type Application struct {
	cfg        *config.AppConfig
	engine     *gin.Engine
	logger     *zap.Logger
	registry   *prometheus.Registry
	tracer     *telemetry.TracerProvider
	pool       *pgxpool.Pool
	redis      *redisinfra.Client
	producer   *kafkainfra.Producer
	grpcServer *transportgrpc.Server
	grpcAddr   string
	janitor    *usecase.Janitor
	consumer   *kafkainfra.DirectoryConsumer
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *Application) init(ctx context.Context) error {
	cfg, log := a.cfg, a.logger

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, cfg.App.Env, log.Named("telemetry"))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.tracer = tracer

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	authMetrics, err := telemetry.NewAuthMetrics(telemetry.AuthMetricsOptions{Registerer: a.registry})
	if err != nil {
		return fmt.Errorf("init auth metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: a.registry})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}
	grpcMetrics, err := grpcinterceptors.NewGRPCMetrics(grpcinterceptors.GRPCMetricsOptions{Registerer: a.registry})
	if err != nil {
		return fmt.Errorf("init grpc metrics: %w", err)
	}

	keyProvider, err := security.NewKeyProvider(cfg.App.Env, cfg.JWT.KeyDirectory)
	if err != nil {
		return fmt.Errorf("init key provider: %w", err)
	}

	hasher, err := NewArgon2Hasher(cfg.Argon2)
	if err != nil {
		return fmt.Errorf("configure argon2: %w", err)
	}

	stores, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	if stores.ActiveSessions != nil {
		if err := telemetry.RegisterActiveSessions(a.registry, "", stores.ActiveSessions); err != nil {
			return fmt.Errorf("register active sessions gauge: %w", err)
		}
	}

	directory, pool, err := openDirectory(ctx, cfg, hasher, log.Named("directory"))
	if err != nil {
		return err
	}
	a.pool = pool

	stack, err := NewAuthStack(cfg, directory, stores, AuthOptions{
		Logger:    log,
		Metrics:   authMetrics,
		Publisher: a.eventPublisher(),
		Tracer:    tracer.Tracer("admin-auth"),
		Keys:      keyProvider,
		Hasher:    hasher,
	})
	if err != nil {
		return err
	}

	tasks := append([]usecase.JanitorTask{{Name: "expired_sessions", Run: stack.Sessions.SweepExpired}}, stores.Prune...)
	a.janitor = usecase.NewJanitor(cfg.Session.SweepInterval, log.Named("janitor"), tasks...)

	if cfg.Kafka.Enabled {
		a.consumer = kafkainfra.NewDirectoryConsumer(stack.Auth, log.Named("directory_consumer"), kafkainfra.DirectoryConsumerOptions{
			MaxEventLag: cfg.Session.TTL,
		})
	}

	grpcSrv, err := transportgrpc.NewServer(transportgrpc.ServerDependencies{
		AuthService:    stack.Auth,
		Logger:         log.Named("grpc"),
		Metrics:        grpcMetrics,
		TracerProvider: otel.GetTracerProvider(),
		RequestsPerSec: cfg.GRPC.RequestsPerSec,
		Burst:          cfg.GRPC.Burst,
	})
	if err != nil {
		return fmt.Errorf("init grpc server: %w", err)
	}
	a.grpcServer = grpcSrv
	a.grpcAddr = fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)

	deps := routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Auth:        stack.Auth,
		KeySet:      stack.JWT,
		HTTPMetrics: httpMetrics,
		Gatherer:    a.registry,
	}
	if a.pool != nil {
		deps.Database = a.pool
	}
	if a.redis != nil {
		deps.Cache = a.redis
	}
	engine, err := routes.Register(deps)
	if err != nil {
		return fmt.Errorf("init routes: %w", err)
	}
	a.engine = engine

	log.Info("application initialised",
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("directory_backend", cfg.Storage.DirectoryBackend),
		zap.Bool("kafka", cfg.Kafka.Enabled),
	)
	return nil
}

func (a *Application) openStores(ctx context.Context) (*StateStores, error) {
	if a.cfg.Storage.Backend != "redis" {
		return NewMemoryStores(), nil
	}
	client, err := redisinfra.NewClient(ctx, a.cfg.Redis, a.logger)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	a.redis = client
	return NewRedisStores(client, a.cfg.Redis), nil
}

// eventPublisher falls back to the logging stub when Kafka is disabled or unreachable.
func (a *Application) eventPublisher() port.EventPublisher {
	if !a.cfg.Kafka.Enabled || len(a.cfg.Kafka.Brokers) == 0 {
		a.logger.Info("kafka disabled, using stub publisher")
		return kafkainfra.NewStubPublisher(a.logger.Named("events"))
	}
	producer, err := kafkainfra.NewProducer(a.cfg.Kafka, a.logger.Named("kafka"))
	if err != nil {
		a.logger.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(a.logger.Named("events"))
	}
	a.producer = producer
	a.logger.Info("kafka event publisher initialized", zap.Strings("brokers", a.cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, a.cfg.App, a.logger.Named("events"))
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.close()

	var background sync.WaitGroup
	defer background.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	background.Add(1)
	go func() {
		defer background.Done()
		a.janitor.Run(ctx)
	}()

	if a.consumer != nil {
		group, err := kafkainfra.NewConsumerGroup(a.cfg.Kafka)
		if err != nil {
			a.logger.Warn("directory consumer disabled", zap.Error(err))
		} else {
			background.Add(1)
			go func() {
				defer background.Done()
				a.consumeDirectory(ctx, group)
			}()
		}
	}

	errCh := make(chan error, 3)

	lis, err := net.Listen("tcp", a.grpcAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	a.logger.Info("starting gRPC server", zap.String("address", a.grpcAddr))
	go func() {
		if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("run grpc server: %w", err)
		}
	}()
	defer a.grpcServer.GracefulStop()

	servers := []*http.Server{a.newHTTPServer(fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port), a.engine)}
	if port := a.cfg.Telemetry.MetricsPort; port > 0 && port != a.cfg.App.Port {
		handler := promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
		servers = append(servers, a.newHTTPServer(fmt.Sprintf("%s:%d", a.cfg.App.Host, port), handler))
	}

	a.logger.Info("starting admin auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", servers[0].Addr),
	)
	for _, srv := range servers {
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("run server %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("server failed", zap.Error(runErr))
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
			runErr = fmt.Errorf("shutdown server: %w", err)
		}
	}
	return runErr
}

func (a *Application) newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (a *Application) consumeDirectory(ctx context.Context, group sarama.ConsumerGroup) {
	defer func() {
		if err := group.Close(); err != nil {
			a.logger.Warn("close consumer group", zap.Error(err))
		}
	}()
	a.logger.Info("directory consumer started", zap.String("topic", a.cfg.Kafka.DirectoryTopic))
	if err := a.consumer.Run(ctx, group, a.cfg.Kafka.DirectoryTopic); err != nil {
		a.logger.Error("directory consumer stopped", zap.Error(err))
	}
}

// close releases backends in reverse order of acquisition. Safe on a
// partially initialised application.
func (a *Application) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown tracer provider", zap.Error(err))
		}
	}
}
