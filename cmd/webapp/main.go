package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aescanero/webapp/internal/application/health"
	"github.com/aescanero/webapp/internal/auth"
	"github.com/aescanero/webapp/internal/config"
	redishealth "github.com/aescanero/webapp/pkg/adapters/health/redis"
	"github.com/aescanero/webapp/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/webapp/pkg/api/controllers"
	"github.com/aescanero/webapp/pkg/api/grpc"
	"github.com/aescanero/webapp/pkg/api/http"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"

	startedAt = time.Now()
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting web application host",
		zap.String("name", cfg.Name),
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.Stringer("environment", cfg.Environment))

	metricsCollector := prometheus.NewCollector()

	// Health checks
	registry := health.NewRegistry(cfg.Health.CheckTimeout, logger)
	if err := registry.Register(health.Self()); err != nil {
		logger.Fatal("failed to register health check", zap.Error(err))
	}

	var redisClient *goredis.Client
	if cfg.Redis.Enabled() {
		redisClient = redishealth.NewClient(cfg.Redis)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		if err := registry.Register(redishealth.NewCheck(redisClient, cfg.Redis.ReadTimeout/2, logger)); err != nil {
			logger.Fatal("failed to register health check", zap.Error(err))
		}
	}

	monitor := health.NewMonitor(registry, cfg.Health.MonitorInterval, metricsCollector, logger)

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Name:              cfg.Name,
		Version:           Version,
		Environment:       cfg.Environment,
		Port:              cfg.HTTPPort,
		HTTPSPort:         cfg.HTTPSPort,
		HTTPSRedirectPort: cfg.HTTPSRedirectPort,
		TLS:               cfg.TLS,
		CORSEnabled:       cfg.CORSEnabled,
		ReadHeaderTimeout: cfg.Timeouts.ReadHeaderTimeout,
		Health:            registry,
		Policy:            auth.FromConfig(cfg.Auth),
		Metrics:           metricsCollector,
		Logger:            logger,
	})

	httpServer.MapControllers(
		controllers.NewInfoController(controllers.ServiceInfo{
			Name:        cfg.Name,
			Version:     Version,
			BuildTime:   BuildTime,
			Environment: cfg.Environment.String(),
		}),
	)

	if err := httpServer.Listen(); err != nil {
		logger.Fatal("failed to start HTTP server", zap.Error(err))
	}

	var grpcServer *grpc.Server
	if cfg.GRPCEnabled {
		grpcServer, err = grpc.NewServer(&grpc.Config{
			Port:   cfg.GRPCPort,
			Logger: logger,
		})
		if err != nil {
			logger.Fatal("failed to create gRPC server", zap.Error(err))
		}
		monitor.Watch(grpcServer.UpdateStatus)
	}

	monitor.Start()

	// Start servers
	serveErr := make(chan error, 2)
	go func() {
		serveErr <- httpServer.Serve()
	}()

	if grpcServer != nil {
		go func() {
			serveErr <- grpcServer.Start()
		}()
	}

	logger.Info("web application host started",
		zap.String("http_addr", httpServer.Addr()),
		zap.Bool("tls", cfg.TLS.Enabled()),
		zap.Bool("grpc", cfg.GRPCEnabled))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.Stringer("signal", sig))
	case err := <-serveErr:
		if err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if grpcServer != nil {
		if err := grpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("gRPC server shutdown error", zap.Error(err))
		}
	}

	monitor.Stop()

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("web application host shut down complete", zap.Duration("uptime", time.Since(startedAt)))
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
