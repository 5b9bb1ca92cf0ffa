package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/opscenter/triagecore/internal/alerts"
	"github.com/opscenter/triagecore/internal/config"
	"github.com/opscenter/triagecore/internal/events"
	"github.com/opscenter/triagecore/internal/feasibility"
	"github.com/opscenter/triagecore/internal/fingerprint"
	"github.com/opscenter/triagecore/internal/httpserver"
	"github.com/opscenter/triagecore/internal/ingest"
	"github.com/opscenter/triagecore/internal/leader"
	"github.com/opscenter/triagecore/internal/metrics"
	"github.com/opscenter/triagecore/internal/obslog"
	"github.com/opscenter/triagecore/internal/pollloop"
	"github.com/opscenter/triagecore/internal/publish"
	"github.com/opscenter/triagecore/internal/routing"
	"github.com/opscenter/triagecore/pkg/messaging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func run() error {
	configPath, err := config.PathFromEnv()
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := obslog.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	db, err := sql.Open("postgres", dbConnString(cfg.DBConnection))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if cfg.DBConnection.PoolSize > 0 {
		db.SetMaxOpenConns(cfg.DBConnection.PoolSize)
	}

	reader, err := ingest.NewReader(cfg.Ingestion, db)
	if err != nil {
		return fmt.Errorf("build input reader: %w", err)
	}

	fpCache := fingerprint.NewCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "triagecore", logger)

	oracle := routing.NewWebSocketOracle(cfg.Oracle.URL, cfg.Oracle.Mode, cfg.Oracle.RoutingPreference)
	routeBuilder := routing.NewBuilder(oracle)

	filter := feasibility.NewFilter(feasibility.DefaultSpeedFactor)

	publisher := publish.NewPublisher(db)

	var msgClient *messaging.Client
	if cfg.NATS.URL != "" {
		msgClient, err = messaging.NewClient(messaging.Config{
			URL:            cfg.NATS.URL,
			Name:           "triagecore-worker",
			ReconnectWait:  time.Second,
			MaxReconnects:  60,
			ConnectTimeout: 10 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer msgClient.Close()
	}
	eventsPub := events.NewPublisher(msgClient)

	metricsSink := metrics.NewSink(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket, logger)
	defer metricsSink.Close()

	alertsEngine := alerts.NewEngine(eventsPub)

	elector, err := leader.New(cfg.Etcd.Endpoints, cfg.Etcd.ElectionPrefix, cfg.Etcd.LeaseTTLSeconds, logger)
	if err != nil {
		return fmt.Errorf("init leader election: %w", err)
	}

	healthSrv := httpserver.NewServer(cfg.HTTPServer.Port)
	serverErrs := make(chan error, 1)
	healthSrv.Start(serverErrs)

	loop := pollloop.New(pollloop.Config{
		Reader:           reader,
		FingerprintCache: fpCache,
		RouteBuilder:     routeBuilder,
		Filter:           filter,
		Publisher:        publisher,
		EventsPub:        eventsPub,
		MetricsSink:      metricsSink,
		AlertsEngine:     alertsEngine,
		Elector:          elector,
		Readiness:        healthSrv,
		PollInterval:     cfg.PollInterval(),
		Log:              logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopErrs := make(chan error, 1)
	go func() {
		loopErrs <- loop.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		if err := <-loopErrs; err != nil {
			logger.Error("poll loop exited with error during shutdown", zap.Error(err))
		}
	case err := <-loopErrs:
		if err != nil {
			logger.Error("poll loop exited with fatal error", zap.Error(err))
			cancel()
			shutdownHealthServer(healthSrv, logger)
			return err
		}
	case err := <-serverErrs:
		logger.Error("health server failed", zap.Error(err))
		cancel()
		<-loopErrs
		return err
	}

	shutdownHealthServer(healthSrv, logger)
	logger.Info("worker stopped cleanly")
	return nil
}

func shutdownHealthServer(srv *httpserver.Server, logger *zap.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health server shutdown error", zap.Error(err))
	}
}

func dbConnString(c config.DBConnection) string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		c.Host, c.Port, c.Database, c.User, c.Password)
}
