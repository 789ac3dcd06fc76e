package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ClickHouse/clickhouse-go/v2"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dentipal/DentiPalCDK-sub004/internal/audit"
	"github.com/dentipal/DentiPalCDK-sub004/internal/config"
	"github.com/dentipal/DentiPalCDK-sub004/internal/events"
	"github.com/dentipal/DentiPalCDK-sub004/internal/runlock"
	"github.com/dentipal/DentiPalCDK-sub004/internal/runner"
	"github.com/dentipal/DentiPalCDK-sub004/internal/settlement"
	"github.com/dentipal/DentiPalCDK-sub004/internal/store"
	"github.com/dentipal/DentiPalCDK-sub004/internal/telemetry"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return zap.NewProduction()
}

func newDynamoClient(cfg *config.Config) (*ddb.Client, error) {
	return store.NewDynamoClient(context.Background(), cfg)
}

func newApplications(client *ddb.Client, cfg *config.Config) store.Applications {
	return store.NewDynamoApplications(client, cfg)
}

func newJobs(client *ddb.Client, cfg *config.Config) store.Jobs {
	return store.NewDynamoJobs(client, cfg)
}

func newReferrals(client *ddb.Client, cfg *config.Config) store.Referrals {
	return store.NewDynamoReferrals(client, cfg)
}

func newProfiles(client *ddb.Client, cfg *config.Config) store.Profiles {
	return store.NewDynamoProfiles(client, cfg)
}

func newClickHouseConn(cfg *config.Config) (clickhouse.Conn, error) {
	return audit.NewClickHouseConn(context.Background(), cfg)
}

func newRecorder(conn clickhouse.Conn, logger *zap.Logger) *audit.ClickHouseRecorder {
	return audit.NewClickHouseRecorder(conn, logger)
}

func asRecorder(recorder *audit.ClickHouseRecorder) audit.Recorder {
	return recorder
}

func newRunLock(cfg *config.Config) *runlock.Lock {
	return runlock.New(runlock.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.RunLockTTL,
	})
}

func registerRunner(lc fx.Lifecycle, run *runner.Runner, recorder *audit.ClickHouseRecorder, conn clickhouse.Conn, lock *runlock.Lock, publisher events.Publisher, cfg *config.Config, logger *zap.Logger) {
	var cancel context.CancelFunc
	var shutdownTracer func()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.OTelCollectorURL != "" {
				shutdown, err := telemetry.InitTracer(ctx, "dentipal-settlement", cfg.OTelCollectorURL)
				if err != nil {
					return err
				}
				shutdownTracer = shutdown
			}

			if err := recorder.EnsureSchema(ctx); err != nil {
				return err
			}

			runCtx, c := context.WithCancel(context.Background())
			cancel = c
			go func() {
				if err := run.Start(runCtx); err != nil && runCtx.Err() == nil {
					logger.Error("settlement runner stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			publisher.Close()
			if err := conn.Close(); err != nil {
				logger.Warn("failed to close clickhouse connection", zap.Error(err))
			}
			if err := lock.Close(); err != nil {
				logger.Warn("failed to close run lock client", zap.Error(err))
			}
			if shutdownTracer != nil {
				shutdownTracer()
			}
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			newLogger,
			newDynamoClient,
			newApplications,
			newJobs,
			newReferrals,
			newProfiles,
			newClickHouseConn,
			newRecorder,
			asRecorder,
			newRunLock,
			events.NewPublisher,
			settlement.NewReconciler,
			runner.New,
		),
		fx.Invoke(registerRunner),
	)

	startCtx := context.Background()
	if err := app.Start(startCtx); err != nil {
		log.Fatal(err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	stopCtx := context.Background()
	if err := app.Stop(stopCtx); err != nil {
		log.Fatal(err)
	}
}
