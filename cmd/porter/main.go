package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/darklock-net/gatehouse/platform"
	"github.com/darklock-net/gatehouse/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"gorm.io/gorm"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "porter",
		Usage:   "admission daemon (watches the door)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "platform-host",
			Usage:   "method, hostname, and port of the platform REST API",
			Value:   "https://api.darklock.net",
			EnvVars: []string{"DARKLOCK_API_HOST"},
		},
		&cli.StringFlag{
			Name:    "platform-token",
			Usage:   "bot token for the platform API and gateway",
			EnvVars: []string{"DARKLOCK_BOT_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "gateway-host",
			Usage:   "hostname and port of the event gateway to subscribe to",
			Value:   "wss://gateway.darklock.net",
			EnvVars: []string{"DARKLOCK_GATEWAY_HOST"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"PORTER_LOG_LEVEL", "GO_LOG_LEVEL", "LOG_LEVEL"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

func configLogger(cctx *cli.Context, writer io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database connection string; use memory:// to keep all state in process",
			Value:   "sqlite://data/porter/admission.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection for cursor state and the shared config cache, eg: redis://localhost:6379/0",
			EnvVars: []string{"PORTER_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the staff review API",
			Value:   ":8700",
			EnvVars: []string{"PORTER_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":8701",
			EnvVars: []string{"PORTER_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "staff-webhook-url",
			Usage:   "fallback incoming-webhook URL for escalation notices, used when a community configures none",
			EnvVars: []string{"PORTER_STAFF_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "review-url-base",
			Usage:   "public base URL for staff review links, eg: https://gatehouse.example.com",
			EnvVars: []string{"PORTER_REVIEW_URL_BASE"},
		},
		&cli.DurationFlag{
			Name:    "sweep-interval",
			Usage:   "how often overdue challenges get expired",
			Value:   time.Minute,
			EnvVars: []string{"PORTER_SWEEP_INTERVAL"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := configLogger(cctx, os.Stdout)

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				log.Fatal("failed to create trace exporter", "error", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("porter"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
					attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
					attribute.Int64("ID", 1),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		var db *gorm.DB
		if dburl := cctx.String("database-url"); dburl != "memory://" {
			var err error
			db, err = cliutil.SetupDatabase(dburl, cctx.Int("max-db-connections"))
			if err != nil {
				return err
			}
		}

		client := platform.NewClient(cctx.String("platform-host"), cctx.String("platform-token"))

		srv, err := NewServer(
			db,
			client,
			Config{
				Logger:          logger,
				GatewayHost:     cctx.String("gateway-host"),
				BotToken:        cctx.String("platform-token"),
				Bind:            cctx.String("bind"),
				RedisURL:        cctx.String("redis-url"),
				StaffWebhookURL: cctx.String("staff-webhook-url"),
				ReviewURLBase:   cctx.String("review-url-base"),
				SweepInterval:   cctx.Duration("sweep-interval"),
			},
		)
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		// Trap SIGINT and SIGTERM to trigger a graceful shutdown
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-quit
			logger.Info("received shutdown signal", "signal", sig.String())
			cancel()
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run admission service: %w", err)
		}
		logger.Info("admission service shut down")
		return nil
	},
}
