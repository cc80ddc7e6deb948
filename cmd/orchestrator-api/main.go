package main

import (
	"context"
	"os"

	"github.com/edulab/orchestrator/pkg/cmd"
	"github.com/edulab/orchestrator/pkg/ergomate"
	"github.com/edulab/orchestrator/pkg/log"
	"github.com/edulab/orchestrator/pkg/notify"
	"github.com/edulab/orchestrator/pkg/otelhelper"
	"github.com/edulab/orchestrator/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	cmd := &cli.Command{
		Name:                  "orchestrator-api",
		Usage:                 "Serve the pedagogical catalog and its validation workflow",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file://dir or postgres://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL of the workflow stats cache (disabled when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "ergomate-url",
				Usage:   "Ergo-Mate API base URL",
				Value:   ergomate.DefaultBaseURL,
				Sources: cli.EnvVars("ERGOMATE_API_URL"),
			},
			&cli.StringFlag{
				Name:    "ergomate-api-key",
				Usage:   "Ergo-Mate API key",
				Sources: cli.EnvVars("ERGOMATE_API_KEY"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing Catalog Orchestrator API")

			var engineOpts []workflow.Option

			if command.Bool("otel-enabled") {
				tracer, err := otelhelper.NewTracer(ctx, "orchestrator-api")
				if err != nil {
					return err
				}

				engineOpts = append(engineOpts, workflow.WithTracer(tracer))
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			cacheOpts, closeCache, err := cmd.NewStatsCache(ctx, command.String("redis-url"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := closeCache(); err != nil {
					logger.ErrorContext(ctx, "Failed to close stats cache", "error", err)
				}
			}()

			engineOpts = append(engineOpts, cacheOpts...)

			eventBusType := command.String("event-bus")

			eventBus, err := cmd.NewEventBus(eventBusType, command.String("kafka-brokers"), "orchestrator-api", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			// an in-memory bus only reaches this process, so the API stores its own notifications
			if eventBusType == "gochannel" {
				if err := notify.RegisterConsumer(eventBus, persistence.NotificationRepository(), logger); err != nil {
					return err
				}

				if err := eventBus.Subscribe(ctx); err != nil {
					return err
				}
			}

			api := NewAPI(
				logger,
				persistence,
				notify.NewBusNotifier(eventBus),
				cmd.NewPusher(command.String("ergomate-url"), command.String("ergomate-api-key"), logger),
				engineOpts...,
			)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
