package main

import (
	"context"
	"os"

	"github.com/edulab/orchestrator/pkg/cmd"
	"github.com/edulab/orchestrator/pkg/ergomate"
	"github.com/edulab/orchestrator/pkg/log"
	"github.com/edulab/orchestrator/pkg/notify"
	"github.com/edulab/orchestrator/pkg/otelhelper"
	"github.com/edulab/orchestrator/pkg/services"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultRetrySchedule = "*/5 * * * *"
	defaultRetryBatch    = 20
)

func main() {
	cmd := &cli.Command{
		Name:                  "orchestrator-worker",
		EnableShellCompletion: true,
		Usage:                 "Store catalog notifications and retry failed Ergo-Mate publications",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file://dir or postgres://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "retry-schedule",
				Usage:   "Cron expression of the failed publication retry pass",
				Value:   defaultRetrySchedule,
				Sources: cli.EnvVars("RETRY_SCHEDULE"),
			},
			&cli.IntFlag{
				Name:    "retry-batch",
				Usage:   "Maximum publications retried per pass",
				Value:   defaultRetryBatch,
				Sources: cli.EnvVars("RETRY_BATCH"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("orchestrator-worker")

			logger.InfoContext(ctx, "Initializing Orchestrator Worker")

			if command.Bool("otel-enabled") {
				if _, err := otelhelper.NewTracer(ctx, "orchestrator-worker"); err != nil {
					return err
				}
			}

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), "orchestrator-worker", logger)
			if err != nil {
				return err
			}

			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

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

			publishing := services.NewPublishing(
				persistence,
				cmd.NewPusher(command.String("ergomate-url"), command.String("ergomate-api-key"), logger),
				notify.NewBusNotifier(eventBus),
				logger,
			)

			worker := NewWorkerManager(
				workerID,
				persistence,
				eventBus,
				publishing,
				command.String("retry-schedule"),
				command.Int("retry-batch"),
				logger,
			)

			err = worker.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)
			}

			return nil
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
