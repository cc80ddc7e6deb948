package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edulab/orchestrator/pkg/cache"
	"github.com/edulab/orchestrator/pkg/ergomate"
	"github.com/edulab/orchestrator/pkg/workflow"
)

// NewPusher creates the Ergo-Mate client. Server errors are retried twice, one second apart.
func NewPusher(baseURL, apiKey string, logger *slog.Logger) *ergomate.Client {
	return ergomate.NewClient(baseURL, apiKey, logger,
		ergomate.WithRetry(ergomate.RetryConfig{Attempts: 3, Delay: time.Second}),
	)
}

// NewStatsCache connects to Redis when redisURL is set. Without a URL it returns no options.
func NewStatsCache(ctx context.Context, redisURL string, logger *slog.Logger) ([]workflow.Option, func() error, error) {
	if redisURL == "" {
		return nil, func() error { return nil }, nil
	}

	client, err := cache.NewClient(ctx, redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.InfoContext(ctx, "Workflow stats cache enabled")

	return []workflow.Option{workflow.WithStatsCache(cache.NewStatsCache(client, cache.DefaultStatsTTL))}, client.Close, nil
}
