// Package embedworker owns the background worker lifecycle.
package embedworker

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/lorekeeper/lorekeeper/internal/config"
	emb "github.com/lorekeeper/lorekeeper/internal/embeddings"
	"github.com/lorekeeper/lorekeeper/internal/factory"
	"github.com/lorekeeper/lorekeeper/internal/logger"
	"github.com/lorekeeper/lorekeeper/internal/queue"
)

// Run starts the task worker and blocks until shutdown or error.
func Run() error {
	log := logger.New("embed-worker")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("redis_addr", cfg.RedisAddr).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Msg("Embed worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, client, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Graph store unavailable")
		return err
	}
	defer func() { _ = client.Close(context.Background()) }()

	provider := factory.NewEmbeddingProvider(ctx, cfg, log)
	if provider == nil {
		return fmt.Errorf("embedding provider not configured")
	}
	tracker := emb.NewTracker(st, provider, log)

	worker := queue.NewWorker(cfg.RedisAddr, tracker, st, log)

	errCh := make(chan error, 1)
	go func() { errCh <- worker.Run() }()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down worker")
		worker.Shutdown()
		log.Info().Msg("Worker exited")
		return nil
	case err := <-errCh:
		if err != nil {
			log.Error().Stack().Err(err).Msg("Worker failed")
		}
		return err
	}
}
