package factory

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lorekeeper/lorekeeper/internal/config"
	emb "github.com/lorekeeper/lorekeeper/internal/embeddings"
	"github.com/lorekeeper/lorekeeper/internal/embeddings/ollama"
	"github.com/lorekeeper/lorekeeper/internal/embeddings/openai"
)

// NewEmbeddingProvider creates an embedding provider based on config.
// Launches optional async warmup; returns provider immediately for fast startup.
func NewEmbeddingProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) emb.EmbeddingProvider {
	var provider emb.EmbeddingProvider

	switch cfg.EmbedProvider {
	case "openai":
		provider = openai.New(cfg.EmbedBaseURL, cfg.EmbedAPIKey, cfg.EmbedModel)
	case "", "ollama":
		provider = ollama.New(cfg.EmbedModel)
	default:
		log.Warn().Str("provider", cfg.EmbedProvider).Msg("unknown embedding provider; using ollama")
		provider = ollama.New(cfg.EmbedModel)
	}

	// Async warmup; don't block startup on a cold embedding backend.
	go func() {
		warmupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if vec, err := provider.Embed(warmupCtx, "factory-warmup-check"); err != nil || len(vec) == 0 {
			log.Warn().Err(err).Int("vec_len", len(vec)).
				Str("provider", cfg.EmbedProvider).Str("model", cfg.EmbedModel).
				Msg("embedding provider warmup failed")
		} else {
			log.Debug().Str("provider", cfg.EmbedProvider).Str("model", cfg.EmbedModel).
				Msg("embedding provider warmup completed")
		}
	}()

	return provider
}
