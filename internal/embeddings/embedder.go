package embeddings

import "context"

// EmbeddingProvider produces a fixed-dimension vector for text. The
// embedding service itself is an external collaborator; implementations
// live in subpackages.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
