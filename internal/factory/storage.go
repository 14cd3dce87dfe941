package factory

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lorekeeper/lorekeeper/internal/config"
	"github.com/lorekeeper/lorekeeper/internal/graph"
	storepkg "github.com/lorekeeper/lorekeeper/internal/store"
	storen4j "github.com/lorekeeper/lorekeeper/internal/store/neo4j"
)

// NewStore connects to Neo4j and returns the graph-backed store.Store. The
// graph client is returned too so callers can wire health probes and close
// the driver on shutdown.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, *graph.Client, error) {
	client, err := graph.NewClient(ctx, graph.Config{
		URI:      cfg.Neo4jURI,
		User:     cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return storen4j.New(client, log), client, nil
}
