// Package embeddings keeps node embeddings consistent with node content.
// The tracker fingerprints the embeddable text and re-embeds only when the
// stored fingerprint no longer matches.
package embeddings

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/lorekeeper/lorekeeper/internal/model"
	"github.com/lorekeeper/lorekeeper/internal/store"
)

// Fingerprint hashes the embeddable content of a node. Title and markdown
// are joined with a newline so a change in either invalidates the vector.
func Fingerprint(title, markdown string) string {
	sum := md5.Sum([]byte(title + "\n" + markdown))
	return hex.EncodeToString(sum[:])
}

// NeedsReembedding decides whether a node's vector is stale. A node with no
// vector always needs one. A node with a vector but no stored hash is
// treated as current; the hash backfills on the next content change.
func NeedsReembedding(nc *model.NodeContent) bool {
	if !nc.HasVector {
		return true
	}
	if nc.ContentHash == "" {
		return false
	}
	return nc.ContentHash != Fingerprint(nc.Title, nc.Markdown)
}

// Tracker re-embeds stale nodes through an EmbeddingProvider and records
// the content fingerprint alongside each vector.
type Tracker struct {
	store    store.Store
	provider EmbeddingProvider
	log      zerolog.Logger
}

func NewTracker(s store.Store, provider EmbeddingProvider, log zerolog.Logger) *Tracker {
	return &Tracker{
		store:    s,
		provider: provider,
		log:      log.With().Str("component", "embed-tracker").Logger(),
	}
}

// UpdateOne re-embeds a single node if its content changed since the last
// embedding. force bypasses the staleness check.
func (t *Tracker) UpdateOne(ctx context.Context, nodeID string, force bool) (*model.EmbedResult, error) {
	nc, err := t.store.Embeddings().GetContent(ctx, nodeID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return &model.EmbedResult{NodeID: nodeID, Message: "node not found", Error: "node not found"}, nil
		}
		return nil, errors.Wrap(err, "load node content")
	}

	hash := Fingerprint(nc.Title, nc.Markdown)
	if !force && !NeedsReembedding(nc) {
		return &model.EmbedResult{NodeID: nodeID, Message: "no content change"}, nil
	}

	vector, err := t.provider.Embed(ctx, nc.Title+"\n"+nc.Markdown)
	if err != nil {
		t.log.Warn().Err(err).Str("node_id", nodeID).Msg("embedding provider failed")
		return &model.EmbedResult{NodeID: nodeID, Error: err.Error()}, nil
	}

	if err := t.store.Embeddings().PutVector(ctx, nodeID, vector, hash, time.Now().UnixMilli()); err != nil {
		return nil, errors.Wrap(err, "store vector")
	}

	t.log.Debug().Str("node_id", nodeID).Msg("node re-embedded")
	return &model.EmbedResult{NodeID: nodeID, Message: "embedding updated", Updated: true}, nil
}

// Progress is reported after each node during a batch run. report may be nil.
type Progress func(done, total int)

// UpdateMany re-embeds a set of nodes, collecting per-node failures instead
// of aborting the batch.
func (t *Tracker) UpdateMany(ctx context.Context, nodeIDs []string, force bool, report Progress) (*model.BatchEmbedResult, error) {
	res := &model.BatchEmbedResult{Errors: []string{}}
	for i, id := range nodeIDs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		one, err := t.UpdateOne(ctx, id, force)
		if err != nil {
			return res, err
		}
		res.Processed++
		switch {
		case one.Error != "":
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", id, one.Error))
		case one.Updated:
			res.Updated++
		default:
			res.Skipped++
		}
		if report != nil {
			report(i+1, len(nodeIDs))
		}
	}
	res.Message = fmt.Sprintf("processed %d nodes: %d updated, %d skipped, %d failed",
		res.Processed, res.Updated, res.Skipped, len(res.Errors))
	return res, nil
}

// UpdateCampaign re-embeds every node visible in a scope.
func (t *Tracker) UpdateCampaign(ctx context.Context, scope store.Scope, force bool, report Progress) (*model.BatchEmbedResult, error) {
	ids, err := t.store.Embeddings().VisibleNodeIDs(ctx, scope)
	if err != nil {
		return nil, errors.Wrap(err, "list visible nodes")
	}
	t.log.Info().Str("scope", scope.ScopeID).Int("nodes", len(ids)).Bool("force", force).
		Msg("re-embedding scope")
	return t.UpdateMany(ctx, ids, force, report)
}

// EmbedMissing embeds up to limit nodes in the scope that have no vector at
// all. limit <= 0 means no cap.
func (t *Tracker) EmbedMissing(ctx context.Context, scope store.Scope, limit int, report Progress) (*model.BatchEmbedResult, error) {
	ids, err := t.store.Embeddings().MissingNodeIDs(ctx, scope, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list missing nodes")
	}
	return t.UpdateMany(ctx, ids, false, report)
}

// Status reports embedding coverage for a scope.
func (t *Tracker) Status(ctx context.Context, scope store.Scope) (*model.EmbeddingStatus, error) {
	return t.store.Embeddings().Status(ctx, scope)
}
