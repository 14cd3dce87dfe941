// Package sync implements the change log protocol: ordered push batches
// dispatched per entity, since-timestamp pulls, and the embedding
// invalidation hook that watches applied batches.
package sync

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/lorekeeper/lorekeeper/internal/model"
	"github.com/lorekeeper/lorekeeper/internal/store"
)

// BatchObserver receives every applied push batch exactly once.
type BatchObserver interface {
	ObserveBatch(ctx context.Context, changes []model.Change)
}

// Service applies push batches and serves pulls. All operations resolve
// visibility through the store's ownership scoping; a change against an
// entity the caller cannot see is a silent no-op.
type Service struct {
	store         store.Store
	observer      BatchObserver
	retentionDays int
	log           zerolog.Logger
}

func NewService(st store.Store, observer BatchObserver, retentionDays int, log zerolog.Logger) *Service {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Service{
		store:         st,
		observer:      observer,
		retentionDays: retentionDays,
		log:           log.With().Str("component", "sync-service").Logger(),
	}
}

// Push applies changes in array order. A store-level failure aborts the
// remaining batch; changes already applied stay applied. The batch (or its
// applied prefix on failure) is handed to the observer exactly once.
func (s *Service) Push(ctx context.Context, scope store.Scope, changes []model.Change) error {
	applied := 0
	var pushErr error

	for i, c := range changes {
		if err := s.apply(ctx, scope, c); err != nil {
			pushErr = errors.Wrapf(err, "change %d (%s %s %s)", i, c.Op, c.Entity, c.EntityID)
			break
		}
		applied++
	}

	if s.observer != nil && applied > 0 {
		s.observer.ObserveBatch(ctx, changes[:applied])
	}

	if pushErr != nil {
		s.log.Error().Stack().Err(pushErr).
			Str("user_id", scope.UserID).Str("scope", scope.ScopeID).
			Int("applied", applied).Int("total", len(changes)).
			Msg("push batch aborted")
		return pushErr
	}
	s.log.Debug().Str("scope", scope.ScopeID).Int("changes", applied).Msg("push batch applied")
	return nil
}

func (s *Service) apply(ctx context.Context, scope store.Scope, c model.Change) error {
	switch c.Entity {
	case model.EntityNode:
		return s.applyNode(ctx, scope, c)
	case model.EntityEdge:
		return s.applyEdge(ctx, scope, c)
	case model.EntityFolders:
		return s.applyFolder(ctx, scope, c)
	case model.EntityChats:
		return s.applyChat(ctx, scope, c)
	case model.EntityChatMessages:
		return s.applyChatMessage(ctx, scope, c)
	default:
		s.log.Warn().Str("entity", c.Entity).Str("entity_id", c.EntityID).Msg("skipping unknown entity")
		return nil
	}
}

func (s *Service) applyNode(ctx context.Context, scope store.Scope, c model.Change) error {
	switch c.Op {
	case model.OpCreate, model.OpUpsert:
		return s.store.Nodes().Upsert(ctx, scope, c.EntityID, payloadString(c.Payload, "type"), c.Payload, c.Ts)
	case model.OpUpdate:
		return s.store.Nodes().Merge(ctx, scope, c.EntityID, c.Payload, c.Ts)
	case model.OpDelete:
		return s.store.Nodes().Delete(ctx, scope, c.EntityID)
	default:
		s.log.Warn().Str("op", c.Op).Str("entity_id", c.EntityID).Msg("skipping unknown node op")
		return nil
	}
}

func (s *Service) applyEdge(ctx context.Context, scope store.Scope, c model.Change) error {
	switch c.Op {
	case model.OpCreate, model.OpUpsert:
		relType := payloadString(c.Payload, "relType")
		fromID := payloadString(c.Payload, "fromId")
		toID := payloadString(c.Payload, "toId")
		return s.store.Edges().Upsert(ctx, scope, c.EntityID, relType, fromID, toID, c.Payload, c.Ts)
	case model.OpUpdate:
		return s.store.Edges().Merge(ctx, scope, c.EntityID, c.Payload, c.Ts)
	case model.OpDelete:
		return s.store.Edges().Delete(ctx, scope, c.EntityID)
	default:
		s.log.Warn().Str("op", c.Op).Str("entity_id", c.EntityID).Msg("skipping unknown edge op")
		return nil
	}
}

func (s *Service) applyFolder(ctx context.Context, scope store.Scope, c model.Change) error {
	switch c.Op {
	case model.OpCreate, model.OpUpsert, model.OpUpdate:
		return s.store.Folders().Upsert(ctx, scope, c.EntityID, c.Payload, c.Ts)
	case model.OpDelete:
		return s.store.Folders().Delete(ctx, scope, c.EntityID)
	default:
		s.log.Warn().Str("op", c.Op).Str("entity_id", c.EntityID).Msg("skipping unknown folder op")
		return nil
	}
}

func (s *Service) applyChat(ctx context.Context, scope store.Scope, c model.Change) error {
	switch c.Op {
	case model.OpCreate, model.OpUpsert, model.OpUpdate:
		return s.store.Chats().UpsertSession(ctx, scope, c.EntityID, c.Payload, c.Ts)
	case model.OpDelete:
		return s.store.Chats().DeleteSession(ctx, scope, c.EntityID)
	default:
		s.log.Warn().Str("op", c.Op).Str("entity_id", c.EntityID).Msg("skipping unknown chat op")
		return nil
	}
}

func (s *Service) applyChatMessage(ctx context.Context, scope store.Scope, c model.Change) error {
	switch c.Op {
	case model.OpCreate, model.OpUpsert:
		chatID := payloadString(c.Payload, "chatId")
		if chatID == "" {
			s.log.Warn().Str("entity_id", c.EntityID).Msg("chat message without chatId, skipping")
			return nil
		}
		return s.store.Chats().AppendMessage(ctx, scope, c.EntityID, chatID, c.Payload, c.Ts)
	case model.OpDelete:
		return s.store.Chats().DeleteMessage(ctx, scope, c.EntityID)
	default:
		// Messages are append-only; an update never lands.
		s.log.Warn().Str("op", c.Op).Str("entity_id", c.EntityID).Msg("skipping chat message op")
		return nil
	}
}

// PullNodes returns visible content nodes with updatedAt > sinceTs.
func (s *Service) PullNodes(ctx context.Context, scope store.Scope, sinceTs int64) ([]model.NodeProjection, error) {
	return s.store.Nodes().PullSince(ctx, scope, sinceTs)
}

// PullEdges returns visible edges with updatedAt > sinceTs.
func (s *Service) PullEdges(ctx context.Context, scope store.Scope, sinceTs int64) ([]model.EdgeProjection, error) {
	return s.store.Edges().PullSince(ctx, scope, sinceTs)
}

// PullFolders returns visible folders with updatedAt > sinceTs.
func (s *Service) PullFolders(ctx context.Context, scope store.Scope, sinceTs int64) ([]model.Folder, error) {
	return s.store.Folders().PullSince(ctx, scope, sinceTs)
}

// FolderTree returns the full folder snapshot with child and note summaries.
func (s *Service) FolderTree(ctx context.Context, scope store.Scope) ([]model.Folder, error) {
	return s.store.Folders().ListTree(ctx, scope)
}

// PullChats returns visible chat sessions with updatedAt > sinceTs.
func (s *Service) PullChats(ctx context.Context, scope store.Scope, sinceTs int64) ([]model.ChatSession, error) {
	return s.store.Chats().SessionsSince(ctx, scope, sinceTs)
}

// PullChatMessages returns visible chat messages created after sinceTs.
func (s *Service) PullChatMessages(ctx context.Context, scope store.Scope, sinceTs int64) ([]model.ChatMessage, error) {
	return s.store.Chats().MessagesSince(ctx, scope, sinceTs)
}

// Sidebar returns every visible content node, the same projection as
// PullNodes from the beginning of time.
func (s *Service) Sidebar(ctx context.Context, scope store.Scope) ([]model.NodeProjection, error) {
	return s.store.Nodes().PullSince(ctx, scope, -1)
}

// CleanupChats deletes the caller's chat sessions idle past the retention
// window, messages included.
func (s *Service) CleanupChats(ctx context.Context, scope store.Scope) (*model.CleanupReport, error) {
	return s.store.Chats().Cleanup(ctx, scope, s.retentionCutoff())
}

// CleanupStatus reports what a retention sweep would remove.
func (s *Service) CleanupStatus(ctx context.Context, scope store.Scope) (*model.CleanupStatus, error) {
	return s.store.Chats().CleanupStatus(ctx, scope, s.retentionCutoff())
}

func (s *Service) retentionCutoff() int64 {
	return time.Now().AddDate(0, 0, -s.retentionDays).UnixMilli()
}

func payloadString(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	v, _ := payload[key].(string)
	return v
}
