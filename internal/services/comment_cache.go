package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/co-razer/docs-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	recentCommentsResource = "comments:recent"
	recentCommentsTTL      = 5 * time.Minute
)

// CachedCommentStore serves the site-wide recent comments list from Redis.
// Every write that can change that list bumps its generation, so a cached
// list is never served after a write has completed.
type CachedCommentStore struct {
	*CommentStore
	cache  *Cache
	logger *slog.Logger
}

func NewCachedCommentStore(store *CommentStore, cache *Cache, logger *slog.Logger) *CachedCommentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedCommentStore{CommentStore: store, cache: cache, logger: logger}
}

func (s *CachedCommentStore) GetRecent(ctx context.Context, limit int64) ([]models.Comment, error) {
	if limit <= 0 {
		limit = DefaultRecentCommentLimit
	}
	gen, err := s.cache.Generation(ctx, recentCommentsResource)
	if err != nil {
		s.logger.Warn("cache generation unavailable", "error", err)
		return s.CommentStore.GetRecent(ctx, limit)
	}

	key := CacheKey(recentCommentsResource, gen, limit)
	var comments []models.Comment
	if s.cache.Get(ctx, key, &comments) {
		return comments, nil
	}

	comments, err = s.CommentStore.GetRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, comments, recentCommentsTTL); err != nil {
		s.logger.Warn("failed to cache recent comments", "error", err)
	}
	return comments, nil
}

func (s *CachedCommentStore) Create(ctx context.Context, in NewComment) (*models.Comment, error) {
	c, err := s.CommentStore.Create(ctx, in)
	s.invalidate(ctx, err == nil)
	return c, err
}

func (s *CachedCommentStore) Update(ctx context.Context, id string, userID primitive.ObjectID, content string) (*models.Comment, error) {
	c, err := s.CommentStore.Update(ctx, id, userID, content)
	s.invalidate(ctx, err == nil && c != nil)
	return c, err
}

func (s *CachedCommentStore) Delete(ctx context.Context, id string, userID primitive.ObjectID) (bool, error) {
	ok, err := s.CommentStore.Delete(ctx, id, userID)
	s.invalidate(ctx, err == nil && ok)
	return ok, err
}

func (s *CachedCommentStore) AddReply(ctx context.Context, id string, in NewReply) (*models.Comment, error) {
	c, err := s.CommentStore.AddReply(ctx, id, in)
	s.invalidate(ctx, err == nil && c != nil)
	return c, err
}

func (s *CachedCommentStore) ToggleLike(ctx context.Context, id string, userID primitive.ObjectID) (*LikeResult, error) {
	res, err := s.CommentStore.ToggleLike(ctx, id, userID)
	s.invalidate(ctx, err == nil && res != nil)
	return res, err
}

func (s *CachedCommentStore) invalidate(ctx context.Context, changed bool) {
	if !changed {
		return
	}
	if err := s.cache.Bump(ctx, recentCommentsResource); err != nil {
		s.logger.Warn("failed to invalidate recent comments cache", "error", err)
	}
}
