package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hellofit/fitledger/internal/cache"
	"github.com/hellofit/fitledger/internal/ledger"
	"github.com/hellofit/fitledger/internal/models"
	"github.com/hellofit/fitledger/internal/store"
	"github.com/hellofit/fitledger/pkg/logging"
)

// feedCollection holds the global community feed, readable by everyone.
const feedCollection = "communityPosts"

// feedPageLimit caps the feed at the latest posts.
const feedPageLimit = 100

// feedCacheKey is the cached rendering of the latest feed page.
const feedCacheKey = "feed:latest"

// ErrPostNotFound is returned when a like or comment targets a missing post.
var ErrPostNotFound = errors.New("post not found")

func likesCollection(postID string) string {
	return feedCollection + "/" + postID + "/likes"
}

func commentsCollection(postID string) string {
	return feedCollection + "/" + postID + "/comments"
}

// Service owns the community feed: posts, likes and comments. The
// likes/comments counters on each post are co-updated with their child
// records inside a store transaction, so the rendered counts never drift
// from the records underneath.
type Service struct {
	store   store.Store
	cache   *cache.Cache
	feedTTL time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewService wires a feed service. cache may be nil (caching disabled).
func NewService(st store.Store, c *cache.Cache, feedTTL time.Duration) *Service {
	return &Service{
		store:   st,
		cache:   c,
		feedTTL: feedTTL,
		now:     time.Now,
		logger:  logging.WithComponent("feed"),
	}
}

// SetClock overrides the time source. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// ListPosts returns the latest posts, newest first. The page is served from
// Redis when fresh; every cache error is treated as a miss.
func (s *Service) ListPosts(ctx context.Context) ([]models.Post, error) {
	if cached, err := s.cache.Get(feedCacheKey); err == nil {
		var posts []models.Post
		if err := json.Unmarshal([]byte(cached), &posts); err == nil {
			return posts, nil
		}
	}

	docs, err := s.store.Query(ctx, feedCollection, nil,
		&store.Order{Field: store.CreatedAtField, Desc: true}, feedPageLimit)
	if err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}
	posts := make([]models.Post, 0, len(docs))
	for _, doc := range docs {
		posts = append(posts, models.PostFromDocument(doc))
	}

	if b, err := json.Marshal(posts); err == nil {
		if err := s.cache.Set(feedCacheKey, string(b), s.feedTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
			s.logger.Warn("feed cache write failed", zap.Error(err))
		}
	}
	return posts, nil
}

// SubscribeFeed opens a live feed over the latest posts, newest first.
func (s *Service) SubscribeFeed(ctx context.Context) (*store.Subscription, error) {
	return s.store.Subscribe(ctx, feedCollection, nil,
		&store.Order{Field: store.CreatedAtField, Desc: true})
}

// CreateTextPost publishes a plain text post.
func (s *Service) CreateTextPost(ctx context.Context, userID, username, text string) (string, error) {
	if userID == "" {
		return "", ledger.ErrNotAuthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("post text is empty")
	}
	return s.createPost(ctx, userID, username, models.PostTypeText, text, map[string]interface{}{})
}

// ShareMeals publishes today's meal totals as a MEALS post.
func (s *Service) ShareMeals(ctx context.Context, userID, username string) (string, error) {
	if userID == "" {
		return "", ledger.ErrNotAuthenticated
	}
	today := ledger.EpochDay(s.now())
	docs, err := s.store.Query(ctx, ledger.DomainMeals.LogCollection(userID),
		[]store.Filter{{Field: "dateEpochDay", Op: store.OpEqual, Value: today}}, nil, 0)
	if err != nil {
		return "", fmt.Errorf("load today's meals: %w", err)
	}
	totals := ledger.SumMacros(models.EntriesFromDocuments(docs), nil)
	payload := map[string]interface{}{
		"kcal":    totals.Kcal,
		"protein": totals.Protein,
		"carbs":   totals.Carbs,
		"fat":     totals.Fat,
	}
	return s.createPost(ctx, userID, username, models.PostTypeMeals, "", payload)
}

// ShareWorkout publishes today's workout energy and session names as a
// WORKOUT post.
func (s *Service) ShareWorkout(ctx context.Context, userID, username string) (string, error) {
	if userID == "" {
		return "", ledger.ErrNotAuthenticated
	}
	today := ledger.EpochDay(s.now())
	docs, err := s.store.Query(ctx, ledger.DomainWorkouts.LogCollection(userID),
		[]store.Filter{{Field: "dateEpochDay", Op: store.OpEqual, Value: today}}, nil, 0)
	if err != nil {
		return "", fmt.Errorf("load today's workouts: %w", err)
	}
	entries := models.EntriesFromDocuments(docs)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name != "" {
			names = append(names, e.Name)
		}
	}
	payload := map[string]interface{}{
		"kcal":     ledger.SumWorkoutKcal(entries, nil),
		"workouts": names,
	}
	return s.createPost(ctx, userID, username, models.PostTypeWorkout, "", payload)
}

func (s *Service) createPost(ctx context.Context, userID, username string, typ models.PostType, text string, payload map[string]interface{}) (string, error) {
	if username == "" {
		username = "User"
	}
	fields := map[string]interface{}{
		"userId":        userID,
		"username":      username,
		"type":          string(typ),
		"text":          text,
		"payload":       payload,
		"likesCount":    int64(0),
		"commentsCount": int64(0),
	}
	id, err := s.store.Add(ctx, feedCollection, fields)
	if err != nil {
		return "", fmt.Errorf("create %s post: %w", typ, err)
	}
	s.invalidateFeed()
	s.logger.Debug("post created",
		zap.String("post_id", id),
		zap.String("user_id", userID),
		zap.String("type", string(typ)))
	return id, nil
}

// ToggleLike flips the caller's like on a post inside one transaction: the
// per-user like record and the post's likesCount move together. Returns
// whether the post is liked after the call.
func (s *Service) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	if userID == "" {
		return false, ledger.ErrNotAuthenticated
	}
	liked := false
	err := s.store.RunTransaction(ctx, func(tx store.Tx) error {
		likeDoc, err := tx.Get(likesCollection(postID), userID)
		if err != nil {
			return err
		}
		postDoc, err := tx.Get(feedCollection, postID)
		if err != nil {
			return err
		}
		if postDoc == nil {
			return ErrPostNotFound
		}
		cur, _ := models.AsInt64(postDoc.Fields["likesCount"])

		if likeDoc != nil {
			tx.Delete(likesCollection(postID), userID)
			tx.Update(feedCollection, postID, map[string]interface{}{"likesCount": cur - 1})
			liked = false
		} else {
			tx.Set(likesCollection(postID), userID, map[string]interface{}{
				"userId":             userID,
				store.CreatedAtField: s.now().UnixMilli(),
			})
			tx.Update(feedCollection, postID, map[string]interface{}{"likesCount": cur + 1})
			liked = true
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("toggle like on %s: %w", postID, err)
	}
	s.invalidateFeed()
	return liked, nil
}

// AddComment appends a comment and bumps the post's commentsCount in one
// transaction.
func (s *Service) AddComment(ctx context.Context, postID, userID, username, text string) (string, error) {
	if userID == "" {
		return "", ledger.ErrNotAuthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("comment text is empty")
	}
	if username == "" {
		username = "User"
	}
	commentID := uuid.NewString()
	err := s.store.RunTransaction(ctx, func(tx store.Tx) error {
		postDoc, err := tx.Get(feedCollection, postID)
		if err != nil {
			return err
		}
		if postDoc == nil {
			return ErrPostNotFound
		}
		cur, _ := models.AsInt64(postDoc.Fields["commentsCount"])

		tx.Set(commentsCollection(postID), commentID, map[string]interface{}{
			"userId":             userID,
			"username":           username,
			"text":               text,
			store.CreatedAtField: s.now().UnixMilli(),
		})
		tx.Update(feedCollection, postID, map[string]interface{}{"commentsCount": cur + 1})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("comment on %s: %w", postID, err)
	}
	s.invalidateFeed()
	return commentID, nil
}

// ListComments returns a post's comments, oldest first.
func (s *Service) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	docs, err := s.store.Query(ctx, commentsCollection(postID), nil,
		&store.Order{Field: store.CreatedAtField}, 0)
	if err != nil {
		return nil, fmt.Errorf("load comments for %s: %w", postID, err)
	}
	comments := make([]models.Comment, 0, len(docs))
	for _, doc := range docs {
		comments = append(comments, models.CommentFromDocument(doc))
	}
	return comments, nil
}

func (s *Service) invalidateFeed() {
	if err := s.cache.Delete(feedCacheKey); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("feed cache invalidation failed", zap.Error(err))
	}
}
