package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hellofit/fitledger/internal/ledger"
	"github.com/hellofit/fitledger/internal/models"
	"github.com/hellofit/fitledger/internal/store"
)

func newTestService() (*Service, *store.Memory) {
	at := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	mem.SetClock(func() time.Time { return at })
	s := NewService(mem, nil, 0)
	s.SetClock(func() time.Time { return at })
	return s, mem
}

func TestCreateTextPost(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	id, err := s.CreateTextPost(ctx, "u1", "alice", "hello world")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatalf("empty post id")
	}

	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("feed has %d posts, want 1", len(posts))
	}
	p := posts[0]
	if p.Type != models.PostTypeText || p.Text != "hello world" || p.Username != "alice" {
		t.Errorf("post = %+v", p)
	}
	if p.LikesCount != 0 || p.CommentsCount != 0 {
		t.Errorf("counters not zero: %+v", p)
	}
	if p.CreatedAt == 0 {
		t.Errorf("createdAt not stamped")
	}
}

func TestCreateTextPostValidation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	if _, err := s.CreateTextPost(ctx, "", "alice", "hi"); !errors.Is(err, ledger.ErrNotAuthenticated) {
		t.Errorf("missing user: got %v", err)
	}
	if _, err := s.CreateTextPost(ctx, "u1", "alice", "   "); err == nil {
		t.Errorf("blank text accepted")
	}
}

func TestListPostsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestService()

	// Explicit createdAt values so ordering does not depend on the clock.
	for i, ts := range []int64{100, 300, 200} {
		if _, err := mem.Add(ctx, feedCollection, map[string]interface{}{
			"userId": "u1", "type": "TEXT", "text": "post", "createdAt": ts, "n": i,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("feed has %d posts, want 3", len(posts))
	}
	for i := 1; i < len(posts); i++ {
		if posts[i].CreatedAt > posts[i-1].CreatedAt {
			t.Fatalf("feed not newest-first: %v", posts)
		}
	}
}

func TestShareMealsAggregatesToday(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestService()
	today := ledger.EpochDay(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	seed := []map[string]interface{}{
		{"name": "Oats & Banana", "kcal": 350, "protein": 12, "carbs": 60, "fat": 7, "dateEpochDay": today},
		{"name": "Paneer Wrap", "kcal": 480, "protein": 24, "carbs": 45, "fat": 22, "dateEpochDay": today},
		{"name": "Old meal", "kcal": 999, "dateEpochDay": today - 1},
	}
	for _, fields := range seed {
		if _, err := mem.Add(ctx, ledger.DomainMeals.LogCollection("u1"), fields); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	if _, err := s.ShareMeals(ctx, "u1", "alice"); err != nil {
		t.Fatalf("share: %v", err)
	}
	posts, _ := s.ListPosts(ctx)
	if len(posts) != 1 {
		t.Fatalf("feed has %d posts, want 1", len(posts))
	}
	p := posts[0]
	if p.Type != models.PostTypeMeals {
		t.Fatalf("type = %v, want MEALS", p.Type)
	}
	if kcal, _ := models.AsInt(p.Payload["kcal"]); kcal != 830 {
		t.Errorf("payload kcal = %v, want 830", p.Payload["kcal"])
	}
	if protein, _ := models.AsInt(p.Payload["protein"]); protein != 36 {
		t.Errorf("payload protein = %v, want 36", p.Payload["protein"])
	}
}

func TestShareWorkoutListsSessions(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestService()
	today := ledger.EpochDay(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	for _, fields := range []map[string]interface{}{
		{"name": "Push Day", "kcal": 220, "dateEpochDay": today},
		{"name": "HIIT Fat Burn", "kcal": 132, "dateEpochDay": today},
	} {
		if _, err := mem.Add(ctx, ledger.DomainWorkouts.LogCollection("u1"), fields); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	if _, err := s.ShareWorkout(ctx, "u1", "alice"); err != nil {
		t.Fatalf("share: %v", err)
	}
	posts, _ := s.ListPosts(ctx)
	p := posts[0]
	if p.Type != models.PostTypeWorkout {
		t.Fatalf("type = %v, want WORKOUT", p.Type)
	}
	if kcal, _ := models.AsInt(p.Payload["kcal"]); kcal != 352 {
		t.Errorf("payload kcal = %v, want 352", p.Payload["kcal"])
	}
	names := models.AsStringList(p.Payload["workouts"])
	if len(names) != 2 {
		t.Errorf("payload workouts = %v, want two names", p.Payload["workouts"])
	}
}

func TestToggleLikeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestService()

	postID, err := s.CreateTextPost(ctx, "u1", "alice", "like me")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	liked, err := s.ToggleLike(ctx, postID, "u2")
	if err != nil || !liked {
		t.Fatalf("first toggle: liked=%v err=%v", liked, err)
	}
	doc, _ := mem.Get(ctx, feedCollection, postID)
	if n, _ := models.AsInt64(doc.Fields["likesCount"]); n != 1 {
		t.Fatalf("likesCount = %d after like, want 1", n)
	}
	likeDoc, _ := mem.Get(ctx, likesCollection(postID), "u2")
	if likeDoc == nil {
		t.Fatalf("like record missing")
	}

	liked, err = s.ToggleLike(ctx, postID, "u2")
	if err != nil || liked {
		t.Fatalf("second toggle: liked=%v err=%v", liked, err)
	}
	doc, _ = mem.Get(ctx, feedCollection, postID)
	if n, _ := models.AsInt64(doc.Fields["likesCount"]); n != 0 {
		t.Fatalf("likesCount = %d after unlike, want 0", n)
	}
	likeDoc, _ = mem.Get(ctx, likesCollection(postID), "u2")
	if likeDoc != nil {
		t.Fatalf("like record still present after unlike")
	}
}

func TestToggleLikeMissingPost(t *testing.T) {
	s, _ := newTestService()
	if _, err := s.ToggleLike(context.Background(), "nope", "u1"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("got %v, want ErrPostNotFound", err)
	}
}

func TestAddCommentBumpsCounter(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestService()

	postID, err := s.CreateTextPost(ctx, "u1", "alice", "discuss")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.AddComment(ctx, postID, "u2", "bob", "nice"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if _, err := s.AddComment(ctx, postID, "u3", "", "agreed"); err != nil {
		t.Fatalf("comment: %v", err)
	}

	doc, _ := mem.Get(ctx, feedCollection, postID)
	if n, _ := models.AsInt64(doc.Fields["commentsCount"]); n != 2 {
		t.Fatalf("commentsCount = %d, want 2", n)
	}

	comments, err := s.ListComments(ctx, postID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("got %d comments, want 2", len(comments))
	}
	if comments[0].Text != "nice" || comments[1].Text != "agreed" {
		t.Errorf("comments out of order: %+v", comments)
	}
	if comments[1].Username != "User" {
		t.Errorf("missing username should default to User, got %q", comments[1].Username)
	}

	if _, err := s.AddComment(ctx, postID, "u2", "bob", "  "); err == nil {
		t.Errorf("blank comment accepted")
	}
	if _, err := s.AddComment(ctx, "nope", "u2", "bob", "hi"); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("missing post: got %v", err)
	}
}

func TestSubscribeFeedDeliversNewPosts(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	sub, err := s.SubscribeFeed(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	// Initial empty snapshot.
	select {
	case docs := <-sub.Updates():
		if len(docs) != 0 {
			t.Fatalf("initial snapshot has %d docs, want 0", len(docs))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no initial snapshot")
	}

	if _, err := s.CreateTextPost(ctx, "u1", "alice", "hello"); err != nil {
		t.Fatalf("create: %v", err)
	}
	select {
	case docs := <-sub.Updates():
		if len(docs) != 1 {
			t.Fatalf("snapshot has %d docs, want 1", len(docs))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no update after post")
	}
}
