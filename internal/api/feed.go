package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/hellofit/fitledger/internal/feed"
)

// FeedAPI serves the community feed methods.
type FeedAPI struct {
	feed *feed.Service
}

// NewFeedAPI creates feed method handlers.
func NewFeedAPI(svc *feed.Service) *FeedAPI {
	return &FeedAPI{feed: svc}
}

type createPostParams struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Text     string `json:"text"`
}

type postParams struct {
	UserID string `json:"user_id"`
	PostID string `json:"post_id"`
}

type commentParams struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	PostID   string `json:"post_id"`
	Text     string `json:"text"`
}

// ListPosts returns the latest feed page, newest first.
func (a *FeedAPI) ListPosts(c *gin.Context, params json.RawMessage) (interface{}, error) {
	posts, err := a.feed.ListPosts(c.Request.Context())
	if err != nil {
		return nil, err
	}
	return gin.H{"posts": posts}, nil
}

// CreatePost publishes a text post.
func (a *FeedAPI) CreatePost(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p createPostParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	id, err := a.feed.CreateTextPost(c.Request.Context(), p.UserID, p.Username, p.Text)
	if err != nil {
		return nil, err
	}
	return gin.H{"id": id}, nil
}

// ShareMeals publishes today's meal totals.
func (a *FeedAPI) ShareMeals(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p createPostParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	id, err := a.feed.ShareMeals(c.Request.Context(), p.UserID, p.Username)
	if err != nil {
		return nil, err
	}
	return gin.H{"id": id}, nil
}

// ShareWorkout publishes today's workout summary.
func (a *FeedAPI) ShareWorkout(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p createPostParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	id, err := a.feed.ShareWorkout(c.Request.Context(), p.UserID, p.Username)
	if err != nil {
		return nil, err
	}
	return gin.H{"id": id}, nil
}

// ToggleLike flips the caller's like on a post.
func (a *FeedAPI) ToggleLike(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p postParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.PostID == "" {
		return nil, NewError(ErrInvalidParams, "post_id is required")
	}
	liked, err := a.feed.ToggleLike(c.Request.Context(), p.PostID, p.UserID)
	if err != nil {
		return nil, err
	}
	return gin.H{"liked": liked}, nil
}

// AddComment appends a comment to a post.
func (a *FeedAPI) AddComment(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p commentParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.PostID == "" {
		return nil, NewError(ErrInvalidParams, "post_id is required")
	}
	id, err := a.feed.AddComment(c.Request.Context(), p.PostID, p.UserID, p.Username, p.Text)
	if err != nil {
		return nil, err
	}
	return gin.H{"id": id}, nil
}

// ListComments returns a post's comments, oldest first.
func (a *FeedAPI) ListComments(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p postParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.PostID == "" {
		return nil, NewError(ErrInvalidParams, "post_id is required")
	}
	comments, err := a.feed.ListComments(c.Request.Context(), p.PostID)
	if err != nil {
		return nil, err
	}
	return gin.H{"comments": comments}, nil
}
