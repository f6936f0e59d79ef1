package models

import (
	"github.com/hellofit/fitledger/internal/store"
)

// PostType discriminates community post payloads.
type PostType string

// Community post types.
const (
	PostTypeText     PostType = "TEXT"
	PostTypeMeals    PostType = "MEALS"
	PostTypeWorkout  PostType = "WORKOUT"
	PostTypeProgress PostType = "PROGRESS"
)

// Post is one community feed item. LikesCount and CommentsCount are
// transactionally co-maintained with the like/comment records underneath
// the post.
type Post struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"userId"`
	Username      string                 `json:"username"`
	Type          PostType               `json:"type"`
	Text          string                 `json:"text,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
	LikesCount    int64                  `json:"likesCount"`
	CommentsCount int64                  `json:"commentsCount"`
	CreatedAt     int64                  `json:"createdAt"`
}

// PostFromDocument decodes a community post, defaulting like the mobile
// clients did: unknown type renders as TEXT, missing username as "User".
func PostFromDocument(doc *store.Document) Post {
	p := Post{ID: doc.ID, Type: PostTypeText, Username: "User"}
	if s, ok := AsString(doc.Fields["userId"]); ok {
		p.UserID = s
	}
	if s, ok := AsString(doc.Fields["username"]); ok && s != "" {
		p.Username = s
	}
	if s, ok := AsString(doc.Fields["type"]); ok && s != "" {
		p.Type = PostType(s)
	}
	if s, ok := AsString(doc.Fields["text"]); ok {
		p.Text = s
	}
	if payload, ok := doc.Fields["payload"].(map[string]interface{}); ok {
		p.Payload = payload
	} else {
		p.Payload = map[string]interface{}{}
	}
	if n, ok := AsInt64(doc.Fields["likesCount"]); ok {
		p.LikesCount = n
	}
	if n, ok := AsInt64(doc.Fields["commentsCount"]); ok {
		p.CommentsCount = n
	}
	if ts, ok := AsInt64(doc.Fields[store.CreatedAtField]); ok {
		p.CreatedAt = ts
	}
	return p
}

// Comment is one comment on a post.
type Comment struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// CommentFromDocument decodes a comment record.
func CommentFromDocument(doc *store.Document) Comment {
	c := Comment{ID: doc.ID, Username: "User"}
	if s, ok := AsString(doc.Fields["userId"]); ok {
		c.UserID = s
	}
	if s, ok := AsString(doc.Fields["username"]); ok && s != "" {
		c.Username = s
	}
	if s, ok := AsString(doc.Fields["text"]); ok {
		c.Text = s
	}
	if ts, ok := AsInt64(doc.Fields[store.CreatedAtField]); ok {
		c.CreatedAt = ts
	}
	return c
}
