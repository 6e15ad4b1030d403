package dto

import (
	"time"

	"github.com/nobody-social/nobody-api/internal/models"
)

// PostCreateRequest is the payload to publish a post or a reply.
type PostCreateRequest struct {
	Content  string  `json:"content" validate:"required,max=280"`
	ParentID *string `json:"parent_id" validate:"omitempty,uuid4"`
}

// PostResponse is the serialized representation of a feed post.
type PostResponse struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	City         models.City      `json:"city"`
	Content      string           `json:"content"`
	ParentID     *string          `json:"parent_id,omitempty"`
	LikesCount   int              `json:"likes_count"`
	RepliesCount int              `json:"replies_count"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
	Author       *ProfileResponse `json:"author,omitempty"`
}

// LikeToggleResponse reports the resulting like state after a toggle.
type LikeToggleResponse struct {
	PostID     string `json:"post_id"`
	Liked      bool   `json:"liked"`
	LikesCount int    `json:"likes_count"`
}

// FeedEvent is the change token pushed on a city feed channel. It carries
// identifiers only; clients re-issue the feed query on receipt.
type FeedEvent struct {
	Event  string      `json:"event"`
	City   models.City `json:"city"`
	PostID string      `json:"post_id"`
	SentAt time.Time   `json:"sent_at"`
	Source string      `json:"source,omitempty"`
}

// Feed event names.
const (
	FeedEventPostCreated = "post_created"
	FeedEventPostLiked   = "post_liked"
)

// NewPostResponse converts a post model into a DTO.
func NewPostResponse(post models.Post) PostResponse {
	out := PostResponse{
		ID:           post.ID,
		UserID:       post.UserID,
		City:         post.City,
		Content:      post.Content,
		ParentID:     post.ParentID,
		LikesCount:   post.LikesCount,
		RepliesCount: post.RepliesCount,
		CreatedAt:    post.CreatedAt,
		ExpiresAt:    post.ExpiresAt,
	}
	if post.Author != nil {
		author := NewProfileResponse(*post.Author)
		out.Author = &author
	}
	return out
}

// NewPostResponseSlice converts a slice of post models into DTOs.
func NewPostResponseSlice(posts []models.Post) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		out = append(out, NewPostResponse(post))
	}
	return out
}
