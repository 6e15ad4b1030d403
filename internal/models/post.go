package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostTTL is how long a post stays visible before the cleanup worker may purge it.
const PostTTL = 24 * time.Hour

// Post is an ephemeral text update on a city feed. A post with a ParentID is a
// reply and never appears at the top level of the feed.
type Post struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string    `gorm:"type:uuid;index;not null" json:"user_id"`
	City         City      `gorm:"size:16;index;not null" json:"city"`
	Content      string    `gorm:"size:280;not null" json:"content"`
	ParentID     *string   `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	LikesCount   int       `gorm:"not null;default:0" json:"likes_count"`
	RepliesCount int       `gorm:"not null;default:0" json:"replies_count"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `gorm:"index;not null" json:"expires_at"`

	Author *Profile `gorm:"foreignKey:UserID" json:"author,omitempty"`
}

// BeforeCreate fills the UUID key and the expiry timestamp. Expiry is always
// strictly after creation.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.ExpiresAt.IsZero() {
		p.ExpiresAt = time.Now().UTC().Add(PostTTL)
	}
	return nil
}

// Like records that a user liked a post. Existence is the whole state: liking
// inserts a row, unliking deletes it. The (user, post) pair is unique.
type Like struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;uniqueIndex:idx_likes_user_post;not null" json:"user_id"`
	PostID    string    `gorm:"type:uuid;uniqueIndex:idx_likes_user_post;index;not null" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
