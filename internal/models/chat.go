package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageTTL is how long a chat message stays visible before cleanup may purge it.
const MessageTTL = 24 * time.Hour

// Room types.
const (
	RoomTypePublic  = "public"
	RoomTypePrivate = "private"
	RoomTypeMatch   = "match"
)

// ChatRoom is a conversation scoped to a city (public rooms) or to its
// participants (private and match rooms).
type ChatRoom struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	City          City      `gorm:"size:16;index" json:"city"`
	Name          string    `gorm:"size:128" json:"name"`
	Type          string    `gorm:"size:16;not null;default:public" json:"type"`
	CreatedBy     string    `gorm:"type:uuid;index" json:"created_by"`
	LastMessageAt time.Time `gorm:"index" json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// BeforeCreate fills the UUID key and seeds last activity at creation time.
func (r *ChatRoom) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.LastMessageAt.IsZero() {
		r.LastMessageAt = time.Now().UTC()
	}
	return nil
}

// ChatParticipant is a (room, user) membership record. LastReadAt is the read
// cursor; it only ever moves forward.
type ChatParticipant struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID     string    `gorm:"type:uuid;uniqueIndex:idx_participants_room_user;not null" json:"room_id"`
	UserID     string    `gorm:"type:uuid;uniqueIndex:idx_participants_room_user;index;not null" json:"user_id"`
	LastReadAt time.Time `json:"last_read_at"`
	JoinedAt   time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (p *ChatParticipant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Message is a single ephemeral chat payload within a room.
type Message struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID    string    `gorm:"type:uuid;index;not null" json:"room_id"`
	SenderID  string    `gorm:"type:uuid;index;not null" json:"sender_id"`
	Content   string    `gorm:"size:500;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`

	Sender *Profile `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

// BeforeCreate fills the UUID key and the expiry timestamp.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.ExpiresAt.IsZero() {
		m.ExpiresAt = time.Now().UTC().Add(MessageTTL)
	}
	return nil
}
