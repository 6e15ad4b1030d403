package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nobody-social/nobody-api/internal/models"
)

const messagePageSize = 100

// MessageRepository persists chat messages for history.
type MessageRepository interface {
	Save(ctx context.Context, message *models.Message) error
	// GetWithSender refetches a single message joined with its sender profile,
	// the read issued after an insert notification.
	GetWithSender(ctx context.Context, id string) (models.Message, error)
	// ListByRoom returns room history in creation order, oldest first.
	ListByRoom(ctx context.Context, roomID string, before time.Time, limit int) ([]models.Message, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Save(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) GetWithSender(ctx context.Context, id string) (models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).Preload("Sender").First(&message, "id = ?", id).Error; err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (r *messageRepository) ListByRoom(ctx context.Context, roomID string, before time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > messagePageSize {
		limit = messagePageSize
	}

	query := r.db.WithContext(ctx).Preload("Sender").Where("room_id = ?", roomID)
	if !before.IsZero() {
		query = query.Where("created_at < ?", before)
	}

	var messages []models.Message
	if err := query.Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse to chronological order ascending for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *messageRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.Message{})
	return result.RowsAffected, result.Error
}
