package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nobody-social/nobody-api/internal/models"
)

const feedPageSize = 50

// PostRepository persists feed posts and replies.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (models.Post, error)
	ListByCity(ctx context.Context, city models.City, limit int) ([]models.Post, error)
	ListReplies(ctx context.Context, parentID string, limit int) ([]models.Post, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository constructs a post repository backed by GORM.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create stores the post and, for replies, bumps the parent's reply counter in
// the same transaction.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		if post.ParentID != nil {
			return tx.Model(&models.Post{}).
				Where("id = ?", *post.ParentID).
				UpdateColumn("replies_count", gorm.Expr("replies_count + 1")).Error
		}
		return nil
	})
}

func (r *postRepository) GetByID(ctx context.Context, id string) (models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, "id = ?", id).Error; err != nil {
		return models.Post{}, err
	}
	return post, nil
}

// ListByCity returns top-level unexpired posts for the city, newest first.
func (r *postRepository) ListByCity(ctx context.Context, city models.City, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > feedPageSize {
		limit = feedPageSize
	}

	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("city = ? AND parent_id IS NULL AND expires_at > ?", city, time.Now().UTC()).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// ListReplies returns the replies to a post, oldest first.
func (r *postRepository) ListReplies(ctx context.Context, parentID string, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > feedPageSize {
		limit = feedPageSize
	}

	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("parent_id = ? AND expires_at > ?", parentID, time.Now().UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// DeleteExpired purges posts whose expiry has passed along with their likes.
func (r *postRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id IN (?)",
			tx.Model(&models.Post{}).Select("id").Where("expires_at <= ?", now),
		).Delete(&models.Like{}).Error; err != nil {
			return err
		}

		result := tx.Where("expires_at <= ?", now).Delete(&models.Post{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	return deleted, err
}
