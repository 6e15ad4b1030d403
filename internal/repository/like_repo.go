package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nobody-social/nobody-api/internal/models"
)

// LikeRepository flips (user, post) like pairs and keeps the denormalized
// counter in step.
type LikeRepository interface {
	// Toggle inserts the like when absent and deletes it when present,
	// adjusting the post's likes_count in the same transaction. It returns the
	// resulting state and counter. Last call wins; there is no optimistic-lock
	// conflict detection.
	Toggle(ctx context.Context, userID, postID string) (liked bool, likesCount int, err error)
	Exists(ctx context.Context, userID, postID string) (bool, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository constructs a like repository backed by GORM.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Toggle(ctx context.Context, userID, postID string) (bool, int, error) {
	var liked bool
	var count int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		err := tx.Where("user_id = ? AND post_id = ?", userID, postID).First(&existing).Error

		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Post{}).
				Where("id = ? AND likes_count > 0", postID).
				UpdateColumn("likes_count", gorm.Expr("likes_count - 1")).Error; err != nil {
				return err
			}
			liked = false
		case errors.Is(err, gorm.ErrRecordNotFound):
			like := models.Like{UserID: userID, PostID: postID}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Post{}).
				Where("id = ?", postID).
				UpdateColumn("likes_count", gorm.Expr("likes_count + 1")).Error; err != nil {
				return err
			}
			liked = true
		default:
			return err
		}

		var post models.Post
		if err := tx.Select("likes_count").First(&post, "id = ?", postID).Error; err != nil {
			return err
		}
		count = post.LikesCount
		return nil
	})
	if err != nil {
		return false, 0, err
	}

	return liked, count, nil
}

func (r *likeRepository) Exists(ctx context.Context, userID, postID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&n).Error
	return n > 0, err
}
