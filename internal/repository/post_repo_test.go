package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nobody-social/nobody-api/internal/models"
)

func TestPostRepositoryCreateSetsDefaults(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	author := createTestProfile(t, db, models.CitySF)

	post := models.Post{UserID: author.ID, City: models.CitySF, Content: "hello city"}
	require.NoError(t, repo.Create(context.Background(), &post))

	require.NotEmpty(t, post.ID)
	require.Zero(t, post.LikesCount)
	require.Zero(t, post.RepliesCount)
	require.True(t, post.ExpiresAt.After(post.CreatedAt), "expiry must be strictly after creation")
}

func TestPostRepositoryListByCityTopLevelNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	author := createTestProfile(t, db, models.CitySF)

	older := models.Post{UserID: author.ID, City: models.CitySF, Content: "first"}
	require.NoError(t, repo.Create(context.Background(), &older))
	require.NoError(t, db.Model(&older).UpdateColumn("created_at", time.Now().Add(-time.Hour)).Error)

	newer := models.Post{UserID: author.ID, City: models.CitySF, Content: "second"}
	require.NoError(t, repo.Create(context.Background(), &newer))

	reply := models.Post{UserID: author.ID, City: models.CitySF, Content: "a reply", ParentID: &older.ID}
	require.NoError(t, repo.Create(context.Background(), &reply))

	elsewhere := models.Post{UserID: author.ID, City: models.CityNYC, Content: "other city"}
	require.NoError(t, repo.Create(context.Background(), &elsewhere))

	posts, err := repo.ListByCity(context.Background(), models.CitySF, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2, "replies and other cities are excluded")
	require.Equal(t, "second", posts[0].Content)
	require.Equal(t, "first", posts[1].Content)
	require.NotNil(t, posts[0].Author)
	require.Equal(t, "Marina Artist", posts[0].Author.PersonaName)
}

func TestPostRepositoryCreateReplyBumpsParentCounter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	author := createTestProfile(t, db, models.CityAustin)

	parent := models.Post{UserID: author.ID, City: models.CityAustin, Content: "taco talk"}
	require.NoError(t, repo.Create(context.Background(), &parent))

	reply := models.Post{UserID: author.ID, City: models.CityAustin, Content: "agreed", ParentID: &parent.ID}
	require.NoError(t, repo.Create(context.Background(), &reply))

	got, err := repo.GetByID(context.Background(), parent.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.RepliesCount)

	replies, err := repo.ListReplies(context.Background(), parent.ID, 0)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.Equal(t, "agreed", replies[0].Content)
}

func TestPostRepositoryExpiredPostsAreHiddenAndPurged(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	likeRepo := NewLikeRepository(db)
	author := createTestProfile(t, db, models.CitySF)

	post := models.Post{UserID: author.ID, City: models.CitySF, Content: "short lived"}
	require.NoError(t, repo.Create(context.Background(), &post))
	_, _, err := likeRepo.Toggle(context.Background(), author.ID, post.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(&post).UpdateColumn("expires_at", time.Now().Add(-time.Minute)).Error)

	posts, err := repo.ListByCity(context.Background(), models.CitySF, 0)
	require.NoError(t, err)
	require.Empty(t, posts)

	deleted, err := repo.DeleteExpired(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	var likes int64
	require.NoError(t, db.Model(&models.Like{}).Count(&likes).Error)
	require.Zero(t, likes, "likes of purged posts are removed")
}
