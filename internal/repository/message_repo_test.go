package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nobody-social/nobody-api/internal/models"
)

func TestMessageRepositoryListByRoomOldestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	rooms := NewRoomRepository(db)
	sender := createTestProfile(t, db, models.CitySF)

	room := models.ChatRoom{City: models.CitySF, Type: models.RoomTypePublic, CreatedBy: sender.ID}
	require.NoError(t, rooms.Create(context.Background(), &room))

	first := models.Message{RoomID: room.ID, SenderID: sender.ID, Content: "first"}
	require.NoError(t, repo.Save(context.Background(), &first))
	require.NoError(t, db.Model(&first).UpdateColumn("created_at", time.Now().Add(-time.Minute)).Error)

	second := models.Message{RoomID: room.ID, SenderID: sender.ID, Content: "second"}
	require.NoError(t, repo.Save(context.Background(), &second))

	messages, err := repo.ListByRoom(context.Background(), room.ID, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "first", messages[0].Content)
	require.Equal(t, "second", messages[1].Content)
	require.NotNil(t, messages[0].Sender)
	require.Equal(t, sender.ID, messages[0].Sender.ID)
}

func TestMessageRepositorySaveSetsExpiry(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	sender := createTestProfile(t, db, models.CityNYC)

	message := models.Message{RoomID: "room", SenderID: sender.ID, Content: "hello"}
	require.NoError(t, repo.Save(context.Background(), &message))
	require.True(t, message.ExpiresAt.After(message.CreatedAt))

	got, err := repo.GetWithSender(context.Background(), message.ID)
	require.NoError(t, err)
	require.Equal(t, "hello", got.Content)
	require.NotNil(t, got.Sender)
}

func TestMessageRepositoryDeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	sender := createTestProfile(t, db, models.CityAustin)

	stale := models.Message{RoomID: "room", SenderID: sender.ID, Content: "old"}
	require.NoError(t, repo.Save(context.Background(), &stale))
	require.NoError(t, db.Model(&stale).UpdateColumn("expires_at", time.Now().Add(-time.Minute)).Error)

	fresh := models.Message{RoomID: "room", SenderID: sender.ID, Content: "new"}
	require.NoError(t, repo.Save(context.Background(), &fresh))

	deleted, err := repo.DeleteExpired(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	messages, err := repo.ListByRoom(context.Background(), "room", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "new", messages[0].Content)
}
