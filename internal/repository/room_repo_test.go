package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nobody-social/nobody-api/internal/models"
)

func TestRoomRepositoryCreateEnrollsCreator(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	creator := createTestProfile(t, db, models.CitySF)

	room := models.ChatRoom{City: models.CitySF, Name: "Mission Chat", Type: models.RoomTypePublic, CreatedBy: creator.ID}
	require.NoError(t, repo.Create(context.Background(), &room))

	count, err := repo.ParticipantCount(context.Background(), room.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	member, err := repo.IsParticipant(context.Background(), room.ID, creator.ID)
	require.NoError(t, err)
	require.True(t, member)
}

func TestRoomRepositoryListForUserMixesPublicAndPrivate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	user := createTestProfile(t, db, models.CitySF)
	other := createTestProfile(t, db, models.CitySF)

	public := models.ChatRoom{City: models.CitySF, Name: "SF Public", Type: models.RoomTypePublic, CreatedBy: other.ID}
	require.NoError(t, repo.Create(context.Background(), &public))

	private := models.ChatRoom{City: models.CitySF, Name: "Secret", Type: models.RoomTypePrivate, CreatedBy: user.ID}
	require.NoError(t, repo.Create(context.Background(), &private))

	foreignPrivate := models.ChatRoom{City: models.CitySF, Name: "Not Yours", Type: models.RoomTypePrivate, CreatedBy: other.ID}
	require.NoError(t, repo.Create(context.Background(), &foreignPrivate))

	rooms, err := repo.ListForUser(context.Background(), models.CitySF, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	ids := []string{rooms[0].ID, rooms[1].ID}
	require.Contains(t, ids, public.ID)
	require.Contains(t, ids, private.ID)
}

func TestRoomRepositoryReadCursorOnlyMovesForward(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	user := createTestProfile(t, db, models.CityNYC)

	room := models.ChatRoom{City: models.CityNYC, Type: models.RoomTypePublic, CreatedBy: user.ID}
	require.NoError(t, repo.Create(context.Background(), &room))

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.MarkRead(context.Background(), room.ID, user.ID, now))

	// A stale cursor write is ignored.
	require.NoError(t, repo.MarkRead(context.Background(), room.ID, user.ID, now.Add(-time.Hour)))

	var participant models.ChatParticipant
	require.NoError(t, db.First(&participant, "room_id = ? AND user_id = ?", room.ID, user.ID).Error)
	require.False(t, participant.LastReadAt.Before(now))

	later := now.Add(time.Minute)
	require.NoError(t, repo.MarkRead(context.Background(), room.ID, user.ID, later))
	require.NoError(t, db.First(&participant, "room_id = ? AND user_id = ?", room.ID, user.ID).Error)
	require.Equal(t, later.Unix(), participant.LastReadAt.UTC().Unix())
}

func TestRoomRepositoryMarkReadRequiresMembership(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	user := createTestProfile(t, db, models.CityNYC)
	stranger := createTestProfile(t, db, models.CityNYC)

	room := models.ChatRoom{City: models.CityNYC, Type: models.RoomTypePublic, CreatedBy: user.ID}
	require.NoError(t, repo.Create(context.Background(), &room))

	err := repo.MarkRead(context.Background(), room.ID, stranger.ID, time.Now().UTC())
	require.ErrorIs(t, err, ErrNotParticipant)
}

func TestRoomRepositoryFindOrCreateMatchPairsTwoCallers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	first := createTestProfile(t, db, models.CityAustin)
	second := createTestProfile(t, db, models.CityAustin)

	roomID, matched, err := repo.FindOrCreateMatch(context.Background(), models.CityAustin, first.ID)
	require.NoError(t, err)
	require.False(t, matched, "first caller waits")
	require.NotEmpty(t, roomID)

	otherID, matched, err := repo.FindOrCreateMatch(context.Background(), models.CityAustin, second.ID)
	require.NoError(t, err)
	require.True(t, matched, "second caller joins the waiting room")
	require.Equal(t, roomID, otherID)

	count, err := repo.ParticipantCount(context.Background(), roomID)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestRoomRepositoryFindOrCreateMatchIsReentrant(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	user := createTestProfile(t, db, models.CitySF)

	roomID, matched, err := repo.FindOrCreateMatch(context.Background(), models.CitySF, user.ID)
	require.NoError(t, err)
	require.False(t, matched)

	again, matched, err := repo.FindOrCreateMatch(context.Background(), models.CitySF, user.ID)
	require.NoError(t, err)
	require.False(t, matched)
	require.Equal(t, roomID, again, "re-entrant caller gets the same waiting room")
}

func TestRoomRepositoryMatchScopedByCity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	sf := createTestProfile(t, db, models.CitySF)
	nyc := createTestProfile(t, db, models.CityNYC)

	sfRoom, _, err := repo.FindOrCreateMatch(context.Background(), models.CitySF, sf.ID)
	require.NoError(t, err)

	nycRoom, matched, err := repo.FindOrCreateMatch(context.Background(), models.CityNYC, nyc.ID)
	require.NoError(t, err)
	require.False(t, matched, "waiting rooms in other cities are invisible")
	require.NotEqual(t, sfRoom, nycRoom)
}
