package service

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nobody-social/nobody-api/internal/dto"
	"github.com/nobody-social/nobody-api/internal/models"
	"github.com/nobody-social/nobody-api/internal/repository"
)

func newTestChatService(t *testing.T, db *gorm.DB) ChatService {
	t.Helper()
	return NewChatService(
		repository.NewRoomRepository(db),
		repository.NewMessageRepository(db),
		nil,
		"",
		nil,
		newTestValidator(),
		zerolog.Nop(),
	)
}

func createTestRoom(t *testing.T, svc ChatService, userID string, city models.City) dto.RoomResponse {
	t.Helper()
	room, err := svc.CreateRoom(context.Background(), userID, dto.RoomCreateRequest{
		City: string(city),
		Name: "general",
		Type: models.RoomTypePublic,
	})
	require.NoError(t, err)
	return room
}

func TestChatServiceCreateRoomEnrollsCreator(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestChatService(t, db)
	creator := createServiceProfile(t, db, models.CitySF)

	room := createTestRoom(t, svc, creator.ID, models.CitySF)
	require.Equal(t, 1, room.ParticipantCount)
	require.Equal(t, models.RoomTypePublic, room.Type)

	rooms, err := svc.ListRooms(context.Background(), models.CitySF, creator.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, room.ID, rooms[0].ID)
}

func TestChatServiceSendMessageValidation(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestChatService(t, db)
	sender := createServiceProfile(t, db, models.CitySF)
	room := createTestRoom(t, svc, sender.ID, models.CitySF)

	_, err := svc.SendMessage(context.Background(), room.ID, sender.ID, "   ")
	require.ErrorIs(t, err, ErrEmptyContent)

	atLimit := strings.Repeat("b", maxMessageLength)
	msg, err := svc.SendMessage(context.Background(), room.ID, sender.ID, atLimit)
	require.NoError(t, err)
	require.Len(t, msg.Content, maxMessageLength)

	_, err = svc.SendMessage(context.Background(), room.ID, sender.ID, atLimit+"b")
	require.ErrorIs(t, err, ErrContentTooLong)

	_, err = svc.SendMessage(context.Background(), "00000000-0000-4000-8000-000000000000", sender.ID, "hello")
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestChatServiceSendMessageCarriesSender(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestChatService(t, db)
	sender := createServiceProfile(t, db, models.CitySF)
	room := createTestRoom(t, svc, sender.ID, models.CitySF)

	msg, err := svc.SendMessage(context.Background(), room.ID, sender.ID, "anyone around?")
	require.NoError(t, err)
	require.NotNil(t, msg.Sender)
	require.Equal(t, sender.PersonaName, msg.Sender.PersonaName)

	info, err := svc.RoomInfo(context.Background(), room.ID)
	require.NoError(t, err)
	require.False(t, info.LastMessageAt.IsZero())
}

func TestChatServiceHistoryOldestFirst(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestChatService(t, db)
	sender := createServiceProfile(t, db, models.CitySF)
	room := createTestRoom(t, svc, sender.ID, models.CitySF)

	for _, content := range []string{"first", "second", "third"} {
		_, err := svc.SendMessage(context.Background(), room.ID, sender.ID, content)
		require.NoError(t, err)
	}

	history, err := svc.History(context.Background(), dto.ChatHistoryQuery{RoomID: room.ID})
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, "first", history[0].Content)
	require.Equal(t, "third", history[2].Content)
}

func TestChatHubDeduplicatesByMessageID(t *testing.T) {
	hub := newChatHub(zerolog.Nop())
	client := &chatClient{
		send:    make(chan dto.ChatOutboundFrame, 4),
		options: ChatConnectionOptions{RoomID: "room-1", UserID: "user-1"},
		closed:  make(chan struct{}),
	}
	hub.register(client)

	msg := dto.MessageResponse{ID: "msg-1", RoomID: "room-1", Content: "hi"}
	hub.broadcastMessage("room-1", msg)
	hub.broadcastMessage("room-1", msg)

	require.Len(t, client.send, 1)
	delivered := <-client.send
	require.Equal(t, dto.ChatFrameMessage, delivered.Type)
	require.Equal(t, "msg-1", delivered.Message.ID)
}

func TestRecentRingEvictsOldIDs(t *testing.T) {
	ring := newRecentRing(2)
	require.True(t, ring.add("a"))
	require.False(t, ring.add("a"))
	require.True(t, ring.add("b"))
	require.True(t, ring.add("c")) // evicts "a"
	require.True(t, ring.add("a"))
}

func TestPresenceRegistryTypingExcludesSelf(t *testing.T) {
	reg := newPresenceRegistry()
	reg.set("room-1", "sess-a", presenceEntry{UserID: "user-a", PersonaName: "Marina Artist", IsTyping: true})
	reg.set("room-1", "sess-b", presenceEntry{UserID: "user-b", PersonaName: "SOMA Developer", IsTyping: true})
	reg.set("room-1", "sess-c", presenceEntry{UserID: "user-c", PersonaName: "Golden Gate Runner", IsTyping: false})

	names := reg.typingNames("room-1", "user-a")
	require.ElementsMatch(t, []string{"SOMA Developer"}, names)

	names = reg.typingNames("room-1", "user-z")
	require.ElementsMatch(t, []string{"Marina Artist", "SOMA Developer"}, names)

	reg.clear("room-1", "sess-b")
	names = reg.typingNames("room-1", "user-z")
	require.ElementsMatch(t, []string{"Marina Artist"}, names)
}
