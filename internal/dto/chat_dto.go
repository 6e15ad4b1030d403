package dto

import (
	"time"

	"github.com/nobody-social/nobody-api/internal/models"
)

// RoomCreateRequest is the payload to open a new chat room.
type RoomCreateRequest struct {
	City string `json:"city" validate:"required,oneof=sf nyc austin"`
	Name string `json:"name" validate:"omitempty,max=128"`
	Type string `json:"type" validate:"omitempty,oneof=public private"`
}

// ChatHistoryQuery represents query filters for retrieving room history.
type ChatHistoryQuery struct {
	RoomID string     `query:"room_id" validate:"required,uuid4"`
	Before *time.Time `query:"before"`
	Limit  int        `query:"limit" validate:"omitempty,min=1,max=100"`
}

// MessageSendRequest is the payload carried by a websocket "message" frame.
type MessageSendRequest struct {
	Content string `json:"content" validate:"required,max=500"`
}

// RoomResponse is the serialized representation of a chat room.
type RoomResponse struct {
	ID               string      `json:"id"`
	City             models.City `json:"city"`
	Name             string      `json:"name"`
	Type             string      `json:"type"`
	CreatedBy        string      `json:"created_by"`
	ParticipantCount int         `json:"participant_count"`
	LastMessageAt    time.Time   `json:"last_message_at"`
	CreatedAt        time.Time   `json:"created_at"`
}

// MessageResponse is the serialized representation of a chat message.
type MessageResponse struct {
	ID        string           `json:"id"`
	RoomID    string           `json:"room_id"`
	SenderID  string           `json:"sender_id"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
	Sender    *ProfileResponse `json:"sender,omitempty"`
}

// Websocket frame types exchanged on a chat connection.
const (
	ChatFrameMessage  = "message"
	ChatFrameTyping   = "typing"
	ChatFramePresence = "presence"
	ChatFrameError    = "error"
)

// ChatInboundFrame is a client-to-server websocket frame.
type ChatInboundFrame struct {
	Type     string `json:"type" validate:"required,oneof=message typing"`
	Content  string `json:"content,omitempty"`
	IsTyping bool   `json:"is_typing,omitempty"`
}

// ChatOutboundFrame is a server-to-client websocket frame.
type ChatOutboundFrame struct {
	Type    string           `json:"type"`
	Message *MessageResponse `json:"message,omitempty"`
	Typing  []string         `json:"typing,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// MatchResponse is the result of a matchmaking call.
type MatchResponse struct {
	RoomID  string `json:"room_id"`
	Matched bool   `json:"matched"`
}

// NewRoomResponse converts a room model into a DTO.
func NewRoomResponse(room models.ChatRoom, participants int) RoomResponse {
	return RoomResponse{
		ID:               room.ID,
		City:             room.City,
		Name:             room.Name,
		Type:             room.Type,
		CreatedBy:        room.CreatedBy,
		ParticipantCount: participants,
		LastMessageAt:    room.LastMessageAt,
		CreatedAt:        room.CreatedAt,
	}
}

// NewMessageResponse converts a message model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	out := MessageResponse{
		ID:        message.ID,
		RoomID:    message.RoomID,
		SenderID:  message.SenderID,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
		ExpiresAt: message.ExpiresAt,
	}
	if message.Sender != nil {
		sender := NewProfileResponse(*message.Sender)
		out.Sender = &sender
	}
	return out
}

// NewMessageResponseSlice converts a slice of message models into DTOs.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}
