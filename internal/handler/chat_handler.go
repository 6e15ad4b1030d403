package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/nobody-social/nobody-api/internal/dto"
	"github.com/nobody-social/nobody-api/internal/middleware"
	"github.com/nobody-social/nobody-api/internal/models"
	"github.com/nobody-social/nobody-api/internal/repository"
	"github.com/nobody-social/nobody-api/internal/service"
	"github.com/nobody-social/nobody-api/internal/utils"
)

// ChatHandler wires chat endpoints including the websocket upgrade.
type ChatHandler struct {
	chat      service.ChatService
	match     service.MatchService
	auth      service.AuthService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(chat service.ChatService, match service.MatchService, auth service.AuthService, validate *validator.Validate, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		chat:      chat,
		match:     match,
		auth:      auth,
		validator: validate,
		logger:    logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group. All chat routes
// require a session; the feed is browsable anonymously, rooms are not.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Get("/rooms", h.listRooms)
	router.Post("/rooms", h.createRoom)
	router.Get("/rooms/:id", h.roomInfo)
	router.Get("/rooms/:id/messages", h.history)
	router.Post("/rooms/:id/read", h.markRead)
	router.Post("/match", h.findMatch)

	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *ChatHandler) listRooms(c *fiber.Ctx) error {
	city := models.City(strings.ToLower(strings.TrimSpace(c.Query("city"))))
	if !city.Valid() {
		return utils.SendError(c, fiber.StatusBadRequest, "unknown city")
	}

	rooms, err := h.chat.ListRooms(requestContext(c), city, middleware.UserID(c))
	if err != nil {
		h.logger.Error().Err(err).Str("city", string(city)).Msg("failed to list rooms")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load rooms")
	}

	return utils.SendSuccess(c, "chat rooms", rooms)
}

func (h *ChatHandler) createRoom(c *fiber.Ctx) error {
	var payload dto.RoomCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	room, err := h.chat.CreateRoom(requestContext(c), middleware.UserID(c), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		h.logger.Error().Err(err).Msg("failed to create room")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to create room")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "room created", room)
}

func (h *ChatHandler) roomInfo(c *fiber.Ctx) error {
	roomID := strings.TrimSpace(c.Params("id"))

	room, err := h.chat.RoomInfo(requestContext(c), roomID)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "room not found")
		}
		h.logger.Error().Err(err).Str("room_id", roomID).Msg("failed to load room")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load room")
	}

	return utils.SendSuccess(c, "room", room)
}

func (h *ChatHandler) history(c *fiber.Ctx) error {
	roomID := strings.TrimSpace(c.Params("id"))

	var beforePtr *time.Time
	if before := c.Query("before"); before != "" {
		parsed, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid before timestamp")
		}
		beforePtr = &parsed
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	query := dto.ChatHistoryQuery{
		RoomID: roomID,
		Before: beforePtr,
		Limit:  limit,
	}
	if err := h.validator.Struct(query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	messages, err := h.chat.History(requestContext(c), query)
	if err != nil {
		h.logger.Error().Err(err).Str("room_id", roomID).Msg("failed to load history")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load history")
	}

	return utils.SendSuccess(c, "chat history", messages)
}

func (h *ChatHandler) markRead(c *fiber.Ctx) error {
	roomID := strings.TrimSpace(c.Params("id"))

	if err := h.chat.MarkRead(requestContext(c), roomID, middleware.UserID(c)); err != nil {
		if errors.Is(err, repository.ErrNotParticipant) {
			return utils.SendError(c, fiber.StatusForbidden, "not a participant")
		}
		h.logger.Error().Err(err).Str("room_id", roomID).Msg("failed to mark room read")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to mark room read")
	}

	return utils.SendSuccess(c, "room marked read", nil)
}

func (h *ChatHandler) findMatch(c *fiber.Ctx) error {
	city := models.City(strings.ToLower(strings.TrimSpace(c.Query("city"))))
	if !city.Valid() {
		return utils.SendError(c, fiber.StatusBadRequest, "unknown city")
	}

	result, err := h.match.FindOrCreateMatch(requestContext(c), city, middleware.UserID(c))
	if err != nil {
		h.logger.Error().Err(err).Str("city", string(city)).Msg("matchmaking failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "matchmaking failed")
	}

	return utils.SendSuccess(c, "match result", result)
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	userID := websocketUserID(conn)
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "session required"))
		_ = conn.Close()
		return
	}

	roomID := strings.TrimSpace(conn.Query("room_id"))
	if roomID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "room_id required"))
		_ = conn.Close()
		return
	}

	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	personaName := ""
	if profile, err := h.auth.Profile(baseCtx, userID); err == nil {
		personaName = profile.PersonaName
	}

	opts := service.ChatConnectionOptions{
		UserID:        userID,
		PersonaName:   personaName,
		RoomID:        roomID,
		CorrelationID: fmt.Sprint(conn.Locals("correlation_id")),
		Context:       baseCtx,
	}

	h.logger.Info().Str("user_id", userID).Str("room_id", roomID).Msg("chat websocket connected")
	h.chat.ServeConnection(conn, opts)
	h.logger.Info().Str("user_id", userID).Str("room_id", roomID).Msg("chat websocket disconnected")
}

func websocketUserID(conn *websocket.Conn) string {
	if value := conn.Locals("user_id"); value != nil {
		if id, ok := value.(string); ok {
			return strings.TrimSpace(id)
		}
	}
	return ""
}
