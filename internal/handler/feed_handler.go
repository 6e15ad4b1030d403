package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/nobody-social/nobody-api/internal/dto"
	"github.com/nobody-social/nobody-api/internal/middleware"
	"github.com/nobody-social/nobody-api/internal/models"
	"github.com/nobody-social/nobody-api/internal/service"
	"github.com/nobody-social/nobody-api/internal/utils"
)

// FeedHandler wires the city feed endpoints and the per-city change stream.
type FeedHandler struct {
	service service.FeedService
	logger  zerolog.Logger
}

// NewFeedHandler constructs a feed handler.
func NewFeedHandler(service service.FeedService, logger zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		service: service,
		logger:  logger.With().Str("component", "feed_handler").Logger(),
	}
}

// Register wires feed routes under the provided router group. Reads are open;
// mutations and the websocket stream require a session.
func (h *FeedHandler) Register(feed fiber.Router, posts fiber.Router, protect fiber.Handler) {
	feed.Get("/:city", h.listPosts)
	feed.Post("/:city/posts", protect, h.createPost)

	feed.Get("/:city/ws", protect, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, websocket.New(h.stream))

	posts.Get("/:id/replies", h.listReplies)
	posts.Post("/:id/like", protect, h.toggleLike)
}

func (h *FeedHandler) listPosts(c *fiber.Ctx) error {
	city, ok := cityParam(c, "city")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "unknown city")
	}

	posts, err := h.service.ListPosts(requestContext(c), city)
	if err != nil {
		h.logger.Error().Err(err).Str("city", string(city)).Msg("failed to list posts")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load feed")
	}

	return utils.SendSuccess(c, "city feed", posts)
}

func (h *FeedHandler) createPost(c *fiber.Ctx) error {
	city, ok := cityParam(c, "city")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "unknown city")
	}

	userID := middleware.UserID(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.PostCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	post, err := h.service.CreatePost(requestContext(c), userID, city, payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPostNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "parent post not found")
		case errors.Is(err, service.ErrEmptyContent), errors.Is(err, service.ErrContentTooLong), isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("failed to create post")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to create post")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "post created", post)
}

func (h *FeedHandler) listReplies(c *fiber.Ctx) error {
	postID := strings.TrimSpace(c.Params("id"))
	if postID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "post id required")
	}

	replies, err := h.service.ListReplies(requestContext(c), postID)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "post not found")
		}
		h.logger.Error().Err(err).Str("post_id", postID).Msg("failed to list replies")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load replies")
	}

	return utils.SendSuccess(c, "replies", replies)
}

func (h *FeedHandler) toggleLike(c *fiber.Ctx) error {
	postID := strings.TrimSpace(c.Params("id"))
	if postID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "post id required")
	}

	userID := middleware.UserID(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	result, err := h.service.ToggleLike(requestContext(c), userID, postID)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "post not found")
		}
		h.logger.Error().Err(err).Str("post_id", postID).Msg("failed to toggle like")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to toggle like")
	}

	return utils.SendSuccess(c, "like toggled", result)
}

// stream forwards feed change tokens for one city. Clients refetch the feed
// on receipt; the frames never carry post bodies.
func (h *FeedHandler) stream(conn *websocket.Conn) {
	city := models.City(strings.ToLower(strings.TrimSpace(conn.Params("city"))))
	if !city.Valid() {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "unknown city"))
		_ = conn.Close()
		return
	}

	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	events, stop, err := h.service.Subscribe(baseCtx, city)
	if err != nil {
		h.logger.Error().Err(err).Str("city", string(city)).Msg("failed to subscribe to feed events")
		_ = conn.Close()
		return
	}
	defer stop()

	// Reads only serve to detect the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-time.After(30 * time.Second):
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
