package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/nobody-social/nobody-api/internal/dto"
	"github.com/nobody-social/nobody-api/internal/models"
	"github.com/nobody-social/nobody-api/internal/observability"
	"github.com/nobody-social/nobody-api/internal/repository"
)

const (
	maxMessageLength   = 500
	chatSendBufferSize = 32
)

// ErrRoomNotFound indicates the requested chat room does not exist.
var ErrRoomNotFound = errors.New("room not found")

// ChatConnectionOptions wraps metadata extracted during the HTTP upgrade.
type ChatConnectionOptions struct {
	UserID        string
	PersonaName   string
	RoomID        string
	CorrelationID string
	Context       context.Context
}

// ChatService manages chat rooms, message history, websocket delivery, and
// the ephemeral typing/presence channel.
type ChatService interface {
	ListRooms(ctx context.Context, city models.City, userID string) ([]dto.RoomResponse, error)
	CreateRoom(ctx context.Context, userID string, payload dto.RoomCreateRequest) (dto.RoomResponse, error)
	RoomInfo(ctx context.Context, roomID string) (dto.RoomResponse, error)
	History(ctx context.Context, query dto.ChatHistoryQuery) ([]dto.MessageResponse, error)
	SendMessage(ctx context.Context, roomID, senderID, content string) (dto.MessageResponse, error)
	MarkRead(ctx context.Context, roomID, userID string) error
	ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions)
	Start(ctx context.Context)
}

type chatService struct {
	rooms       repository.RoomRepository
	messages    repository.MessageRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	hub         *chatHub
	presence    *presenceRegistry
	nodeID      string
	now         func() time.Time
}

// chatEvent is the cross-node fan-out envelope for an inserted message. The
// payload is the notification, not authoritative state: receivers re-fetched
// the stored record before publishing it here.
type chatEvent struct {
	Source  string              `json:"source"`
	Message dto.MessageResponse `json:"message"`
	SentAt  time.Time           `json:"sent_at"`
}

// NewChatService creates a websocket chat service instance.
func NewChatService(rooms repository.RoomRepository, messages repository.MessageRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) ChatService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	streamChannel := ""
	natsSubject := ""
	if channelBase != "" {
		streamChannel = channelBase + ":chat"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".chat"
	}

	return &chatService{
		rooms:       rooms,
		messages:    messages,
		redis:       redisClient,
		redisStream: streamChannel,
		nats:        natsConn,
		natsSubject: natsSubject,
		validator:   validate,
		logger:      logger.With().Str("component", "chat_service").Logger(),
		tracer:      otel.Tracer("github.com/nobody-social/nobody-api/internal/service/chat"),
		sanitizer:   sanitizer,
		hub:         newChatHub(logger),
		presence:    newPresenceRegistry(),
		nodeID:      uuid.NewString(),
		now:         time.Now,
	}
}

func (s *chatService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *chatService) ListRooms(ctx context.Context, city models.City, userID string) ([]dto.RoomResponse, error) {
	if !city.Valid() {
		return nil, ErrInvalidCity
	}

	rooms, err := s.rooms.ListForUser(ctx, city, userID, 0)
	if err != nil {
		return nil, err
	}

	out := make([]dto.RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		count, err := s.rooms.ParticipantCount(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, dto.NewRoomResponse(room, count))
	}
	return out, nil
}

func (s *chatService) CreateRoom(ctx context.Context, userID string, payload dto.RoomCreateRequest) (dto.RoomResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RoomResponse{}, err
	}

	roomType := payload.Type
	if roomType == "" {
		roomType = models.RoomTypePublic
	}

	room := models.ChatRoom{
		City:      models.City(payload.City),
		Name:      strings.TrimSpace(s.sanitizer.Sanitize(payload.Name)),
		Type:      roomType,
		CreatedBy: userID,
	}

	if err := s.rooms.Create(ctx, &room); err != nil {
		return dto.RoomResponse{}, err
	}

	s.logger.Info().Str("room_id", room.ID).Str("city", payload.City).Str("type", roomType).Msg("chat room created")

	return dto.NewRoomResponse(room, 1), nil
}

func (s *chatService) RoomInfo(ctx context.Context, roomID string) (dto.RoomResponse, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RoomResponse{}, ErrRoomNotFound
		}
		return dto.RoomResponse{}, err
	}

	count, err := s.rooms.ParticipantCount(ctx, roomID)
	if err != nil {
		return dto.RoomResponse{}, err
	}

	return dto.NewRoomResponse(room, count), nil
}

func (s *chatService) History(ctx context.Context, query dto.ChatHistoryQuery) ([]dto.MessageResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	before := time.Time{}
	if query.Before != nil {
		before = *query.Before
	}

	messages, err := s.messages.ListByRoom(ctx, query.RoomID, before, query.Limit)
	if err != nil {
		return nil, err
	}

	return dto.NewMessageResponseSlice(messages), nil
}

// SendMessage validates, persists, and fans out a message. The broadcast is
// built from a re-fetch of the stored record so the sender profile rides along.
func (s *chatService) SendMessage(ctx context.Context, roomID, senderID, content string) (dto.MessageResponse, error) {
	clean := strings.TrimSpace(s.sanitizer.Sanitize(content))
	if clean == "" {
		return dto.MessageResponse{}, ErrEmptyContent
	}
	if utf8.RuneCountInString(clean) > maxMessageLength {
		return dto.MessageResponse{}, ErrContentTooLong
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MessageResponse{}, ErrRoomNotFound
		}
		return dto.MessageResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "chat.send_message", trace.WithAttributes(
		attribute.String("chat.room_id", roomID),
		attribute.String("chat.sender_id", senderID),
	))
	defer span.End()

	message := models.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  clean,
	}

	if err := s.messages.Save(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	if err := s.rooms.TouchActivity(spanCtx, roomID, message.CreatedAt); err != nil {
		s.logger.Warn().Err(err).Str("room_id", roomID).Msg("failed to bump room activity")
	}

	stored, err := s.messages.GetWithSender(spanCtx, message.ID)
	if err != nil {
		stored = message
	}
	response := dto.NewMessageResponse(stored)

	s.hub.broadcastMessage(roomID, response)
	if err := s.publish(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish chat event")
	}

	observability.ChatMessagesSent().WithLabelValues(room.Type).Inc()

	return response, nil
}

func (s *chatService) MarkRead(ctx context.Context, roomID, userID string) error {
	return s.rooms.MarkRead(ctx, roomID, userID, s.now().UTC())
}

func (s *chatService) ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	if _, err := s.rooms.GetByID(baseCtx, opts.RoomID); err != nil {
		_ = conn.WriteJSON(dto.ChatOutboundFrame{Type: dto.ChatFrameError, Error: "room not found"})
		_ = conn.Close()
		return
	}

	// Public rooms enroll on first connect; joining twice is a no-op.
	if err := s.rooms.Join(baseCtx, opts.RoomID, opts.UserID); err != nil {
		s.logger.Warn().Err(err).Str("room_id", opts.RoomID).Msg("failed to join room")
	}
	if err := s.MarkRead(baseCtx, opts.RoomID, opts.UserID); err != nil {
		s.logger.Warn().Err(err).Str("room_id", opts.RoomID).Msg("failed to advance read cursor")
	}

	client := &chatClient{
		conn:      conn,
		send:      make(chan dto.ChatOutboundFrame, chatSendBufferSize),
		options:   opts,
		service:   s,
		closed:    make(chan struct{}),
		sessionID: uuid.NewString(),
		baseCtx:   baseCtx,
	}

	s.hub.register(client)
	observability.ChatConnections().Inc()

	// Presence is announced on subscribe with the typing flag off, mirroring
	// how a session re-announces after any reconnect.
	s.presence.set(opts.RoomID, client.sessionID, presenceEntry{
		UserID:      opts.UserID,
		PersonaName: opts.PersonaName,
		IsTyping:    false,
	})
	s.broadcastTyping(opts.RoomID)

	go client.writer()
	client.reader()
}

func (s *chatService) setTyping(client *chatClient, isTyping bool) {
	s.presence.set(client.options.RoomID, client.sessionID, presenceEntry{
		UserID:      client.options.UserID,
		PersonaName: client.options.PersonaName,
		IsTyping:    isTyping,
	})
	s.broadcastTyping(client.options.RoomID)
}

// broadcastTyping pushes each connected client its own view of who is typing,
// which never includes the client itself.
func (s *chatService) broadcastTyping(roomID string) {
	s.hub.forEach(roomID, func(client *chatClient) {
		frame := dto.ChatOutboundFrame{
			Type:   dto.ChatFrameTyping,
			Typing: s.presence.typingNames(roomID, client.options.UserID),
		}
		select {
		case client.send <- frame:
		default:
		}
	})
}

func (s *chatService) disconnect(client *chatClient) {
	s.hub.unregister(client)
	s.presence.clear(client.options.RoomID, client.sessionID)
	s.broadcastTyping(client.options.RoomID)
	observability.ChatConnections().Dec()
}

func (s *chatService) publish(ctx context.Context, message dto.MessageResponse) error {
	event := chatEvent{
		Source:  s.nodeID,
		Message: message,
		SentAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *chatService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("chat redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *chatService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "nobody-chat", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats chat subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain chat nats subscription")
		}
	}()
}

func (s *chatService) handleEvent(data []byte) {
	var event chatEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid chat event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.hub.broadcastMessage(event.Message.RoomID, event.Message)
}

// chatHub keeps track of active websocket clients per room. Broadcasts are
// deduplicated by message id so a repeated insert notification cannot surface
// the same message twice.
type chatHub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*chatClient]struct{}
	recent map[string]*recentRing
	log    zerolog.Logger
}

func newChatHub(logger zerolog.Logger) *chatHub {
	return &chatHub{
		rooms:  make(map[string]map[*chatClient]struct{}),
		recent: make(map[string]*recentRing),
		log:    logger.With().Str("component", "chat_hub").Logger(),
	}
}

type chatClient struct {
	conn      *websocket.Conn
	send      chan dto.ChatOutboundFrame
	options   ChatConnectionOptions
	service   *chatService
	closed    chan struct{}
	once      sync.Once
	sessionID string
	baseCtx   context.Context
}

func (h *chatHub) register(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := client.options.RoomID
	if _, exists := h.rooms[room]; !exists {
		h.rooms[room] = make(map[*chatClient]struct{})
	}
	h.rooms[room][client] = struct{}{}
	h.log.Debug().Str("room_id", room).Str("user_id", client.options.UserID).Msg("chat client connected")
}

func (h *chatHub) unregister(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := client.options.RoomID
	if clients, ok := h.rooms[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
			delete(h.recent, room)
		}
	}
	h.log.Debug().Str("room_id", room).Str("user_id", client.options.UserID).Msg("chat client disconnected")
}

func (h *chatHub) broadcastMessage(roomID string, message dto.MessageResponse) {
	h.mu.Lock()
	ring, ok := h.recent[roomID]
	if !ok {
		ring = newRecentRing(64)
		h.recent[roomID] = ring
	}
	duplicate := !ring.add(message.ID)
	clients := make([]*chatClient, 0, len(h.rooms[roomID]))
	for client := range h.rooms[roomID] {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	if duplicate {
		h.log.Debug().Str("room_id", roomID).Str("message_id", message.ID).Msg("dropping duplicate chat event")
		return
	}

	frame := dto.ChatOutboundFrame{Type: dto.ChatFrameMessage, Message: &message}
	for _, client := range clients {
		select {
		case client.send <- frame:
		default:
			h.log.Warn().Str("room_id", roomID).Str("user_id", client.options.UserID).Msg("dropping chat message for slow client")
		}
	}
}

func (h *chatHub) forEach(roomID string, fn func(*chatClient)) {
	h.mu.RLock()
	clients := make([]*chatClient, 0, len(h.rooms[roomID]))
	for client := range h.rooms[roomID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		fn(client)
	}
}

// recentRing remembers the last n message ids seen in a room.
type recentRing struct {
	ids  []string
	seen map[string]struct{}
	next int
}

func newRecentRing(n int) *recentRing {
	return &recentRing{
		ids:  make([]string, n),
		seen: make(map[string]struct{}, n),
	}
}

// add records the id and reports whether it was new.
func (r *recentRing) add(id string) bool {
	if _, dup := r.seen[id]; dup {
		return false
	}
	if old := r.ids[r.next]; old != "" {
		delete(r.seen, old)
	}
	r.ids[r.next] = id
	r.seen[id] = struct{}{}
	r.next = (r.next + 1) % len(r.ids)
	return true
}

func (c *chatClient) reader() {
	defer c.close()

	connCtx := c.baseCtx
	if connCtx == nil {
		connCtx = context.Background()
	}

	for {
		var frame dto.ChatInboundFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			c.service.logger.Debug().Err(err).Msg("chat read loop ended")
			return
		}

		switch frame.Type {
		case dto.ChatFrameTyping:
			c.service.setTyping(c, frame.IsTyping)
		case dto.ChatFrameMessage:
			// Sending implies the typing indicator is gone.
			c.service.setTyping(c, false)
			if _, err := c.service.SendMessage(connCtx, c.options.RoomID, c.options.UserID, frame.Content); err != nil {
				c.service.logger.Warn().Err(err).Msg("failed to process chat message")
				select {
				case c.send <- dto.ChatOutboundFrame{Type: dto.ChatFrameError, Error: err.Error()}:
				default:
				}
				continue
			}
			if err := c.service.MarkRead(connCtx, c.options.RoomID, c.options.UserID); err != nil {
				c.service.logger.Debug().Err(err).Msg("failed to advance read cursor after send")
			}
		default:
			c.service.logger.Debug().Str("type", frame.Type).Msg("ignoring unknown chat frame")
		}
	}
}

func (c *chatClient) writer() {
	defer c.close()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *chatClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.disconnect(c)
		_ = c.conn.Close()
	})
}
