package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
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

const maxPostLength = 280

// Feed errors surfaced to handlers.
var (
	ErrEmptyContent   = errors.New("content must not be empty")
	ErrContentTooLong = errors.New("content exceeds the maximum length")
	ErrPostNotFound   = errors.New("post not found")
)

// FeedService owns the city feed: posts, replies, and like toggles. After any
// mutation it publishes a change token on the city channel; clients re-issue
// the read query rather than patching local state.
type FeedService interface {
	ListPosts(ctx context.Context, city models.City) ([]dto.PostResponse, error)
	ListReplies(ctx context.Context, postID string) ([]dto.PostResponse, error)
	CreatePost(ctx context.Context, userID string, city models.City, payload dto.PostCreateRequest) (dto.PostResponse, error)
	ToggleLike(ctx context.Context, userID, postID string) (dto.LikeToggleResponse, error)
	// Subscribe delivers feed change tokens for the city until cancel is called.
	Subscribe(ctx context.Context, city models.City) (<-chan dto.FeedEvent, func(), error)
}

type feedService struct {
	posts     repository.PostRepository
	likes     repository.LikeRepository
	redis     *redis.Client
	channel   string
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
	nodeID    string
}

// NewFeedService constructs a feed service.
func NewFeedService(posts repository.PostRepository, likes repository.LikeRepository, redisClient *redis.Client, channelBase string, validate *validator.Validate, logger zerolog.Logger) FeedService {
	channel := ""
	if channelBase != "" {
		channel = channelBase + ":feed"
	}

	return &feedService{
		posts:     posts,
		likes:     likes,
		redis:     redisClient,
		channel:   channel,
		validator: validate,
		logger:    logger.With().Str("component", "feed_service").Logger(),
		tracer:    otel.Tracer("github.com/nobody-social/nobody-api/internal/service/feed"),
		sanitizer: bluemonday.StrictPolicy(),
		nodeID:    uuid.NewString(),
	}
}

func (s *feedService) ListPosts(ctx context.Context, city models.City) ([]dto.PostResponse, error) {
	if !city.Valid() {
		return nil, ErrInvalidCity
	}

	posts, err := s.posts.ListByCity(ctx, city, 0)
	if err != nil {
		return nil, err
	}
	return dto.NewPostResponseSlice(posts), nil
}

func (s *feedService) ListReplies(ctx context.Context, postID string) ([]dto.PostResponse, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	replies, err := s.posts.ListReplies(ctx, postID, 0)
	if err != nil {
		return nil, err
	}
	return dto.NewPostResponseSlice(replies), nil
}

func (s *feedService) CreatePost(ctx context.Context, userID string, city models.City, payload dto.PostCreateRequest) (dto.PostResponse, error) {
	if !city.Valid() {
		return dto.PostResponse{}, ErrInvalidCity
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.PostResponse{}, err
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return dto.PostResponse{}, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > maxPostLength {
		return dto.PostResponse{}, ErrContentTooLong
	}

	if payload.ParentID != nil {
		if _, err := s.posts.GetByID(ctx, *payload.ParentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.PostResponse{}, ErrPostNotFound
			}
			return dto.PostResponse{}, err
		}
	}

	spanCtx, span := s.tracer.Start(ctx, "feed.create_post", trace.WithAttributes(
		attribute.String("feed.city", string(city)),
		attribute.String("feed.user_id", userID),
	))
	defer span.End()

	post := models.Post{
		UserID:   userID,
		City:     city,
		Content:  content,
		ParentID: payload.ParentID,
	}

	if err := s.posts.Create(spanCtx, &post); err != nil {
		span.RecordError(err)
		return dto.PostResponse{}, err
	}

	observability.PostsCreated().WithLabelValues(string(city)).Inc()
	s.publish(spanCtx, dto.FeedEvent{
		Event:  dto.FeedEventPostCreated,
		City:   city,
		PostID: post.ID,
	})

	// Re-read so the response carries the joined author, matching what a feed
	// reload would return.
	stored, err := s.posts.GetByID(spanCtx, post.ID)
	if err != nil {
		return dto.NewPostResponse(post), nil
	}
	return dto.NewPostResponse(stored), nil
}

func (s *feedService) ToggleLike(ctx context.Context, userID, postID string) (dto.LikeToggleResponse, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LikeToggleResponse{}, ErrPostNotFound
		}
		return dto.LikeToggleResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "feed.toggle_like", trace.WithAttributes(
		attribute.String("feed.post_id", postID),
		attribute.String("feed.user_id", userID),
	))
	defer span.End()

	liked, count, err := s.likes.Toggle(spanCtx, userID, postID)
	if err != nil {
		span.RecordError(err)
		return dto.LikeToggleResponse{}, err
	}

	state := "unliked"
	if liked {
		state = "liked"
	}
	observability.LikesToggled().WithLabelValues(state).Inc()

	s.publish(spanCtx, dto.FeedEvent{
		Event:  dto.FeedEventPostLiked,
		City:   post.City,
		PostID: postID,
	})

	return dto.LikeToggleResponse{PostID: postID, Liked: liked, LikesCount: count}, nil
}

func (s *feedService) Subscribe(ctx context.Context, city models.City) (<-chan dto.FeedEvent, func(), error) {
	if !city.Valid() {
		return nil, nil, ErrInvalidCity
	}
	if s.redis == nil || s.channel == "" {
		return nil, nil, errors.New("feed subscriptions require redis")
	}

	subCtx, cancel := context.WithCancel(ctx)
	pubsub := s.redis.Subscribe(subCtx, s.cityChannel(city))
	events := make(chan dto.FeedEvent, 16)

	go func() {
		defer close(events)
		for {
			msg, err := pubsub.ReceiveMessage(subCtx)
			if err != nil {
				return
			}

			var event dto.FeedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.logger.Warn().Err(err).Msg("invalid feed event payload")
				continue
			}

			select {
			case events <- event:
			case <-subCtx.Done():
				return
			}
		}
	}()

	stop := func() {
		cancel()
		_ = pubsub.Close()
	}
	return events, stop, nil
}

func (s *feedService) publish(ctx context.Context, event dto.FeedEvent) {
	if s.redis == nil || s.channel == "" {
		return
	}

	event.SentAt = time.Now().UTC()
	event.Source = s.nodeID

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal feed event")
		return
	}

	if err := s.redis.Publish(ctx, s.cityChannel(event.City), payload).Err(); err != nil {
		s.logger.Warn().Err(err).Str("city", string(event.City)).Msg("failed to publish feed event")
	}
}

func (s *feedService) cityChannel(city models.City) string {
	return fmt.Sprintf("%s:%s", s.channel, city)
}
