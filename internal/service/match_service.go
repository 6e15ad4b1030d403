package service

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nobody-social/nobody-api/internal/dto"
	"github.com/nobody-social/nobody-api/internal/models"
	"github.com/nobody-social/nobody-api/internal/observability"
	"github.com/nobody-social/nobody-api/internal/repository"
)

// MatchService pairs users in the same city into anonymous chat rooms. The
// find-or-create step runs inside a single database transaction; concurrent
// callers in one city are serialized by a row lock, so two simultaneous
// seekers end up in the same room.
type MatchService interface {
	FindOrCreateMatch(ctx context.Context, city models.City, userID string) (dto.MatchResponse, error)
}

type matchService struct {
	rooms  repository.RoomRepository
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewMatchService constructs a matchmaking service.
func NewMatchService(rooms repository.RoomRepository, logger zerolog.Logger) MatchService {
	return &matchService{
		rooms:  rooms,
		logger: logger.With().Str("component", "match_service").Logger(),
		tracer: otel.Tracer("github.com/nobody-social/nobody-api/internal/service/match"),
	}
}

func (s *matchService) FindOrCreateMatch(ctx context.Context, city models.City, userID string) (dto.MatchResponse, error) {
	if !city.Valid() {
		return dto.MatchResponse{}, ErrInvalidCity
	}

	spanCtx, span := s.tracer.Start(ctx, "match.find_or_create", trace.WithAttributes(
		attribute.String("match.city", string(city)),
		attribute.String("match.user_id", userID),
	))
	defer span.End()

	roomID, matched, err := s.rooms.FindOrCreateMatch(spanCtx, city, userID)
	if err != nil {
		span.RecordError(err)
		observability.MatchRequests().WithLabelValues("error").Inc()
		return dto.MatchResponse{}, err
	}

	outcome := "waiting"
	if matched {
		outcome = "matched"
	}
	observability.MatchRequests().WithLabelValues(outcome).Inc()

	s.logger.Info().
		Str("room_id", roomID).
		Str("city", string(city)).
		Bool("matched", matched).
		Msg("matchmaking completed")

	return dto.MatchResponse{RoomID: roomID, Matched: matched}, nil
}
