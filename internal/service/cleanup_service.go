package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nobody-social/nobody-api/internal/repository"
)

// CleanupService purges expired posts and messages. Content carries an expiry
// timestamp from creation; reads already filter on it, so this worker only
// reclaims storage.
type CleanupService interface {
	Start(ctx context.Context)
	RunOnce(ctx context.Context) error
}

type cleanupService struct {
	posts    repository.PostRepository
	messages repository.MessageRepository
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewCleanupService constructs the expired-content worker.
func NewCleanupService(posts repository.PostRepository, messages repository.MessageRepository, interval time.Duration, logger zerolog.Logger) CleanupService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &cleanupService{
		posts:    posts,
		messages: messages,
		interval: interval,
		logger:   logger.With().Str("component", "cleanup_service").Logger(),
		now:      time.Now,
	}
}

// Start runs the purge loop until the context is cancelled.
func (s *cleanupService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.RunOnce(ctx); err != nil {
					s.logger.Error().Err(err).Msg("cleanup pass failed")
				}
			}
		}
	}()
}

func (s *cleanupService) RunOnce(ctx context.Context) error {
	now := s.now().UTC()

	posts, err := s.posts.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}

	messages, err := s.messages.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}

	if posts > 0 || messages > 0 {
		s.logger.Info().Int64("posts", posts).Int64("messages", messages).Msg("expired content purged")
	}

	return nil
}
