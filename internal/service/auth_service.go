package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nobody-social/nobody-api/internal/dto"
	"github.com/nobody-social/nobody-api/internal/models"
	"github.com/nobody-social/nobody-api/internal/personas"
	"github.com/nobody-social/nobody-api/internal/repository"
)

// Auth errors surfaced to handlers.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidCity        = errors.New("unknown city")
)

// AuthService owns signup, login, and profile lookup. The persona is assigned
// exactly once at signup and never regenerated afterwards.
type AuthService interface {
	SignUp(ctx context.Context, payload dto.SignUpRequest) (dto.AuthResponse, error)
	Login(ctx context.Context, payload dto.LoginRequest) (dto.AuthResponse, error)
	Profile(ctx context.Context, userID string) (dto.ProfileResponse, error)
}

type authService struct {
	profiles  repository.ProfileRepository
	validator *validator.Validate
	secret    []byte
	tokenTTL  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs an auth service.
func NewAuthService(profiles repository.ProfileRepository, validate *validator.Validate, secret string, tokenTTL time.Duration, logger zerolog.Logger) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 72 * time.Hour
	}

	return &authService{
		profiles:  profiles,
		validator: validate,
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

func (s *authService) SignUp(ctx context.Context, payload dto.SignUpRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AuthResponse{}, err
	}

	city := models.City(payload.City)
	if !city.Valid() {
		return dto.AuthResponse{}, ErrInvalidCity
	}

	persona, err := personas.Random(city)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	traits, err := json.Marshal(persona.Traits)
	if err != nil {
		return dto.AuthResponse{}, err
	}
	topics, err := json.Marshal(persona.Topics)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	profile := models.Profile{
		Email:         strings.ToLower(strings.TrimSpace(payload.Email)),
		PasswordHash:  string(hash),
		PersonaID:     persona.ID,
		PersonaName:   persona.Name,
		PersonaEmoji:  persona.Emoji,
		PersonaBio:    persona.Bio,
		PersonaTraits: traits,
		PersonaTopics: topics,
		City:          city,
	}

	if err := s.profiles.Create(ctx, &profile); err != nil {
		if isDuplicateError(err) {
			return dto.AuthResponse{}, ErrEmailTaken
		}
		return dto.AuthResponse{}, err
	}

	token, err := s.signToken(profile.ID)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	s.logger.Info().
		Str("user_id", profile.ID).
		Str("persona_id", profile.PersonaID).
		Str("city", string(city)).
		Msg("account created")

	return dto.AuthResponse{Token: token, Profile: dto.NewProfileResponse(profile)}, nil
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AuthResponse{}, err
	}

	profile, err := s.profiles.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(payload.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AuthResponse{}, ErrInvalidCredentials
		}
		return dto.AuthResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(payload.Password)); err != nil {
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	token, err := s.signToken(profile.ID)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	return dto.AuthResponse{Token: token, Profile: dto.NewProfileResponse(profile)}, nil
}

func (s *authService) Profile(ctx context.Context, userID string) (dto.ProfileResponse, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	return dto.NewProfileResponse(profile), nil
}

func (s *authService) signToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": "nobody-api",
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func isDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
