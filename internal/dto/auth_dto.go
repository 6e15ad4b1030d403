package dto

import (
	"encoding/json"
	"time"

	"github.com/nobody-social/nobody-api/internal/models"
)

// SignUpRequest is the payload to create an account. The persona is assigned
// server-side; callers only choose a city.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	City     string `json:"city" validate:"required,oneof=sf nyc austin"`
}

// LoginRequest is the payload to authenticate an existing account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// ProfileResponse is the serialized anonymous identity of an account.
type ProfileResponse struct {
	ID            string      `json:"id"`
	PersonaID     string      `json:"persona_id"`
	PersonaName   string      `json:"persona_name"`
	PersonaEmoji  string      `json:"persona_emoji"`
	PersonaBio    string      `json:"persona_bio"`
	PersonaTraits []string    `json:"persona_traits"`
	PersonaTopics []string    `json:"persona_topics"`
	City          models.City `json:"city"`
	CreatedAt     time.Time   `json:"created_at"`
}

// AuthResponse bundles a profile with its session token.
type AuthResponse struct {
	Token   string          `json:"token"`
	Profile ProfileResponse `json:"profile"`
}

// NewProfileResponse converts a profile model into a DTO.
func NewProfileResponse(profile models.Profile) ProfileResponse {
	return ProfileResponse{
		ID:            profile.ID,
		PersonaID:     profile.PersonaID,
		PersonaName:   profile.PersonaName,
		PersonaEmoji:  profile.PersonaEmoji,
		PersonaBio:    profile.PersonaBio,
		PersonaTraits: decodeStringList(profile.PersonaTraits),
		PersonaTopics: decodeStringList(profile.PersonaTopics),
		City:          profile.City,
		CreatedAt:     profile.CreatedAt,
	}
}

func decodeStringList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
