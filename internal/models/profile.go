package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Profile is an account together with its anonymous persona identity.
// The persona is assigned once at signup and never regenerated.
type Profile struct {
	ID            string         `gorm:"type:uuid;primaryKey" json:"id"`
	Email         string         `gorm:"size:255;uniqueIndex;not null" json:"-"`
	PasswordHash  string         `gorm:"size:255;not null" json:"-"`
	PersonaID     string         `gorm:"size:64;not null" json:"persona_id"`
	PersonaName   string         `gorm:"size:128;not null" json:"persona_name"`
	PersonaEmoji  string         `gorm:"size:16;not null" json:"persona_emoji"`
	PersonaBio    string         `gorm:"type:text" json:"persona_bio"`
	PersonaTraits datatypes.JSON `gorm:"type:json" json:"persona_traits"`
	PersonaTopics datatypes.JSON `gorm:"type:json" json:"persona_topics"`
	City          City           `gorm:"size:16;index;not null" json:"city"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
