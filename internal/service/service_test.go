package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nobody-social/nobody-api/internal/models"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.Post{},
		&models.Like{},
		&models.ChatRoom{},
		&models.ChatParticipant{},
		&models.Message{},
	))
	return db
}

func newTestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func createServiceProfile(t *testing.T, db *gorm.DB, city models.City) models.Profile {
	t.Helper()
	profile := models.Profile{
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()),
		PasswordHash: "x",
		PersonaID:    "sf-runner",
		PersonaName:  "Golden Gate Runner",
		PersonaEmoji: "🏃",
		PersonaBio:   "bio",
		City:         city,
	}
	require.NoError(t, db.Create(&profile).Error)
	return profile
}
