package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nobody-social/nobody-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
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

func createTestProfile(t *testing.T, db *gorm.DB, city models.City) models.Profile {
	t.Helper()
	profile := models.Profile{
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()),
		PasswordHash: "x",
		PersonaID:    "sf-artist",
		PersonaName:  "Marina Artist",
		PersonaEmoji: "🎨",
		PersonaBio:   "bio",
		City:         city,
	}
	require.NoError(t, db.Create(&profile).Error)
	return profile
}
