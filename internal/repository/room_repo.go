package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nobody-social/nobody-api/internal/models"
)

const roomListSize = 20

// ErrNotParticipant indicates the user has no membership record for the room.
var ErrNotParticipant = errors.New("user is not a participant of the room")

// RoomRepository persists chat rooms, memberships, and read cursors.
type RoomRepository interface {
	Create(ctx context.Context, room *models.ChatRoom) error
	GetByID(ctx context.Context, id string) (models.ChatRoom, error)
	ListForUser(ctx context.Context, city models.City, userID string, limit int) ([]models.ChatRoom, error)
	ParticipantCount(ctx context.Context, roomID string) (int, error)
	Join(ctx context.Context, roomID, userID string) error
	IsParticipant(ctx context.Context, roomID, userID string) (bool, error)
	// MarkRead advances the read cursor to the given time. Cursors only move
	// forward; a stale timestamp leaves the record untouched.
	MarkRead(ctx context.Context, roomID, userID string, at time.Time) error
	TouchActivity(ctx context.Context, roomID string, at time.Time) error
	// FindOrCreateMatch is the Go analogue of the original store-side
	// find_or_create_chat_match procedure. It locks the oldest open match room
	// in the city that has exactly one waiting participant other than the
	// caller and joins it, or creates a fresh match room with the caller
	// waiting. The row lock serializes concurrent callers on one database.
	FindOrCreateMatch(ctx context.Context, city models.City, userID string) (roomID string, matched bool, err error)
}

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository constructs a room repository backed by GORM.
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

// Create stores the room and enrolls its creator in one transaction.
func (r *roomRepository) Create(ctx context.Context, room *models.ChatRoom) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		if room.CreatedBy == "" {
			return nil
		}
		participant := models.ChatParticipant{RoomID: room.ID, UserID: room.CreatedBy}
		return tx.Create(&participant).Error
	})
}

func (r *roomRepository) GetByID(ctx context.Context, id string) (models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return models.ChatRoom{}, err
	}
	return room, nil
}

// ListForUser returns public rooms for the city plus private and match rooms
// the user belongs to, most recently active first.
func (r *roomRepository) ListForUser(ctx context.Context, city models.City, userID string, limit int) ([]models.ChatRoom, error) {
	if limit <= 0 || limit > roomListSize {
		limit = roomListSize
	}

	memberRooms := r.db.Model(&models.ChatParticipant{}).
		Select("room_id").
		Where("user_id = ?", userID)

	var rooms []models.ChatRoom
	err := r.db.WithContext(ctx).
		Where("(city = ? AND type = ?) OR id IN (?)", city, models.RoomTypePublic, memberRooms).
		Order("last_message_at DESC").
		Limit(limit).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepository) ParticipantCount(ctx context.Context, roomID string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ChatParticipant{}).
		Where("room_id = ?", roomID).
		Count(&n).Error
	return int(n), err
}

// Join enrolls the user; joining twice is a no-op.
func (r *roomRepository) Join(ctx context.Context, roomID, userID string) error {
	participant := models.ChatParticipant{RoomID: roomID, UserID: userID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&participant).Error
}

func (r *roomRepository) IsParticipant(ctx context.Context, roomID, userID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ChatParticipant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *roomRepository) MarkRead(ctx context.Context, roomID, userID string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.ChatParticipant{}).
		Where("room_id = ? AND user_id = ? AND last_read_at < ?", roomID, userID, at).
		UpdateColumn("last_read_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Either the cursor was already ahead or the membership is missing.
		exists, err := r.IsParticipant(ctx, roomID, userID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotParticipant
		}
	}
	return nil
}

func (r *roomRepository) TouchActivity(ctx context.Context, roomID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ChatRoom{}).
		Where("id = ?", roomID).
		UpdateColumn("last_message_at", at).Error
}

func (r *roomRepository) FindOrCreateMatch(ctx context.Context, city models.City, userID string) (string, bool, error) {
	var roomID string
	var matched bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-entrant callers get their existing open match room back.
		var own models.ChatRoom
		err := tx.
			Joins("JOIN chat_participants ON chat_participants.room_id = chat_rooms.id").
			Where("chat_rooms.city = ? AND chat_rooms.type = ? AND chat_participants.user_id = ?",
				city, models.RoomTypeMatch, userID).
			Order("chat_rooms.created_at ASC").
			First(&own).Error
		if err == nil {
			count, countErr := r.participantCountTx(tx, own.ID)
			if countErr != nil {
				return countErr
			}
			roomID = own.ID
			matched = count > 1
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var open models.ChatRoom
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("city = ? AND type = ?", city, models.RoomTypeMatch).
			Where("id IN (?)", tx.Model(&models.ChatParticipant{}).
				Select("room_id").
				Group("room_id").
				Having("COUNT(*) = 1")).
			Order("created_at ASC").
			First(&open).Error

		switch {
		case err == nil:
			participant := models.ChatParticipant{RoomID: open.ID, UserID: userID}
			if err := tx.Create(&participant).Error; err != nil {
				return err
			}
			roomID = open.ID
			matched = true
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			room := models.ChatRoom{
				City:      city,
				Name:      "Anonymous Match",
				Type:      models.RoomTypeMatch,
				CreatedBy: userID,
			}
			if err := tx.Create(&room).Error; err != nil {
				return err
			}
			participant := models.ChatParticipant{RoomID: room.ID, UserID: userID}
			if err := tx.Create(&participant).Error; err != nil {
				return err
			}
			roomID = room.ID
			matched = false
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return "", false, err
	}

	return roomID, matched, nil
}

func (r *roomRepository) participantCountTx(tx *gorm.DB, roomID string) (int, error) {
	var n int64
	err := tx.Model(&models.ChatParticipant{}).Where("room_id = ?", roomID).Count(&n).Error
	return int(n), err
}
