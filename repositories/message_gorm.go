package repositories

import (
	"context"
	"dm-lab/domain"
	apperrors "dm-lab/errors"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// messageRow is the relational shape of a Message.
type messageRow struct {
	ID         string    `gorm:"primaryKey;size:36"`
	SenderID   int64     `gorm:"index:idx_direction,priority:1;not null"`
	ReceiverID int64     `gorm:"index:idx_direction,priority:2;not null"`
	Body       string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"index:idx_direction,priority:4;not null"`
	IsRead     bool      `gorm:"index:idx_direction,priority:3;not null;default:false"`
}

func (messageRow) TableName() string {
	return "messages"
}

type GormMessageRepository struct {
	db            *gorm.DB
	log           *slog.Logger
	limitMessages *int
	claims        *directionLocks
}

// OpenSQLite opens (and migrates) a sqlite database for the message store.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err = db.AutoMigrate(&messageRow{}); err != nil {
		return nil, err
	}
	return db, nil
}

func NewGormMessageRepository(db *gorm.DB, log *slog.Logger, limitMessages *int) *GormMessageRepository {
	return &GormMessageRepository{db: db, log: log.With("repo", "GormMessageRepository"), limitMessages: limitMessages, claims: newDirectionLocks()}
}

func (r *GormMessageRepository) Create(ctx context.Context, message domain.Message) error {
	row := toRow(message)
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *GormMessageRepository) Find(ctx context.Context, filter MessageFilter) ([]domain.Message, error) {
	query := r.db.WithContext(ctx).
		Where("sender_id = ? AND receiver_id = ?", int64(filter.SenderID), int64(filter.ReceiverID))
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var rows []messageRow
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromRows(rows)
}

func (r *GormMessageRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&messageRow{}).
		Where("id = ?", id.String()).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&messageRow{}).Where("id = ?", id.String()).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperrors.ErrMessageNotFound
		}
	}
	return nil
}

// ClaimUnread flips each candidate row with a conditional update; only rows this call actually flipped are
// returned, so a concurrent claim can never hand out the same message twice. Claims of one direction are
// also serialized in process, so sqlite never sees two of them racing for the write lock.
func (r *GormMessageRepository) ClaimUnread(ctx context.Context, senderID, receiverID domain.UserID) ([]domain.Message, error) {
	unlock := r.claims.lock(senderID, receiverID)
	defer unlock()

	claimed := make([]domain.Message, 0)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("sender_id = ? AND receiver_id = ? AND is_read = ?", int64(senderID), int64(receiverID), false).
			Order("created_at ASC, id ASC")
		if r.limitMessages != nil {
			query = query.Limit(*r.limitMessages)
		}
		var rows []messageRow
		if err := query.Find(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			res := tx.Model(&messageRow{}).
				Where("id = ? AND is_read = ?", row.ID, false).
				Update("is_read", true)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				r.log.Debug("Message already claimed", "id", row.ID)
				continue
			}
			row.IsRead = true
			message, err := fromRow(row)
			if err != nil {
				return err
			}
			claimed = append(claimed, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func toRow(message domain.Message) messageRow {
	return messageRow{
		ID:         message.ID.String(),
		SenderID:   int64(message.SenderID),
		ReceiverID: int64(message.ReceiverID),
		Body:       message.Body,
		CreatedAt:  message.CreatedAt.UTC(),
		IsRead:     message.IsRead,
	}
}

func fromRow(row messageRow) (domain.Message, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:         id,
		SenderID:   domain.UserID(row.SenderID),
		ReceiverID: domain.UserID(row.ReceiverID),
		Body:       row.Body,
		CreatedAt:  row.CreatedAt.UTC(),
		IsRead:     row.IsRead,
	}, nil
}

func fromRows(rows []messageRow) ([]domain.Message, error) {
	var parseErr error
	messages := lo.FilterMap(rows, func(row messageRow, _ int) (domain.Message, bool) {
		message, err := fromRow(row)
		if err != nil {
			parseErr = errors.Join(parseErr, err)
			return domain.Message{}, false
		}
		return message, true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return messages, nil
}
