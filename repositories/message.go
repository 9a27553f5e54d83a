//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"dm-lab/domain"
	apperrors "dm-lab/errors"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// maxConflictRetries bounds how many times a read-flag transaction is replayed after badger reports
// that a concurrent transaction touched the same keys.
const maxConflictRetries = 5

// MessageFilter selects the messages of one direction (SenderID -> ReceiverID).
type MessageFilter struct {
	SenderID   domain.UserID
	ReceiverID domain.UserID
	UnreadOnly bool
}

type IMessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	Find(ctx context.Context, filter MessageFilter) ([]domain.Message, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	ClaimUnread(ctx context.Context, senderID, receiverID domain.UserID) ([]domain.Message, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
	claims        *directionLocks
}

// NewMessageRepository builds a badger backed store. limitMessages caps the size of one ClaimUnread batch,
// nil means no cap.
func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages, claims: newDirectionLocks()}
}

type diskMessage struct {
	ID         string `json:"id"`
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Body       string `json:"body"`
	At         int64  `json:"at"`
	IsRead     bool   `json:"is_read"`
}

// Create persists a message in BadgerDB.
// The record key is formatted as "dm:{sender}:{receiver}:{timestamp_padded}:{uuid}" so that a prefix scan
// over one direction is chronological (19-digit zero padding keeps lexicographical order).
// Unread messages get a second key "unread:..." with the same suffix pointing at the record; it is the
// only thing ClaimUnread has to scan.
func (m MessageRepository) Create(_ context.Context, message domain.Message) error {
	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return err
	}
	record := recordKey(message)
	return m.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(idKey(message.ID)); err == nil {
			return fmt.Errorf("message %s already stored", message.ID)
		}
		if err := txn.Set(record, bytes); err != nil {
			return err
		}
		if err := txn.Set(idKey(message.ID), record); err != nil {
			return err
		}
		if !message.IsRead {
			return txn.Set(unreadKey(message), record)
		}
		return nil
	})
}

// Find returns the messages of one direction, oldest first.
func (m MessageRepository) Find(ctx context.Context, filter MessageFilter) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0)
	err := m.db.View(func(txn *badger.Txn) error {
		if filter.UnreadOnly {
			pending, err := m.scanUnread(txn, filter.SenderID, filter.ReceiverID, nil)
			if err != nil {
				return err
			}
			for _, record := range pending {
				message, err := getMessage(txn, record)
				if err != nil {
					return err
				}
				messages = append(messages, message)
			}
			return nil
		}

		prefix := directionPrefix("dm", filter.SenderID, filter.ReceiverID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				message, err := decodeMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead flips the read flag of a single message. Marking an already read message is a no-op.
func (m MessageRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	return m.retryOnConflict(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		record, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		message, err := getMessage(txn, record)
		if err != nil {
			return err
		}
		if message.IsRead {
			return nil
		}
		return markRead(txn, record, message)
	})
}

// ClaimUnread selects the unread messages of one direction and marks them read in the same transaction.
// Claims of the same direction are serialized in process, so each poll sees the previous one committed.
// A conflict can still come from a concurrent MarkRead: the transaction is replayed and, if it keeps
// losing, the poll gets an empty batch and the messages stay unread for the next one.
func (m MessageRepository) ClaimUnread(ctx context.Context, senderID, receiverID domain.UserID) ([]domain.Message, error) {
	unlock := m.claims.lock(senderID, receiverID)
	defer unlock()

	var claimed []domain.Message
	err := m.retryOnConflict(ctx, func(txn *badger.Txn) error {
		claimed = make([]domain.Message, 0)
		pending, err := m.scanUnread(txn, senderID, receiverID, m.limitMessages)
		if err != nil {
			return err
		}
		for _, record := range pending {
			message, err := getMessage(txn, record)
			if err != nil {
				return err
			}
			if err = markRead(txn, record, message); err != nil {
				return err
			}
			message.IsRead = true
			claimed = append(claimed, message)
		}
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		m.log.Warn("Unread claim kept conflicting, deferred to the next poll",
			"sender", senderID, "receiver", receiverID)
		return []domain.Message{}, nil
	}
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Walk visits every stored message, grouped by direction and chronological inside a direction.
func (m MessageRepository) Walk(fn func(domain.Message) error) error {
	return m.db.View(func(txn *badger.Txn) error {
		prefix := []byte("dm:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				message, err := decodeMessage(value)
				if err != nil {
					return err
				}
				return fn(message)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (m MessageRepository) retryOnConflict(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := m.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			m.log.Debug("Read flag transaction conflicted, retrying", "attempt", attempt+1)
			continue
		}
		return err
	}
}

// scanUnread collects the record keys referenced by the unread index of one direction. The iterator is
// closed before the caller writes, keys are copied out of badger's buffers.
func (m MessageRepository) scanUnread(txn *badger.Txn, senderID, receiverID domain.UserID, limit *int) ([][]byte, error) {
	prefix := directionPrefix("unread", senderID, receiverID)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var records [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if limit != nil && len(records) == *limit {
			m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *limit))
			break
		}
		record, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func markRead(txn *badger.Txn, record []byte, message domain.Message) error {
	message.IsRead = true
	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return err
	}
	if err = txn.Set(record, bytes); err != nil {
		return err
	}
	return txn.Delete(unreadKey(message))
}

func getMessage(txn *badger.Txn, record []byte) (domain.Message, error) {
	item, err := txn.Get(record)
	if err != nil {
		return domain.Message{}, fmt.Errorf("record %s: %w", record, err)
	}
	var message domain.Message
	err = item.Value(func(value []byte) error {
		message, err = decodeMessage(value)
		return err
	})
	return message, err
}

func recordKey(message domain.Message) []byte {
	return messageKey("dm", message)
}

func unreadKey(message domain.Message) []byte {
	return messageKey("unread", message)
}

func messageKey(namespace string, message domain.Message) []byte {
	return []byte(fmt.Sprintf("%s:%d:%d:%019d:%s",
		namespace,
		message.SenderID,
		message.ReceiverID,
		message.CreatedAt.UnixNano(),
		message.ID,
	))
}

func idKey(id uuid.UUID) []byte {
	return []byte("dmid:" + id.String())
}

// directionPrefix ends with a colon so that sender 5 never matches sender 50.
func directionPrefix(namespace string, senderID, receiverID domain.UserID) []byte {
	return []byte(fmt.Sprintf("%s:%d:%d:", namespace, senderID, receiverID))
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:         message.ID.String(),
		SenderID:   int64(message.SenderID),
		ReceiverID: int64(message.ReceiverID),
		Body:       message.Body,
		At:         message.CreatedAt.UnixNano(),
		IsRead:     message.IsRead,
	}
}

func decodeMessage(value []byte) (domain.Message, error) {
	var dm diskMessage
	if err := json.Unmarshal(value, &dm); err != nil {
		return domain.Message{}, err
	}
	parsedID, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:         parsedID,
		SenderID:   domain.UserID(dm.SenderID),
		ReceiverID: domain.UserID(dm.ReceiverID),
		Body:       dm.Body,
		CreatedAt:  time.Unix(0, dm.At).UTC(),
		IsRead:     dm.IsRead,
	}, nil
}
