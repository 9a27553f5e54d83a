// Package domain contains core concepts of the messaging system.
// This file defines direct Messages and the conversation ordering rule.
// Messages are immutable except for their read flag.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is one direct message between two users.
// IsRead only ever goes from false to true.
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   UserID    `json:"senderId"`
	ReceiverID UserID    `json:"receiverId"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
	IsRead     bool      `json:"isRead"`
}

// Before reports whether m sorts before other in a conversation.
// CreatedAt is the ordering key; ties fall back to the (time ordered) ID.
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID.String() < other.ID.String()
}

// Involves reports whether the message belongs to the conversation of the unordered pair {a, b}.
func (m Message) Involves(a, b UserID) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}
