package repositories

import (
	"context"
	apperrors "dm-lab/errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newGormRepository(t *testing.T, limit *int) *GormMessageRepository {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "messages.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewGormMessageRepository(db, slog.Default(), limit)
}

func Test_Gorm_Find_Is_Chronological_Per_Direction(t *testing.T) {
	req := require.New(t)
	repository := newGormRepository(t, nil)
	ctx := context.Background()
	at := time.Now().UTC()

	req.NoError(repository.Create(ctx, newMessage(1, 2, "late", at.Add(time.Minute))))
	req.NoError(repository.Create(ctx, newMessage(1, 2, "early", at)))
	req.NoError(repository.Create(ctx, newMessage(2, 1, "reply", at)))

	fetched, err := repository.Find(ctx, MessageFilter{SenderID: 1, ReceiverID: 2})
	req.NoError(err)
	req.Equal([]string{"early", "late"}, bodies(fetched))
}

func Test_Gorm_ClaimUnread(t *testing.T) {
	req := require.New(t)
	limit := 2
	repository := newGormRepository(t, &limit)
	ctx := context.Background()
	at := time.Now().UTC()

	for i := 0; i < 3; i++ {
		req.NoError(repository.Create(ctx, newMessage(4, 5, fmt.Sprintf("m%d", i), at.Add(time.Duration(i)*time.Second))))
	}

	first, err := repository.ClaimUnread(ctx, 4, 5)
	req.NoError(err)
	req.Equal([]string{"m0", "m1"}, bodies(first))
	req.True(first[0].IsRead)

	second, err := repository.ClaimUnread(ctx, 4, 5)
	req.NoError(err)
	req.Equal([]string{"m2"}, bodies(second))

	third, err := repository.ClaimUnread(ctx, 4, 5)
	req.NoError(err)
	req.NotNil(third)
	req.Empty(third)

	unread, err := repository.Find(ctx, MessageFilter{SenderID: 4, ReceiverID: 5, UnreadOnly: true})
	req.NoError(err)
	req.Empty(unread)
}

func Test_Gorm_MarkRead(t *testing.T) {
	req := require.New(t)
	repository := newGormRepository(t, nil)
	ctx := context.Background()
	message := newMessage(1, 3, "ping", time.Now().UTC())
	req.NoError(repository.Create(ctx, message))

	req.NoError(repository.MarkRead(ctx, message.ID))
	req.NoError(repository.MarkRead(ctx, message.ID))
	req.ErrorIs(repository.MarkRead(ctx, uuid.Must(uuid.NewV7())), apperrors.ErrMessageNotFound)

	claimed, err := repository.ClaimUnread(ctx, 1, 3)
	req.NoError(err)
	req.Empty(claimed)
}
