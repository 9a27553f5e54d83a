package repositories

import (
	"context"
	"dm-lab/domain"
	"dm-lab/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_User_Lifecycle(t *testing.T) {
	req := require.New(t)
	repository, err := NewUserRepository(openBadger(t))
	req.NoError(err)
	defer repository.Release()
	ctx := context.Background()

	// Given two registered accounts
	alice, err := repository.CreateUser(ctx, "alice", "hash-a")
	req.NoError(err)
	bob, err := repository.CreateUser(ctx, "bob", "hash-b")
	req.NoError(err)

	// Then ids start at 1 and grow
	req.Equal(domain.UserID(1), alice)
	req.Equal(domain.UserID(2), bob)

	user, err := repository.GetUserByUsername(ctx, "bob")
	req.NoError(err)
	req.Equal(bob, user.ID)
	req.Equal("hash-b", user.PasswordHash)

	exists, err := repository.Exists(ctx, alice)
	req.NoError(err)
	req.True(exists)
	exists, err = repository.Exists(ctx, 99)
	req.NoError(err)
	req.False(exists)

	users, err := repository.ListUsers(ctx)
	req.NoError(err)
	req.Len(users, 2)
	req.Equal("alice", users[0].Username)
	req.Equal("bob", users[1].Username)
}

func Test_User_Duplicate_Username(t *testing.T) {
	req := require.New(t)
	repository, err := NewUserRepository(openBadger(t))
	req.NoError(err)
	defer repository.Release()

	_, err = repository.CreateUser(context.Background(), "carol", "h")
	req.NoError(err)
	_, err = repository.CreateUser(context.Background(), "carol", "h")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_User_Unknown_Username(t *testing.T) {
	repository, err := NewUserRepository(openBadger(t))
	require.NoError(t, err)
	defer repository.Release()

	_, err = repository.GetUserByUsername(context.Background(), "nobody")
	require.Error(t, err)
}
