//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"context"
	"dm-lab/domain"
	"dm-lab/errors"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IUserRepository interface {
	CreateUser(ctx context.Context, username, hashedPassword string) (domain.UserID, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	Exists(ctx context.Context, id domain.UserID) (bool, error)
	ListUsers(ctx context.Context) ([]User, error)
}

type UserRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

// NewUserRepository leases numeric identifiers from a badger sequence. Release must be called on shutdown
// so unused leased ids are handed back.
func NewUserRepository(db *badger.DB) (*UserRepository, error) {
	seq, err := db.GetSequence([]byte("seq:user"), 100)
	if err != nil {
		return nil, fmt.Errorf("user sequence: %w", err)
	}
	return &UserRepository{db: db, seq: seq}, nil
}

// User is the repository-level account record.
type User struct {
	ID           domain.UserID `json:"id"`
	Username     string        `json:"username"`
	PasswordHash string        `json:"password_hash"`
	CreatedAt    time.Time     `json:"created_at"`
}

// CreateUser persists an account keyed by username and indexed by numeric id.
// The sequence starts at 0, ids start at 1.
func (u *UserRepository) CreateUser(_ context.Context, username, hashedPassword string) (domain.UserID, error) {
	next, err := u.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("sequence failed: %w", err)
	}
	user := User{
		ID:           domain.UserID(next + 1),
		Username:     username,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(user)
	if err != nil {
		return 0, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := userKey(username)
		if _, err = txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err = txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(userIDKey(user.ID), []byte(username))
	})
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (u *UserRepository) GetUserByUsername(_ context.Context, username string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(username))
		if err != nil {
			return err // Will be handled as ErrInvalidCredentials by the service
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (u *UserRepository) Exists(_ context.Context, id domain.UserID) (bool, error) {
	err := u.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(userIDKey(id))
		return err
	})
	switch err {
	case nil:
		return true, nil
	case badger.ErrKeyNotFound:
		return false, nil
	default:
		return false, err
	}
}

// ListUsers returns every account ordered by id.
func (u *UserRepository) ListUsers(_ context.Context) ([]User, error) {
	users := make([]User, 0)
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte("user:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var user User
				if err := json.Unmarshal(val, &user); err != nil {
					return err
				}
				users = append(users, user)
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
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (u *UserRepository) Release() error {
	return u.seq.Release()
}

func userKey(username string) []byte {
	return []byte("user:" + username)
}

func userIDKey(id domain.UserID) []byte {
	return []byte("userid:" + id.String())
}
