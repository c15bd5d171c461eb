//go:generate go run go.uber.org/mock/mockgen -source=user_repository.go -destination=../../mocks/mock_user_repository.go -package=mocks
package storage

import (
	"chatcode/errors"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IUserRepository interface {
	CreateUser(email, hashedPassword string) (string, error)
	GetUserByEmail(email string) (User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

func userKey(email string) []byte {
	return []byte("user:" + email)
}

// CreateUser persists an already hashed password and returns the new user id.
func (u *UserRepository) CreateUser(email, hashedPassword string) (string, error) {
	newID := uuid.NewString()
	data, err := encode(map[string]any{
		"id":            newID,
		"email":         email,
		"password_hash": hashedPassword,
		"roles":         lo.ToAnySlice([]string{"user"}),
		"created_at":    formatTime(time.Now()),
	})
	if err != nil {
		return "", err
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := userKey(email)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return "", err
	}
	return newID, nil
}

// GetUserByEmail returns ErrNotFound for an unknown email.
func (u *UserRepository) GetUserByEmail(email string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(email))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: user %s", errors.ErrNotFound, email)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			user, err = decodeUser(val)
			return err
		})
	})
	return user, err
}

func decodeUser(data []byte) (User, error) {
	rec, err := decode(data)
	if err != nil {
		return User{}, err
	}
	createdAt, err := rec.time("created_at")
	if err != nil {
		return User{}, err
	}
	return User{
		ID:           rec.string("id"),
		Email:        rec.string("email"),
		PasswordHash: rec.string("password_hash"),
		Roles:        rec.strings("roles"),
		CreatedAt:    createdAt,
	}, nil
}
