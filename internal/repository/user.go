package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/vendalink/ordersync/internal/domain/user"
	"github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/store"
)

const usersCollection = "users"

// UserRepository implements user.Repository. Users live in the system
// namespace; the document id doubles as an email index entry.
type UserRepository struct {
	store store.Store
}

// NewUserRepository creates a new user repository
func NewUserRepository(st store.Store) user.Repository {
	return &UserRepository{store: st}
}

type userDoc struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    int64  `json:"created_at"`
}

// Create stores a new user, allocating the next sequential id
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if _, err := r.GetByEmail(ctx, u.Email); err == nil {
		return errors.Conflict("email already registered")
	}

	count, err := r.store.Count(ctx, store.SystemUser, usersCollection, nil)
	if err != nil {
		return errors.DatabaseError("failed to count users", err)
	}
	u.ID = count + 1
	u.CreatedAt = time.Now()

	doc := userDoc{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.Unix(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.DatabaseError("failed to encode user", err)
	}

	if err := r.store.SetIfAbsent(ctx, store.SystemUser, usersCollection, strconv.FormatInt(u.ID, 10), data); err != nil {
		return errors.DatabaseError("failed to create user", err)
	}

	return nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	data, err := r.store.Get(ctx, store.SystemUser, usersCollection, strconv.FormatInt(id, 10))
	if err == store.ErrNotFound {
		return nil, errors.NotFound("User")
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get user", err)
	}

	return decodeUser(data)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	docs, err := r.store.Query(ctx, store.SystemUser, usersCollection, store.Query{
		Filters: []store.Filter{{Field: "email", Value: email}},
		Limit:   1,
	})
	if err != nil {
		return nil, errors.DatabaseError("failed to query users", err)
	}
	if len(docs) == 0 {
		return nil, errors.NotFound("User")
	}

	return decodeUser(docs[0])
}

func decodeUser(data json.RawMessage) (*user.User, error) {
	var doc userDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.DatabaseError("failed to decode user", err)
	}
	return &user.User{
		ID:           doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    time.Unix(doc.CreatedAt, 0),
	}, nil
}
