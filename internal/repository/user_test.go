package repository_test

import (
	"context"
	"testing"

	"github.com/vendalink/ordersync/internal/domain/user"
	apperrors "github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/repository"
	"github.com/vendalink/ordersync/internal/testutil"
)

func TestUserCreateAndLookup(t *testing.T) {
	repo := repository.NewUserRepository(testutil.NewTestStore(t))
	ctx := context.Background()

	u := &user.User{Email: "ana@example.com", PasswordHash: "hash"}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.ID == 0 {
		t.Fatal("Create() did not assign an id")
	}

	byID, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.Email != "ana@example.com" {
		t.Errorf("Email = %s, want ana@example.com", byID.Email)
	}

	byEmail, err := repo.GetByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("ID = %d, want %d", byEmail.ID, u.ID)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	repo := repository.NewUserRepository(testutil.NewTestStore(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &user.User{Email: "dup@example.com", PasswordHash: "h1"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err := repo.Create(ctx, &user.User{Email: "dup@example.com", PasswordHash: "h2"})
	if !apperrors.IsCode(err, apperrors.ErrCodeConflict) {
		t.Errorf("Create() duplicate error = %v, want CONFLICT", err)
	}
}

func TestUserNotFound(t *testing.T) {
	repo := repository.NewUserRepository(testutil.NewTestStore(t))
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, 42); !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("GetByID() error = %v, want NOT_FOUND", err)
	}
	if _, err := repo.GetByEmail(ctx, "ghost@example.com"); !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("GetByEmail() error = %v, want NOT_FOUND", err)
	}
}
