package services

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vendalink/ordersync/internal/auth"
	"github.com/vendalink/ordersync/internal/config"
	"github.com/vendalink/ordersync/internal/domain/user"
	"github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/pkg/logger"
)

// UserService handles registration and authentication
type UserService interface {
	Register(ctx context.Context, email, password string) (*user.User, auth.TokenPair, error)
	Login(ctx context.Context, email, password string) (*user.User, auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

type userService struct {
	repo user.Repository
	cfg  config.AuthConfig
	log  *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(repo user.Repository, cfg config.AuthConfig, log *logger.Logger) UserService {
	return &userService{repo: repo, cfg: cfg, log: log}
}

func (s *userService) Register(ctx context.Context, email, password string) (*user.User, auth.TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if existing, _ := s.repo.GetByEmail(ctx, email); existing != nil {
		return nil, auth.TokenPair{}, errors.Conflict("An account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, auth.TokenPair{}, errors.Internal("failed to hash password", err)
	}

	u := &user.User{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, auth.TokenPair{}, errors.DatabaseError("failed to create user", err)
	}

	tokens, err := auth.MintTokens(u.ID, u.Email, s.cfg.JWTSecret, s.cfg.AccessTokenExpiry, s.cfg.RefreshTokenExpiry)
	if err != nil {
		return nil, auth.TokenPair{}, errors.Internal("failed to generate tokens", err)
	}

	s.log.WithFields(map[string]interface{}{"user_id": u.ID}).Info("user registered")
	return u, tokens, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*user.User, auth.TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, auth.TokenPair{}, errors.Unauthorized("Invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, auth.TokenPair{}, errors.Unauthorized("Invalid email or password")
	}

	tokens, err := auth.MintTokens(u.ID, u.Email, s.cfg.JWTSecret, s.cfg.AccessTokenExpiry, s.cfg.RefreshTokenExpiry)
	if err != nil {
		return nil, auth.TokenPair{}, errors.Internal("failed to generate tokens", err)
	}

	return u, tokens, nil
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := auth.ParseClaims(refreshToken, s.cfg.JWTSecret)
	if err != nil {
		return auth.TokenPair{}, errors.Unauthorized("Invalid or expired refresh token")
	}

	u, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil || u == nil {
		return auth.TokenPair{}, errors.Unauthorized("Invalid or expired refresh token")
	}

	tokens, err := auth.MintTokens(u.ID, u.Email, s.cfg.JWTSecret, s.cfg.AccessTokenExpiry, s.cfg.RefreshTokenExpiry)
	if err != nil {
		return auth.TokenPair{}, errors.Internal("failed to generate tokens", err)
	}

	return tokens, nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*user.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.NotFound("User")
	}
	return u, nil
}
