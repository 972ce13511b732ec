package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taskmanager/internal/avatar"
	"taskmanager/internal/cache"
	apperrors "taskmanager/internal/errors"
	"taskmanager/internal/logging"
	"taskmanager/internal/mail"
	"taskmanager/internal/model"
	"taskmanager/internal/repository"
)

const avatarCacheTTL = 10 * time.Minute

// UserService exposes profile operations for an authenticated user.
type UserService interface {
	UpdateProfile(ctx context.Context, user *model.User, fields map[string]any) (*model.User, error)
	DeleteAccount(ctx context.Context, user *model.User) error
	SetAvatar(ctx context.Context, user *model.User, filename string, data []byte) error
	GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error)
	DeleteAvatar(ctx context.Context, user *model.User) error
}

type userService struct {
	repo   repository.UserRepository
	cache  cache.Store
	mailer mail.Mailer
	log    logging.Logger
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache cache.Store, mailer mail.Mailer, log logging.Logger) UserService {
	return &userService{repo: repo, cache: cache, mailer: mailer, log: log}
}

func (s *userService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("avatar:%s", id)
}

// UpdateProfile applies fields to the user. Keys outside name, email,
// password and age reject the whole update.
func (s *userService) UpdateProfile(ctx context.Context, user *model.User, fields map[string]any) (*model.User, error) {
	if err := checkAllowed(fields, "name", "email", "password", "age"); err != nil {
		return nil, err
	}

	// validate everything before touching the record
	updated := *user
	columns := make([]string, 0, len(fields))
	for key, raw := range fields {
		switch key {
		case "name":
			v, err := stringField(key, raw)
			if err != nil {
				return nil, err
			}
			if updated.Name, err = normalizeName(v); err != nil {
				return nil, err
			}
			columns = append(columns, "name")
		case "email":
			v, err := stringField(key, raw)
			if err != nil {
				return nil, err
			}
			if updated.Email, err = normalizeEmail(v); err != nil {
				return nil, err
			}
			columns = append(columns, "email")
		case "password":
			v, err := stringField(key, raw)
			if err != nil {
				return nil, err
			}
			password, err := checkPassword(v)
			if err != nil {
				return nil, err
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
			if err != nil {
				return nil, fmt.Errorf("hash password: %w", err)
			}
			updated.PasswordHash = string(hash)
			columns = append(columns, "password_hash")
		case "age":
			v, err := intField(key, raw)
			if err != nil {
				return nil, err
			}
			if err := checkAge(v); err != nil {
				return nil, err
			}
			updated.Age = v
			columns = append(columns, "age")
		}
	}

	user.Name = updated.Name
	user.Email = updated.Email
	user.PasswordHash = updated.PasswordHash
	user.Age = updated.Age
	if err := s.repo.Update(ctx, user, columns...); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user.Redacted(), nil
}

// DeleteAccount revokes every token and removes the user with its tasks.
func (s *userService) DeleteAccount(ctx context.Context, user *model.User) error {
	user.RevokeAllTokens()
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(user.ID))

	s.log.Info(ctx, "account deleted", "user_id", user.ID)
	s.mailer.SendCancellation(ctx, user.Email, user.Name)
	return nil
}

func (s *userService) SetAvatar(ctx context.Context, user *model.User, filename string, data []byte) error {
	img, err := avatar.Process(filename, data)
	if err != nil {
		return err
	}
	user.Avatar = img
	if err := s.repo.Update(ctx, user, "avatar"); err != nil {
		return fmt.Errorf("save avatar: %w", err)
	}
	_ = s.cache.Set(ctx, s.cacheKey(user.ID), img, avatarCacheTTL)
	return nil
}

// GetAvatar returns the stored PNG for any user.
func (s *userService) GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		return data, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.HasAvatar() {
		return nil, apperrors.ErrNotFound
	}

	_ = s.cache.Set(ctx, s.cacheKey(id), user.Avatar, avatarCacheTTL)
	return user.Avatar, nil
}

func (s *userService) DeleteAvatar(ctx context.Context, user *model.User) error {
	user.Avatar = nil
	if err := s.repo.Update(ctx, user, "avatar"); err != nil {
		return fmt.Errorf("delete avatar: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(user.ID))
	return nil
}
