package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "taskmanager/internal/errors"
	"taskmanager/internal/model"
)

// UserRepository defines user persistence operations.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// Create inserts a new user and its initial token set.
	Create(ctx context.Context, user *model.User) error
	// SaveTokens applies token-set changes made since the user was loaded
	// without touching any user column.
	SaveTokens(ctx context.Context, user *model.User) error
	// Update writes the named columns only. A missing user is ErrNotFound.
	Update(ctx context.Context, user *model.User, columns ...string) error
	// Delete removes the user together with its tasks and tokens.
	Delete(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) preloadTokens(db *gorm.DB) *gorm.DB {
	return db.Preload("Tokens", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	})
}

// FindByID finds a user and its token set by ID.
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.preloadTokens(r.db.WithContext(ctx)).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByEmail finds a user and its token set by email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.preloadTokens(r.db.WithContext(ctx)).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Create inserts a new user row together with its initial token set.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return fmt.Errorf("create user: %w", translate(err))
		}
		return insertTokens(tx, user)
	})
	if err != nil {
		return err
	}

	user.MarkTokensSaved()
	return nil
}

// SaveTokens applies the token-set changes made since the user was loaded.
// Only session_tokens rows are written: revoked rows are deleted and
// unsaved tokens inserted, so concurrent logins and profile edits for the
// same user do not overwrite each other.
func (r *userRepository) SaveTokens(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, user.ID); err != nil {
			return err
		}

		if revoked := user.RevokedTokenIDs(); len(revoked) > 0 {
			if err := tx.Where("user_id = ? AND token_id IN ?", user.ID, revoked).
				Delete(&model.SessionToken{}).Error; err != nil {
				return fmt.Errorf("delete revoked tokens: %w", err)
			}
		}
		return insertTokens(tx, user)
	})
	if err != nil {
		return err
	}

	user.MarkTokensSaved()
	return nil
}

// Update writes only the named columns of an existing user.
func (r *userRepository) Update(ctx context.Context, user *model.User, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, user.ID); err != nil {
			return err
		}
		err := tx.Model(&model.User{ID: user.ID}).Select(columns).Omit(clause.Associations).Updates(user).Error
		if err != nil {
			return fmt.Errorf("update user: %w", translate(err))
		}
		return nil
	})
}

// lockUser takes a row lock on the user, failing with ErrNotFound once the
// account is gone. It serializes writes against a concurrent Delete.
func lockUser(tx *gorm.DB, id uuid.UUID) error {
	var row model.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").Where("id = ?", id).Take(&row).Error
	if err != nil {
		return translate(err)
	}
	return nil
}

func insertTokens(tx *gorm.DB, user *model.User) error {
	for i := range user.Tokens {
		token := &user.Tokens[i]
		if token.ID != 0 {
			continue
		}
		token.UserID = user.ID
		if err := tx.Create(token).Error; err != nil {
			return fmt.Errorf("insert token: %w", err)
		}
	}
	return nil
}

// Delete removes the user row and everything that only exists in relation to it.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", id).Delete(&model.Task{}).Error; err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.SessionToken{}).Error; err != nil {
			return fmt.Errorf("delete tokens: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&model.User{})
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// translate maps GORM errors onto domain errors.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.ErrDuplicateCredential
	default:
		return err
	}
}
