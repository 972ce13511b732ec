package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taskmanager/internal/auth"
	apperrors "taskmanager/internal/errors"
	"taskmanager/internal/logging"
	"taskmanager/internal/mail"
	"taskmanager/internal/model"
	"taskmanager/internal/repository"
)

const bcryptCost = 10

// compared against when the email is unknown so both failure paths cost a
// bcrypt comparison
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-secret"), bcryptCost)

// CreateUserInput carries signup data.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Age      *int
}

// AuthService manages credentials and the per-user session token set.
type AuthService interface {
	// CreateUser registers a user and issues its first token.
	CreateUser(ctx context.Context, in CreateUserInput) (*model.User, string, error)
	// Authenticate verifies credentials and issues an additional token.
	Authenticate(ctx context.Context, email, password string) (*model.User, string, error)
	// Authorize resolves a bearer token to its user and token id.
	Authorize(ctx context.Context, token string) (*model.User, string, error)
	// Revoke removes one token id from the user's set.
	Revoke(ctx context.Context, user *model.User, tokenID string) error
	// RevokeAll empties the user's token set.
	RevokeAll(ctx context.Context, user *model.User) error
}

type authService struct {
	users  repository.UserRepository
	tokens auth.TokenIssuer
	mailer mail.Mailer
	log    logging.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, tokens auth.TokenIssuer, mailer mail.Mailer, log logging.Logger) AuthService {
	return &authService{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		log:    log,
	}
}

func (s *authService) CreateUser(ctx context.Context, in CreateUserInput) (*model.User, string, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, "", err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, "", err
	}
	password, err := checkPassword(in.Password)
	if err != nil {
		return nil, "", err
	}
	age := 0
	if in.Age != nil {
		if err := checkAge(*in.Age); err != nil {
			return nil, "", err
		}
		age = *in.Age
	}

	// Check if the email is already taken
	_, err = s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, "", apperrors.ErrDuplicateCredential
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, "", fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Age:          age,
	}
	tokenID, token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	user.AppendToken(tokenID)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	s.log.Info(ctx, "user created", "user_id", user.ID)
	s.mailer.SendWelcome(ctx, user.Email, user.Name)
	return user.Redacted(), token, nil
}

func (s *authService) Authenticate(ctx context.Context, email, password string) (*model.User, string, error) {
	email = normalizeLogin(email)
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, "", apperrors.ErrInvalidCredential
	}
	if err != nil {
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", apperrors.ErrInvalidCredential
	}

	token, err := s.issue(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return user.Redacted(), token, nil
}

func (s *authService) Authorize(ctx context.Context, token string) (*model.User, string, error) {
	userID, tokenID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, "", apperrors.ErrUnauthenticated
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, "", apperrors.ErrUnauthenticated
	}
	if err != nil {
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	if !user.HasToken(tokenID) {
		return nil, "", apperrors.ErrUnauthenticated
	}
	return user, tokenID, nil
}

func (s *authService) Revoke(ctx context.Context, user *model.User, tokenID string) error {
	user.RevokeToken(tokenID)
	if err := s.users.SaveTokens(ctx, user); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *authService) RevokeAll(ctx context.Context, user *model.User) error {
	user.RevokeAllTokens()
	if err := s.users.SaveTokens(ctx, user); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

// issue signs a token for an existing user and stores its id.
func (s *authService) issue(ctx context.Context, user *model.User) (string, error) {
	tokenID, token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	user.AppendToken(tokenID)
	if err := s.users.SaveTokens(ctx, user); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}
