package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	apperrors "taskmanager/internal/errors"
	"taskmanager/internal/model"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) SaveTokens(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User, columns ...string) error {
	args := m.Called(ctx, user, columns)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTaskRepository is a mock implementation of TaskRepository.
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) Update(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, ownerID uuid.UUID, filter model.TaskFilter) ([]model.Task, error) {
	args := m.Called(ctx, ownerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

// MockMailer is a mock implementation of mail.Mailer.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendWelcome(ctx context.Context, email, name string) {
	m.Called(ctx, email, name)
}

func (m *MockMailer) SendCancellation(ctx context.Context, email, name string) {
	m.Called(ctx, email, name)
}

// MockStore is a mock implementation of cache.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// memUserRepo keeps detached copies of users, mirroring how the GORM
// repository hands out fresh records on every lookup.
type memUserRepo struct {
	mu      sync.Mutex
	users   map[uuid.UUID]model.User
	nextTok uint
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]model.User)}
}

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return detach(u), nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return detach(u), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(user.ID, user.Email) {
		return apperrors.ErrDuplicateCredential
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.assignTokenIDs(user)
	user.MarkTokensSaved()
	r.users[user.ID] = *detach(*user)
	return nil
}

// SaveTokens applies the caller's token diff to the stored set and leaves
// every other stored column alone.
func (r *memUserRepo) SaveTokens(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return apperrors.ErrNotFound
	}

	revoked := make(map[string]bool)
	for _, id := range user.RevokedTokenIDs() {
		revoked[id] = true
	}
	kept := make([]model.SessionToken, 0, len(stored.Tokens))
	for _, t := range stored.Tokens {
		if !revoked[t.TokenID] {
			kept = append(kept, t)
		}
	}
	for i := range user.Tokens {
		if user.Tokens[i].ID != 0 {
			continue
		}
		r.nextTok++
		user.Tokens[i].ID = r.nextTok
		user.Tokens[i].UserID = user.ID
		kept = append(kept, user.Tokens[i])
	}
	stored.Tokens = kept
	user.MarkTokensSaved()
	r.users[user.ID] = *detach(stored)
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *model.User, columns ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	for _, col := range columns {
		switch col {
		case "name":
			stored.Name = user.Name
		case "email":
			if r.emailTaken(user.ID, user.Email) {
				return apperrors.ErrDuplicateCredential
			}
			stored.Email = user.Email
		case "password_hash":
			stored.PasswordHash = user.PasswordHash
		case "age":
			stored.Age = user.Age
		case "avatar":
			stored.Avatar = user.Avatar
		}
	}
	stored.UpdatedAt = time.Now()
	user.UpdatedAt = stored.UpdatedAt
	r.users[user.ID] = *detach(stored)
	return nil
}

func (r *memUserRepo) emailTaken(id uuid.UUID, email string) bool {
	for other, u := range r.users {
		if other != id && u.Email == email {
			return true
		}
	}
	return false
}

func (r *memUserRepo) assignTokenIDs(user *model.User) {
	for i := range user.Tokens {
		if user.Tokens[i].ID == 0 {
			r.nextTok++
			user.Tokens[i].ID = r.nextTok
			user.Tokens[i].UserID = user.ID
		}
	}
}

func (r *memUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) stored(id uuid.UUID) (model.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	return u, ok
}

func detach(u model.User) *model.User {
	u.Tokens = append([]model.SessionToken(nil), u.Tokens...)
	u.Avatar = append([]byte(nil), u.Avatar...)
	return &u
}
