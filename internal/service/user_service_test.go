package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "taskmanager/internal/errors"
	"taskmanager/internal/logging"
	"taskmanager/internal/model"
)

// signedUp registers mike and returns the services sharing one store.
func signedUp(t *testing.T) (AuthService, UserService, *memUserRepo, *MockStore, *MockMailer, string) {
	t.Helper()
	authSvc, repo, mailer := newTestAuthService(t)
	store := new(MockStore)
	userSvc := NewUserService(repo, store, mailer, logging.Nop())

	_, token, err := authSvc.CreateUser(context.Background(), mikeInput())
	require.NoError(t, err)
	return authSvc, userSvc, repo, store, mailer, token
}

func TestUserService_UpdateProfile(t *testing.T) {
	authSvc, userSvc, repo, _, _, token := signedUp(t)
	ctx := context.Background()

	user, _, err := authSvc.Authorize(ctx, token)
	require.NoError(t, err)

	updated, err := userSvc.UpdateProfile(ctx, user, map[string]any{
		"name":     "Michael",
		"age":      float64(31),
		"password": "newSecret99",
	})
	require.NoError(t, err)
	assert.Equal(t, "Michael", updated.Name)
	assert.Equal(t, 31, updated.Age)
	assert.Empty(t, updated.PasswordHash)

	stored, _ := repo.stored(user.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("newSecret99")))
	// token set untouched by a profile update
	assert.Len(t, stored.TokenIDs(), 1)

	_, _, err = authSvc.Authenticate(ctx, "mike@gmail.com", "newSecret99")
	assert.NoError(t, err)
}

func TestUserService_UpdateProfile_WritesChangedColumnsOnly(t *testing.T) {
	user := &model.User{ID: uuid.New(), Name: "mike", Email: "mike@gmail.com", PasswordHash: "hash"}
	repo := new(MockUserRepository)
	repo.On("Update", mock.Anything, user, []string{"name"}).Return(nil)

	updated, err := NewUserService(repo, new(MockStore), new(MockMailer), logging.Nop()).
		UpdateProfile(context.Background(), user, map[string]any{"name": "Michael"})

	require.NoError(t, err)
	assert.Equal(t, "Michael", updated.Name)
	repo.AssertExpectations(t)
}

func TestUserService_UpdateProfile_DeletedUser(t *testing.T) {
	user := &model.User{ID: uuid.New(), Name: "mike"}
	repo := new(MockUserRepository)
	repo.On("Update", mock.Anything, user, []string{"age"}).Return(apperrors.ErrNotFound)

	_, err := NewUserService(repo, new(MockStore), new(MockMailer), logging.Nop()).
		UpdateProfile(context.Background(), user, map[string]any{"age": float64(30)})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserService_UpdateProfile_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"unknown key", map[string]any{"location": "Philadelphia"}},
		{"unknown key next to a valid one", map[string]any{"name": "Michael", "location": "Philadelphia"}},
		{"negative age", map[string]any{"age": float64(-3)}},
		{"fractional age", map[string]any{"age": 1.5}},
		{"age as string", map[string]any{"age": "12"}},
		{"bad email", map[string]any{"email": "mike"}},
		{"weak password", map[string]any{"password": "password123"}},
		{"empty name", map[string]any{"name": " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authSvc, userSvc, repo, _, _, token := signedUp(t)
			ctx := context.Background()
			user, _, err := authSvc.Authorize(ctx, token)
			require.NoError(t, err)
			before, _ := repo.stored(user.ID)

			_, err = userSvc.UpdateProfile(ctx, user, tt.fields)
			assert.ErrorIs(t, err, apperrors.ErrInvalidField)

			after, _ := repo.stored(user.ID)
			assert.Equal(t, before.Name, after.Name)
			assert.Equal(t, before.Age, after.Age)
			assert.Equal(t, before.PasswordHash, after.PasswordHash)
			assert.Equal(t, "mike", user.Name)
		})
	}
}

func TestUserService_DeleteAccount(t *testing.T) {
	authSvc, userSvc, repo, store, mailer, token := signedUp(t)
	ctx := context.Background()
	_, second, err := authSvc.Authenticate(ctx, "mike@gmail.com", "mike_abc@123")
	require.NoError(t, err)

	user, _, err := authSvc.Authorize(ctx, token)
	require.NoError(t, err)

	store.On("Delete", mock.Anything, "avatar:"+user.ID.String()).Return(nil)
	mailer.On("SendCancellation", mock.Anything, "mike@gmail.com", "mike")

	require.NoError(t, userSvc.DeleteAccount(ctx, user))

	for _, tok := range []string{token, second} {
		_, _, err := authSvc.Authorize(ctx, tok)
		assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	}
	_, err = repo.FindByID(ctx, user.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	store.AssertExpectations(t)
	mailer.AssertCalled(t, "SendCancellation", mock.Anything, "mike@gmail.com", "mike")

	// deleting twice reports the missing user
	assert.ErrorIs(t, userSvc.DeleteAccount(ctx, user), apperrors.ErrNotFound)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10))))
	return buf.Bytes()
}

func TestUserService_SetAvatar(t *testing.T) {
	authSvc, userSvc, repo, store, _, token := signedUp(t)
	ctx := context.Background()
	user, _, err := authSvc.Authorize(ctx, token)
	require.NoError(t, err)

	key := "avatar:" + user.ID.String()
	store.On("Set", mock.Anything, key, mock.AnythingOfType("[]uint8"), avatarCacheTTL).Return(nil)

	require.NoError(t, userSvc.SetAvatar(ctx, user, "me.png", pngBytes(t)))

	stored, _ := repo.stored(user.ID)
	require.True(t, stored.HasAvatar())
	cfg, err := png.DecodeConfig(bytes.NewReader(stored.Avatar))
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Width)
	store.AssertExpectations(t)
}

func TestUserService_SetAvatar_Invalid(t *testing.T) {
	authSvc, userSvc, repo, store, _, token := signedUp(t)
	ctx := context.Background()
	user, _, err := authSvc.Authorize(ctx, token)
	require.NoError(t, err)

	err = userSvc.SetAvatar(ctx, user, "cv.pdf", pngBytes(t))
	assert.ErrorIs(t, err, apperrors.ErrInvalidAvatar)

	stored, _ := repo.stored(user.ID)
	assert.False(t, stored.HasAvatar())
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUserService_GetAvatar(t *testing.T) {
	id := uuid.New()
	key := "avatar:" + id.String()
	img := []byte("png-bytes")

	t.Run("cache hit", func(t *testing.T) {
		repo := new(MockUserRepository)
		store := new(MockStore)
		store.On("Get", mock.Anything, key).Return(img, nil)

		got, err := NewUserService(repo, store, new(MockMailer), logging.Nop()).GetAvatar(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, img, got)
		repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("cache miss fills cache", func(t *testing.T) {
		repo := new(MockUserRepository)
		store := new(MockStore)
		store.On("Get", mock.Anything, key).Return(nil, nil)
		repo.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, Avatar: img}, nil)
		store.On("Set", mock.Anything, key, img, avatarCacheTTL).Return(nil)

		got, err := NewUserService(repo, store, new(MockMailer), logging.Nop()).GetAvatar(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, img, got)
		repo.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("no avatar", func(t *testing.T) {
		repo := new(MockUserRepository)
		store := new(MockStore)
		store.On("Get", mock.Anything, key).Return(nil, nil)
		repo.On("FindByID", mock.Anything, id).Return(&model.User{ID: id}, nil)

		_, err := NewUserService(repo, store, new(MockMailer), logging.Nop()).GetAvatar(context.Background(), id)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("no user", func(t *testing.T) {
		repo := new(MockUserRepository)
		store := new(MockStore)
		store.On("Get", mock.Anything, key).Return(nil, nil)
		repo.On("FindByID", mock.Anything, id).Return(nil, apperrors.ErrNotFound)

		_, err := NewUserService(repo, store, new(MockMailer), logging.Nop()).GetAvatar(context.Background(), id)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestUserService_DeleteAvatar(t *testing.T) {
	user := &model.User{ID: uuid.New(), Avatar: []byte("png")}
	repo := new(MockUserRepository)
	store := new(MockStore)
	repo.On("Update", mock.Anything, user, []string{"avatar"}).Return(nil)
	store.On("Delete", mock.Anything, "avatar:"+user.ID.String()).Return(nil)

	err := NewUserService(repo, store, new(MockMailer), logging.Nop()).DeleteAvatar(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, user.HasAvatar())
	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestUserService_DeleteAvatar_UpdateError(t *testing.T) {
	user := &model.User{ID: uuid.New(), Avatar: []byte("png")}
	repo := new(MockUserRepository)
	store := new(MockStore)
	repo.On("Update", mock.Anything, user, []string{"avatar"}).Return(errors.New("disk full"))

	err := NewUserService(repo, store, new(MockMailer), logging.Nop()).DeleteAvatar(context.Background(), user)
	assert.ErrorContains(t, err, "disk full")
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
