package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/pkg/apperror"
)

func strPtr(s string) *string { return &s }

func newTestUserService(t *testing.T) (*UserService, *mockAuthRepository, *fakeBlobStorage, *models.User) {
	t.Helper()

	repo := newMockAuthRepository()
	hash, err := bcrypt.GenerateFromPassword([]byte("OldPassw0rd"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{Email: "frank@example.com", Username: "frank", PasswordHash: string(hash)}
	require.NoError(t, repo.Create(context.Background(), user))

	store := newFakeBlobStorage()
	cleaner := NewBlobCleaner(store, newFakeDeletionQueue())
	uploader := NewImageUploader(store, cleaner, 5*1024*1024)
	return NewUserService(repo, uploader, cleaner), repo, store, user
}

func TestUserService_GetSession(t *testing.T) {
	svc, _, _, user := newTestUserService(t)

	session, err := svc.GetSession(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "frank@example.com", session.Email)
	assert.Equal(t, "frank", session.Username)

	_, err = svc.GetSession(context.Background(), 999)
	assert.True(t, apperror.IsNotFound(err))
}

func TestUserService_UpdateSettings(t *testing.T) {
	svc, _, _, user := newTestUserService(t)

	session, err := svc.UpdateSettings(context.Background(), user.ID, UpdateSettingsInput{
		Settings: models.UserSettings{Email: strPtr(" Frank.New@Example.com "), FullName: strPtr(" Frank Ocean ")},
	})
	require.NoError(t, err)
	assert.Equal(t, "frank.new@example.com", session.Email)
	require.NotNil(t, session.FullName)
	assert.Equal(t, "Frank Ocean", *session.FullName)
}

func TestUserService_UpdateSettings_Validation(t *testing.T) {
	svc, _, _, user := newTestUserService(t)
	ctx := context.Background()

	_, err := svc.UpdateSettings(ctx, user.ID, UpdateSettingsInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nothing to update")

	_, err = svc.UpdateSettings(ctx, user.ID, UpdateSettingsInput{Settings: models.UserSettings{Email: strPtr("broken")}})
	assert.True(t, apperror.IsValidation(err))
}

func TestUserService_ChangePassword(t *testing.T) {
	svc, repo, _, user := newTestUserService(t)
	ctx := context.Background()

	_, err := svc.UpdateSettings(ctx, user.ID, UpdateSettingsInput{NewPassword: strPtr("NewPassw0rd")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Current password is required")

	_, err = svc.UpdateSettings(ctx, user.ID, UpdateSettingsInput{CurrentPassword: strPtr("wrong"), NewPassword: strPtr("NewPassw0rd")})
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	_, err = svc.UpdateSettings(ctx, user.ID, UpdateSettingsInput{CurrentPassword: strPtr("OldPassw0rd"), NewPassword: strPtr("NewPassw0rd")})
	require.NoError(t, err)

	stored := repo.usersByID[user.ID].PasswordHash
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte("NewPassw0rd")))
}

func TestUserService_ChangePasswordRolledBackOnConflict(t *testing.T) {
	svc, repo, _, user := newTestUserService(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Email: "taken@example.com", Username: "grace", PasswordHash: "x"}))
	before := repo.usersByID[user.ID].PasswordHash

	_, err := svc.UpdateSettings(ctx, user.ID, UpdateSettingsInput{
		Settings:        models.UserSettings{Email: strPtr("taken@example.com")},
		CurrentPassword: strPtr("OldPassw0rd"),
		NewPassword:     strPtr("NewPassw0rd"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))

	stored := repo.usersByID[user.ID].PasswordHash
	assert.Equal(t, before, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte("OldPassw0rd")))
	assert.Equal(t, "frank@example.com", repo.usersByID[user.ID].Email)
}

func TestUserService_UpdateSettingsIgnoresClientHash(t *testing.T) {
	svc, repo, _, user := newTestUserService(t)
	before := repo.usersByID[user.ID].PasswordHash

	_, err := svc.UpdateSettings(context.Background(), user.ID, UpdateSettingsInput{
		Settings: models.UserSettings{Phone: strPtr("+65 8123 4567"), PasswordHash: strPtr("plain")},
	})
	require.NoError(t, err)
	assert.Equal(t, before, repo.usersByID[user.ID].PasswordHash)
}

func TestUserService_UploadAvatarReplacesPrevious(t *testing.T) {
	svc, _, store, user := newTestUserService(t)
	ctx := context.Background()

	first, err := svc.UploadAvatar(ctx, user.ID, fileUpload("me.png", testPNG))
	require.NoError(t, err)
	require.NotNil(t, first.ProfileImageURL)
	assert.Equal(t, 1, store.count())

	second, err := svc.UploadAvatar(ctx, user.ID, fileUpload("me2.png", testPNG))
	require.NoError(t, err)
	assert.NotEqual(t, *first.ProfileImageURL, *second.ProfileImageURL)
	assert.Equal(t, 1, store.count(), "previous avatar must be deleted")
}

func TestUserService_UploadAvatarRejectsNonImage(t *testing.T) {
	svc, _, store, user := newTestUserService(t)

	_, err := svc.UploadAvatar(context.Background(), user.ID, fileUpload("me.gif", []byte("plain text, not a picture")))
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Zero(t, store.puts)
}
