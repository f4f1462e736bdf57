package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/kotobako/internal/client/storage"
)

func TestAuth_SaveGet(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	auth := &storage.AuthData{
		Username:     "alice",
		UserID:       "user-1",
		AccessToken:  "encrypted-access",
		RefreshToken: "encrypted-refresh",
		PublicSalt:   "c2FsdA==",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}

	require.NoError(t, store.SaveAuth(ctx, auth))

	got, err := store.GetAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth, got)
}

func TestAuth_GetNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetAuth(context.Background())
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)
}

func TestAuth_Delete(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	auth := &storage.AuthData{Username: "alice"}
	require.NoError(t, store.SaveAuth(ctx, auth))
	require.NoError(t, store.DeleteAuth(ctx))

	_, err := store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)

	// Повторный logout - ошибка
	assert.ErrorIs(t, store.DeleteAuth(ctx), storage.ErrAuthNotFound)
}

func TestAuth_IsAuthenticated(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	// Нет данных
	ok, err := store.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Валидный токен
	require.NoError(t, store.SaveAuth(ctx, &storage.AuthData{
		Username:  "alice",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}))
	ok, err = store.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Истекший токен
	require.NoError(t, store.SaveAuth(ctx, &storage.AuthData{
		Username:  "alice",
		ExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}))
	ok, err = store.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
