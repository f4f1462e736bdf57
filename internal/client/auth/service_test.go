package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/kotobako/internal/client/api"
	"github.com/iudanet/kotobako/internal/client/storage"
	"github.com/iudanet/kotobako/internal/client/storage/boltdb"
	pkgapi "github.com/iudanet/kotobako/pkg/api"
)

const testPassword = "correct-horse-battery"

// fakeAuthServer - минимальный сервер аутентификации для тестов
type fakeAuthServer struct {
	salt        string
	authKeyHash string
	tokenTTL    int64
	logins      int
	refreshes   int
}

func (f *fakeAuthServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req pkgapi.RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.salt = req.PublicSalt
		f.authKeyHash = req.AuthKeyHash
		w.WriteHeader(http.StatusCreated)
		require.NoError(t, json.NewEncoder(w).Encode(pkgapi.RegisterResponse{
			UserID:  "user-1",
			Message: "registered",
		}))
	})

	mux.HandleFunc("GET /api/v1/auth/salt/{username}", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(pkgapi.SaltResponse{PublicSalt: f.salt}))
	})

	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req pkgapi.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.AuthKeyHash != f.authKeyHash {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(pkgapi.ErrorResponse{Error: "unauthorized"})
			return
		}
		f.logins++
		require.NoError(t, json.NewEncoder(w).Encode(pkgapi.TokenResponse{
			UserID:       "user-1",
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			ExpiresIn:    f.tokenTTL,
		}))
	})

	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req pkgapi.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "refresh-1", req.RefreshToken)
		f.refreshes++
		require.NoError(t, json.NewEncoder(w).Encode(pkgapi.TokenResponse{
			UserID:       "user-1",
			AccessToken:  "access-2",
			RefreshToken: "refresh-2",
			ExpiresIn:    3600,
		}))
	})

	return mux
}

func newTestService(t *testing.T, tokenTTL int64) (*Service, *fakeAuthServer) {
	t.Helper()

	fake := &fakeAuthServer{tokenTTL: tokenTTL}
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	dbPath := filepath.Join(t.TempDir(), "client.db")
	store, err := boltdb.New(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewService(api.NewClient(server.URL), NewStore(store), logger), fake
}

func TestRegisterAndLogin(t *testing.T) {
	service, fake := newTestService(t, 3600)
	ctx := context.Background()

	reg, err := service.Register(ctx, "alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "user-1", reg.UserID)
	assert.NotEmpty(t, reg.PublicSalt)
	assert.NotEmpty(t, fake.authKeyHash)

	login, err := service.Login(ctx, "alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "access-1", login.AccessToken)

	ok, err := service.IsLoggedIn(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	status, err := service.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", status.Username)
	// Токены в хранилище зашифрованы
	assert.NotEqual(t, "access-1", status.AccessToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	service, _ := newTestService(t, 3600)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice", testPassword)
	require.NoError(t, err)

	// Неверный пароль дает другой auth_key_hash - сервер отвечает 401
	_, err = service.Login(ctx, "alice", "wrong-password-long")
	assert.Error(t, err)
}

func TestLogin_ValidationErrors(t *testing.T) {
	service, _ := newTestService(t, 3600)
	ctx := context.Background()

	_, err := service.Login(ctx, "a!", testPassword)
	assert.Error(t, err)

	_, err = service.Login(ctx, "alice", "short")
	assert.Error(t, err)
}

func TestUnlock(t *testing.T) {
	service, _ := newTestService(t, 3600)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice", testPassword)
	require.NoError(t, err)
	_, err = service.Login(ctx, "alice", testPassword)
	require.NoError(t, err)

	auth, err := service.Unlock(ctx, testPassword)
	require.NoError(t, err)
	assert.Equal(t, "access-1", auth.AccessToken)
	assert.Equal(t, "refresh-1", auth.RefreshToken)

	// Неверный master password не проходит AES-GCM аутентификацию
	_, err = service.Unlock(ctx, "wrong-password-long")
	assert.Error(t, err)
}

func TestUnlock_NotLoggedIn(t *testing.T) {
	service, _ := newTestService(t, 3600)

	_, err := service.Unlock(context.Background(), testPassword)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestGetValidToken_Fresh(t *testing.T) {
	service, fake := newTestService(t, 3600)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice", testPassword)
	require.NoError(t, err)
	_, err = service.Login(ctx, "alice", testPassword)
	require.NoError(t, err)

	token, err := service.GetValidToken(ctx, testPassword)
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, 0, fake.refreshes)
}

func TestGetValidToken_RefreshesExpired(t *testing.T) {
	// TTL нулевой: токен просрочен сразу после логина
	service, fake := newTestService(t, 0)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice", testPassword)
	require.NoError(t, err)
	_, err = service.Login(ctx, "alice", testPassword)
	require.NoError(t, err)

	token, err := service.GetValidToken(ctx, testPassword)
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
	assert.Equal(t, 1, fake.refreshes)

	// Обновленные токены сохранены: повторный вызов не рефрешит заново
	auth, err := service.Unlock(ctx, testPassword)
	require.NoError(t, err)
	assert.Equal(t, "access-2", auth.AccessToken)
	assert.Equal(t, "refresh-2", auth.RefreshToken)
	assert.Greater(t, auth.ExpiresAt, time.Now().Unix())
}

func TestLogoutAndStatus(t *testing.T) {
	service, _ := newTestService(t, 3600)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice", testPassword)
	require.NoError(t, err)
	_, err = service.Login(ctx, "alice", testPassword)
	require.NoError(t, err)

	require.NoError(t, service.Logout(ctx))

	_, err = service.Status(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	// Повторный logout
	assert.ErrorIs(t, service.Logout(ctx), ErrNotLoggedIn)
}

var _ storage.AuthStorage = (*boltdb.Storage)(nil)
