// Package auth реализует клиентскую аутентификацию: деривацию ключей из
// master password, регистрацию и логин, хранение токенов в зашифрованном
// виде и выдачу валидного access token для синхронизации.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/kotobako/internal/client/api"
	"github.com/iudanet/kotobako/internal/client/storage"
	"github.com/iudanet/kotobako/internal/crypto"
	"github.com/iudanet/kotobako/internal/validation"
	pkgapi "github.com/iudanet/kotobako/pkg/api"
)

// ErrNotLoggedIn возвращается, когда локальных auth данных нет
var ErrNotLoggedIn = errors.New("not logged in")

// Service предоставляет функции авторизации
type Service struct {
	apiClient api.ClientAPI
	authStore *Store
	logger    *slog.Logger
}

// NewService создает новый сервис авторизации
func NewService(apiClient api.ClientAPI, authStore *Store, logger *slog.Logger) *Service {
	return &Service{
		apiClient: apiClient,
		authStore: authStore,
		logger:    logger,
	}
}

// RegisterResult содержит результат регистрации
type RegisterResult struct {
	UserID     string // UUID пользователя
	Username   string // username
	PublicSalt string // public salt (base64)
}

// Register регистрирует нового пользователя.
// Ключ шифрования не сохраняется: для работы нужен login.
func (s *Service) Register(ctx context.Context, username, masterPassword string) (*RegisterResult, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(masterPassword); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	// 1. Генерируем публичную соль
	publicSaltBase64, err := crypto.GenerateSaltBase64()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	// 2. Деривируем ключи из master password
	keys, err := crypto.DeriveKeysFromBase64Salt(masterPassword, username, publicSaltBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to derive keys: %w", err)
	}

	// 3. Хешируем auth_key для отправки на сервер
	authKeyHash, err := crypto.HashAuthKey(keys.AuthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to hash auth key: %w", err)
	}

	// 4. Отправляем запрос на регистрацию
	resp, err := s.apiClient.Register(ctx, pkgapi.RegisterRequest{
		Username:    username,
		AuthKeyHash: authKeyHash,
		PublicSalt:  publicSaltBase64,
	})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	return &RegisterResult{
		UserID:     resp.UserID,
		Username:   username,
		PublicSalt: publicSaltBase64,
	}, nil
}

// LoginResult содержит результат авторизации
type LoginResult struct {
	UserID      string
	Username    string
	AccessToken string
	ExpiresIn   int64 // время жизни access token в секундах
}

// Login выполняет аутентификацию и сохраняет токены в зашифрованном виде
func (s *Service) Login(ctx context.Context, username, masterPassword string) (*LoginResult, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(masterPassword); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	// 1. Получаем public_salt с сервера
	saltResp, err := s.apiClient.GetSalt(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get salt: %w", err)
	}

	// 2. Деривируем ключи из master password
	keys, err := crypto.DeriveKeysFromBase64Salt(masterPassword, username, saltResp.PublicSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive keys: %w", err)
	}

	// 3. Хешируем auth_key
	authKeyHash, err := crypto.HashAuthKey(keys.AuthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to hash auth key: %w", err)
	}

	// 4. Отправляем запрос на логин
	resp, err := s.apiClient.Login(ctx, pkgapi.LoginRequest{
		Username:    username,
		AuthKeyHash: authKeyHash,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	// 5. Сохраняем auth данные с зашифрованными токенами
	auth := &storage.AuthData{
		Username:     username,
		UserID:       resp.UserID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		PublicSalt:   saltResp.PublicSalt,
		ExpiresAt:    time.Now().Unix() + resp.ExpiresIn,
	}
	if err := s.authStore.SaveAuth(ctx, auth, keys.EncryptionKey); err != nil {
		return nil, fmt.Errorf("failed to save auth data: %w", err)
	}

	return &LoginResult{
		UserID:      resp.UserID,
		Username:    username,
		AccessToken: resp.AccessToken,
		ExpiresIn:   resp.ExpiresIn,
	}, nil
}

// Logout удаляет локальные данные авторизации
func (s *Service) Logout(ctx context.Context) error {
	if err := s.authStore.DeleteAuth(ctx); err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return ErrNotLoggedIn
		}
		return fmt.Errorf("failed to delete local auth data: %w", err)
	}
	return nil
}

// Status возвращает сохраненные auth данные без расшифровки токенов
// (username, срок действия). Returns ErrNotLoggedIn если данных нет.
func (s *Service) Status(ctx context.Context) (*storage.AuthData, error) {
	auth, err := s.authStore.GetAuthRaw(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, err
	}
	return auth, nil
}

// IsLoggedIn проверяет наличие непросроченной сессии без master password
func (s *Service) IsLoggedIn(ctx context.Context) (bool, error) {
	return s.authStore.IsAuthenticated(ctx)
}

// Unlock расшифровывает сохраненные токены master password'ом.
// Неверный пароль дает ошибку расшифровки.
func (s *Service) Unlock(ctx context.Context, masterPassword string) (*storage.AuthData, error) {
	raw, err := s.authStore.GetAuthRaw(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, err
	}

	keys, err := crypto.DeriveKeysFromBase64Salt(masterPassword, raw.Username, raw.PublicSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive keys: %w", err)
	}

	auth, err := s.authStore.GetAuthDecrypted(ctx, keys.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to unlock auth data (wrong master password?): %w", err)
	}
	return auth, nil
}

// GetValidToken возвращает валидный access token, при необходимости
// обновляя пару токенов по refresh token. Единственная точка, через
// которую синхронизация получает токен.
func (s *Service) GetValidToken(ctx context.Context, masterPassword string) (string, error) {
	auth, err := s.Unlock(ctx, masterPassword)
	if err != nil {
		return "", err
	}

	// Токен еще жив (с запасом на время запроса)
	if time.Now().Unix() < auth.ExpiresAt-30 {
		return auth.AccessToken, nil
	}

	s.logger.Info("access token expired, refreshing")

	resp, err := s.apiClient.Refresh(ctx, pkgapi.RefreshRequest{RefreshToken: auth.RefreshToken})
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	keys, err := crypto.DeriveKeysFromBase64Salt(masterPassword, auth.Username, auth.PublicSalt)
	if err != nil {
		return "", fmt.Errorf("failed to derive keys: %w", err)
	}

	updated := &storage.AuthData{
		Username:     auth.Username,
		UserID:       auth.UserID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		PublicSalt:   auth.PublicSalt,
		ExpiresAt:    time.Now().Unix() + resp.ExpiresIn,
	}
	if err := s.authStore.SaveAuth(ctx, updated, keys.EncryptionKey); err != nil {
		return "", fmt.Errorf("failed to save refreshed tokens: %w", err)
	}

	return resp.AccessToken, nil
}
