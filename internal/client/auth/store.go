package auth

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/iudanet/kotobako/internal/client/storage"
	"github.com/iudanet/kotobako/internal/crypto"
)

// Store - слой шифрования между бизнес-логикой и хранилищем auth данных.
// Токены шифруются AES-GCM перед сохранением; срок действия хранится
// открытым, чтобы проверять логин без master password.
type Store struct {
	storage storage.AuthStorage
}

// NewStore создает слой шифрования поверх AuthStorage
func NewStore(authStorage storage.AuthStorage) *Store {
	return &Store{storage: authStorage}
}

// SaveAuth шифрует токены и сохраняет auth данные.
// encryptionKey - 32 байта, производные от master password.
func (s *Store) SaveAuth(ctx context.Context, auth *storage.AuthData, encryptionKey []byte) error {
	if auth == nil {
		return fmt.Errorf("auth data is nil")
	}

	encryptedAccess, err := crypto.Encrypt([]byte(auth.AccessToken), encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	encryptedRefresh, err := crypto.Encrypt([]byte(auth.RefreshToken), encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	// Копируем структуру, чтобы не менять входящую
	authCopy := *auth
	authCopy.AccessToken = base64.StdEncoding.EncodeToString(encryptedAccess)
	authCopy.RefreshToken = base64.StdEncoding.EncodeToString(encryptedRefresh)

	return s.storage.SaveAuth(ctx, &authCopy)
}

// GetAuthDecrypted загружает auth данные и расшифровывает токены
func (s *Store) GetAuthDecrypted(ctx context.Context, encryptionKey []byte) (*storage.AuthData, error) {
	stored, err := s.storage.GetAuth(ctx)
	if err != nil {
		return nil, err
	}

	encryptedAccess, err := base64.StdEncoding.DecodeString(stored.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to base64 decode access token: %w", err)
	}
	encryptedRefresh, err := base64.StdEncoding.DecodeString(stored.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to base64 decode refresh token: %w", err)
	}

	accessToken, err := crypto.Decrypt(encryptedAccess, encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	refreshToken, err := crypto.Decrypt(encryptedRefresh, encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	auth := *stored
	auth.AccessToken = string(accessToken)
	auth.RefreshToken = string(refreshToken)
	return &auth, nil
}

// GetAuthRaw загружает auth данные без расшифровки - для username,
// соли и срока действия токена
func (s *Store) GetAuthRaw(ctx context.Context) (*storage.AuthData, error) {
	stored, err := s.storage.GetAuth(ctx)
	if err != nil {
		return nil, err
	}
	auth := *stored
	return &auth, nil
}

// DeleteAuth удаляет сохраненные auth данные (logout)
func (s *Store) DeleteAuth(ctx context.Context) error {
	return s.storage.DeleteAuth(ctx)
}

// IsAuthenticated проверяет наличие непросроченной сессии
func (s *Store) IsAuthenticated(ctx context.Context) (bool, error) {
	return s.storage.IsAuthenticated(ctx)
}
