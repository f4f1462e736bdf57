package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Keys - пара производных ключей: auth key уходит на сервер,
// encryption key никогда не покидает клиента
type Keys struct {
	AuthKey       []byte // для аутентификации на сервере (32 bytes)
	EncryptionKey []byte // для шифрования локальных секретов (32 bytes)
}

// Параметры Argon2id
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// Argon2KeyLen - длина выходного ключа в байтах
	Argon2KeyLen = 32
	// SaltSize - размер соли в байтах
	SaltSize = 32
)

// GenerateSalt генерирует криптографически случайную соль
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// GenerateSaltBase64 генерирует соль и возвращает ее в Base64
func GenerateSaltBase64() (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// DeriveKeys выводит два независимых ключа из master password.
// Разные context strings ("auth" / "encrypt") гарантируют, что знание
// одного ключа не дает ничего о втором.
func DeriveKeys(masterPassword, username string, salt []byte) (*Keys, error) {
	if masterPassword == "" {
		return nil, fmt.Errorf("master password cannot be empty")
	}
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	baseInput := []byte(masterPassword + username)

	authInput := append(append([]byte{}, baseInput...), []byte("auth")...)
	authKey := argon2.IDKey(authInput, salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)

	encryptInput := append(append([]byte{}, baseInput...), []byte("encrypt")...)
	encryptionKey := argon2.IDKey(encryptInput, salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)

	return &Keys{
		AuthKey:       authKey,
		EncryptionKey: encryptionKey,
	}, nil
}

// DeriveKeysFromBase64Salt выводит ключи из Base64-кодированной соли,
// как она приходит от сервера при login
func DeriveKeysFromBase64Salt(masterPassword, username, saltBase64 string) (*Keys, error) {
	salt, err := base64.StdEncoding.DecodeString(saltBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	return DeriveKeys(masterPassword, username, salt)
}
