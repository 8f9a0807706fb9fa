package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Параметры PBKDF2
const (
	// PBKDF2Iterations количество итераций
	PBKDF2Iterations = 100_000
	// SaltSize размер соли в байтах
	SaltSize = 16
)

// GenerateSalt генерирует криптографически случайную соль
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey выводит ключ AES-256 из парольной фразы
func DeriveKey(passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}
	return pbkdf2.Key([]byte(passphrase), salt, PBKDF2Iterations, KeySize, sha256.New), nil
}

// SealWithPassphrase шифрует данные ключом из парольной фразы.
// Формат результата: salt (16) + nonce (12) + ciphertext + auth_tag
func SealWithPassphrase(plaintext []byte, passphrase string) ([]byte, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}

	key, err := DeriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	encrypted, err := Encrypt(plaintext, key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(salt)+len(encrypted))
	out = append(out, salt...)
	return append(out, encrypted...), nil
}

// OpenWithPassphrase дешифрует результат SealWithPassphrase
func OpenWithPassphrase(sealed []byte, passphrase string) ([]byte, error) {
	if len(sealed) < SaltSize+NonceSize {
		return nil, fmt.Errorf("encrypted data too short")
	}

	key, err := DeriveKey(passphrase, sealed[:SaltSize])
	if err != nil {
		return nil, err
	}
	return Decrypt(sealed[SaltSize:], key)
}
