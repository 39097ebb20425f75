// Package crypto provides encryption for the hosted backend API key at rest.
// Uses AES-256-GCM for authenticated encryption.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrInvalidCiphertext is returned when decryption fails.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	// ErrInvalidKey is returned when the key is invalid.
	ErrInvalidKey = errors.New("invalid key")
)

// Encrypt encrypts plaintext using AES-256-GCM. The cipher key is derived
// from the input key using SHA-256, and the random nonce is prepended to the
// ciphertext before base64 encoding.
func Encrypt(plaintext, key []byte) (string, error) {
	derivedKey := sha256.Sum256(key)

	block, err := aes.NewCipher(derivedKey[:])
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts ciphertext that was encrypted with Encrypt.
func Decrypt(ciphertext string, key []byte) ([]byte, error) {
	derivedKey := sha256.Sum256(key)

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(derivedKey[:])
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrInvalidCiphertext
	}

	nonce, cipherData := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, cipherData, nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}

	return plaintext, nil
}

// DeriveKey derives a consistent key from a machine-specific identifier.
func DeriveKey(machineID string) []byte {
	if machineID == "" {
		machineID = "farmtrack-default-key"
	}
	hash := sha256.Sum256([]byte("farmtrack:" + machineID))
	return hash[:]
}

// EncryptAPIKey encrypts the backend API key for storage.
func EncryptAPIKey(apiKey, machineID string) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("API key cannot be empty")
	}
	return Encrypt([]byte(apiKey), DeriveKey(machineID))
}

// DecryptAPIKey decrypts a stored backend API key. An empty stored value
// means no key is set.
func DecryptAPIKey(encryptedKey, machineID string) (string, error) {
	if encryptedKey == "" {
		return "", nil
	}
	plaintext, err := Decrypt(encryptedKey, DeriveKey(machineID))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
