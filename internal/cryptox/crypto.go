// Package cryptox seals small blobs (the stored session) under a key derived
// from a user passphrase.
//
// Layout of a sealed blob:
//
//	salt (16 bytes) | nonce (24 bytes) | XChaCha20-Poly1305 ciphertext
package cryptox

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	SaltSize = 16
	KeySize  = chacha20poly1305.KeySize
)

var (
	ErrEmptyPassphrase = errors.New("empty passphrase")
	ErrMalformedBlob   = errors.New("sealed blob is too short")
)

// DeriveKey stretches passphrase with argon2id.
func DeriveKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// Seal encrypts plaintext with a fresh salt and nonce.
func Seal(passphrase, plaintext []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}

	aead, err := chacha20poly1305.NewX(DeriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	out := make([]byte, 0, SaltSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// Open reverses Seal. A wrong passphrase or a tampered blob yields an error.
func Open(passphrase, blob []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}
	if len(blob) < SaltSize+chacha20poly1305.NonceSizeX {
		return nil, ErrMalformedBlob
	}

	salt := blob[:SaltSize]
	nonce := blob[SaltSize : SaltSize+chacha20poly1305.NonceSizeX]
	ciphertext := blob[SaltSize+chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(DeriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open sealed blob: %w", err)
	}
	return plaintext, nil
}
