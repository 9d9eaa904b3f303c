package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
)

// Codec encrypts and decrypts stored account credentials.
type Codec interface {
	Encrypt(plaintext string) ([]byte, error)
	Decrypt(ciphertext []byte) (string, error)
}

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// AESCodec is an AES-GCM Codec. The key material is hashed to a fixed 32-byte
// key, so any non-empty passphrase works.
type AESCodec struct {
	key [32]byte
}

func NewAESCodec(key string) (*AESCodec, error) {
	if key == "" {
		return nil, errors.New("credential key must not be empty")
	}
	return &AESCodec{key: sha256.Sum256([]byte(key))}, nil
}

func (c *AESCodec) Encrypt(plaintext string) ([]byte, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

func (c *AESCodec) Decrypt(ciphertext []byte) (string, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return "", ErrCiphertextTooShort
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
