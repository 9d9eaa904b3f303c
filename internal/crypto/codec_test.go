package crypto

import (
	"bytes"
	"testing"
)

func TestAESCodec_RoundTrip(t *testing.T) {
	codec, err := NewAESCodec("test-key-material")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	ciphertext, err := codec.Encrypt("s3cret-password")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if bytes.Contains(ciphertext, []byte("s3cret-password")) {
		t.Fatal("ciphertext contains plaintext")
	}

	plaintext, err := codec.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if plaintext != "s3cret-password" {
		t.Errorf("expected round trip to return original, got %q", plaintext)
	}
}

func TestAESCodec_WrongKey(t *testing.T) {
	codec, _ := NewAESCodec("key-one")
	other, _ := NewAESCodec("key-two")

	ciphertext, err := codec.Encrypt("password")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	if _, err := other.Decrypt(ciphertext); err == nil {
		t.Fatal("expected decrypt with wrong key to fail, got nil")
	}
}

func TestAESCodec_ShortCiphertext(t *testing.T) {
	codec, _ := NewAESCodec("key")
	if _, err := codec.Decrypt([]byte{0x01}); err != ErrCiphertextTooShort {
		t.Errorf("expected ErrCiphertextTooShort, got %v", err)
	}
}

func TestNewAESCodec_EmptyKey(t *testing.T) {
	if _, err := NewAESCodec(""); err == nil {
		t.Fatal("expected error for empty key, got nil")
	}
}
