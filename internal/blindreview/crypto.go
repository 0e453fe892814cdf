package blindreview

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecryptFailed is returned when a ciphertext cannot be opened. The
// caller routes the affected review to moderation instead of surfacing it.
var ErrDecryptFailed = errors.New("review payload decryption failed")

const dataKeySize = chacha20poly1305.KeySize

// cipherBox seals and opens review payloads. Each transaction pair gets a
// fresh data key; data keys are stored only wrapped under the master key.
type cipherBox struct {
	masterKey []byte
}

func newCipherBox(masterKey []byte) (*cipherBox, error) {
	if len(masterKey) != dataKeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", dataKeySize, len(masterKey))
	}
	return &cipherBox{masterKey: masterKey}, nil
}

// newDataKey generates a fresh per-pair key.
func (b *cipherBox) newDataKey() ([]byte, error) {
	key := make([]byte, dataKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate data key: %w", err)
	}
	return key, nil
}

// wrapKey encrypts a data key under the master key.
func (b *cipherBox) wrapKey(dataKey []byte) (wrapped, nonce []byte, err error) {
	return seal(b.masterKey, dataKey)
}

// unwrapKey recovers a data key. Failure means the master key rotated or
// the stored key is corrupt.
func (b *cipherBox) unwrapKey(wrapped, nonce []byte) ([]byte, error) {
	key, err := open(b.masterKey, wrapped, nonce)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return key, nil
}

// sealPayload encrypts a review payload with the pair's data key.
func (b *cipherBox) sealPayload(dataKey, plaintext []byte) (ciphertext, nonce []byte, err error) {
	return seal(dataKey, plaintext)
}

// openPayload decrypts a review payload.
func (b *cipherBox) openPayload(dataKey, ciphertext, nonce []byte) ([]byte, error) {
	plaintext, err := open(dataKey, ciphertext, nonce)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

func seal(key, plaintext []byte) (ciphertext, nonce []byte, err error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, fmt.Errorf("init cipher: %w", err)
	}
	nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

func open(key, ciphertext, nonce []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return aead.Open(nil, nonce, ciphertext, nil)
}
