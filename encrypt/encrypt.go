// Package encrypt provides link encryption and decryption functions.
package encrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
)

// KeyFromHex decodes a hex encoded 256-bit key from config.
func KeyFromHex(s string) (*[32]byte, error) {
	buf, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(buf) != 32 {
		return nil, errors.New("key must be 32 bytes")
	}

	key := [32]byte{}
	copy(key[:], buf)
	return &key, nil
}

// EncAndHex encrypts x with key and converts x to hex
func EncAndHex(x string, key *[32]byte) (string, error) {
	cipher, err := Encrypt([]byte(x), key)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(cipher), nil
}

// DecFromHex decodes hex encoded x and decrypts that with key
func DecFromHex(x string, key *[32]byte) (string, error) {
	buf, err := hex.DecodeString(x)
	if err != nil {
		return "", err
	}
	plainTextBuf, err := Decrypt(buf, key)
	if err != nil {
		return "", err
	}

	return string(plainTextBuf), nil
}

// Encrypt encrypts data using 256-bit AES-GCM.  This both hides the content of
// the data and provides a check that it hasn't been altered. Output takes the
// form nonce|ciphertext|tag where '|' indicates concatenation.
func Encrypt(plaintext []byte, key *[32]byte) (ciphertext []byte, err error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	_, err = io.ReadFull(rand.Reader, nonce)
	if err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt decrypts data using 256-bit AES-GCM.  This both hides the content of
// the data and provides a check that it hasn't been altered. Expects input
// form nonce|ciphertext|tag where '|' indicates concatenation.
func Decrypt(ciphertext []byte, key *[32]byte) (plaintext []byte, err error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("malformed ciphertext")
	}

	return gcm.Open(nil,
		ciphertext[:gcm.NonceSize()],
		ciphertext[gcm.NonceSize():],
		nil,
	)
}
