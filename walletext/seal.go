package walletext

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// Argon2id parameters for payload sealing.
	argon2Time        = 3
	argon2Memory      = 64 * 1024 // 64 MB
	argon2Parallelism = 4
	argon2KeyLen      = 32

	sealSaltLen  = 16
	sealNonceLen = 12
)

// sealer encrypts and decrypts extension payloads with a passphrase-derived key.
//
// Sealed format: salt(16B) || nonce(12B) || AES-GCM(argon2id(passphrase, salt), nonce, payload)
type sealer struct {
	passphrase []byte
}

func (s *sealer) aead(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(s.passphrase, salt, argon2Time, argon2Memory, argon2Parallelism, argon2KeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("walletext: AES cipher creation failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("walletext: GCM creation failed: %w", err)
	}
	return gcm, nil
}

// seal encrypts payload with a fresh salt and nonce.
func (s *sealer) seal(payload []byte) ([]byte, error) {
	salt := make([]byte, sealSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("walletext: failed to generate salt: %w", err)
	}

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("walletext: failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, payload, nil)

	result := make([]byte, 0, sealSaltLen+len(nonce)+len(ciphertext))
	result = append(result, salt...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)
	return result, nil
}

// open decrypts a sealed payload. Authentication failure is reported as
// ErrWrongPassphrase since a wrong key and a tampered payload are
// indistinguishable to GCM.
func (s *sealer) open(sealed []byte) ([]byte, error) {
	if len(sealed) < sealSaltLen+sealNonceLen {
		return nil, ErrCorruptSeal
	}

	salt := sealed[:sealSaltLen]
	nonce := sealed[sealSaltLen : sealSaltLen+sealNonceLen]
	ciphertext := sealed[sealSaltLen+sealNonceLen:]

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	payload, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return payload, nil
}
