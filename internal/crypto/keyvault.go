// Package crypto encrypts marketplace API keys at rest and derives the
// hashes used to compare them without decryption.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

const (
	// scrypt parameters: interactive-grade, N=2^15.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
	// saltLen is the random salt length in bytes.
	saltLen = 16
	// aesKeyLen is the derived AES-256 key length.
	aesKeyLen = 32
	// currentVersion is the encrypted-key JSON schema version.
	currentVersion = 1
	// keyHashLen truncates the comparison hash to 32 hex chars.
	keyHashLen = 32
)

// encryptedKeyJSON is the stored envelope for an encrypted API key.
type encryptedKeyJSON struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`       // base64 standard encoding
	Nonce      string `json:"nonce"`      // base64 standard encoding
	Ciphertext string `json:"ciphertext"` // base64 standard encoding
}

// KeyVault seals and opens marketplace API keys with a master secret.
// The secret never reaches the database; each sealed key carries its
// own random salt and nonce.
type KeyVault struct {
	secret []byte
}

// NewKeyVault creates a vault from the master secret.
func NewKeyVault(secret string) (*KeyVault, error) {
	if secret == "" {
		return nil, errors.New("crypto: vault secret must not be empty")
	}
	return &KeyVault{secret: []byte(secret)}, nil
}

// Seal encrypts an API key using scrypt key derivation and AES-256-GCM
// authenticated encryption, returning the JSON envelope for storage.
func (v *KeyVault) Seal(apiKey string) ([]byte, error) {
	if apiKey == "" {
		return nil, errors.New("crypto: api key must not be empty")
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generating salt: %w", err)
	}

	gcm, err := v.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(apiKey), nil)

	out, err := json.Marshal(encryptedKeyJSON{
		Version:    currentVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	})
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal envelope: %w", err)
	}
	return out, nil
}

// Open decrypts an envelope produced by Seal.
func (v *KeyVault) Open(envelope []byte) (string, error) {
	var enc encryptedKeyJSON
	if err := json.Unmarshal(envelope, &enc); err != nil {
		return "", fmt.Errorf("crypto: parse envelope: %w", err)
	}
	if enc.Version != currentVersion {
		return "", fmt.Errorf("crypto: unsupported envelope version %d", enc.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(enc.Salt)
	if err != nil {
		return "", fmt.Errorf("crypto: decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(enc.Nonce)
	if err != nil {
		return "", fmt.Errorf("crypto: decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(enc.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto: decode ciphertext: %w", err)
	}

	gcm, err := v.aead(salt)
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", errors.New("crypto: malformed nonce")
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.New("crypto: decryption failed (wrong secret or corrupted envelope)")
	}
	return string(plaintext), nil
}

func (v *KeyVault) aead(salt []byte) (cipher.AEAD, error) {
	derived, err := scrypt.Key(v.secret, salt, scryptN, scryptR, scryptP, aesKeyLen)
	if err != nil {
		return nil, fmt.Errorf("crypto: derive key: %w", err)
	}
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	return gcm, nil
}

// HashKey derives the truncated SHA-256 hex digest used to compare a
// presented key against the stored record without decrypting anything.
func HashKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])[:keyHashLen]
}
