// Package crypto provides AES-GCM encryption for API keys at rest.
//
// Stored credential strings carry a literal "encrypted:" marker when they hold
// ciphertext; values without the marker are plaintext left over from
// installations that had no secret key configured. ParseStored collapses the
// marker check into a single step so callers work with a tagged value instead
// of scattering prefix checks.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// NonceSize is the GCM standard nonce size (12 bytes).
	NonceSize = 12
	// KeySize is the required key length for AES-256-GCM (32 bytes).
	KeySize = 32

	// EncryptedPrefix marks a stored value as ciphertext.
	EncryptedPrefix = "encrypted:"

	// SecretKeyEnv is the environment variable holding the hex-encoded
	// master key. It is looked up lazily on every encrypt/decrypt call so
	// the key can be rotated with a process restart and is never cached.
	SecretKeyEnv = "MYNERVA_SECRET_KEY"
)

var (
	ErrInvalidKeySize     = fmt.Errorf("crypto: key must be exactly %d bytes", KeySize)
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")

	// ErrMissingSecret is returned when a stored value carries the
	// encryption marker but no secret key is configured to decrypt it.
	ErrMissingSecret = errors.New("crypto: MYNERVA_SECRET_KEY is required to decrypt stored API key")
)

// ParseMasterKey decodes a 64-character hex string (32 bytes / 256 bits) into
// a raw key suitable for the AES-GCM helpers in this package.
//
// Generate a suitable key with:
//
//	openssl rand -hex 32
func ParseMasterKey(rawHex string) ([]byte, error) {
	raw := strings.TrimSpace(rawHex)
	if raw == "" {
		return nil, fmt.Errorf("crypto: master key is empty")
	}

	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid hex in master key: %w", err)
	}

	if len(key) != KeySize {
		return nil, fmt.Errorf("crypto: master key must be %d bytes (%d hex chars), got %d bytes",
			KeySize, KeySize*2, len(key))
	}

	return key, nil
}

// seal encrypts plaintext with AES-256-GCM. The returned ciphertext has the
// nonce prepended: [nonce(12)] + [ciphertext].
func seal(key, plaintext []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	// Seal appends the encrypted+authenticated ciphertext to nonce
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts a ciphertext produced by seal using the same 32-byte key.
func open(key, ciphertext []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}

	if len(ciphertext) < NonceSize {
		return nil, ErrCiphertextTooShort
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	nonce, data := ciphertext[:NonceSize], ciphertext[NonceSize:]
	plaintext, err := gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	return plaintext, nil
}

// Stored is the tagged at-rest representation of a credential string.
// Payload holds plaintext when Encrypted is false, and base64-encoded
// nonce+ciphertext when Encrypted is true.
type Stored struct {
	Encrypted bool
	Payload   string
}

// ParseStored classifies a raw stored value by its marker prefix.
func ParseStored(raw string) Stored {
	if rest, ok := strings.CutPrefix(raw, EncryptedPrefix); ok {
		return Stored{Encrypted: true, Payload: rest}
	}
	return Stored{Payload: raw}
}

// String re-serializes the stored value to its on-disk form.
func (s Stored) String() string {
	if s.Encrypted {
		return EncryptedPrefix + s.Payload
	}
	return s.Payload
}

// KeySource supplies the master key material for a Cipher. It returns the raw
// (hex-encoded) key and whether a key is configured at all.
type KeySource func() (string, bool)

// EnvKeySource returns a KeySource backed by the named environment variable.
func EnvKeySource(name string) KeySource {
	return func() (string, bool) {
		v := os.Getenv(name)
		return v, v != ""
	}
}

// Cipher encrypts and decrypts credential strings. The key is fetched from
// the KeySource on every call; "no key configured" is a valid state in which
// Encrypt degrades to plaintext and Decrypt of marked values fails with
// ErrMissingSecret.
type Cipher struct {
	source KeySource
}

// NewCipher creates a Cipher. A nil source defaults to the MYNERVA_SECRET_KEY
// environment variable.
func NewCipher(source KeySource) *Cipher {
	if source == nil {
		source = EnvKeySource(SecretKeyEnv)
	}
	return &Cipher{source: source}
}

// Configured reports whether a secret key is currently available.
func (c *Cipher) Configured() bool {
	_, ok := c.source()
	return ok
}

// Encrypt transforms a plaintext credential into its at-rest form.
// Empty input is returned as-is; with no key configured the plaintext is
// returned unchanged (the install opted out of at-rest encryption).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	rawKey, ok := c.source()
	if !ok {
		return plaintext, nil
	}

	key, err := ParseMasterKey(rawKey)
	if err != nil {
		return "", err
	}

	box, err := seal(key, []byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("crypto: encrypt: %w", err)
	}

	return EncryptedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

// Decrypt parses and reveals a raw stored value. Unmarked values (including
// the empty string) are returned unchanged.
func (c *Cipher) Decrypt(raw string) (string, error) {
	return c.Reveal(ParseStored(raw))
}

// Reveal returns the plaintext behind a tagged stored value.
func (c *Cipher) Reveal(s Stored) (string, error) {
	if !s.Encrypted {
		return s.Payload, nil
	}

	rawKey, ok := c.source()
	if !ok {
		return "", ErrMissingSecret
	}

	key, err := ParseMasterKey(rawKey)
	if err != nil {
		return "", err
	}

	box, err := base64.StdEncoding.DecodeString(s.Payload)
	if err != nil {
		return "", fmt.Errorf("crypto: decode stored value: %w", err)
	}

	plaintext, err := open(key, box)
	if err != nil {
		return "", fmt.Errorf("crypto: %w", err)
	}

	return string(plaintext), nil
}
