package crypto_test

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/yacchin1205/jupyter-mynerva/common/crypto"
)

// testKeyHex is a fixed 32-byte key in hex form.
func testKeyHex(t *testing.T) string {
	t.Helper()
	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return hex.EncodeToString(key)
}

func keyedCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	keyHex := testKeyHex(t)
	return crypto.NewCipher(func() (string, bool) { return keyHex, true })
}

func unkeyedCipher() *crypto.Cipher {
	return crypto.NewCipher(func() (string, bool) { return "", false })
}

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	c := keyedCipher(t)
	plaintext := "sk-super-secret-api-key-value-123"

	stored, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if !strings.HasPrefix(stored, crypto.EncryptedPrefix) {
		t.Fatalf("stored value %q missing encryption marker", stored)
	}
	if strings.Contains(stored, plaintext) {
		t.Fatal("stored value leaks plaintext")
	}

	recovered, err := c.Decrypt(stored)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if recovered != plaintext {
		t.Errorf("recovered %q, want %q", recovered, plaintext)
	}
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	c := keyedCipher(t)

	c1, err := c.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("first Encrypt: %v", err)
	}
	c2, err := c.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("second Encrypt: %v", err)
	}

	// Random nonce means ciphertexts should differ
	if c1 == c2 {
		t.Error("two encryptions of same plaintext produced identical ciphertext (nonce not random)")
	}
}

func TestEncrypt_EmptyInput(t *testing.T) {
	for _, c := range []*crypto.Cipher{keyedCipher(t), unkeyedCipher()} {
		got, err := c.Encrypt("")
		if err != nil {
			t.Fatalf("Encrypt empty: %v", err)
		}
		if got != "" {
			t.Errorf("Encrypt(\"\") = %q, want empty", got)
		}

		got, err = c.Decrypt("")
		if err != nil {
			t.Fatalf("Decrypt empty: %v", err)
		}
		if got != "" {
			t.Errorf("Decrypt(\"\") = %q, want empty", got)
		}
	}
}

func TestEncrypt_NoKeyFallsBackToPlaintext(t *testing.T) {
	c := unkeyedCipher()

	got, err := c.Encrypt("sk-plain")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if got != "sk-plain" {
		t.Errorf("Encrypt without key = %q, want plaintext passthrough", got)
	}
}

func TestDecrypt_UnmarkedPassthrough(t *testing.T) {
	// Pre-existing plaintext configs must stay readable whether or not a
	// key is configured.
	for name, c := range map[string]*crypto.Cipher{
		"keyed":   keyedCipher(t),
		"unkeyed": unkeyedCipher(),
	} {
		t.Run(name, func(t *testing.T) {
			got, err := c.Decrypt("sk-legacy-plaintext")
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if got != "sk-legacy-plaintext" {
				t.Errorf("got %q, want unchanged plaintext", got)
			}
		})
	}
}

func TestDecrypt_MarkedWithoutKey(t *testing.T) {
	keyed := keyedCipher(t)
	stored, err := keyed.Encrypt("sk-secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	_, err = unkeyedCipher().Decrypt(stored)
	if !errors.Is(err, crypto.ErrMissingSecret) {
		t.Fatalf("Decrypt marked value without key: got %v, want ErrMissingSecret", err)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	stored, err := keyedCipher(t).Encrypt("sk-secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	otherHex := strings.Repeat("ab", crypto.KeySize)
	other := crypto.NewCipher(func() (string, bool) { return otherHex, true })
	if _, err := other.Decrypt(stored); err == nil {
		t.Fatal("expected authentication failure with wrong key, got nil")
	}
}

func TestParseStored(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		encrypted bool
		payload   string
	}{
		{"empty", "", false, ""},
		{"plaintext", "sk-abc", false, "sk-abc"},
		{"marked", "encrypted:AAAA", true, "AAAA"},
		{"marker only", "encrypted:", true, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := crypto.ParseStored(tc.raw)
			if s.Encrypted != tc.encrypted || s.Payload != tc.payload {
				t.Errorf("ParseStored(%q) = %+v, want encrypted=%v payload=%q",
					tc.raw, s, tc.encrypted, tc.payload)
			}
			if s.String() != tc.raw {
				t.Errorf("String() = %q, want round-trip to %q", s.String(), tc.raw)
			}
		})
	}
}

func TestParseMasterKey(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", testKeyHex(t), false},
		{"valid with whitespace", " " + testKeyHex(t) + "\n", false},
		{"empty", "", true},
		{"not hex", strings.Repeat("zz", 32), true},
		{"too short", "abcd", true},
		{"too long", strings.Repeat("ab", 33), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := crypto.ParseMasterKey(tc.raw)
			if (err != nil) != tc.wantErr {
				t.Errorf("ParseMasterKey(%q) error = %v, wantErr %v", tc.raw, err, tc.wantErr)
			}
		})
	}
}

func TestCipher_BadKeyMaterial(t *testing.T) {
	c := crypto.NewCipher(func() (string, bool) { return "not-hex", true })

	if _, err := c.Encrypt("value"); err == nil {
		t.Error("Encrypt with malformed key: expected error, got nil")
	}
	if _, err := c.Decrypt(crypto.EncryptedPrefix + "AAAA"); err == nil {
		t.Error("Decrypt with malformed key: expected error, got nil")
	}
}
