package web

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/crypto/hkdf"
)

// csrfKeyInfo binds derived keys to their purpose.
const csrfKeyInfo = "activityboard csrf v1"

// ErrCSRFKeyRequired is returned in production when no key material is configured.
var ErrCSRFKeyRequired = errors.New("a csrf key or secret is required in production")

// LoadCSRFKey returns the 32-byte CSRF authentication key. An explicit hex
// key wins; otherwise the key is derived from secret with HKDF-SHA256. With
// neither, development gets a random per-process key and production fails.
// PRE: none
// POST: Returns a 32-byte key or an error
func LoadCSRFKey(hexKey, secret string, production bool) ([]byte, error) {
	if hexKey != "" {
		key, err := hex.DecodeString(hexKey)
		if err != nil || len(key) != 32 {
			return nil, errors.New("csrf key must be 64 hex characters (32 bytes)")
		}
		return key, nil
	}
	if secret != "" {
		return DeriveCSRFKey(secret)
	}
	if production {
		return nil, ErrCSRFKeyRequired
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate csrf key: %w", err)
	}
	slog.Warn("csrf_key_random", "detail", "tokens will not survive a restart; set security.csrf_key or security.secret")
	return key, nil
}

// DeriveCSRFKey expands secret into a 32-byte key.
// PRE: secret is non-empty
// POST: Same secret always yields the same key
func DeriveCSRFKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("secret is empty")
	}
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(csrfKeyInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive csrf key: %w", err)
	}
	return key, nil
}
