package configs

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

type SessionKeys struct {
	AuthKey []byte
	EncKey  []byte
}

// CSRFKey derives the 32 byte key gorilla/csrf expects from the auth key.
func (k *SessionKeys) CSRFKey() []byte {
	return k.AuthKey[:32]
}

// LoadSessionKeys decodes APP_AUTH_KEY and APP_ENC_KEY. Outside production
// missing keys are replaced with random ones, which invalidates every
// session cookie on restart.
func LoadSessionKeys(env ENV, logger *zap.Logger) (*SessionKeys, error) {
	if env.AppAuthKey == "" && env.AppEncKey == "" && !env.IsProduction() {
		logger.Warn("APP_AUTH_KEY and APP_ENC_KEY not set, using ephemeral session keys")
		return &SessionKeys{
			AuthKey: securecookie.GenerateRandomKey(64),
			EncKey:  securecookie.GenerateRandomKey(32),
		}, nil
	}

	if env.AppAuthKey == "" {
		return nil, fmt.Errorf("APP_AUTH_KEY environment variable not set")
	}
	if env.AppEncKey == "" {
		return nil, fmt.Errorf("APP_ENC_KEY environment variable not set")
	}

	authKey, err := base64.URLEncoding.DecodeString(env.AppAuthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode APP_AUTH_KEY from Base64: %w", err)
	}
	encKey, err := base64.URLEncoding.DecodeString(env.AppEncKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode APP_ENC_KEY from Base64: %w", err)
	}

	if len(authKey) < 32 {
		return nil, fmt.Errorf("APP_AUTH_KEY has invalid length %d after decoding. Must be at least 32 bytes", len(authKey))
	}
	if len(encKey) != 16 && len(encKey) != 24 && len(encKey) != 32 {
		return nil, fmt.Errorf("APP_ENC_KEY has invalid length %d after decoding. Must be 16, 24, or 32 bytes for AES encryption", len(encKey))
	}

	return &SessionKeys{
		AuthKey: authKey,
		EncKey:  encKey,
	}, nil
}

// GenerateAndPrintSessionKeys writes a fresh key pair to path and echoes it.
func GenerateAndPrintSessionKeys(path string) error {
	authKey := securecookie.GenerateRandomKey(64)
	if authKey == nil {
		return fmt.Errorf("error: could not generate authentication key")
	}

	encKey := securecookie.GenerateRandomKey(32)
	if encKey == nil {
		return fmt.Errorf("error: could not generate encryption key")
	}

	lines := fmt.Sprintf("APP_AUTH_KEY=%s\nAPP_ENC_KEY=%s\n",
		base64.URLEncoding.EncodeToString(authKey),
		base64.URLEncoding.EncodeToString(encKey),
	)

	fmt.Print(lines)

	if err := os.WriteFile(path, []byte(lines), 0o600); err != nil {
		return fmt.Errorf("failed to write keys to file %s: %w", path, err)
	}

	fmt.Printf("Keys have been written to '%s'. Copy them into your .env file; regenerating invalidates existing sessions.\n", path)
	return nil
}
