package weather

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// tokenSkew backdates iat to tolerate clock drift.
	tokenSkew = 30 * time.Second
	tokenTTL  = 900 * time.Second
	// tokenRefreshLead regenerates this long before exp.
	tokenRefreshLead = 300 * time.Second
)

// tokenSource signs and caches the EdDSA bearer token. It is not
// synchronized; Client serializes access.
type tokenSource struct {
	keyID     string
	subject   string
	keyPath   string
	log       *slog.Logger
	key       crypto.PrivateKey
	token     string
	refreshAt time.Time
}

// get returns a valid token, regenerating it when now is at or past the
// refresh threshold. Missing configuration yields ErrConfigurationMissing.
func (s *tokenSource) get(now time.Time) (string, error) {
	if s.token != "" && now.Before(s.refreshAt) {
		return s.token, nil
	}
	s.token = ""
	if strings.TrimSpace(s.keyID) == "" || strings.TrimSpace(s.subject) == "" {
		return "", fmt.Errorf("%w: key id or subject id not set", ErrConfigurationMissing)
	}
	if s.key == nil {
		key, err := loadSigningKey(s.keyPath, s.log)
		if err != nil {
			return "", err
		}
		s.key = key
	}

	iat := now.Truncate(time.Second).Add(-tokenSkew)
	exp := iat.Add(tokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.RegisteredClaims{
		Subject:   s.subject,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	t.Header["kid"] = s.keyID
	signed, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	s.token = signed
	s.refreshAt = exp.Add(-tokenRefreshLead)
	return signed, nil
}

func (s *tokenSource) reset() {
	s.token = ""
	s.refreshAt = time.Time{}
}

// loadSigningKey reads a PKCS#8 PEM key. Anything but Ed25519 is logged and
// still returned; signing will then fail.
func loadSigningKey(path string, log *slog.Logger) (crypto.PrivateKey, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: private key path not set", ErrConfigurationMissing)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read private key: %v", ErrConfigurationMissing, err)
	}
	key, err := jwt.ParseEdPrivateKeyFromPEM(data)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, jwt.ErrNotEdPrivateKey) {
		return nil, fmt.Errorf("%w: parse private key: %v", ErrConfigurationMissing, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: %s is not PEM encoded", ErrConfigurationMissing, path)
	}
	other, perr := x509.ParsePKCS8PrivateKey(block.Bytes)
	if perr != nil {
		return nil, fmt.Errorf("%w: parse private key: %v", ErrConfigurationMissing, perr)
	}
	log.Warn("private key is not Ed25519, signing will likely fail", "type", fmt.Sprintf("%T", other))
	return other, nil
}
