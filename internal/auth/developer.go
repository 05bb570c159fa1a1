package auth

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DeveloperTokenSigner issues ES256 MusicKit developer tokens.
type DeveloperTokenSigner struct {
	TeamID string
	KeyID  string
	TTL    time.Duration

	key *ecdsa.PrivateKey
	now func() time.Time
}

// NewDeveloperTokenSigner parses a PEM-encoded .p8 key.
func NewDeveloperTokenSigner(teamID, keyID string, pemKey []byte, ttl time.Duration) (*DeveloperTokenSigner, error) {
	if teamID == "" || keyID == "" {
		return nil, fmt.Errorf("team id and key id are required")
	}

	key, err := jwt.ParseECPrivateKeyFromPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &DeveloperTokenSigner{TeamID: teamID, KeyID: keyID, TTL: ttl, key: key, now: time.Now}, nil
}

// LoadDeveloperTokenSigner reads the .p8 key from path.
func LoadDeveloperTokenSigner(teamID, keyID, path string, ttl time.Duration) (*DeveloperTokenSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	return NewDeveloperTokenSigner(teamID, keyID, data, ttl)
}

// Sign returns a token issued by TeamID with the kid header set to KeyID.
func (s *DeveloperTokenSigner) Sign() (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.TTL)

	tok := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.RegisteredClaims{
		Issuer:    s.TeamID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	tok.Header["kid"] = s.KeyID

	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign developer token: %w", err)
	}
	return signed, exp, nil
}

// PublicKey returns the verification key.
func (s *DeveloperTokenSigner) PublicKey() *ecdsa.PublicKey {
	return &s.key.PublicKey
}
