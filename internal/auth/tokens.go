package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/flashcardexchange/flashcards/internal/id"
)

const (
	tokenIssuer   = "flashcards"
	tokenAudience = "flashcards-browser"

	claimClientID = "client_id"
)

// ClientClaims are the decrypted contents of a client token.
type ClientClaims struct {
	Expiration time.Time `json:"exp"`
	IssuedAt   time.Time `json:"iat"`
	ClientID   string    `json:"client_id"`
	TokenID    string    `json:"jti"`
}

// TokenService issues PASETO v4.local tokens that bind a browser tab to its
// client instance. The signed-in identity is not in the token; it lives in
// the client instance's session.
type TokenService struct {
	key paseto.V4SymmetricKey
	ttl time.Duration
	now func() time.Time
}

// NewTokenService creates a token service from a 32-byte key.
func NewTokenService(key []byte, ttl time.Duration) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be %d bytes, got %d", keyLength, len(key))
	}
	k, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}
	return &TokenService{key: k, ttl: ttl, now: time.Now}, nil
}

// Issue creates a token for clientID.
func (s *TokenService) Issue(clientID string) (string, error) {
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(clientID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.ttl))

	jti, err := id.Generate(id.PrefixTokenID)
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(jti)

	if err := token.Set(claimClientID, clientID); err != nil {
		return "", fmt.Errorf("set client claim: %w", err)
	}

	return token.V4Encrypt(s.key, nil), nil
}

// Verify decrypts and validates a token.
func (s *TokenService) Verify(raw string) (*ClientClaims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.key, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims ClientClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.ClientID == "" {
		return nil, fmt.Errorf("invalid token: missing %s", claimClientID)
	}
	return &claims, nil
}

// TTL returns the token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
