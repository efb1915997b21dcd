package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pedrohonorio/biblioteca-virtual/internal/client"
	"github.com/pedrohonorio/biblioteca-virtual/internal/client/entity"
)

var (
	ErrBadCredentials = errors.New("invalid credentials")
	ErrInvalidSession = errors.New("refresh session invalid or expired")
	ErrInvalidToken   = errors.New("access token invalid")
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

// ClientSource resolves accounts for authentication.
type ClientSource interface {
	GetByEmail(ctx context.Context, email string) (*entity.Client, error)
	GetByID(ctx context.Context, id int64) (*entity.Client, error)
}

// SessionStore persists opaque refresh sessions.
type SessionStore interface {
	Save(ctx context.Context, token string, clientID int64, expiresAt time.Time) error
	Get(ctx context.Context, token string) (int64, time.Time, error)
	Delete(ctx context.Context, token string) error
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Service authenticates clients and issues RS256 access tokens plus opaque
// refresh tokens. The signing key is generated per process; verification
// keys are published through JWKS.
type Service struct {
	key      *rsa.PrivateKey
	kid      string
	issuer   string
	clients  ClientSource
	sessions SessionStore
	hasher   client.PasswordHasher
}

func NewService(issuer string, clients ClientSource, sessions SessionStore, hasher client.PasswordHasher) (*Service, error) {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	// kid derived from the public key so restarts rotate it
	pubBytes, _ := json.Marshal(k.PublicKey)
	h := sha256.Sum256(pubBytes)
	kid := base64.RawURLEncoding.EncodeToString(h[:8])
	if hasher == nil {
		hasher = client.BcryptHasher{Cost: 12}
	}
	return &Service{key: k, kid: kid, issuer: issuer, clients: clients, sessions: sessions, hasher: hasher}, nil
}

// Login verifies the password and returns a token pair. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	c, err := s.clients.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if !s.hasher.Verify(c.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	return s.issue(ctx, c)
}

// Refresh exchanges a valid refresh session for a fresh token pair,
// rotating the refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	clientID, expiresAt, err := s.sessions.Get(ctx, refreshToken)
	if err != nil {
		return nil, ErrInvalidSession
	}
	if expiresAt.Before(time.Now()) {
		_ = s.sessions.Delete(ctx, refreshToken)
		return nil, ErrInvalidSession
	}
	c, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, ErrInvalidSession
	}
	if err := s.sessions.Delete(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("refresh: rotate session: %w", err)
	}
	return s.issue(ctx, c)
}

// Logout revokes a refresh session.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.Delete(ctx, refreshToken)
}

// Verify parses and validates an access token and returns its claims.
func (s *Service) Verify(tokenString string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return &s.key.PublicKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// JWKS returns a minimal JWKS containing the public key.
func (s *Service) JWKS() map[string]any {
	pub := s.key.PublicKey
	n := base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	e := base64.RawURLEncoding.EncodeToString(new(big.Int).SetInt64(int64(pub.E)).Bytes())
	jwk := map[string]any{
		"kty": "RSA",
		"use": "sig",
		"alg": "RS256",
		"kid": s.kid,
		"n":   n,
		"e":   e,
	}
	return map[string]any{"keys": []any{jwk}}
}

func (s *Service) issue(ctx context.Context, c *entity.Client) (*TokenPair, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":     s.issuer,
		"sub":     fmt.Sprintf("%d", c.ID),
		"exp":     now.Add(accessTokenTTL).Unix(),
		"iat":     now.Unix(),
		"email":   c.Email,
		"profile": string(c.Profile),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = s.kid
	access, err := tok.SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	rtBytes := make([]byte, 32)
	if _, err := rand.Read(rtBytes); err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	refresh := base64.RawURLEncoding.EncodeToString(rtBytes)
	if err := s.sessions.Save(ctx, refresh, c.ID, now.Add(refreshTokenTTL)); err != nil {
		return nil, fmt.Errorf("save refresh session: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(accessTokenTTL.Seconds()),
	}, nil
}
