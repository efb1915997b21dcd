package auth_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pedrohonorio/biblioteca-virtual/internal/auth"
	"github.com/pedrohonorio/biblioteca-virtual/internal/client"
	"github.com/pedrohonorio/biblioteca-virtual/internal/client/entity"
)

// fakeClientSource serves a fixed set of accounts.
type fakeClientSource struct {
	byEmail map[string]*entity.Client
	byID    map[int64]*entity.Client
}

func (s *fakeClientSource) GetByEmail(_ context.Context, email string) (*entity.Client, error) {
	c, ok := s.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (s *fakeClientSource) GetByID(_ context.Context, id int64) (*entity.Client, error) {
	c, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

type session struct {
	clientID  int64
	expiresAt time.Time
}

// fakeSessionStore keeps refresh sessions in a map.
type fakeSessionStore struct {
	sessions map[string]session
}

func (s *fakeSessionStore) Save(_ context.Context, token string, clientID int64, expiresAt time.Time) error {
	s.sessions[token] = session{clientID: clientID, expiresAt: expiresAt}
	return nil
}

func (s *fakeSessionStore) Get(_ context.Context, token string) (int64, time.Time, error) {
	sess, ok := s.sessions[token]
	if !ok {
		return 0, time.Time{}, sql.ErrNoRows
	}
	return sess.clientID, sess.expiresAt, nil
}

func (s *fakeSessionStore) Delete(_ context.Context, token string) error {
	delete(s.sessions, token)
	return nil
}

func newFixture(t *testing.T) (*auth.Service, *fakeSessionStore) {
	t.Helper()
	hasher := client.BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := hasher.Hash("s3cret")
	require.NoError(t, err)
	ana := &entity.Client{ID: 7, Name: "Ana", Email: "ana@example.com", PasswordHash: hash, Profile: entity.ProfileAdmin}
	clients := &fakeClientSource{
		byEmail: map[string]*entity.Client{ana.Email: ana},
		byID:    map[int64]*entity.Client{ana.ID: ana},
	}
	sessions := &fakeSessionStore{sessions: map[string]session{}}
	svc, err := auth.NewService("https://biblioteca.test", clients, sessions, hasher)
	require.NoError(t, err)
	return svc, sessions
}

func Test_Login_Success(t *testing.T) {
	svc, sessions := newFixture(t)

	pair, err := svc.Login(context.Background(), "ana@example.com", "s3cret")

	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Contains(t, sessions.sessions, pair.RefreshToken)

	claims, err := svc.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "7", claims["sub"])
	assert.Equal(t, "ana@example.com", claims["email"])
	assert.Equal(t, string(entity.ProfileAdmin), claims["profile"])
	assert.Equal(t, "https://biblioteca.test", claims["iss"])
}

func Test_Login_WrongPassword(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.Login(context.Background(), "ana@example.com", "wrong")

	assert.ErrorIs(t, err, auth.ErrBadCredentials)
}

func Test_Login_UnknownEmail(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.Login(context.Background(), "nobody@example.com", "s3cret")

	assert.ErrorIs(t, err, auth.ErrBadCredentials)
}

func Test_Refresh_RotatesSession(t *testing.T) {
	svc, sessions := newFixture(t)
	pair, err := svc.Login(context.Background(), "ana@example.com", "s3cret")
	require.NoError(t, err)

	rotated, err := svc.Refresh(context.Background(), pair.RefreshToken)

	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	assert.NotContains(t, sessions.sessions, pair.RefreshToken)
	assert.Contains(t, sessions.sessions, rotated.RefreshToken)

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
}

func Test_Refresh_ExpiredSession(t *testing.T) {
	svc, sessions := newFixture(t)
	sessions.sessions["stale"] = session{clientID: 7, expiresAt: time.Now().Add(-time.Minute)}

	_, err := svc.Refresh(context.Background(), "stale")

	assert.ErrorIs(t, err, auth.ErrInvalidSession)
	assert.NotContains(t, sessions.sessions, "stale")
}

func Test_Refresh_UnknownToken(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.Refresh(context.Background(), "never-issued")

	assert.ErrorIs(t, err, auth.ErrInvalidSession)
}

func Test_Logout_RevokesSession(t *testing.T) {
	svc, sessions := newFixture(t)
	pair, err := svc.Login(context.Background(), "ana@example.com", "s3cret")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), pair.RefreshToken))

	assert.NotContains(t, sessions.sessions, pair.RefreshToken)
	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
}

func Test_Verify_GarbageToken(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.Verify("not.a.jwt")

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func Test_Verify_TokenFromAnotherIssuer(t *testing.T) {
	svc, _ := newFixture(t)
	other, _ := newFixture(t)
	pair, err := other.Login(context.Background(), "ana@example.com", "s3cret")
	require.NoError(t, err)

	// signed by a different per-process key
	_, err = svc.Verify(pair.AccessToken)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func Test_JWKS_PublishesSigningKey(t *testing.T) {
	svc, _ := newFixture(t)

	doc := svc.JWKS()

	keys, ok := doc["keys"].([]any)
	require.True(t, ok)
	require.Len(t, keys, 1)
	jwk, ok := keys[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "RSA", jwk["kty"])
	assert.Equal(t, "RS256", jwk["alg"])
	assert.NotEmpty(t, jwk["kid"])
	assert.NotEmpty(t, jwk["n"])
}
