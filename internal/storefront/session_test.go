package storefront

import (
	"testing"
	"time"

	"bookstore/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("local-test-key"))
	require.NoError(t, err)
	return token
}

func TestSession_Authenticated(t *testing.T) {
	now := time.Now()
	s, err := LoadSession(NewMemoryStorage())
	require.NoError(t, err)
	assert.False(t, s.Authenticated(now))

	require.NoError(t, s.SignIn(signedToken(t, now.Add(time.Minute)), &models.User{ID: "u1"}))
	assert.True(t, s.Authenticated(now))
	assert.False(t, s.Authenticated(now.Add(2*time.Minute)))

	require.NoError(t, s.SignIn("not-a-jwt", &models.User{ID: "u1"}))
	assert.False(t, s.Authenticated(now))
}

func TestSession_PersistsAcrossLoads(t *testing.T) {
	storage := NewMemoryStorage()
	token := signedToken(t, time.Now().Add(time.Hour))

	s, err := LoadSession(storage)
	require.NoError(t, err)
	require.NoError(t, s.SignIn(token, &models.User{ID: "u1", Username: "alice", Role: "customer"}))

	reloaded, err := LoadSession(storage)
	require.NoError(t, err)
	assert.Equal(t, token, reloaded.Token())
	require.NotNil(t, reloaded.User())
	assert.Equal(t, "alice", reloaded.User().Username)

	require.NoError(t, reloaded.SignOut())
	assert.Empty(t, reloaded.Token())
	assert.Nil(t, reloaded.User())
	_, ok, _ := storage.Get(KeyToken)
	assert.False(t, ok)
	_, ok, _ = storage.Get(KeyUser)
	assert.False(t, ok)
}

func TestSession_UpdateUserKeepsToken(t *testing.T) {
	s, err := LoadSession(NewMemoryStorage())
	require.NoError(t, err)
	require.NoError(t, s.SignIn("tok", &models.User{ID: "u1", Username: "old"}))
	require.NoError(t, s.UpdateUser(&models.User{ID: "u1", Username: "new"}))
	assert.Equal(t, "tok", s.Token())
	assert.Equal(t, "new", s.User().Username)
}
