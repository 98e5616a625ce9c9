package store

import (
	"context"
	"testing"
	"time"

	"github.com/dngg/dngg-frontend-go/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	assert.NoError(t, err)
	return token
}

func TestAuthStoreSetTokenParsesClaims(t *testing.T) {
	deps := setupTest(t)
	store, err := NewAuthStore(context.Background(), deps)
	assert.NoError(t, err)
	assert.Empty(t, store.Token())

	exp := time.Now().Add(time.Hour)
	token := signedToken(t, jwt.MapClaims{
		"sub":   "user-42",
		"email": "kim@example.com",
		"exp":   exp.Unix(),
	})

	assert.NoError(t, store.SetToken(context.Background(), token))
	assert.Equal(t, token, store.Token())

	session := store.Session()
	assert.NotNil(t, session)
	assert.Equal(t, "user-42", session.UserID)
	assert.Equal(t, "kim@example.com", session.Email)
	assert.NotNil(t, session.ExpiresAt)

	// The session is persisted, not just held in memory.
	var row model.AuthSession
	assert.NoError(t, deps.db.First(&row).Error)
	assert.Equal(t, token, row.Token)
}

func TestAuthStoreExpiredTokenReadsEmpty(t *testing.T) {
	deps := setupTest(t)
	store, err := NewAuthStore(context.Background(), deps)
	assert.NoError(t, err)

	token := signedToken(t, jwt.MapClaims{
		"sub": "user-42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	assert.NoError(t, store.SetToken(context.Background(), token))

	assert.Empty(t, store.Token())
}

func TestAuthStoreOpaqueTokenIsStored(t *testing.T) {
	deps := setupTest(t)
	store, err := NewAuthStore(context.Background(), deps)
	assert.NoError(t, err)

	assert.NoError(t, store.SetToken(context.Background(), "not-a-jwt"))
	assert.Equal(t, "not-a-jwt", store.Token())
	assert.Empty(t, store.Session().UserID)
}

func TestAuthStoreClearToken(t *testing.T) {
	deps := setupTest(t)
	store, err := NewAuthStore(context.Background(), deps)
	assert.NoError(t, err)

	notified := 0
	store.Subscribe(func() { notified++ })

	token := signedToken(t, jwt.MapClaims{"sub": "user-42"})
	assert.NoError(t, store.SetToken(context.Background(), token))
	assert.NoError(t, store.ClearToken())

	assert.Empty(t, store.Token())
	assert.Nil(t, store.Session())
	assert.Equal(t, 2, notified)

	var count int64
	deps.db.Model(&model.AuthSession{}).Count(&count)
	assert.Zero(t, count)
}

func TestAuthStoreHydratesFromDatabase(t *testing.T) {
	deps := setupTest(t)
	first, err := NewAuthStore(context.Background(), deps)
	assert.NoError(t, err)
	token := signedToken(t, jwt.MapClaims{"sub": "user-42"})
	assert.NoError(t, first.SetToken(context.Background(), token))

	second, err := NewAuthStore(context.Background(), deps)
	assert.NoError(t, err)
	assert.Equal(t, token, second.Token())
}
