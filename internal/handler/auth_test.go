package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aulanet/aulanet-backend/internal/auth"
	"github.com/aulanet/aulanet-backend/internal/model"
	"github.com/aulanet/aulanet-backend/internal/utils"
)

func seededUsers(t *testing.T) *fakeUsers {
	t.Helper()
	hash, err := utils.HashPassword("correct-horse", bcrypt.MinCost)
	require.NoError(t, err)
	return &fakeUsers{users: []model.User{
		{ID: 42, Email: "ana@example.com", PasswordHash: hash, Role: "estudiante", StudentID: 314, IsActive: true},
		{ID: 7, Email: "off@example.com", PasswordHash: hash, Role: "admin", IsActive: false},
	}}
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	h := NewAuthHandler(testCookieManager(), seededUsers(t), auth.NewMemoryRevocationStore())
	c, rec := jsonContext(http.MethodPost, "/v1/auth/login",
		`{"email":"ANA@example.com ","password":"correct-horse"}`)

	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		User userPart `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(42), body.User.ID)
	assert.Equal(t, "estudiante", body.User.Role)
	assert.Equal(t, uint64(314), body.User.StudentID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 4)
	for _, ck := range cookies {
		if ck.Name == "token_estudiante" || ck.Name == "access_token" {
			assert.Zero(t, ck.MaxAge, "access stays session-scoped without remember")
		}
	}
}

func TestLogin_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"wrong password", `{"email":"ana@example.com","password":"nope"}`, http.StatusUnauthorized},
		{"unknown email", `{"email":"ghost@example.com","password":"correct-horse"}`, http.StatusUnauthorized},
		{"inactive account", `{"email":"off@example.com","password":"correct-horse"}`, http.StatusUnauthorized},
		{"missing password", `{"email":"ana@example.com"}`, http.StatusBadRequest},
		{"empty body", `{}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(testCookieManager(), seededUsers(t), auth.NewMemoryRevocationStore())
			c, rec := jsonContext(http.MethodPost, "/v1/auth/login", tt.body)

			require.NoError(t, h.Login(c))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Empty(t, rec.Result().Cookies(), "failed logins issue nothing")
		})
	}
}

func TestLogout_RevokesAndClears(t *testing.T) {
	t.Parallel()

	store := auth.NewMemoryRevocationStore()
	h := NewAuthHandler(testCookieManager(), seededUsers(t), store)

	ck := refreshCookie(t, 42, "estudiante", time.Hour)
	claims, err := utils.ParseToken(testSecret, ck.Value)
	require.NoError(t, err)

	c, rec := jsonContext(http.MethodPost, "/v1/auth/logout", "")
	c.Request().AddCookie(ck)
	require.NoError(t, h.Logout(c))

	assert.Equal(t, http.StatusNoContent, rec.Code)

	revoked, err := store.IsRevoked(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked, "the session's refresh jti dies with the logout")

	for _, cleared := range rec.Result().Cookies() {
		assert.Empty(t, cleared.Value)
		assert.Negative(t, cleared.MaxAge)
	}
}

func TestLogout_WithoutSessionStillSucceeds(t *testing.T) {
	t.Parallel()

	h := NewAuthHandler(testCookieManager(), seededUsers(t), auth.NewMemoryRevocationStore())
	c, rec := jsonContext(http.MethodPost, "/v1/auth/logout", "")

	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Result().Cookies(), "cookies are expired regardless")
}
