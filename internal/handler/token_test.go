package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulanet/aulanet-backend/internal/auth"
	"github.com/aulanet/aulanet-backend/internal/model"
	"github.com/aulanet/aulanet-backend/internal/utils"
)

func newTokenHandler(users *fakeUsers, revoked auth.RevocationStore) *TokenHandler {
	return NewTokenHandler(testCookieManager(), users, revoked)
}

func refreshWith(t *testing.T, h *TokenHandler, cookies ...*http.Cookie) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	c, rec := jsonContext(http.MethodPost, "/token/refresh", "")
	for _, ck := range cookies {
		c.Request().AddCookie(ck)
	}
	require.NoError(t, h.Refresh(c))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestRefresh_Rejections(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{users: []model.User{{ID: 42, Role: "estudiante", IsActive: true}}}

	tests := []struct {
		name       string
		cookie     *http.Cookie
		store      auth.RevocationStore
		wantReason string
	}{
		{
			name:       "no refresh cookie",
			wantReason: "no-rtoken",
		},
		{
			name:       "expired token",
			cookie:     refreshCookie(t, 42, "estudiante", -time.Minute),
			wantReason: "expired-rtoken",
		},
		{
			name:       "garbage token",
			cookie:     &http.Cookie{Name: "refresh_token", Value: "not-a-jwt"},
			wantReason: "invalid-rtoken",
		},
		{
			name:       "zero user id in claims",
			cookie:     refreshCookie(t, 0, "estudiante", time.Hour),
			wantReason: "invalid-payload",
		},
		{
			name:       "user no longer exists",
			cookie:     refreshCookie(t, 99, "estudiante", time.Hour),
			wantReason: "user-not-found",
		},
		{
			name:       "store outage fails closed",
			cookie:     refreshCookie(t, 42, "estudiante", time.Hour),
			store:      failingRevocations{},
			wantReason: "invalid-rtoken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := tt.store
			if store == nil {
				store = auth.NewMemoryRevocationStore()
			}
			h := newTokenHandler(users, store)

			var rec *httptest.ResponseRecorder
			var body map[string]any
			if tt.cookie != nil {
				rec, body = refreshWith(t, h, tt.cookie)
			} else {
				rec, body = refreshWith(t, h)
			}

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.wantReason, body["reason"])
			assert.Empty(t, rec.Result().Cookies(), "a rejected refresh must not issue cookies")
		})
	}
}

func TestRefresh_RotatesAndKillsReplay(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{users: []model.User{{ID: 42, Role: "estudiante", IsActive: true}}}
	h := newTokenHandler(users, auth.NewMemoryRevocationStore())
	original := refreshCookie(t, 42, "estudiante", time.Hour)

	rec, body := refreshWith(t, h, original)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["rotated"])
	require.Len(t, rec.Result().Cookies(), 4)

	// The new refresh token is a different jti carrying the same identity.
	var fresh *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "refresh_token" {
			fresh = ck
		}
	}
	require.NotNil(t, fresh)
	freshClaims, err := utils.ParseToken(testSecret, fresh.Value)
	require.NoError(t, err)
	origClaims, err := utils.ParseToken(testSecret, original.Value)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), freshClaims.UserID)
	assert.Equal(t, "estudiante", freshClaims.Role)
	assert.NotEqual(t, origClaims.ID, freshClaims.ID)

	// Replaying the consumed token must fail even though its exp is fine.
	rec, body = refreshWith(t, h, original)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid-rtoken", body["reason"])
}

func TestRefresh_RolePreference(t *testing.T) {
	t.Parallel()

	// Token claims say estudiante but it arrives under the admin legacy
	// cookie; the cookie name wins so the reissued pair stays in the admin
	// slot the client is actually using.
	users := &fakeUsers{users: []model.User{{ID: 7, Role: "estudiante", IsActive: true}}}
	h := newTokenHandler(users, auth.NewMemoryRevocationStore())

	signed, err := utils.NewRefreshToken(testSecret, 7, "estudiante", time.Hour)
	require.NoError(t, err)
	rec, _ := refreshWith(t, h, &http.Cookie{Name: "rtoken_admin", Value: signed.Token})

	require.Equal(t, http.StatusOK, rec.Code)
	names := make([]string, 0, 4)
	for _, ck := range rec.Result().Cookies() {
		names = append(names, ck.Name)
	}
	assert.Contains(t, names, "token_admin")
	assert.Contains(t, names, "rtoken_admin")
}
