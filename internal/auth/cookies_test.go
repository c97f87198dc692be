package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulanet/aulanet-backend/internal/utils"
)

const testSecret = "test-secret-key"

func testManager() *CookieManager {
	return &CookieManager{
		Secret:         testSecret,
		Secure:         false,
		AccessTTLMin:   60,
		RefreshTTLDays: 30,
	}
}

// issue runs IssueTokenCookies against a fresh echo context and returns the
// cookies written plus the names reported.
func issue(t *testing.T, m *CookieManager, userID uint64, role string, opts IssueOptions) ([]*http.Cookie, []string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	names, err := m.IssueTokenCookies(c, userID, role, opts)
	require.NoError(t, err)
	return rec.Result().Cookies(), names
}

// jarRequest builds a request carrying the given cookies, as a browser
// would on the next call.
func jarRequest(cookies []*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	return req
}

func TestIssueTokenCookies_SetsFourCookies(t *testing.T) {
	t.Parallel()

	cookies, names := issue(t, testManager(), 42, "estudiante", IssueOptions{})

	assert.ElementsMatch(t,
		[]string{"token_estudiante", "rtoken_estudiante", "access_token", "refresh_token"},
		names)
	require.Len(t, cookies, 4)

	for _, ck := range cookies {
		assert.True(t, ck.HttpOnly, "%s must be httpOnly", ck.Name)
		assert.Equal(t, "/", ck.Path, "%s path", ck.Name)
		assert.Equal(t, http.SameSiteLaxMode, ck.SameSite, "%s sameSite", ck.Name)
		assert.False(t, ck.Secure, "secure only in production")
	}
}

func TestIssueTokenCookies_MaxAgeRules(t *testing.T) {
	t.Parallel()

	t.Run("session scoped access by default", func(t *testing.T) {
		cookies, _ := issue(t, testManager(), 1, "admin", IssueOptions{})
		byName := indexCookies(cookies)

		assert.Zero(t, byName["access_token"].MaxAge, "access cookie must be session-scoped without remember")
		assert.Zero(t, byName["token_admin"].MaxAge)
		assert.Equal(t, 30*24*3600, byName["refresh_token"].MaxAge, "refresh cookie always persists")
		assert.Equal(t, 30*24*3600, byName["rtoken_admin"].MaxAge)
	})

	t.Run("remember persists access", func(t *testing.T) {
		cookies, _ := issue(t, testManager(), 1, "admin", IssueOptions{Remember: true})
		byName := indexCookies(cookies)

		assert.Equal(t, 60*60, byName["access_token"].MaxAge)
		assert.Equal(t, 60*60, byName["token_admin"].MaxAge)
	})

	t.Run("access minutes clamped to minimum", func(t *testing.T) {
		cookies, _ := issue(t, testManager(), 1, "admin", IssueOptions{AccessMins: 1, Remember: true})
		byName := indexCookies(cookies)

		assert.Equal(t, 5*60, byName["access_token"].MaxAge, "expiry floors at 5 minutes")
	})
}

func TestFindAccessToken_RoundtripAndClaims(t *testing.T) {
	t.Parallel()

	cookies, _ := issue(t, testManager(), 42, "estudiante", IssueOptions{})
	found, ok := FindAccessToken(jarRequest(cookies))
	require.True(t, ok)

	claims, err := utils.ParseToken(testSecret, found.Value)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "estudiante", claims.Role)
}

func TestFindAccessToken_Precedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cookies  map[string]string
		wantName string
		wantRole string
	}{
		{
			name:     "unified wins over everything",
			cookies:  map[string]string{"access_token": "u", "token_admin": "a", "token": "g"},
			wantName: "access_token",
			wantRole: "",
		},
		{
			name:     "role order admin first",
			cookies:  map[string]string{"token_estudiante": "e", "token_admin": "a"},
			wantName: "token_admin",
			wantRole: "admin",
		},
		{
			name:     "asesor before estudiante",
			cookies:  map[string]string{"token_estudiante": "e", "token_asesor": "s"},
			wantName: "token_asesor",
			wantRole: "asesor",
		},
		{
			name:     "bare legacy is last resort",
			cookies:  map[string]string{"token": "g"},
			wantName: "token",
			wantRole: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for name, val := range tt.cookies {
				req.AddCookie(&http.Cookie{Name: name, Value: val})
			}
			found, ok := FindAccessToken(req)
			require.True(t, ok)
			assert.Equal(t, tt.wantName, found.Name)
			assert.Equal(t, tt.wantRole, found.Role)
			assert.Equal(t, tt.cookies[tt.wantName], found.Value)
		})
	}
}

func TestFindTokens_NonePresent(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := FindAccessToken(req)
	assert.False(t, ok)
	_, ok = FindRefreshToken(req)
	assert.False(t, ok)
}

func TestFindRefreshToken_Precedence(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "rtoken", Value: "g"})
	req.AddCookie(&http.Cookie{Name: "rtoken_estudiante", Value: "e"})

	found, ok := FindRefreshToken(req)
	require.True(t, ok)
	assert.Equal(t, "rtoken_estudiante", found.Name)
	assert.Equal(t, "estudiante", found.Role)
}

func TestClearTokenCookies(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	testManager().ClearTokenCookies(c, "estudiante")

	byName := indexCookies(rec.Result().Cookies())
	for _, name := range []string{"token_estudiante", "rtoken_estudiante", "access_token", "refresh_token", "token", "rtoken"} {
		ck, ok := byName[name]
		require.True(t, ok, "cookie %s must be expired", name)
		assert.Negative(t, ck.MaxAge, "cookie %s must be expired", name)
		assert.Empty(t, ck.Value)
	}
}

func indexCookies(cookies []*http.Cookie) map[string]*http.Cookie {
	byName := make(map[string]*http.Cookie, len(cookies))
	for _, ck := range cookies {
		byName[ck.Name] = ck
	}
	return byName
}
