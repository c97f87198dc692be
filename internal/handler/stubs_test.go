package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/aulanet/aulanet-backend/internal/auth"
	"github.com/aulanet/aulanet-backend/internal/model"
	"github.com/aulanet/aulanet-backend/internal/repository"
	"github.com/aulanet/aulanet-backend/internal/utils"
)

const testSecret = "test-secret-key"

func testCookieManager() *auth.CookieManager {
	return &auth.CookieManager{
		Secret:         testSecret,
		AccessTTLMin:   60,
		RefreshTTLDays: 30,
	}
}

// fakeUsers is an in-memory UserStore.
type fakeUsers struct {
	users []model.User
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

// failingRevocations simulates a revocation store outage.
type failingRevocations struct{}

func (failingRevocations) Consume(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("store down")
}

func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("store down")
}

// jsonContext builds an echo context for a JSON request.
func jsonContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// refreshCookie signs a refresh token and wraps it in the unified cookie.
func refreshCookie(t *testing.T, userID uint64, role string, ttl time.Duration) *http.Cookie {
	t.Helper()
	signed, err := utils.NewRefreshToken(testSecret, userID, role, ttl)
	require.NoError(t, err)
	return &http.Cookie{Name: "refresh_token", Value: signed.Token}
}
