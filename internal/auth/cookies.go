// Package auth implements the session-token lifecycle: role-aware cookie
// issuance and lookup, sliding expiration, and revocation of consumed
// refresh-token ids.
package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aulanet/aulanet-backend/internal/model"
	"github.com/aulanet/aulanet-backend/internal/utils"
)

// Canonical and legacy cookie names.  The browser may hold sessions under
// any of them: older clients set token_<role>/rtoken_<role> (or the bare
// token/rtoken pair), newer ones the unified access_token/refresh_token.
// Issuance writes both generations so either reader works.
const (
	CookieAccessUnified  = "access_token"
	CookieRefreshUnified = "refresh_token"
	CookieAccessLegacy   = "token"
	CookieRefreshLegacy  = "rtoken"

	accessLegacyPrefix  = "token_"
	refreshLegacyPrefix = "rtoken_"
)

const minAccessMins = 5

// cookieName pairs a concrete cookie name with the role its name encodes.
// Role is empty for the unified and bare-legacy names, which carry no role
// information of their own.
type cookieName struct {
	Name string
	Role string
}

// accessLookupOrder returns the ordered list of cookie names consulted when
// locating an access token: unified canonical first, then each per-role
// legacy name in fixed role order, then the bare legacy name.  Keeping the
// precedence in one place makes it auditable and testable in isolation.
func accessLookupOrder() []cookieName {
	names := []cookieName{{Name: CookieAccessUnified}}
	for _, role := range model.Roles {
		names = append(names, cookieName{Name: accessLegacyPrefix + role, Role: role})
	}
	return append(names, cookieName{Name: CookieAccessLegacy})
}

// refreshLookupOrder mirrors accessLookupOrder for the refresh-token names.
func refreshLookupOrder() []cookieName {
	names := []cookieName{{Name: CookieRefreshUnified}}
	for _, role := range model.Roles {
		names = append(names, cookieName{Name: refreshLegacyPrefix + role, Role: role})
	}
	return append(names, cookieName{Name: CookieRefreshLegacy})
}

// FoundToken is the result of a cookie lookup: which cookie matched, the
// role its name implies (empty for unified/bare names), and the raw JWT.
type FoundToken struct {
	Name  string
	Role  string
	Value string
}

// FindAccessToken scans the request's cookies in precedence order and
// returns the first access token present.  ok is false when no candidate
// cookie exists.
func FindAccessToken(r *http.Request) (FoundToken, bool) {
	return findToken(r, accessLookupOrder())
}

// FindRefreshToken applies the same precedence to the refresh-token names.
func FindRefreshToken(r *http.Request) (FoundToken, bool) {
	return findToken(r, refreshLookupOrder())
}

func findToken(r *http.Request, order []cookieName) (FoundToken, bool) {
	for _, cn := range order {
		ck, err := r.Cookie(cn.Name)
		if err != nil || ck.Value == "" {
			continue
		}
		return FoundToken{Name: cn.Name, Role: cn.Role, Value: ck.Value}, true
	}
	return FoundToken{}, false
}

// CookieManager issues and refreshes session cookies.  One instance is
// constructed at startup and shared by the login handler, the rotation
// endpoint and the auth middleware.
type CookieManager struct {
	Secret         string // JWT signing secret
	Secure         bool   // secure cookies; true only in production
	AccessTTLMin   int    // default access lifetime in minutes
	RefreshTTLDays int    // default refresh lifetime in days
}

// IssueOptions tunes a single issuance.  Zero values fall back to the
// manager's defaults.  Remember controls whether the access cookies carry a
// max-age (persistent) or stay session-scoped.
type IssueOptions struct {
	AccessMins  int
	RefreshDays int
	Remember    bool
}

// IssueTokenCookies mints one access and one refresh token bound to
// {id: userID, role} and sets four cookies on the response: the role-specific
// legacy pair and the unified pair, all pointing at the same two JWTs.  The
// access token lives max(5, accessMins) minutes; the refresh token
// refreshDays days.  Refresh cookies always carry a max-age; access cookies
// only when remember is set.  It returns the cookie names written, for
// logging and tests.
func (m *CookieManager) IssueTokenCookies(c echo.Context, userID uint64, role string, opts IssueOptions) ([]string, error) {
	accessMins := opts.AccessMins
	if accessMins == 0 {
		accessMins = m.AccessTTLMin
	}
	if accessMins < minAccessMins {
		accessMins = minAccessMins
	}
	refreshDays := opts.RefreshDays
	if refreshDays == 0 {
		refreshDays = m.RefreshTTLDays
	}

	accessTTL := time.Duration(accessMins) * time.Minute
	refreshTTL := time.Duration(refreshDays) * 24 * time.Hour

	access, err := utils.NewAccessToken(m.Secret, userID, role, accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewRefreshToken(m.Secret, userID, role, refreshTTL)
	if err != nil {
		return nil, err
	}

	accessMaxAge := 0 // session-scoped unless the user asked to be remembered
	if opts.Remember {
		accessMaxAge = int(accessTTL / time.Second)
	}
	refreshMaxAge := int(refreshTTL / time.Second)

	names := []string{
		accessLegacyPrefix + role,
		refreshLegacyPrefix + role,
		CookieAccessUnified,
		CookieRefreshUnified,
	}
	c.SetCookie(m.newCookie(names[0], access.Token, accessMaxAge))
	c.SetCookie(m.newCookie(names[1], refresh.Token, refreshMaxAge))
	c.SetCookie(m.newCookie(names[2], access.Token, accessMaxAge))
	c.SetCookie(m.newCookie(names[3], refresh.Token, refreshMaxAge))
	return names, nil
}

// ClearTokenCookies expires the unified pair plus the legacy pair of the
// given role (all roles when role is empty).  Used on logout.
func (m *CookieManager) ClearTokenCookies(c echo.Context, role string) {
	roles := model.Roles
	if role != "" {
		roles = []string{role}
	}
	expire := func(name string) {
		ck := m.newCookie(name, "", -1)
		c.SetCookie(ck)
	}
	for _, r := range roles {
		expire(accessLegacyPrefix + r)
		expire(refreshLegacyPrefix + r)
	}
	expire(CookieAccessLegacy)
	expire(CookieRefreshLegacy)
	expire(CookieAccessUnified)
	expire(CookieRefreshUnified)
}

// newCookie applies the attribute policy shared by every session cookie:
// httpOnly, sameSite=lax, path=/, secure only in production.  maxAge 0 means
// a session cookie; negative expires it.
func (m *CookieManager) newCookie(name, value string, maxAge int) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.Secure,
	}
	if maxAge != 0 {
		ck.MaxAge = maxAge
	}
	if maxAge < 0 {
		ck.Expires = time.Unix(0, 0)
	}
	return ck
}
