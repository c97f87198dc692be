package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aulanet/aulanet-backend/internal/utils"
)

// DefaultSlideThresholdPct is the remaining-lifetime percentage at or below
// which an access token is silently reissued.
const DefaultSlideThresholdPct = 20

// SlideOptions tunes a single sliding-expiration check.  Zero values fall
// back to the defaults.
type SlideOptions struct {
	ThresholdPct int
	AccessMins   int
}

// MaybeSlideAccess implements sliding expiration: given the decoded claims
// of an access token the caller has already verified, it computes the
// percentage of lifetime remaining and, when that is at or below the
// threshold, reissues a fresh cookie set for the same {id, role} and returns
// true.  Above the threshold it returns false with no side effects.  An
// already-expired token is never extended; verification upstream should have
// rejected it, so hitting that case here just returns false.
func (m *CookieManager) MaybeSlideAccess(c echo.Context, claims *utils.TokenClaims, opts SlideOptions) (bool, error) {
	threshold := opts.ThresholdPct
	if threshold == 0 {
		threshold = DefaultSlideThresholdPct
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return false, nil
	}

	now := time.Now()
	exp := claims.ExpiresAt.Time
	iat := claims.IssuedAt.Time
	lifetime := exp.Sub(iat)
	if lifetime <= 0 || !exp.After(now) {
		return false, nil
	}

	remainingPct := float64(exp.Sub(now)) / float64(lifetime) * 100
	if remainingPct > float64(threshold) {
		return false, nil
	}

	_, err := m.IssueTokenCookies(c, claims.UserID, claims.Role, IssueOptions{AccessMins: opts.AccessMins})
	if err != nil {
		return false, err
	}
	return true, nil
}
