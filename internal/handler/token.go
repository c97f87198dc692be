package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aulanet/aulanet-backend/internal/auth"
	"github.com/aulanet/aulanet-backend/internal/model"
	"github.com/aulanet/aulanet-backend/internal/repository"
	"github.com/aulanet/aulanet-backend/internal/utils"
)

// UserStore is the slice of the user repository the auth endpoints need.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// TokenHandler implements the refresh rotation protocol.
type TokenHandler struct {
	Cookies *auth.CookieManager
	Users   UserStore
	Revoked auth.RevocationStore
}

func NewTokenHandler(cm *auth.CookieManager, users UserStore, revoked auth.RevocationStore) *TokenHandler {
	return &TokenHandler{Cookies: cm, Users: users, Revoked: revoked}
}

// unauthorized writes the structured 401 the client dispatches on: reason
// tells it whether to retry silently, force a re-login, or log out.
func unauthorized(c echo.Context, reason string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"message": "refresh rejected",
		"reason":  reason,
	})
}

// Refresh exchanges the refresh token presented in cookies for a fresh
// access+refresh pair.  The consumed token's jti is revoked first, so each
// refresh token is exchangeable exactly once: a replay loses the atomic
// consume and gets 401 invalid-rtoken even though its exp has not passed.
func (h *TokenHandler) Refresh(c echo.Context) error {
	tok, ok := auth.FindRefreshToken(c.Request())
	if !ok {
		return unauthorized(c, "no-rtoken")
	}

	claims, err := utils.ParseToken(h.Cookies.Secret, tok.Value)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return unauthorized(c, "expired-rtoken")
		}
		return unauthorized(c, "invalid-rtoken")
	}
	if claims.UserID == 0 {
		return unauthorized(c, "invalid-payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c, "user-not-found")
		}
		log.Printf("token-refresh: user lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}

	// Revoke-and-check in one atomic step.  A store failure counts as
	// "already revoked": trusting the token anyway would let a replayed
	// refresh token through whenever the store blinks.
	ttl := time.Duration(0)
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	consumed, err := h.Revoked.Consume(ctx, claims.ID, ttl)
	if err != nil {
		log.Printf("token-refresh: revocation store failed, rejecting: %v", err)
		return unauthorized(c, "invalid-rtoken")
	}
	if !consumed {
		return unauthorized(c, "invalid-rtoken")
	}

	// Role preference: the cookie name the token arrived under, then the
	// role claim baked into the token itself.
	role := tok.Role
	if role == "" {
		role = claims.Role
	}
	if role == "" {
		role = user.Role
	}

	if _, err := h.Cookies.IssueTokenCookies(c, user.ID, role, auth.IssueOptions{}); err != nil {
		log.Printf("token-refresh: reissue failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true, "rotated": true})
}
