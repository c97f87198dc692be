package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aulanet/aulanet-backend/internal/auth"
	"github.com/aulanet/aulanet-backend/internal/repository"
	"github.com/aulanet/aulanet-backend/internal/utils"
)

// AuthHandler bundles dependencies for the session endpoints.
type AuthHandler struct {
	Cookies *auth.CookieManager
	Users   UserStore
	Revoked auth.RevocationStore
}

func NewAuthHandler(cm *auth.CookieManager, users UserStore, revoked auth.RevocationStore) *AuthHandler {
	return &AuthHandler{Cookies: cm, Users: users, Revoked: revoked}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type userPart struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	StudentID uint64 `json:"student_id,omitempty"`
}

// Login verifies credentials and issues the four session cookies for the
// user's role.  The remember flag makes the access cookies persistent
// instead of session-scoped.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if _, err := h.Cookies.IssueTokenCookies(c, u.ID, u.Role, auth.IssueOptions{Remember: req.Remember}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user": userPart{ID: u.ID, Email: u.Email, Role: u.Role, StudentID: u.StudentID},
	})
}

// Logout revokes the presented refresh token's jti so the chain dies with
// this session, then expires every session cookie.  It succeeds even when
// no (or a bad) refresh token is present: logging out must never fail the
// client.
func (h *AuthHandler) Logout(c echo.Context) error {
	role := ""
	if tok, ok := auth.FindRefreshToken(c.Request()); ok {
		role = tok.Role
		if claims, err := utils.ParseToken(h.Cookies.Secret, tok.Value); err == nil {
			ttl := time.Duration(0)
			if claims.ExpiresAt != nil {
				ttl = time.Until(claims.ExpiresAt.Time)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			_, _ = h.Revoked.Consume(ctx, claims.ID, ttl)
			cancel()
			if role == "" {
				role = claims.Role
			}
		}
	}
	h.Cookies.ClearTokenCookies(c, role)
	return c.NoContent(http.StatusNoContent)
}

// Me is a simple protected endpoint: it echoes the identity the auth
// middleware extracted from the access cookie.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": c.Get("user_id"),
		"role":    c.Get("role"),
	})
}
