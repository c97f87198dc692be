package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aulanet/aulanet-backend/internal/auth"
	"github.com/aulanet/aulanet-backend/internal/utils"
)

// CookieAuth validates the access token found in the session cookies and
// injects `user_id` and `role` into the request context for handlers
// downstream.  Lookup follows the shared precedence (unified name, per-role
// legacy names, bare legacy name).  After a successful verification the
// sliding-expiration guard runs: a token in its last stretch of lifetime is
// silently reissued on the response, so active users never hit a hard
// expiry.
//
// The revocation store is consulted too; a store error rejects the request
// rather than trusting a token the store could not vouch for.
func CookieAuth(cm *auth.CookieManager, revoked auth.RevocationStore, slide auth.SlideOptions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tok, ok := auth.FindAccessToken(c.Request())
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing access token"})
			}

			claims, err := utils.ParseToken(cm.Secret, tok.Value)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			if revoked != nil {
				rv, err := revoked.IsRevoked(c.Request().Context(), claims.ID)
				if err != nil {
					log.Printf("cookie-auth: revocation check failed, rejecting: %v", err)
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
				}
				if rv {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
				}
			}

			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)

			// Purely additive: a slide failure must not fail the request.
			if _, err := cm.MaybeSlideAccess(c, claims, slide); err != nil {
				log.Printf("cookie-auth: sliding reissue failed: %v", err)
			}

			return next(c)
		}
	}
}
