package router // package router defines how HTTP routes are registered for the API

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/aulanet/aulanet-backend/internal/auth"
	"github.com/aulanet/aulanet-backend/internal/handler"
	"github.com/aulanet/aulanet-backend/internal/middleware"
	"github.com/aulanet/aulanet-backend/internal/model"
	"github.com/aulanet/aulanet-backend/internal/ws"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the session endpoints.  Login and the rotation
// endpoint sit behind the Redis rate limiter since both accept
// credentials; protected endpoints live under /v1 behind the cookie-auth
// middleware with the sliding-expiration guard.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, t *handler.TokenHandler, n *handler.NotifyHandler,
	cm *auth.CookieManager, revoked auth.RevocationStore, rdb *redis.Client, slide auth.SlideOptions) {

	rl := middleware.AuthRateLimit(rdb, 30, time.Minute)

	g := e.Group("/v1/auth")
	g.POST("/login", a.Login, rl)
	g.POST("/logout", a.Logout)

	// The rotation endpoint lives at the top level: clients call it from a
	// generic interceptor regardless of which dashboard they are on.
	e.POST("/token/refresh", t.Refresh, rl)

	protected := e.Group("/v1")
	protected.Use(middleware.CookieAuth(cm, revoked, slide))
	protected.GET("/me", a.Me)
	protected.POST("/notifications", n.Send, middleware.RequireRole(model.RoleAdmin))
}

// RegisterRealtime mounts the websocket notification gateway.
func RegisterRealtime(e *echo.Echo, g *ws.Gateway) {
	e.GET("/ws/notifications", g.Handle)
}
