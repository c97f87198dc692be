package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"

	"github.com/aulanet/aulanet-backend/internal/auth"
	"github.com/aulanet/aulanet-backend/internal/model"
	"github.com/aulanet/aulanet-backend/internal/repository"
	"github.com/aulanet/aulanet-backend/internal/utils"
)

// Application close codes.  The handshake has no response body, so these
// numbers are the whole error contract with the client.
const (
	CloseNoToken        websocket.StatusCode = 4001
	CloseInvalidToken   websocket.StatusCode = 4002
	CloseUserNotFound   websocket.StatusCode = 4003
	CloseRoleNotAllowed websocket.StatusCode = 4004
)

const (
	maxInboundFrameBytes = 1024 // clients only listen; inbound traffic is protocol noise
	lookupTimeout        = 5 * time.Second
)

// UserStore resolves the authenticated principal during the handshake.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// welcomeFrame is the first frame pushed after a successful join.
type welcomeFrame struct {
	Type      string `json:"type"`
	Role      string `json:"role"`
	StudentID uint64 `json:"student_id,omitempty"`
}

// Gateway authenticates websocket upgrades on /ws/notifications and hands
// accepted connections to the room registry.  Authentication uses the same
// cookie-name precedence as the HTTP session: unified name first, then the
// per-role legacy names, then the bare legacy name.
type Gateway struct {
	Secret         string
	Users          UserStore
	Revoked        auth.RevocationStore
	Rooms          *Registry
	AllowedOrigins []string // extra origin host patterns; same-host is always allowed
}

// Handle runs the upgrade, the five auth/classify steps and then blocks
// reading the socket until it closes, deregistering on the way out.
func (g *Gateway) Handle(c echo.Context) error {
	r := c.Request()

	sock, err := websocket.Accept(c.Response(), r, &websocket.AcceptOptions{
		OriginPatterns: g.AllowedOrigins,
	})
	if err != nil {
		// Accept already wrote the HTTP error response.
		return nil
	}
	sock.SetReadLimit(maxInboundFrameBytes)

	ctx := r.Context()

	tok, ok := auth.FindAccessToken(r)
	if !ok {
		sock.Close(CloseNoToken, "no token")
		return nil
	}

	claims, err := utils.ParseToken(g.Secret, tok.Value)
	if err != nil {
		sock.Close(CloseInvalidToken, "invalid token")
		return nil
	}

	// A rotated-away access token is as dead as a tampered one.  Store
	// errors fail closed but map to an internal close code, not 4002: the
	// client should retry, not drop its session.
	if g.Revoked != nil {
		revoked, err := g.Revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			log.Printf("ws: revocation check failed: %v", err)
			sock.Close(websocket.StatusInternalError, "internal error")
			return nil
		}
		if revoked {
			sock.Close(CloseInvalidToken, "invalid token")
			return nil
		}
	}

	lctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	user, err := g.Users.GetByID(lctx, claims.UserID)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			sock.Close(CloseUserNotFound, "no user")
			return nil
		}
		log.Printf("ws: user lookup failed: %v", err)
		sock.Close(websocket.StatusInternalError, "internal error")
		return nil
	}

	var welcome welcomeFrame
	switch {
	case user.Role == model.RoleEstudiante && user.StudentID != 0:
		welcome = welcomeFrame{Type: "welcome", Role: model.RoleEstudiante, StudentID: user.StudentID}
	case user.Role == model.RoleAdmin:
		welcome = welcomeFrame{Type: "welcome", Role: model.RoleAdmin}
	case user.Role == model.RoleAsesor:
		welcome = welcomeFrame{Type: "welcome", Role: model.RoleAsesor}
	default:
		sock.Close(CloseRoleNotAllowed, "role not allowed")
		return nil
	}

	conn := newConn(sock, user.ID, user.Role, user.StudentID)
	g.Rooms.Add(conn)
	defer g.Rooms.Remove(conn)

	frame, err := json.Marshal(welcome)
	if err != nil {
		sock.Close(websocket.StatusInternalError, "internal error")
		return nil
	}
	if err := conn.Send(ctx, frame); err != nil {
		conn.Terminate(websocket.StatusAbnormalClosure, "write failed")
		return nil
	}

	// Drain the socket.  Clients have nothing to say on this channel; the
	// read keeps ping/pong flowing and tells us when the peer goes away.
	for {
		if _, _, err := sock.Read(ctx); err != nil {
			conn.Terminate(websocket.StatusNormalClosure, "bye")
			return nil
		}
	}
}
