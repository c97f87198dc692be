package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // jti generation
)

// TokenClaims is the claim set carried by every access and refresh token.
// UserID and Role identify the principal; the embedded registered claims
// carry exp, iat and the unique token id (jti) under which a consumed
// refresh token is revoked.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID uint64 `json:"id"`
	Role   string `json:"role"`
}

// SignedToken bundles a serialized JWT with the metadata callers need
// without re-parsing it: the jti used for revocation bookkeeping and the
// UTC expiration time used for cookie max-age calculations.
type SignedToken struct {
	Token string
	JTI   string
	Exp   time.Time
}

// ErrTokenExpired is returned by ParseToken when the token's signature is
// fine but its exp has passed.  Callers distinguish this from any other
// verification failure (tampered signature, wrong algorithm, garbage input).
var ErrTokenExpired = errors.New("token expired")

// NewAccessToken signs a short-lived HS256 JWT for a user.  The claims are
// {id, role, iat, exp, jti}; jti is a fresh random UUID so each issued token
// can be revoked independently.
func NewAccessToken(secret string, userID uint64, role string, ttl time.Duration) (SignedToken, error) {
	return newSignedToken(secret, userID, role, ttl)
}

// NewRefreshToken signs a long-lived HS256 JWT with the same claim shape as
// an access token.  Refresh tokens are single-use: the rotation endpoint
// revokes the jti the moment the token is exchanged.
func NewRefreshToken(secret string, userID uint64, role string, ttl time.Duration) (SignedToken, error) {
	return newSignedToken(secret, userID, role, ttl)
}

func newSignedToken(secret string, userID uint64, role string, ttl time.Duration) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: userID,
		Role:   role,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, JTI: claims.ID, Exp: exp}, nil
}

// ParseToken verifies signature and expiry and returns the decoded claims.
// It wraps the jwt library's callback style into a plain result so callers
// get linear error handling: (claims, nil) on success, ErrTokenExpired when
// only the exp failed, or the underlying verification error otherwise.
func ParseToken(secret, raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject any signing method other than HMAC; a token signed with
		// "none" or an asymmetric key must never validate against the secret.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, err
	}
	return claims, nil
}
