// Package auth issues and verifies seat resume tokens. A token binds a
// room code to a stable player key so a client that reconnects with a
// new transport id can reclaim its seat identity.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long a resume token stays valid. Long enough to
// survive a reload or a flaky connection, short enough not to outlive
// the table.
const DefaultTTL = 24 * time.Hour

// SeatClaims are the claims carried by a resume token.
type SeatClaims struct {
	Room      string `json:"room"`
	PlayerKey string `json:"playerKey"`
	Name      string `json:"name"`
	jwt.RegisteredClaims
}

// Tokens mints and verifies seat resume tokens with an HMAC secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New builds a token issuer. TTL zero means DefaultTTL.
func New(secret []byte, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tokens{secret: secret, ttl: ttl, now: time.Now}
}

// Issue mints a signed resume token for the given seat identity.
func (t *Tokens) Issue(room, playerKey, name string) (string, error) {
	now := t.now()
	claims := SeatClaims{
		Room:      room,
		PlayerKey: playerKey,
		Name:      name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign resume token: %w", err)
	}
	return signed, nil
}

// Verify checks a resume token for the given room and returns its
// claims. Tokens for a different room are rejected.
func (t *Tokens) Verify(tokenString, room string) (*SeatClaims, error) {
	claims := &SeatClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return t.secret, nil
		},
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse resume token: %w", err)
	}
	if claims.Room != room {
		return nil, fmt.Errorf("resume token issued for a different room")
	}
	return claims, nil
}
