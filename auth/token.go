package auth

import (
	"chat-rooms/domain"
	"chat-rooms/errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "chat-rooms"

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

func NewTokenIssuer(secret string, duration time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), duration: duration, now: time.Now}
}

func (t *TokenIssuer) Generate(user domain.User) (string, error) {
	now := t.now()
	claims := SessionClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(int64(user.ID), 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.duration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Validate returns the user a token was issued for.
// Any parsing, signature or expiry failure is ErrInvalidToken.
func (t *TokenIssuer) Validate(token string) (domain.UserID, string, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return 0, "", fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: subject %q", errors.ErrInvalidToken, claims.Subject)
	}
	return domain.UserID(id), claims.Username, nil
}
