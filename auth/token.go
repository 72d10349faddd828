package auth

import (
	"fmt"
	"presence-chat/errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "presence-chat"

// ParticipantClaims binds a token to the participant name chosen at join
// and to that join's session.
type ParticipantClaims struct {
	Name    string `json:"name"`
	Session string `json:"sid"`
	jwt.RegisteredClaims
}

// Identity is what a valid token vouches for.
type Identity struct {
	Name    string
	Session string
}

// SessionChecker tells whether session is still the live join of name.
type SessionChecker interface {
	CheckSession(name string, session string) error
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret   []byte
	duration time.Duration
}

func NewTokenIssuer(secret string, duration time.Duration) TokenIssuer {
	return TokenIssuer{secret: []byte(secret), duration: duration}
}

// GenerateToken creates a signed token for the join session of name, valid
// for the configured duration.
func (i TokenIssuer) GenerateToken(name string, session string) (string, error) {
	now := time.Now()
	claims := &ParticipantClaims{
		Name:    name,
		Session: session,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// ValidateToken checks signature, algorithm, issuer and expiration, and
// returns the identity carried by the token.
func (i TokenIssuer) ValidateToken(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ParticipantClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*ParticipantClaims)
	if !ok || !token.Valid || claims.Name == "" || claims.Session == "" {
		return Identity{}, errors.ErrInvalidToken
	}
	return Identity{Name: claims.Name, Session: claims.Session}, nil
}
