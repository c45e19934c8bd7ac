package auth

import (
	"channel-chat/domain/chat"
	"channel-chat/errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "channel-chat"

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates identity tokens with a shared secret.
type TokenIssuer struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

func NewTokenIssuer(secret string, duration time.Duration) TokenIssuer {
	return TokenIssuer{secret: []byte(secret), duration: duration, now: time.Now}
}

// GenerateToken creates a signed JWT for identity.
func (i TokenIssuer) GenerateToken(identity chat.Identity) (string, error) {
	if identity.ID == "" {
		return "", fmt.Errorf("%w: empty user id", errors.ErrInvalidPayload)
	}
	now := i.now()
	claims := &CustomClaims{
		UserID:      string(identity.ID),
		DisplayName: identity.DisplayName,
		Avatar:      identity.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(identity.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	// HS256 (HMAC with SHA256)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// ValidateToken checks the signature and expiration of a JWT and returns the identity it carries.
func (i TokenIssuer) ValidateToken(tokenString string) (chat.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return chat.Identity{}, fmt.Errorf("%w: %w", errors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return chat.Identity{}, errors.ErrInvalidToken
	}
	return chat.Identity{
		ID:          chat.UserID(claims.UserID),
		DisplayName: claims.DisplayName,
		Avatar:      claims.Avatar,
	}, nil
}
