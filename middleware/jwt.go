package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "questboard"

// Claims is the JWT payload. The display name is the whole identity; the
// token ID keys the server-side session.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// GenerateToken signs a session token for the named adventurer. It returns
// the token and its ID.
func GenerateToken(name, secret string, ttl time.Duration) (string, string, error) {
	if secret == "" {
		return "", "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	jti := uuid.NewString()
	claims := &Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    tokenIssuer,
			Subject:   name,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// ParseToken validates a JWT string and returns the claims.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Name == "" || claims.ID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
