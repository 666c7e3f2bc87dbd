/*
Package identity implements the server's self-issued identity resume tokens.

A token is an HS256-signed claim binding a participant uuid. The server hands one
out when an identity is first created; a client presenting a valid token on a later
create/join proves ownership of that uuid without any account system behind it.
*/
package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// Expiration defines how long an issued identity token remains valid.
	Expiration = 24 * time.Hour

	// TokenIssuer identifies the issuer of the token.
	TokenIssuer = "friend-finder"
)

// Claims is the signed payload of an identity token.
type Claims struct {
	// UUID is the participant identity the token vouches for.
	UUID string `json:"uuid"`

	jwt.StandardClaims
}

// Issue creates and signs a new identity token for the given uuid.
func Issue(uuid string, secretKey string) (string, error) {
	now := time.Now()

	claims := &Claims{
		UUID: uuid,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(Expiration).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    TokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secretKey))
}

// Verify parses and validates an identity token, returning the uuid it vouches for.
func Verify(tokenString string, secretKey string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", errors.New("invalid or expired token")
	}

	if claims.UUID == "" {
		return "", errors.New("token carries no identity")
	}

	return claims.UUID, nil
}
