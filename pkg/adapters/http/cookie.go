package http

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const cookieIssuer = "lemon"

// encodeSession returns the cookie value for id. With a secret the value is
// an HS256 token whose subject is the session ID.
func (s *Server) encodeSession(id string) (string, error) {
	if len(s.CookieSecret) == 0 {
		return id, nil
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  cookieIssuer,
		Subject: id,
	})
	signed, err := token.SignedString(s.CookieSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return signed, nil
}

// decodeSession validates a cookie value and returns the session ID.
func (s *Server) decodeSession(value string) (string, error) {
	id := value
	if len(s.CookieSecret) > 0 {
		parser := jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cookieIssuer),
		)
		claims := &jwt.RegisteredClaims{}
		_, err := parser.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
			return s.CookieSecret, nil
		})
		if err != nil {
			return "", err
		}
		id = claims.Subject
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", errors.New("malformed session id")
	}
	return id, nil
}
