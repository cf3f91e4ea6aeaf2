package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues session tokens: a signed binding between a session
// code and the user id that created or joined it. A caller presenting one
// cannot act under a different identity, which closes the gap left by
// body-asserted user ids for clients that opt in.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// SessionIdentity is what a valid token vouches for.
type SessionIdentity struct {
	Code   string
	UserID string
	Name   string
}

func (s *TokenService) GenerateToken(code, userID, name string) (string, error) {
	claims := jwt.MapClaims{
		"code":    code,
		"user_id": userID,
		"name":    name,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *TokenService) ValidateToken(tokenString string) (*SessionIdentity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	code, ok := claims["code"].(string)
	if !ok {
		return nil, errors.New("invalid code in token")
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid user_id in token")
	}
	name, _ := claims["name"].(string)

	return &SessionIdentity{Code: code, UserID: userID, Name: name}, nil
}
