package devapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the access token claims. Generation lets the server invalidate
// every outstanding access token at once.
type Claims struct {
	jwt.RegisteredClaims
	AccountID  int64    `json:"accountId"`
	Roles      []string `json:"roles,omitempty"`
	Generation uint64   `json:"gen"`
}

func GenerateToken(accountID int64, roles []string, generation uint64, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(accountID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		AccountID:  accountID,
		Roles:      roles,
		Generation: generation,
	})

	return token.SignedString(secretKey)
}

func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
