// Package models holds the data exchanged with the dealer storefront API and
// the client-side state built from it.
package models

import (
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated dealer session kept by the credential store.
type Session struct {
	AccountID    int64    `json:"accountId"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	DisplayName  string   `json:"displayName"`
	Roles        []string `json:"roles"`
}

// Clone returns a deep copy, so callers can mutate it without touching the
// store's cached value.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Roles = slices.Clone(s.Roles)
	return &c
}

func (s *Session) HasRole(role string) bool {
	return s != nil && slices.Contains(s.Roles, role)
}

// AccessTokenExpiry reads the exp claim of the access token. The signature is
// not verified: the token is only inspected to decide when to refresh.
// ok is false when the token is not a JWT or carries no exp.
func (s *Session) AccessTokenExpiry() (exp time.Time, ok bool) {
	if s == nil || s.AccessToken == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err != nil {
		return time.Time{}, false
	}
	nd, err := claims.GetExpirationTime()
	if err != nil || nd == nil {
		return time.Time{}, false
	}
	return nd.Time, true
}

// AccountIDFromToken extracts the dealer account id from an access token,
// looking at the accountId claim first and falling back to a numeric sub.
func AccountIDFromToken(token string) (int64, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, false
	}
	switch v := claims["accountId"].(type) {
	case float64:
		return int64(v), true
	case string:
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			return id, true
		}
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	UserType string `json:"userType"`
}

// LoginResult is the body returned by POST /api/auth/login.
type LoginResult struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	Username     string   `json:"username"`
	Roles        []string `json:"roles"`
	AccountID    int64    `json:"accountId,omitempty"`
}

// RefreshRequest is the body of POST /api/auth/refresh.
type RefreshRequest struct {
	Token string `json:"token"`
}

// RefreshResult is the body returned by POST /api/auth/refresh. Servers that
// rotate refresh tokens also send RefreshToken.
type RefreshResult struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken,omitempty"`
	Username     string   `json:"username"`
	Roles        []string `json:"roles"`
}
