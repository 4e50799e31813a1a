// Package auth issues and verifies bearer tokens for the backend and serves
// the login and logout endpoints.
package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrInactive           = errors.New("user not active")
)

type Service struct {
	accounts Accounts
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewService(accounts Accounts, secret string, ttl time.Duration) *Service {
	return &Service{
		accounts: accounts,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate checks an email and password and returns the account with a
// fresh token. Unknown emails, wrong passwords and inactive accounts all
// yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, string, error) {
	acct, err := s.accounts.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !acct.Active || !CheckPassword(acct.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.IssueToken(acct)
	if err != nil {
		return nil, "", err
	}
	return acct, token, nil
}

type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

func (s *Service) IssueToken(acct *Account) (string, error) {
	now := s.now()
	claims := Claims{
		Roles: acct.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(acct.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

func (s *Service) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Resolve turns a bearer token into a Principal, reloading the account so
// deactivation and role changes apply to tokens already issued.
func (s *Service) Resolve(ctx context.Context, tokenStr string) (*Principal, error) {
	claims, err := s.ParseToken(tokenStr)
	if err != nil {
		return nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	acct, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInactive
		}
		return nil, err
	}
	if !acct.Active {
		return nil, ErrInactive
	}
	return &Principal{UserID: acct.ID, Email: acct.Email, Roles: acct.Roles}, nil
}
