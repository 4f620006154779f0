// Package auth identifies users of the api by HS256-signed bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	apierr "github.com/opst/yeastregulatorydb/pkg/api/types/errors"
)

var ErrInvalidToken = errors.New("invalid token")

const issuer = "yrdb"

// Claims of bearer tokens. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// Issue signs a token of user with key.
//
// When ttl is zero, the token does not expire.
func Issue(key []byte, user string, now time.Time, ttl time.Duration) (string, error) {
	if user == "" {
		return "", errors.New("user is required")
	}
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  user,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(key)
}

// Verify checks token and returns the user id in it.
func Verify(key []byte, token string, now time.Time) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		token, claims,
		func(*jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: subject is empty", ErrInvalidToken)
	}
	return claims.Subject, nil
}

const userKey = "yrdb.user"

// Middleware rejects requests without a valid "Authorization: Bearer ..." header,
// and puts the user id of the token into the echo.Context.
func Middleware(key []byte, now func() time.Time) echo.MiddlewareFunc {
	if now == nil {
		now = time.Now
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || token == "" {
				return apierr.Unauthorized("bearer token is required", nil)
			}
			user, err := Verify(key, token, now())
			if err != nil {
				return apierr.Unauthorized("bearer token is not acceptable", err)
			}
			c.Set(userKey, user)
			return next(c)
		}
	}
}

// User returns the user id put by Middleware. Empty if not authenticated.
func User(c echo.Context) string {
	u, _ := c.Get(userKey).(string)
	return u
}

// AdminOnly rejects users not in admins.
func AdminOnly(admins []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !slices.Contains(admins, User(c)) {
				return apierr.Forbidden("admin only")
			}
			return next(c)
		}
	}
}
