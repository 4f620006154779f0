package auth_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	httptestutil "github.com/opst/yeastregulatorydb/internal/testutils/http"
	"github.com/opst/yeastregulatorydb/pkg/api/auth"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
var key = []byte("testing-key")

func TestIssueAndVerify(t *testing.T) {
	t.Run("it verifies a token it issued", func(t *testing.T) {
		tok, err := auth.Issue(key, "alice", now, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		user, err := auth.Verify(key, tok, now.Add(time.Minute))
		if err != nil {
			t.Fatal(err)
		}
		if user != "alice" {
			t.Errorf("user: %s", user)
		}
	})

	for name, testcase := range map[string]struct {
		key []byte
		at  time.Time
	}{
		"when the token is expired, it rejects": {key: key, at: now.Add(2 * time.Hour)},
		"when the key differs, it rejects":      {key: []byte("another"), at: now},
	} {
		t.Run(name, func(t *testing.T) {
			tok, err := auth.Issue(key, "alice", now, time.Hour)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := auth.Verify(testcase.key, tok, testcase.at); !errors.Is(err, auth.ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, but %v", err)
			}
		})
	}

	t.Run("when ttl is zero, the token does not expire", func(t *testing.T) {
		tok, err := auth.Issue(key, "bob", now, 0)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := auth.Verify(key, tok, now.AddDate(10, 0, 0)); err != nil {
			t.Error(err)
		}
	})

	t.Run("when user is empty, it does not issue", func(t *testing.T) {
		if _, err := auth.Issue(key, "", now, 0); err == nil {
			t.Error("expected error, but not")
		}
	})
}

func TestMiddleware(t *testing.T) {
	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, auth.User(c))
	}
	mw := auth.Middleware(key, func() time.Time { return now })

	t.Run("when the token is valid, it passes the user", func(t *testing.T) {
		tok, err := auth.Issue(key, "alice", now, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		e := echo.New()
		c, rec := httptestutil.Get(e, "/", httptestutil.WithHeader("Authorization", "Bearer "+tok))
		if err := mw(handler)(c); err != nil {
			t.Fatal(err)
		}
		if body := rec.Body.String(); body != "alice" {
			t.Errorf("user: %s", body)
		}
	})

	for name, header := range map[string]string{
		"when there is no token, it responds 401":        "",
		"when the scheme is not bearer, it responds 401": "Basic YWxpY2U6cGFzcw==",
		"when the token is broken, it responds 401":      "Bearer not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			opts := []httptestutil.RequestOption{}
			if header != "" {
				opts = append(opts, httptestutil.WithHeader("Authorization", header))
			}
			c, _ := httptestutil.Get(e, "/", opts...)
			err := mw(handler)(c)
			he := new(echo.HTTPError)
			if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, but %v", err)
			}
		})
	}
}

func TestAdminOnly(t *testing.T) {
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	mw := auth.AdminOnly([]string{"admin"})

	for name, testcase := range map[string]struct {
		user   string
		denied bool
	}{
		"when the user is an admin, it passes":     {user: "admin"},
		"when the user is not an admin, it denies": {user: "alice", denied: true},
	} {
		t.Run(name, func(t *testing.T) {
			tok, err := auth.Issue(key, testcase.user, now, time.Hour)
			if err != nil {
				t.Fatal(err)
			}
			e := echo.New()
			c, _ := httptestutil.Get(e, "/", httptestutil.WithHeader("Authorization", "Bearer "+tok))
			err = auth.Middleware(key, func() time.Time { return now })(mw(handler))(c)
			he := new(echo.HTTPError)
			if denied := errors.As(err, &he) && he.Code == http.StatusForbidden; denied != testcase.denied {
				t.Errorf("denied: (actual, expected) = (%v, %v): %v", denied, testcase.denied, err)
			}
		})
	}
}
