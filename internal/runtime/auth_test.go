package runtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Safwan2003/ai-proposalgenerator-backend/config"
)

func TestLoadJWTSecret(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "from-config"
	secret, err := LoadJWTSecret(cfg)
	if err != nil || string(secret) != "from-config" {
		t.Fatalf("secret = %q, err = %v", secret, err)
	}

	cfg.Server.JWTSecret = ""
	t.Setenv("PROPOSALGEN_JWT_SECRET", "from-env")
	secret, err = LoadJWTSecret(cfg)
	if err != nil || string(secret) != "from-env" {
		t.Fatalf("secret = %q, err = %v", secret, err)
	}

	t.Setenv("PROPOSALGEN_JWT_SECRET", "")
	if _, err := LoadJWTSecret(cfg); err == nil {
		t.Fatal("expected error when no secret is configured")
	}
}

func runAuthMiddleware(t *testing.T, secret []byte, decorate func(*http.Request)) (int, string, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/proposals", nil)
	decorate(req)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	var gotSubject string
	handler := EchoAuthMiddleware(secret)(func(c echo.Context) error {
		gotSubject, _ = c.Get("user_id").(string)
		return c.NoContent(http.StatusOK)
	})
	err := handler(ctx)
	return rec.Code, gotSubject, err
}

func TestEchoAuthMiddlewareBearerHeader(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := SignJWT("user-1", secret, time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	code, subject, err := runAuthMiddleware(t, secret, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	})
	if err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if code != http.StatusOK || subject != "user-1" {
		t.Fatalf("code = %d, subject = %q", code, subject)
	}
}

func TestEchoAuthMiddlewareCookie(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := SignJWT("user-2", secret, time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	code, subject, err := runAuthMiddleware(t, secret, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "auth", Value: tok})
	})
	if err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if code != http.StatusOK || subject != "user-2" {
		t.Fatalf("code = %d, subject = %q", code, subject)
	}
}

func TestEchoAuthMiddlewareRejections(t *testing.T) {
	secret := []byte("test-secret")

	_, _, err := runAuthMiddleware(t, secret, func(r *http.Request) {})
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: got %#v", err)
	}

	expired, signErr := SignJWT("user-1", secret, -time.Hour)
	if signErr != nil {
		t.Fatalf("SignJWT: %v", signErr)
	}
	_, _, err = runAuthMiddleware(t, secret, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+expired)
	})
	httpErr, ok = err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expired token: got %#v", err)
	}

	other, signErr := SignJWT("user-1", []byte("other-secret"), time.Hour)
	if signErr != nil {
		t.Fatalf("SignJWT: %v", signErr)
	}
	_, _, err = runAuthMiddleware(t, secret, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+other)
	})
	httpErr, ok = err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: got %#v", err)
	}
}

func TestSubjectFromContext(t *testing.T) {
	ctx := ContextWithSubject(context.Background(), "user-1")
	if sub, ok := SubjectFromContext(ctx); !ok || sub != "user-1" {
		t.Fatalf("subject = %q, ok = %v", sub, ok)
	}
	if _, ok := SubjectFromContext(nil); ok {
		t.Fatal("nil context should have no subject")
	}
}
