package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func newRequest(authHeader string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func signToken(t *testing.T, key []byte, roles []string) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "a3d1f0f2-61a1-4fbe-ae4b-67a240ba9ef6",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: roles,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	key := []byte("test-secret")
	mw := JWTMiddleware(JWTConfig{SigningKey: key})

	var gotID string
	var gotRoles []string
	handler := mw(func(c echo.Context) error {
		gotID = ActorIDFromContext(c.Request().Context())
		gotRoles = RolesFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	c, _ := newRequest("Bearer " + signToken(t, key, []string{RoleProfessional}))
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != "a3d1f0f2-61a1-4fbe-ae4b-67a240ba9ef6" {
		t.Errorf("unexpected actor id %q", gotID)
	}
	if len(gotRoles) != 1 || gotRoles[0] != RoleProfessional {
		t.Errorf("unexpected roles %v", gotRoles)
	}
}

func TestJWTMiddlewareRejectsBadTokens(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: []byte("test-secret")})
	handler := mw(okHandler)

	for _, header := range []string{
		"",
		"Bearer not-a-token",
		"Basic dXNlcjpwYXNz",
		"Bearer " + signToken(t, []byte("wrong-key"), nil),
	} {
		c, _ := newRequest(header)
		err := handler(c)
		httpErr, ok := err.(*echo.HTTPError)
		if !ok || httpErr.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %v", header, err)
		}
	}
}

func TestRequireRole(t *testing.T) {
	key := []byte("test-secret")
	authed := JWTMiddleware(JWTConfig{SigningKey: key})

	guarded := authed(RequireRole(RoleAdmin)(okHandler))

	c, rec := newRequest("Bearer " + signToken(t, key, []string{RoleAdmin, RoleProfessional}))
	if err := guarded(c); err != nil {
		t.Fatalf("admin must pass: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c, _ = newRequest("Bearer " + signToken(t, key, []string{RoleMember}))
	err := guarded(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("member must be forbidden, got %v", err)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	handler := DevAuthMiddleware()(func(c echo.Context) error {
		if ActorIDFromContext(c.Request().Context()) == "" {
			t.Error("expected injected dev identity")
		}
		return c.NoContent(http.StatusOK)
	})

	c, _ := newRequest("")
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
