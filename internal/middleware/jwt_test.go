package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/flash-sale/internal/utils"
)

func authedRequest(t *testing.T, secret string, userID uint64, role string) *http.Request {
    t.Helper()
    tok, err := utils.NewAccessToken(secret, userID, role, 15)
    if err != nil {
        t.Fatalf("issue token: %v", err)
    }
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set("Authorization", "Bearer "+tok.Token)
    return req
}

func TestJWTAuthInjectsIdentity(t *testing.T) {
    e := echo.New()
    var gotUser uint64
    var gotRole string
    h := JWTAuth("secret")(func(c echo.Context) error {
        gotUser, _ = c.Get("user_id").(uint64)
        gotRole, _ = c.Get("role").(string)
        return c.NoContent(http.StatusOK)
    })

    rec := httptest.NewRecorder()
    c := e.NewContext(authedRequest(t, "secret", 42, "CUSTOMER"), rec)
    if err := h(c); err != nil {
        t.Fatalf("handler: %v", err)
    }
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d, want 200", rec.Code)
    }
    if gotUser != 42 || gotRole != "CUSTOMER" {
        t.Errorf("context identity = (%d, %q), want (42, CUSTOMER)", gotUser, gotRole)
    }
}

func TestJWTAuthRejectsBadTokens(t *testing.T) {
    e := echo.New()
    h := JWTAuth("secret")(func(c echo.Context) error {
        t.Fatal("handler reached with invalid auth")
        return nil
    })

    // Missing header.
    rec := httptest.NewRecorder()
    if err := h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
        t.Fatalf("handler: %v", err)
    }
    if rec.Code != http.StatusUnauthorized {
        t.Errorf("missing header: status = %d, want 401", rec.Code)
    }

    // Wrong secret.
    rec = httptest.NewRecorder()
    if err := h(e.NewContext(authedRequest(t, "other-secret", 1, "CUSTOMER"), rec)); err != nil {
        t.Fatalf("handler: %v", err)
    }
    if rec.Code != http.StatusUnauthorized {
        t.Errorf("wrong secret: status = %d, want 401", rec.Code)
    }
}

func TestRequireRole(t *testing.T) {
    e := echo.New()
    h := RequireRole("ADMIN")(func(c echo.Context) error {
        return c.NoContent(http.StatusOK)
    })

    rec := httptest.NewRecorder()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
    c.Set("role", "ADMIN")
    if err := h(c); err != nil {
        t.Fatalf("handler: %v", err)
    }
    if rec.Code != http.StatusOK {
        t.Errorf("admin: status = %d, want 200", rec.Code)
    }

    rec = httptest.NewRecorder()
    c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
    c.Set("role", "CUSTOMER")
    if err := h(c); err != nil {
        t.Fatalf("handler: %v", err)
    }
    if rec.Code != http.StatusForbidden {
        t.Errorf("customer on admin route: status = %d, want 403", rec.Code)
    }

    // No role in context at all.
    rec = httptest.NewRecorder()
    c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
    if err := h(c); err != nil {
        t.Fatalf("handler: %v", err)
    }
    if rec.Code != http.StatusForbidden {
        t.Errorf("missing role: status = %d, want 403", rec.Code)
    }
}
