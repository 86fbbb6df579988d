package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newCORSServer(cfg CORSConfig) *echo.Echo {
	e := echo.New()
	e.Use(CORS(cfg))
	e.GET("/api/quotes/:symbol", func(c echo.Context) error {
		c.Response().Header().Set("Warning", `110 - "Response is Stale"`)
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	e := newCORSServer(APICORS())
	req := httptest.NewRequest(http.MethodOptions, "/api/quotes/AAPL", nil)
	req.Header.Set(echo.HeaderOrigin, "https://board.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	h := rec.Header()
	if h.Get(echo.HeaderAccessControlAllowOrigin) != "*" {
		t.Fatalf("allow origin = %q", h.Get(echo.HeaderAccessControlAllowOrigin))
	}
	if h.Get(echo.HeaderAccessControlAllowMethods) == "" {
		t.Fatalf("allow methods missing")
	}
	if h.Get(echo.HeaderAccessControlMaxAge) != "600" {
		t.Fatalf("max age = %q", h.Get(echo.HeaderAccessControlMaxAge))
	}
}

func TestCORSExposesWarningHeader(t *testing.T) {
	e := newCORSServer(APICORS())
	req := httptest.NewRequest(http.MethodGet, "/api/quotes/AAPL", nil)
	req.Header.Set(echo.HeaderOrigin, "https://board.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlExposeHeaders); got != "Warning" {
		t.Fatalf("expose headers = %q", got)
	}
}

func TestCORSRejectsUnlistedOrigin(t *testing.T) {
	cfg := APICORS()
	cfg.AllowOrigins = []string{"https://board.example"}
	e := newCORSServer(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/quotes/AAPL", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "" {
		t.Fatalf("allow origin = %q, want none", got)
	}
	if rec.Header().Get(echo.HeaderVary) != echo.HeaderOrigin {
		t.Fatalf("vary = %q", rec.Header().Get(echo.HeaderVary))
	}
}
