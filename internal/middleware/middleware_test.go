package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/coursetalk/coursetalk-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, tokenType service.TokenType, perms ...string) string {
	t.Helper()
	claims := service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TokenType:   tokenType,
		Permissions: perms,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func adminRouter() *gin.Engine {
	r := gin.New()
	admin := r.Group("/admin")
	admin.Use(RequireAdminJWT(service.NewTokenVerifier(testSecret)))
	admin.GET("/read", func(c *gin.Context) { c.Status(http.StatusOK) })
	admin.PUT("/write", RequirePermission(service.PermissionCatalogWrite), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── RequireAdminJWT / RequirePermission ──

func TestRequireAdminJWT(t *testing.T) {
	r := adminRouter()

	cases := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", signToken(t, "other", service.TokenTypeAdmin), http.StatusUnauthorized},
		{"student token", signToken(t, testSecret, service.TokenTypeStudent), http.StatusForbidden},
		{"admin token", signToken(t, testSecret, service.TokenTypeAdmin), http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := serve(r, http.MethodGet, "/admin/read", tc.token); w.Code != tc.status {
				t.Errorf("expected %d, got %d", tc.status, w.Code)
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	r := adminRouter()

	w := serve(r, http.MethodPut, "/admin/write", signToken(t, testSecret, service.TokenTypeAdmin))
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 without permission, got %d", w.Code)
	}

	w = serve(r, http.MethodPut, "/admin/write", signToken(t, testSecret, service.TokenTypeAdmin, service.PermissionCatalogWrite))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with permission, got %d", w.Code)
	}
}

func TestRequireAdminJWT_EmptySecretRejects(t *testing.T) {
	r := gin.New()
	r.Use(RequireAdminJWT(service.NewTokenVerifier("")))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := serve(r, http.MethodGet, "/x", signToken(t, testSecret, service.TokenTypeAdmin)); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ── RateLimiter ──

func TestRateLimiter_BlocksAfterBudget(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)
	defer rl.Stop()

	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/search", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		if w := serve(r, http.MethodGet, "/search", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}

	w := serve(r, http.MethodGet, "/search", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

// ── Cache headers ──

func TestCacheHeaders(t *testing.T) {
	r := gin.New()
	r.GET("/cached", CacheControl(3600), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fresh", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })

	if got := serve(r, http.MethodGet, "/cached", "").Header().Get("Cache-Control"); got == "" {
		t.Error("expected Cache-Control on cacheable route")
	}
	if got := serve(r, http.MethodGet, "/fresh", "").Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("expected no-store, got %q", got)
	}
}

// ── Brotli ──

func brotliRouter() *gin.Engine {
	r := gin.New()
	r.Use(Brotli())
	r.GET("/big", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"title": strings.Repeat("COMP SCI 240 / MATH 240 ", 100)})
	})
	r.GET("/small", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/moved", func(c *gin.Context) { c.Redirect(http.StatusPermanentRedirect, "/big") })
	return r
}

func serveBrotli(r *gin.Engine, path, acceptEncoding string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept-Encoding", acceptEncoding)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBrotli_CompressesLargeJSON(t *testing.T) {
	w := serveBrotli(brotliRouter(), "/big", "gzip, br")

	if w.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("expected br encoding, got %q", w.Header().Get("Content-Encoding"))
	}
	body, err := io.ReadAll(brotli.NewReader(w.Body))
	if err != nil {
		t.Fatalf("decode brotli: %v", err)
	}
	if !strings.Contains(string(body), "MATH 240") {
		t.Errorf("decoded body lost content: %.80s", body)
	}
}

func TestBrotli_PassThrough(t *testing.T) {
	r := brotliRouter()

	cases := []struct {
		name, path, accept string
	}{
		{"small body", "/small", "br"},
		{"client opts out", "/big", "br;q=0, gzip"},
		{"no br", "/big", "gzip"},
		{"redirect", "/moved", "br"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serveBrotli(r, tc.path, tc.accept)
			if enc := w.Header().Get("Content-Encoding"); enc != "" {
				t.Errorf("expected identity encoding, got %q", enc)
			}
		})
	}

	if loc := serveBrotli(r, "/moved", "br").Header().Get("Location"); loc != "/big" {
		t.Errorf("redirect Location lost: %q", loc)
	}
}
