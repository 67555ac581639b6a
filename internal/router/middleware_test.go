package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	generated := w2.Header().Get(requestIDHeader)
	if generated == "" {
		t.Fatalf("generated request id should not be empty")
	}
	if resp := strings.TrimSpace(generated); resp == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

func signUserToken(t *testing.T, secret string, userID uint, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, UserClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	return signed
}

func serveWithUserAuth(t *testing.T, secret, authorization string) (int, uint) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var seen uint
	r := gin.New()
	r.Use(UserJWTAuthMiddleware(secret))
	r.GET("/cart", func(c *gin.Context) {
		if value, ok := c.Get("user_id"); ok {
			seen, _ = value.(uint)
		}
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp.StatusCode, seen
}

func TestUserJWTAuthMiddleware(t *testing.T) {
	const secret = "test-secret-with-enough-length"
	valid := signUserToken(t, secret, 42, time.Now().Add(time.Hour))
	expired := signUserToken(t, secret, 42, time.Now().Add(-time.Minute))
	foreign := signUserToken(t, "another-secret", 42, time.Now().Add(time.Hour))
	noUser := signUserToken(t, secret, 0, time.Now().Add(time.Hour))

	cases := []struct {
		name   string
		secret string
		header string
		code   int
		userID uint
	}{
		{name: "valid", secret: secret, header: "Bearer " + valid, code: 0, userID: 42},
		{name: "missing secret", secret: "", header: "Bearer " + valid, code: 401},
		{name: "missing header", secret: secret, header: "", code: 401},
		{name: "wrong scheme", secret: secret, header: "Token " + valid, code: 401},
		{name: "expired", secret: secret, header: "Bearer " + expired, code: 401},
		{name: "wrong secret", secret: secret, header: "Bearer " + foreign, code: 401},
		{name: "zero user", secret: secret, header: "Bearer " + noUser, code: 401},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, userID := serveWithUserAuth(t, tc.secret, tc.header)
			if code != tc.code {
				t.Fatalf("status_code want %d got %d", tc.code, code)
			}
			if userID != tc.userID {
				t.Fatalf("user id want %d got %d", tc.userID, userID)
			}
		})
	}
}
