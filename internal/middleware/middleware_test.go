package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"jewellery-billing-api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func newAuth() *AuthService {
	return NewAuthService(&AuthConfig{JWTSecret: "test-secret", TokenDuration: time.Hour}, testLogger())
}

func TestAuthService_TokenRoundTrip(t *testing.T) {
	auth := newAuth()
	user := &models.User{ID: "u-1", Name: "Meena", Email: "meena@shop.test", Role: models.RoleStaff}

	token, expires, err := auth.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}
	if !expires.After(time.Now()) {
		t.Errorf("expiry %v is not in the future", expires)
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() failed: %v", err)
	}
	if claims.UserID != "u-1" || claims.Role != models.RoleStaff || claims.Email != user.Email {
		t.Errorf("claims = %+v", claims)
	}

	refreshed, _, err := auth.RefreshToken(token)
	if err != nil {
		t.Fatalf("RefreshToken() failed: %v", err)
	}
	if _, err := auth.ValidateToken(refreshed); err != nil {
		t.Errorf("refreshed token invalid: %v", err)
	}
}

func TestAuthService_RejectsForeignTokens(t *testing.T) {
	auth := newAuth()
	other := NewAuthService(&AuthConfig{JWTSecret: "other-secret"}, testLogger())
	foreignIssuer := NewAuthService(&AuthConfig{JWTSecret: "test-secret", Issuer: "someone-else"}, testLogger())
	user := &models.User{ID: "u-1", Role: models.RoleAdmin}

	wrongSecret, _, _ := other.GenerateToken(user)
	wrongIssuer, _, _ := foreignIssuer.GenerateToken(user)
	badRole, _, _ := auth.GenerateToken(&models.User{ID: "u-2", Role: models.Role("owner")})

	tests := []struct {
		name  string
		token string
	}{
		{"WrongSecret", wrongSecret},
		{"WrongIssuer", wrongIssuer},
		{"UnknownRole", badRole},
		{"Garbage", "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := auth.ValidateToken(tt.token); err == nil {
				t.Error("ValidateToken() succeeded, want error")
			}
		})
	}
}

func TestAuthentication_AndRequireRole(t *testing.T) {
	auth := newAuth()
	staffToken, _, _ := auth.GenerateToken(&models.User{ID: "s-1", Role: models.RoleStaff})
	adminToken, _, _ := auth.GenerateToken(&models.User{ID: "a-1", Role: models.RoleAdmin})

	router := gin.New()
	router.GET("/me", auth.Authentication(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": *CurrentUserID(c), "admin": IsAdmin(c)})
	})
	router.POST("/rates", auth.Authentication(), auth.RequireRole(models.RoleAdmin), okHandler)

	tests := []struct {
		name   string
		method string
		path   string
		header string
		want   int
	}{
		{"NoHeader", http.MethodGet, "/me", "", http.StatusUnauthorized},
		{"BadScheme", http.MethodGet, "/me", "Basic abc", http.StatusUnauthorized},
		{"BadToken", http.MethodGet, "/me", "Bearer nope", http.StatusUnauthorized},
		{"Staff", http.MethodGet, "/me", "Bearer " + staffToken, http.StatusOK},
		{"StaffOnAdminRoute", http.MethodPost, "/rates", "Bearer " + staffToken, http.StatusForbidden},
		{"AdminOnAdminRoute", http.MethodPost, "/rates", "Bearer " + adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRequestValidation(t *testing.T) {
	router := gin.New()
	router.Use(RequestValidation())
	router.GET("/bills", okHandler)
	router.GET("/bills/:id", okHandler)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"Plain", "/bills", http.StatusOK},
		{"Paging", "/bills?limit=20&offset=40", http.StatusOK},
		{"NegativeLimit", "/bills?limit=-1", http.StatusBadRequest},
		{"HugeLimit", "/bills?limit=5000", http.StatusBadRequest},
		{"TextOffset", "/bills?offset=abc", http.StatusBadRequest},
		{"LowStockFlag", "/bills?low_stock=true", http.StatusOK},
		{"LowStockBad", "/bills?low_stock=maybe", http.StatusBadRequest},
		{"UUID", "/bills/5b0b8a4e-7c1f-4d38-9a55-0cf2d4c3a111", http.StatusOK},
		{"NotUUID", "/bills/42", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRateLimiter_PerClient(t *testing.T) {
	router := gin.New()
	router.Use(RateLimiter(testLogger(), 1, 2))
	router.GET("/", okHandler)

	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := request("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d = %d, want 200", i, code)
		}
	}
	if code := request("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", code)
	}
	if code := request("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other client = %d, want 200", code)
	}
}

func TestContentTypeAndSizeLimit(t *testing.T) {
	router := gin.New()
	router.Use(ContentTypeValidation(), RequestSizeLimit(64))
	router.POST("/bills", okHandler)

	tests := []struct {
		name        string
		body        string
		contentType string
		want        int
	}{
		{"JSON", `{"customerName":"A"}`, "application/json; charset=utf-8", http.StatusOK},
		{"Form", "a=b", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"TooLarge", `{"x":"` + strings.Repeat("a", 100) + `"}`, "application/json", http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/bills", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"Wildcard", []string{"*"}, "https://anywhere.test", "*"},
		{"Listed", []string{"https://shop.test"}, "https://shop.test", "https://shop.test"},
		{"NotListed", []string{"https://shop.test"}, "https://evil.test", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORS(tt.origins))
			router.GET("/", okHandler)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestID_AndRecovery(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), Recovery(testLogger()))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })
	router.GET("/", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not generated")
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("panic status = %d, want 500", w.Code)
	}
}

func TestResourceFromPath(t *testing.T) {
	id := "5b0b8a4e-7c1f-4d38-9a55-0cf2d4c3a111"
	tests := []struct {
		path         string
		wantResource string
		wantID       string
	}{
		{"/api/v1/bills", "bill", ""},
		{"/api/v1/products/" + id + "/stock", "product", id},
		{"/api/v1/rates/settings", "rate", ""},
		{"/health", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resource, gotID := resourceFromPath(tt.path)
			if resource != tt.wantResource || gotID != tt.wantID {
				t.Errorf("resourceFromPath() = (%q, %q), want (%q, %q)", resource, gotID, tt.wantResource, tt.wantID)
			}
		})
	}
}
