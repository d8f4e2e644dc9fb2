package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apphttp "sales_leads_backend/internal/http"
	"sales_leads_backend/platform/httpkit"
	"sales_leads_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "router-test-secret"

type testConfig struct{}

func (testConfig) GetHTTPAddr() string        { return ":0" }
func (testConfig) GetCORSAllowAll() bool      { return false }
func (testConfig) GetCORSOrigins() []string   { return []string{"https://crm.example.com"} }
func (testConfig) GetCORSAllowCreds() bool    { return true }
func (testConfig) GetJWTAccessSecret() string { return testSecret }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

// probeModule mounts one route on every group it is handed.
type probeModule struct{}

func (probeModule) Name() string { return "probe" }

func (probeModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ok := func(c *gin.Context) { httpkit.OK(c, gin.H{"id": httpkit.GetIdentity(c).UserID()}) }
	ctx.Public.GET("/probe/public", ok)
	ctx.Protected.GET("/probe/protected", ok)
	ctx.Admin.GET("/probe", ok)
}

func newEngine(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  testConfig{},
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{probeModule{}},
	})
}

func token(t *testing.T, userID string, role int64) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"type": httpkit.TokenTypeAccess,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + signed
}

func TestHealth(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "database reachable", want: http.StatusOK},
		{name: "database down", err: errors.New("dial tcp: refused"), want: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newEngine(pinger{err: tc.err}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Fatal("missing request id header")
			}
		})
	}
}

func TestModuleGroups(t *testing.T) {
	engine := newEngine(pinger{})
	cases := []struct {
		name string
		path string
		auth string
		want int
	}{
		{name: "public without token", path: "/api/v1/probe/public", want: http.StatusOK},
		{name: "protected without token", path: "/api/v1/probe/protected", want: http.StatusUnauthorized},
		{name: "protected with garbage token", path: "/api/v1/probe/protected", auth: "Bearer nope", want: http.StatusUnauthorized},
		{name: "protected as scoped user", path: "/api/v1/probe/protected", auth: token(t, "7", httpkit.RoleScoped), want: http.StatusOK},
		{name: "non numeric subject", path: "/api/v1/probe/protected", auth: token(t, "abc", httpkit.RoleScoped), want: http.StatusUnauthorized},
		{name: "admin group as scoped user", path: "/api/v1/admin/probe", auth: token(t, "7", httpkit.RoleScoped), want: http.StatusForbidden},
		{name: "admin group as admin", path: "/api/v1/admin/probe", auth: token(t, "1", httpkit.RoleAdmin), want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	engine := newEngine(pinger{})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/probe/public", nil)
	req.Header.Set("Origin", "https://crm.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://crm.example.com" {
		t.Fatalf("allow origin = %q", got)
	}
	if !strings.EqualFold(rec.Header().Get("Access-Control-Allow-Credentials"), "true") {
		t.Fatal("credentials not allowed")
	}
}
