package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lvow2022/research-assistant/internal/config"
	"github.com/lvow2022/research-assistant/internal/pkg/code"
	ijwt "github.com/lvow2022/research-assistant/internal/web/jwt"
	"github.com/lvow2022/research-assistant/internal/web/middleware"
)

func newAuthServer(t *testing.T) *gin.Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Auth = config.Auth{Secret: "s3cret-key", Username: "phd", Password: "Thesis#2024"}
	hdl := ijwt.NewLocalJWTHandler(cfg.Auth.Secret)

	server := gin.New()
	server.Use(middleware.NewLoginJWTMiddlewareBuilder(hdl).CheckLogin())
	NewAuthHandler(hdl, config.NewState(cfg)).RegisterRoutes(server)
	server.GET("/api/ping", func(ctx *gin.Context) { ctx.String(http.StatusOK, "pong") })
	return server
}

func withToken(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("User-Agent", "test-agent")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestLoginGuardsAPI(t *testing.T) {
	server := newAuthServer(t)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, withToken(http.MethodGet, "/api/ping", ""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated = %d", rec.Code)
	}

	rec = doJSON(t, server, http.MethodPost, "/auth/login", gin.H{"username": "phd", "password": "wrong"})
	if resp := decode(t, rec, nil); rec.Code != http.StatusUnauthorized || resp.Code != code.ErrUnauthorized {
		t.Fatalf("bad password = %d %+v", rec.Code, resp)
	}

	rec = doJSON(t, server, http.MethodPost, "/auth/login", gin.H{"username": "../etc", "password": "x"})
	if resp := decode(t, rec, nil); resp.Code != code.ErrValidation {
		t.Fatalf("bad username = %+v", resp)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"phd","password":"Thesis#2024"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	access := rec.Header().Get("x-jwt-token")
	refresh := rec.Header().Get("x-refresh-token")
	if rec.Code != http.StatusOK || access == "" || refresh == "" {
		t.Fatalf("login = %d tokens %q %q", rec.Code, access, refresh)
	}

	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, withToken(http.MethodGet, "/api/ping", access))
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("authenticated = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, withToken(http.MethodPost, "/auth/refresh", refresh))
	if rec.Code != http.StatusOK || rec.Header().Get("x-jwt-token") == "" {
		t.Fatalf("refresh = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, withToken(http.MethodPost, "/auth/logout", access))
	if rec.Code != http.StatusOK {
		t.Fatalf("logout = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, withToken(http.MethodGet, "/api/ping", access))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("after logout = %d", rec.Code)
	}
}
