package loginhandler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatrelaygo/internal/auth"
	"chatrelaygo/internal/http/loginhandler"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine() (*gin.Engine, auth.IAuthService) {
	gin.SetMode(gin.TestMode)
	svc := auth.NewAuthService("test-secret-0123")
	engine := gin.New()
	loginhandler.New(svc).Register(engine)
	return engine, svc
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	engine, svc := newEngine()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"username":"alice"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp loginhandler.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Username)

	identity, err := svc.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity)
}

func TestLoginRejectsMissingUsername(t *testing.T) {
	engine, _ := newEngine()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
