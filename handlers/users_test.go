package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/daybook/daybook/internal/models"
	"github.com/daybook/daybook/internal/users"
	"github.com/daybook/daybook/pkg/middleware"
)

type claimsToken map[string]interface{}

func (t claimsToken) Claims(v interface{}) error {
	m, ok := v.(*map[string]interface{})
	if !ok {
		return fmt.Errorf("unsupported claims type")
	}
	*m = map[string]interface{}(t)
	return nil
}

type subVerifier struct{}

func (subVerifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	return claimsToken{"sub": raw, "email": raw + "@example.com"}, nil
}

func userEngine(repo users.UserRepository) *gin.Engine {
	g := gin.New()
	api := g.Group("/api", middleware.AuthMiddleware(subVerifier{}))
	NewUserHandler(users.NewService(repo)).Register(api)
	return g
}

func call(g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer alice")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestTemplatePreferenceRoutes(t *testing.T) {
	g := userEngine(users.NewMemoryUserRepository())

	w := call(g, http.MethodGet, "/api/user/template", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"template":"free"}`, w.Body.String())

	w = call(g, http.MethodPut, "/api/user/template", `{"template":"five-minute"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"success":true,"template":"five-minute"}`, w.Body.String())

	w = call(g, http.MethodGet, "/api/user/template", "")
	require.JSONEq(t, `{"template":"five-minute"}`, w.Body.String())

	w = call(g, http.MethodPut, "/api/user/template", `{"template":""}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"success":true,"template":"free"}`, w.Body.String())

	w = call(g, http.MethodPut, "/api/user/template", `{"template":"ode"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

type brokenUsers struct{}

func (brokenUsers) UpsertBySub(context.Context, *models.User) (*models.User, error) {
	return nil, errors.New("mongo down")
}
func (brokenUsers) GetBySub(context.Context, string) (*models.User, error) {
	return nil, errors.New("mongo down")
}
func (brokenUsers) SetTemplate(context.Context, string, string) error { return errors.New("mongo down") }

func TestTemplatePreferenceStoreDown(t *testing.T) {
	g := userEngine(brokenUsers{})

	w := call(g, http.MethodGet, "/api/user/template", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"template":"free"}`, w.Body.String())

	w = call(g, http.MethodPut, "/api/user/template", `{"template":"free"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"Failed to update template preference"}`, w.Body.String())

	w = call(g, http.MethodGet, "/api/user/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "claims")
}

func TestMe(t *testing.T) {
	g := userEngine(users.NewMemoryUserRepository())
	w := call(g, http.MethodGet, "/api/user/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"email":"alice@example.com"`)
}
