package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/epp-kardex/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/epp-kardex/pkg/jwt"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testIssuer    = "epp-kardex-test"
	testExpMin    = 60
)

// guardedApp expone GET /guarded detrás de AuthMiddleware + RequireRole y devuelve los locals.
func guardedApp(roles ...string) *fiber.App {
	app := fiber.New()
	app.Get("/guarded", apphttp.AuthMiddleware(testJWTSecret), apphttp.RequireRole(roles...), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": apphttp.GetUserID(c), "role": apphttp.GetRole(c)})
	})
	return app
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

func getGuarded(t *testing.T, app *fiber.App, auth string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestGuardedRoute(t *testing.T) {
	proposal, err := pkgjwt.SignProposal(testJWTSecret, testIssuer, "p-1", testUserID, testExpMin, map[string]string{"k": "v"})
	require.NoError(t, err)

	cases := []struct {
		name     string
		allowed  []string
		auth     string
		status   int
		wantCode string
	}{
		{"admin en ruta de admin", []string{apphttp.RoleAdmin}, bearer(t, apphttp.RoleAdmin), http.StatusOK, ""},
		{"almacenero en ruta de escritura", []string{apphttp.RoleAdmin, apphttp.RoleAlmacenero}, bearer(t, apphttp.RoleAlmacenero), http.StatusOK, ""},
		{"supervisor en ruta de admin", []string{apphttp.RoleAdmin}, bearer(t, apphttp.RoleSupervisor), http.StatusForbidden, "FORBIDDEN"},
		{"rol desconocido", []string{apphttp.RoleAdmin, apphttp.RoleAlmacenero, apphttp.RoleSupervisor}, bearer(t, "vendedor"), http.StatusForbidden, "FORBIDDEN"},
		{"token sin rol", []string{apphttp.RoleAdmin}, bearer(t, ""), http.StatusUnauthorized, "MISSING_ROLE"},
		{"sin header", []string{apphttp.RoleAdmin}, "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"sin prefijo Bearer", []string{apphttp.RoleAdmin}, "Token abc", http.StatusUnauthorized, ""},
		{"token malformado", []string{apphttp.RoleAdmin}, "Bearer token.invalido.aqui", http.StatusUnauthorized, "INVALID_TOKEN"},
		// Un token de propuesta no trae user_id: no sirve como sesión.
		{"token de propuesta", []string{apphttp.RoleAdmin}, "Bearer " + proposal, http.StatusUnauthorized, "INVALID_TOKEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := getGuarded(t, guardedApp(tc.allowed...), tc.auth)
			assert.Equal(t, tc.status, status, body)
			if tc.wantCode != "" {
				assert.Contains(t, body, tc.wantCode)
			}
		})
	}
}

func TestAuthMiddleware_CargaLocals(t *testing.T) {
	status, raw := getGuarded(t, guardedApp(apphttp.RoleSupervisor), bearer(t, apphttp.RoleSupervisor))
	require.Equal(t, http.StatusOK, status)

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, apphttp.RoleSupervisor, body["role"])
}
