package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLoginProfile(t *testing.T) {
	env := newTestApp(t)

	resp, body := env.do(t, "POST", "/api/auth/register", "", map[string]any{
		"firstName": "Alice", "lastName": "Smith", "email": "Alice@Nexus.test", "password": "s3cret-pass", "role": "seller",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", body)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice@nexus.test", user["email"])
	assert.Equal(t, "seller", user["role"])

	resp, body = env.do(t, "POST", "/api/auth/register", "", map[string]any{
		"firstName": "Alice", "lastName": "Again", "email": "alice@nexus.test", "password": "s3cret-pass",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	resp, body = env.do(t, "POST", "/api/auth/login", "", map[string]any{"email": "ALICE@nexus.test", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := body["token"].(string)
	require.NotEmpty(t, token)

	resp, body = env.do(t, "GET", "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "alice@nexus.test", data["email"])
	assert.Equal(t, "Smith", data["lastName"])
	for k := range data {
		assert.NotContains(t, k, "password", "profile must not expose the password hash")
	}
}

func TestRegisterDefaultsToClient(t *testing.T) {
	env := newTestApp(t)
	resp, body := env.do(t, "POST", "/api/auth/register", "", map[string]any{
		"firstName": "Bob", "lastName": "Jones", "email": "bob@nexus.test", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "client", body["user"].(map[string]any)["role"])
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	env := newTestApp(t)
	resp, body := env.do(t, "POST", "/api/auth/register", "", map[string]any{
		"firstName": "Eve", "lastName": "Mallory", "email": "eve@nexus.test", "password": "s3cret-pass", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "role must be client or seller", body["message"])
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestApp(t)
	env.register(t, "carol@nexus.test", "client")

	resp, body := env.do(t, "POST", "/api/auth/login", "", map[string]any{"email": "carol@nexus.test", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid email or password", body["message"])

	resp, _ = env.do(t, "POST", "/api/auth/login", "", map[string]any{"email": "not-an-email", "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestApp(t)

	resp, _ := env.do(t, "GET", "/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, "GET", "/api/orders", "garbage.token.value", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
