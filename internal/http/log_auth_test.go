package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Auth logging on success and failure.
func TestAuthLogging(t *testing.T) {
	env := newTestApp(t)
	_, uid := env.register(t, "alice@nexus.test", "client")

	entries := captureLogs(t, func() {
		resp, _ := env.do(t, "POST", "/api/auth/login", "", map[string]any{"email": "alice@nexus.test", "password": "s3cret-pass"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp, _ = env.do(t, "POST", "/api/auth/login", "", map[string]any{"email": "alice@nexus.test", "password": "wrong-pass"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	success, ok := findLog(entries, "auth.login.success")
	require.True(t, ok, "expected auth.login.success log; got %+v", entries)
	assert.Equal(t, "audit", success.Level)
	assert.Equal(t, "alice@nexus.test", success.Fields["email"])
	assert.NotEmpty(t, success.UserID)
	assert.Equal(t, uid, int64(mustAtoi(t, success.UserID)))

	fail, ok := findLog(entries, "auth.login.fail")
	require.True(t, ok, "expected auth.login.fail log")
	assert.Equal(t, "warn", fail.Level)
	for _, e := range entries {
		for _, v := range e.Fields {
			assert.NotEqual(t, "wrong-pass", v, "password leaked into logs")
		}
	}
}

func TestRegisterFailureLogged(t *testing.T) {
	env := newTestApp(t)
	env.register(t, "dup@nexus.test", "client")

	entries := captureLogs(t, func() {
		resp, _ := env.do(t, "POST", "/api/auth/register", "", map[string]any{
			"firstName": "Dup", "lastName": "User", "email": "dup@nexus.test", "password": "s3cret-pass",
		})
		require.Equal(t, http.StatusConflict, resp.StatusCode)
	})
	e, ok := findLog(entries, "auth.register.fail")
	require.True(t, ok, "expected auth.register.fail log")
	assert.Equal(t, "email already registered", e.Fields["reason"])
}
