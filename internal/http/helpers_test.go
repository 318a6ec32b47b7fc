package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"nexusmarket/internal/config"
	"nexusmarket/internal/events"
	"nexusmarket/internal/http/handlers"
	"nexusmarket/internal/repos"
)

const (
	adminEmail    = "ops@nexus.test"
	adminPassword = "fulfil-123456"
)

type testEnv struct {
	app *fiber.App
	db  *sqlx.DB
}

// newTestApp builds the full app over an in-memory database with a seeded admin.
func newTestApp(t *testing.T) *testEnv {
	t.Helper()
	db, err := repos.OpenDB("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.SeedAdmin(context.Background(), db, adminEmail, adminPassword))

	cfg := config.Config{
		CORSOrigin: "*",
		BodyLimit:  1 << 20,
		JWTSecret:  "test-secret",
		JWTTTL:     time.Hour,
	}
	app := handlers.NewApp(cfg, handlers.NewDeps(db, cfg, events.Nop{}), nil)
	return &testEnv{app: app, db: db}
}

// do sends body as JSON (raw when it is a string) and decodes the JSON response.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func (e *testEnv) register(t *testing.T, email, role string) (string, int64) {
	t.Helper()
	resp, body := e.do(t, "POST", "/api/auth/register", "", map[string]any{
		"firstName": "Alice",
		"lastName":  "Smith",
		"email":     email,
		"password":  "s3cret-pass",
		"role":      role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "register: %v", body)
	user := body["user"].(map[string]any)
	return body["token"].(string), int64(user["id"].(float64))
}

func (e *testEnv) loginAdmin(t *testing.T) string {
	t.Helper()
	resp, body := e.do(t, "POST", "/api/auth/login", "", map[string]any{"email": adminEmail, "password": adminPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode, "admin login: %v", body)
	return body["token"].(string)
}

func (e *testEnv) createProduct(t *testing.T, token, name string, price float64, stock int) int64 {
	t.Helper()
	resp, body := e.do(t, "POST", "/api/products", token, map[string]any{
		"name":        name,
		"description": name + " in mint condition",
		"price":       price,
		"stock":       stock,
		"category":    "electronics",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create product: %v", body)
	return idOf(t, body)
}

func (e *testEnv) placeOrder(t *testing.T, token string, productID int64, qty int) (*http.Response, map[string]any) {
	t.Helper()
	return e.do(t, "POST", "/api/orders", token, map[string]any{
		"items": []map[string]any{{"productId": productID, "quantity": qty, "price": 1.00}},
	})
}

func idOf(t *testing.T, body map[string]any) int64 {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "no data object in %v", body)
	return int64(data["id"].(float64))
}

func path(format string, id int64) string {
	return strings.Replace(format, ":id", strconv.FormatInt(id, 10), 1)
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	Fields map[string]any `json:"fields"`
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// captureLogs temporarily replaces the standard logger output.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0) // remove timestamps to make JSON parseable
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
