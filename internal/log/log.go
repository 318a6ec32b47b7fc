// Package log writes one JSON object per line through the standard logger.
// Request-scoped calls pull request id, caller, method and path off the fiber context;
// pass a nil context for process-level events.
package log

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// UserIDKey is the fiber local the auth middleware stores the caller id under.
const UserIDKey = "user_id"

type level string

const (
	levelInfo  level = "info"
	levelAudit level = "audit"
	levelWarn  level = "warn"
	levelError level = "error"
)

type request struct {
	ReqID  string `json:"req_id,omitempty"`
	IP     string `json:"ip,omitempty"`
	Method string `json:"method,omitempty"`
	Path   string `json:"path,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Status int    `json:"status,omitempty"`
}

type record struct {
	TS    string `json:"ts"`
	Level level  `json:"level"`
	request
	Action string         `json:"action,omitempty"`
	Err    string         `json:"err,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

func requestOf(c *fiber.Ctx) request {
	if c == nil {
		return request{}
	}
	r := request{
		IP:     c.IP(),
		Method: c.Method(),
		Path:   c.Path(),
		Status: c.Response().StatusCode(),
	}
	if rid, _ := c.Locals("requestid").(string); rid != "" {
		r.ReqID = rid
	}
	if uid, _ := c.Locals(UserIDKey).(int64); uid != 0 {
		r.UserID = strconv.FormatInt(uid, 10)
	}
	return r
}

func emit(lv level, c *fiber.Ctx, action string, err error, fields map[string]any) {
	rec := record{
		TS:      time.Now().UTC().Format(time.RFC3339),
		Level:   lv,
		request: requestOf(c),
		Action:  action,
		Fields:  fields,
	}
	if err != nil {
		rec.Err = err.Error()
	}
	b, mErr := json.Marshal(rec)
	if mErr != nil {
		// unencodable field values; keep the line without them
		rec.Fields = map[string]any{"marshal_err": mErr.Error()}
		b, _ = json.Marshal(rec)
	}
	log.Println(string(b))
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	emit(levelInfo, c, action, nil, fields)
}

// Audit records a state change made by the caller.
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	emit(levelAudit, c, action, nil, fields)
}

// Security records denied or suspicious requests at warn level.
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	emit(levelWarn, c, action, nil, fields)
}

func Warn(c *fiber.Ctx, action string, err error, fields map[string]any) {
	emit(levelWarn, c, action, err, fields)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	emit(levelError, c, action, err, fields)
}
