package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtxHandlerAttachesRequestScopedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&ctxHandler{slog.NewJSONHandler(&buf, nil)})

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, uint(7))
	ctx = context.WithValue(ctx, TraceIDKey, "0af7651916cd43dd8448eb211c80319c")

	logger.InfoContext(ctx, "hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "req-1", record["request_id"])
	assert.EqualValues(t, 7, record["user_id"])
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", record["trace_id"])
}

func TestCtxHandlerSkipsAbsentFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&ctxHandler{slog.NewJSONHandler(&buf, nil)})

	logger.InfoContext(context.Background(), "plain")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.NotContains(t, record, "request_id")
	assert.NotContains(t, record, "user_id")
	assert.NotContains(t, record, "trace_id")
}

func TestContextMiddlewareCopiesLocals(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "req-42")
		c.Locals("traceID", "deadbeefdeadbeefdeadbeefdeadbeef")
		c.Locals("userID", uint(3))
		return c.Next()
	})
	app.Use(ContextMiddleware())

	var gotRID, gotTID string
	var gotUID uint
	app.Get("/", func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		gotRID, _ = ctx.Value(RequestIDKey).(string)
		gotTID, _ = ctx.Value(TraceIDKey).(string)
		gotUID, _ = ctx.Value(UserIDKey).(uint)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "req-42", gotRID)
	assert.Equal(t, "deadbeefdeadbeefdeadbeefdeadbeef", gotTID)
	assert.EqualValues(t, 3, gotUID)
}
