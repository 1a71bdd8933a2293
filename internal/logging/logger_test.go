package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/soltixdb/tankwatch/internal/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.DebugLevel).With("component", "test")

	logger.Error("boom", "asset_id", "tank-1", "error", errors.New("source down"))

	entry := decodeLine(t, &buf)
	if entry["message"] != "boom" {
		t.Errorf("Expected message boom, got %v", entry["message"])
	}
	if entry["component"] != "test" {
		t.Errorf("Expected component field, got %v", entry["component"])
	}
	if entry["asset_id"] != "tank-1" {
		t.Errorf("Expected asset_id tank-1, got %v", entry["asset_id"])
	}
	if entry["error"] != "source down" {
		t.Errorf("Expected error text, got %v", entry["error"])
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.WarnLevel)

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected info to be filtered, got %q", buf.String())
	}
	logger.Warn("shown")
	if buf.Len() == 0 {
		t.Error("Expected warn to be written")
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.DebugLevel)

	ctx := WithAssetID(WithRequestID(context.Background(), "req-1"), "tank-9")
	logger.WithContext(ctx).Info("hello")

	entry := decodeLine(t, &buf)
	if entry["request_id"] != "req-1" || entry["asset_id"] != "tank-9" {
		t.Errorf("Expected context fields, got %v", entry)
	}
	if RequestID(ctx) != "req-1" {
		t.Errorf("Expected RequestID req-1, got %s", RequestID(ctx))
	}
	if FromContext(context.Background()) != Global() {
		t.Error("Expected FromContext to fall back to the global logger")
	}
}

func TestNewFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tankwatch.log")
	logger, err := NewFromConfig(config.LoggingConfig{Level: "bogus", Format: "json", OutputPath: path})
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	logger.Info("written")
}

func TestFiberMiddlewareRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.DebugLevel)

	app := fiber.New()
	app.Use(FiberMiddleware(logger, DefaultMiddlewareConfig()))
	var seen string
	app.Get("/ping", func(c *fiber.Ctx) error {
		seen = RequestID(c.UserContext())
		return c.SendString("pong")
	})

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.Header.Get(RequestIDHeader) != "fixed-id" {
		t.Errorf("Expected echoed request id, got %s", resp.Header.Get(RequestIDHeader))
	}
	if seen != "fixed-id" {
		t.Errorf("Expected handler to see request id, got %s", seen)
	}
	entry := decodeLine(t, &buf)
	if entry["path"] != "/ping" {
		t.Errorf("Expected path /ping, got %v", entry["path"])
	}
}
