package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/tankwatch/internal/logging"
	"github.com/soltixdb/tankwatch/internal/models"
	"github.com/soltixdb/tankwatch/internal/services"
)

func serveError(t *testing.T, handlerErr error) (int, models.ErrorResponse) {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(logging.NewNop()),
	})
	app.Get("/test", func(c *fiber.Ctx) error {
		return handlerErr
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got %q", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	var errResp models.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	return resp.StatusCode, errResp
}

func TestErrorHandler_FiberError(t *testing.T) {
	tests := []struct {
		name           string
		err            *fiber.Error
		expectedStatus int
		expectedMsg    string
	}{
		{"BadRequest", fiber.ErrBadRequest, fiber.StatusBadRequest, "Bad Request"},
		{"NotFound", fiber.ErrNotFound, fiber.StatusNotFound, "Not Found"},
		{"ServiceUnavailable", fiber.ErrServiceUnavailable, fiber.StatusServiceUnavailable, "Service Unavailable"},
		{"Custom", fiber.NewError(fiber.StatusTeapot, "I'm a teapot"), fiber.StatusTeapot, "I'm a teapot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := serveError(t, tt.err)
			if status != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, status)
			}
			if resp.Error.Message != tt.expectedMsg {
				t.Errorf("Expected message %q, got %q", tt.expectedMsg, resp.Error.Message)
			}
			if resp.Error.Code != "ERROR" {
				t.Errorf("Expected code 'ERROR', got %q", resp.Error.Code)
			}
			if resp.Error.Path != "/test" {
				t.Errorf("Expected path '/test', got %q", resp.Error.Path)
			}
		})
	}
}

func TestErrorHandler_ServiceError(t *testing.T) {
	tests := []struct {
		code           string
		expectedStatus int
	}{
		{services.CodeInvalidRequest, fiber.StatusBadRequest},
		{services.CodeAssetNotFound, fiber.StatusNotFound},
		{services.CodeNoReadings, fiber.StatusUnprocessableEntity},
		{services.CodeSourceUnavailable, fiber.StatusServiceUnavailable},
		{"SOMETHING_ELSE", fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			svcErr := services.NewServiceErrorWithDetails(tt.code, "message for "+tt.code,
				map[string]interface{}{"asset_id": "tank-1"})

			status, resp := serveError(t, fmt.Errorf("wrapped: %w", svcErr))
			if status != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, status)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("Expected code %q, got %q", tt.code, resp.Error.Code)
			}
			if resp.Error.Message != "message for "+tt.code {
				t.Errorf("Unexpected message %q", resp.Error.Message)
			}
			if resp.Error.Details["asset_id"] != "tank-1" {
				t.Errorf("Expected details to carry asset_id, got %v", resp.Error.Details)
			}
		})
	}
}

func TestErrorHandler_GenericError(t *testing.T) {
	status, resp := serveError(t, errors.New("something went wrong"))

	if status != fiber.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", fiber.StatusInternalServerError, status)
	}
	if resp.Error.Message != "Internal Server Error" {
		t.Errorf("Expected message 'Internal Server Error', got %q", resp.Error.Message)
	}
}
