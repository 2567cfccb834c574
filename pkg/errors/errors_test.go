package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

var errSlotTaken = errors.New("slot taken")

func TestWrap(t *testing.T) {
	originalErr := errors.New("database connection failed")
	wrapped := Wrap(originalErr, CodeInternal, "internal error", http.StatusInternalServerError)

	if wrapped.Err != originalErr {
		t.Errorf("expected wrapped error to contain original error")
	}
	if errors.Unwrap(wrapped) != originalErr {
		t.Errorf("Unwrap() should return original error")
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   &AppError{Code: CodeNotFound, Message: "slot not found"},
			expected: "NOT_FOUND: slot not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeUnavailable,
				Message: "store down",
				Err:     errors.New("server selection timeout"),
			},
			expected: "SERVICE_UNAVAILABLE: store down (caused by: server selection timeout)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConstructors_StatusAndCode(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"not found", NotFound("Slot"), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad claim", nil), CodeValidation, http.StatusBadRequest},
		{"invalid input", InvalidInput("bad json"), CodeInvalidInput, http.StatusBadRequest},
		{"conflict", Conflict("dup"), CodeConflict, http.StatusConflict},
		{"already claimed", AlreadyClaimed("taken", errSlotTaken), CodeAlreadyClaimed, http.StatusConflict},
		{"hold expired", HoldExpired("expired", nil), CodeHoldExpired, http.StatusGone},
		{"store unavailable", StoreUnavailable(errors.New("x")), CodeUnavailable, http.StatusServiceUnavailable},
		{"timeout", Timeout("slow"), CodeTimeout, http.StatusGatewayTimeout},
		{"internal", Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, tt.err.StatusCode())
			}
		})
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Slot", "12345")

	if err.Details["id"] != "12345" {
		t.Errorf("expected id '12345', got %v", err.Details["id"])
	}
	if err.Details["resource"] != "Slot" {
		t.Errorf("expected resource 'Slot', got %v", err.Details["resource"])
	}
}

func TestWithStatus_KeepsCode(t *testing.T) {
	err := NotFoundWithID("Slot", "abc").WithStatus(http.StatusBadRequest)

	if err.Code != CodeNotFound {
		t.Errorf("expected code %s, got %s", CodeNotFound, err.Code)
	}
	if err.StatusCode() != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, err.StatusCode())
	}
}

func TestAlreadyClaimed_UnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("claim: %w", AlreadyClaimed("taken", errSlotTaken))

	if !errors.Is(err, errSlotTaken) {
		t.Errorf("expected errors.Is to reach the sentinel")
	}
	if !HasCode(err, CodeAlreadyClaimed) {
		t.Errorf("expected HasCode to find ALREADY_CLAIMED through wrapping")
	}
	if HasCode(err, CodeValidation) {
		t.Errorf("HasCode matched the wrong code")
	}
}

func TestIsAppError(t *testing.T) {
	if !IsAppError(NotFound("Slot")) {
		t.Errorf("IsAppError() should return true for AppError")
	}
	if !IsAppError(fmt.Errorf("wrapped: %w", NotFound("Slot"))) {
		t.Errorf("IsAppError() should see through wrapping")
	}
	if IsAppError(errors.New("regular error")) {
		t.Errorf("IsAppError() should return false for regular error")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Slot")
	regularErr := errors.New("regular error")

	if AsAppError(appErr) != appErr {
		t.Errorf("AsAppError() should return same AppError")
	}

	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}

func TestAppError_ToJSON(t *testing.T) {
	jsonStr := string(NotFoundWithID("Slot", "12345").ToJSON())

	if !strings.Contains(jsonStr, "NOT_FOUND") {
		t.Errorf("ToJSON() should contain error code")
	}
	if !strings.Contains(jsonStr, "not found") {
		t.Errorf("ToJSON() should contain error message")
	}
}
