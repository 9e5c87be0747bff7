package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "error without wrapped error",
			appErr:   ErrUnfitState,
			expected: "Classifier has not been fit",
		},
		{
			name: "error with wrapped error",
			appErr: &AppError{
				Code:       "TEST_ERROR",
				Message:    "Test message",
				StatusCode: 500,
				Err:        errors.New("underlying error"),
			},
			expected: "Test message: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	appErr := &AppError{
		Code:       "TEST",
		Message:    "test",
		StatusCode: 500,
		Err:        underlying,
	}

	if got := appErr.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	if got := ErrInsufficientData.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestAppError_WithError(t *testing.T) {
	underlying := errors.New("pair 3")
	newErr := ErrDegenerateVector.WithError(underlying)

	if newErr.Code != ErrDegenerateVector.Code {
		t.Errorf("Code = %v, want %v", newErr.Code, ErrDegenerateVector.Code)
	}

	if newErr.StatusCode != ErrDegenerateVector.StatusCode {
		t.Errorf("StatusCode = %v, want %v", newErr.StatusCode, ErrDegenerateVector.StatusCode)
	}

	if !errors.Is(newErr, underlying) {
		t.Errorf("errors.Is should return true for wrapped error")
	}

	if !errors.Is(newErr, ErrDegenerateVector) {
		t.Errorf("errors.Is should match the sentinel after WithError")
	}

	if errors.Is(newErr, ErrDimensionMismatch) {
		t.Errorf("errors.Is should not match a different code")
	}
}

func TestAppError_IsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("fit classifier %q: %w", "faces", ErrInsufficientData.WithError(errors.New("only matching pairs")))

	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("errors.Is should find the sentinel through fmt wrapping")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As should extract the AppError")
	}
	if appErr.StatusCode != 422 {
		t.Errorf("StatusCode = %d, want 422", appErr.StatusCode)
	}
}

func TestObservation_Valid(t *testing.T) {
	tests := []struct {
		name string
		obs  Observation
		want bool
	}{
		{"zero distance", Observation{Distance: 0, IsSame: true}, true},
		{"positive distance", Observation{Distance: 3.9}, true},
		{"negative distance", Observation{Distance: -0.1}, false},
		{"nan distance", Observation{Distance: math.NaN()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.obs.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountLabels(t *testing.T) {
	same, diff := CountLabels([]Observation{
		{Distance: 0.1, IsSame: true},
		{Distance: 0.2, IsSame: true},
		{Distance: 5.0, IsSame: false},
	})
	if same != 2 || diff != 1 {
		t.Errorf("CountLabels() = (%d, %d), want (2, 1)", same, diff)
	}
}
