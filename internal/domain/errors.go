package domain

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches by code, so a sentinel still matches the copies made by WithError.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	// Decision core errors

	ErrInsufficientData = &AppError{
		Code:       "INSUFFICIENT_DATA",
		Message:    "At least one matching and one non-matching observation are required",
		StatusCode: 422,
	}

	ErrUnfitState = &AppError{
		Code:       "UNFIT_STATE",
		Message:    "Classifier has not been fit",
		StatusCode: 409,
	}

	ErrDimensionMismatch = &AppError{
		Code:       "DIMENSION_MISMATCH",
		Message:    "Paired inputs have different dimensionality",
		StatusCode: 422,
	}

	ErrDegenerateVector = &AppError{
		Code:       "DEGENERATE_VECTOR",
		Message:    "Vector cannot be normalized",
		StatusCode: 422,
	}

	ErrInvalidObservation = &AppError{
		Code:       "INVALID_OBSERVATION",
		Message:    "Observation distance must be a finite non-negative number",
		StatusCode: 422,
	}

	// Service errors

	ErrClassifierNotFound = &AppError{
		Code:       "CLASSIFIER_NOT_FOUND",
		Message:    "Classifier not found",
		StatusCode: 404,
	}

	// a stored threshold only holds for distances from the backbone it was fitted on
	ErrBackboneMismatch = &AppError{
		Code:       "BACKBONE_MISMATCH",
		Message:    "Classifier was fitted with a different embedding model; refit it",
		StatusCode: 409,
	}

	ErrMetricNotFound = &AppError{
		Code:       "METRIC_NOT_FOUND",
		Message:    "Unknown distance metric",
		StatusCode: 422,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}
)
