package octoerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without underlying error",
			err:      New(CodeInvalidInput, "resolution must be positive"),
			expected: "[INVALID_INPUT] resolution must be positive",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeIOFailure, "write leaf csv", errors.New("disk full")),
			expected: "[IO_FAILURE] write leaf csv: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeBackendFailure, "refine failed", underlying)

	assert.Equal(t, underlying, err.Unwrap())
}

func TestError_Is(t *testing.T) {
	err1 := New(CodeInvalidInput, "error 1")
	err2 := New(CodeInvalidInput, "error 2")
	err3 := New(CodeBackendFailure, "error 3")

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestIsInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "invalid input", err: ErrInvalidInput, expected: true},
		{name: "wrapped invalid input", err: Invalid("bad arg", errors.New("q_lo > q_hi")), expected: true},
		{name: "other error", err: ErrBackendFailure, expected: false},
		{name: "nil error", err: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsInvalidInput(tt.err))
		})
	}
}

func TestIsCapacityExceeded(t *testing.T) {
	assert.True(t, IsCapacityExceeded(ErrCapacityExceeded))
	assert.False(t, IsCapacityExceeded(ErrInvalidInput))
}

func TestIsBackendFailure(t *testing.T) {
	assert.True(t, IsBackendFailure(ErrBackendFailure))
	assert.False(t, IsBackendFailure(ErrInvalidInput))
}

func TestIsIOFailure(t *testing.T) {
	assert.True(t, IsIOFailure(ErrIOFailure))
	assert.False(t, IsIOFailure(ErrInvalidInput))
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{name: "octo error", err: New(CodeInvalidInput, "bad input"), expected: CodeInvalidInput},
		{name: "wrapped octo error", err: Wrap(CodeBackendFailure, "refine", errors.New("inner")), expected: CodeBackendFailure},
		{name: "standard error", err: errors.New("standard error"), expected: CodeUnknown},
		{name: "nil error", err: nil, expected: CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetCode(tt.err))
		})
	}
}

func TestGetMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "octo error", err: New(CodeIOFailure, "write failed"), expected: "write failed"},
		{name: "standard error", err: errors.New("standard error"), expected: "standard error"},
		{name: "nil error", err: nil, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetMessage(tt.err))
		})
	}
}
