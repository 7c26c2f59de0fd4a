package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"storage unavailable", ErrStorageUnavailable, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"no pending connection", ErrNoPendingConnection, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("connection")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsTransient(test.err))
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"no pending connection", ErrNoPendingConnection, true},
		{"version conflict", ErrVersionConflict, true},
		{"invalid manifest", ErrInvalidManifest, true},
		{"wrapped invalid pipeline", fmt.Errorf("save: %w", ErrInvalidPipeline), true},
		{"connection timeout", ErrConnectionTimeout, false},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: ErrInvalidPipeline}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsInvalid(test.err))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil error", nil, ErrorTransient},
		{"unknown schema", ErrUnknownSchemaVersion, ErrorFatal},
		{"builder misuse", ErrNoPendingConnection, ErrorInvalid},
		{"unknown error", fmt.Errorf("unknown error"), ErrorTransient},
		{"classified wins", WrapFatal(ErrNoPendingConnection, "c", "m", "a"), ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Classify(test.err))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "component", "method", "action"))
	assert.Nil(t, WrapInvalid(nil, "component", "method", "action"))
	assert.Nil(t, WrapTransient(nil, "component", "method", "action"))
	assert.Nil(t, WrapFatal(nil, "component", "method", "action"))

	err := Wrap(fmt.Errorf("original error"), "pipelinestore", "Save", "put record")
	require.Error(t, err)
	assert.Equal(t, "pipelinestore.Save: put record failed: original error", err.Error())
}

func TestWrapPreservesChain(t *testing.T) {
	err := WrapInvalid(ErrVersionConflict, "pipelinestore", "Save", "check version")

	var ce *ClassifiedError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrorInvalid, ce.Class)
	assert.Equal(t, "pipelinestore", ce.Component)
	assert.Equal(t, "Save", ce.Operation)
	assert.True(t, Is(err, ErrVersionConflict))
	assert.Contains(t, err.Error(), "version conflict")
}
