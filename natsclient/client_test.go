package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionStatusString(t *testing.T) {
	tests := []struct {
		status   ConnectionStatus
		expected string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{StatusCircuitOpen, "circuit_open"},
		{ConnectionStatus(42), "unknown"},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, test.status.String())
	}
}

func TestNewClientOptions(t *testing.T) {
	client, err := NewClient("nats://localhost:4222",
		WithTimeout(time.Second),
		WithMaxReconnects(3),
		WithCircuitBreakerThreshold(2),
		WithName("widgetflow-test"),
	)
	require.NoError(t, err)
	assert.Equal(t, "nats://localhost:4222", client.URL())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.False(t, client.IsHealthy())

	_, err = NewClient("nats://localhost:4222", WithTimeout(0))
	assert.Error(t, err)
	_, err = NewClient("nats://localhost:4222", WithCircuitBreakerThreshold(0))
	assert.Error(t, err)
	_, err = NewClient("nats://localhost:4222", WithLogger(nil))
	assert.Error(t, err)
}

func TestOperationsRequireConnection(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	ctx := context.Background()
	assert.ErrorIs(t, client.Publish(ctx, "subject", []byte("data")), ErrNotConnected)

	_, err = client.Subscribe(ctx, "subject", func(context.Context, []byte) {})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = client.JetStream()
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.NoError(t, client.Close(ctx))
	assert.NoError(t, client.Close(ctx), "close is idempotent")
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	client, err := NewClient("nats://127.0.0.1:1",
		WithTimeout(100*time.Millisecond),
		WithMaxReconnects(0),
		WithCircuitBreakerThreshold(2),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, client.Connect(ctx))
	assert.Equal(t, StatusDisconnected, client.Status())

	assert.ErrorIs(t, client.Connect(ctx), ErrCircuitOpen)
	assert.Equal(t, StatusCircuitOpen, client.Status())
	assert.Equal(t, int32(2), client.Failures())

	assert.ErrorIs(t, client.Connect(ctx), ErrCircuitOpen, "attempts inside the backoff fail fast")
	assert.Equal(t, int32(2), client.Failures())
}

func TestKVErrorClassification(t *testing.T) {
	assert.True(t, IsKVNotFoundError(ErrKVKeyNotFound))
	assert.True(t, IsKVNotFoundError(fmt.Errorf("wrapped: %w", ErrKVKeyNotFound)))
	assert.True(t, IsKVNotFoundError(fmt.Errorf("nats: key not found")))
	assert.False(t, IsKVNotFoundError(nil))
	assert.False(t, IsKVNotFoundError(ErrKVKeyExists))

	assert.True(t, IsKVConflictError(ErrKVRevisionMismatch))
	assert.True(t, IsKVConflictError(ErrKVKeyExists))
	assert.True(t, IsKVConflictError(fmt.Errorf("nats: wrong last sequence: 4")))
	assert.False(t, IsKVConflictError(nil))
	assert.False(t, IsKVConflictError(ErrKVKeyNotFound))
}
