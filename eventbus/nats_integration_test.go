//go:build integration

package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/widgetflow/natsclient"
)

func TestNATSBusRoundTrip(t *testing.T) {
	tc := natsclient.NewTestClient(t)

	bus, err := NewNATSBus(tc.Client, "test.events.", nil, nil)
	require.NoError(t, err)

	received := make(chan Event, 4)
	unsubscribe, err := bus.Subscribe(func(_ context.Context, ev Event) { received <- ev })
	require.NoError(t, err)
	defer unsubscribe()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, bus.Publish(ctx, Event{Type: TypePipelineSaved, CanvasID: "c1", PipelineID: "p1", Version: 3, Timestamp: now}))
	require.NoError(t, bus.Publish(ctx, Deleted("c1", "p1", now)))

	// Garbage on the same subject space is dropped
	require.NoError(t, tc.Client.Publish(ctx, "test.events.pipeline.saved", []byte("not json")))

	var got []Event
	for len(got) < 2 {
		select {
		case ev := <-received:
			got = append(got, ev)
		case <-time.After(5 * time.Second):
			t.Fatalf("received %d of 2 events", len(got))
		}
	}
	assert.Equal(t, TypePipelineSaved, got[0].Type)
	assert.Equal(t, int64(3), got[0].Version)
	assert.True(t, now.Equal(got[0].Timestamp))
	assert.Equal(t, TypePipelineDeleted, got[1].Type)

	select {
	case ev := <-received:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
