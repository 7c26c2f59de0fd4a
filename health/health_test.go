package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name  string
		subs  []Status
		state string
	}{
		{"empty", nil, StateHealthy},
		{"all healthy", []Status{NewHealthy("a", ""), NewHealthy("b", "")}, StateHealthy},
		{"degraded", []Status{NewHealthy("a", ""), NewDegraded("b", "")}, StateDegraded},
		{"unhealthy wins", []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, StateUnhealthy},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			status := Aggregate("system", test.subs)
			assert.Equal(t, test.state, status.Status)
			assert.Equal(t, test.state == StateHealthy, status.Healthy)
			assert.Len(t, status.SubStatuses, len(test.subs))
		})
	}
}

func TestAggregateCopiesInput(t *testing.T) {
	subs := []Status{NewHealthy("a", "ok")}
	status := Aggregate("system", subs)
	subs[0].Message = "changed"
	assert.Equal(t, "ok", status.SubStatuses[0].Message)
}

func TestWithSubStatusDoesNotShareSlices(t *testing.T) {
	base := NewHealthy("system", "").WithSubStatus(NewHealthy("a", ""))
	first := base.WithSubStatus(NewHealthy("b", ""))
	second := base.WithSubStatus(NewHealthy("c", ""))

	assert.Len(t, base.SubStatuses, 1)
	assert.Equal(t, "b", first.SubStatuses[1].Component)
	assert.Equal(t, "c", second.SubStatuses[1].Component)
}

func TestFromErrorSanitizes(t *testing.T) {
	assert.True(t, FromError("nats", nil, "connected").IsHealthy())

	status := FromError("nats", errors.New("dial nats://admin@10.0.0.5:4222 failed, password=hunter2"), "")
	assert.True(t, status.IsUnhealthy())
	assert.NotContains(t, status.Message, "10.0.0.5")
	assert.NotContains(t, status.Message, "hunter2")
	assert.Contains(t, status.Message, "[URL]")
}

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain failure", "plain failure"},
		{"open /etc/widgetflow/config.json: denied", "open [PATH]: denied"},
		{"connect 192.168.1.100 refused", "connect [IP] refused"},
		{"token=abc123", "[REDACTED]"},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, sanitizeErrorMessage(test.in), test.in)
	}
}

func TestMonitorUpdateAndGet(t *testing.T) {
	m := NewMonitor()
	m.Update("store", Status{Status: StateHealthy, Healthy: true, Component: "ignored"})

	status, ok := m.Get("store")
	require.True(t, ok)
	assert.Equal(t, "store", status.Component)
	assert.False(t, status.Timestamp.IsZero())

	m.Remove("store")
	_, ok = m.Get("store")
	assert.False(t, ok)
	assert.Empty(t, m.GetAll())
}

func TestMonitorRefreshRunsChecks(t *testing.T) {
	m := NewMonitor()
	healthy := true
	m.Register("nats", func(context.Context) Status {
		if healthy {
			return NewHealthy("nats", "connected")
		}
		return NewUnhealthy("nats", "disconnected")
	})

	m.Refresh(context.Background())
	assert.True(t, m.AggregateHealth("widgetflow").IsHealthy())

	healthy = false
	m.Refresh(context.Background())
	assert.True(t, m.AggregateHealth("widgetflow").IsUnhealthy())
}

func TestMonitorRunStopsWithContext(t *testing.T) {
	m := NewMonitor()
	var mu sync.Mutex
	calls := 0
	m.Register("store", func(context.Context) Status {
		mu.Lock()
		calls++
		mu.Unlock()
		return NewHealthy("store", "")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, 5*time.Millisecond) }()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMonitorHandler(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("store", "memory")

	rec := httptest.NewRecorder()
	m.Handler("widgetflow").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "widgetflow", body.Component)
	require.Len(t, body.SubStatuses, 1)

	m.Update("nats", NewUnhealthy("nats", "down"))
	rec = httptest.NewRecorder()
	m.Handler("widgetflow").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMonitorConcurrentAccess(t *testing.T) {
	m := NewMonitor()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.UpdateHealthy("store", "ok")
		}()
		go func() {
			defer wg.Done()
			_ = m.AggregateHealth("widgetflow")
		}()
	}
	wg.Wait()
	assert.Len(t, m.GetAll(), 1)
}
