package service

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/widgetflow/eventbus"
	"github.com/c360/widgetflow/pkg/buffer"
)

const (
	eventBuffer  = 32
	writeTimeout = 10 * time.Second
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// handleEvents streams pipeline events to a websocket client. The optional
// canvas query parameter restricts the stream to one canvas. Clients that
// fall behind lose their oldest undelivered events; publishers never block.
func (s *PipelineService) handleEvents(w http.ResponseWriter, r *http.Request) {
	canvas := r.URL.Query().Get("canvas")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		s.logger.Debug("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events := buffer.NewRing(eventBuffer,
		buffer.WithOverflowPolicy[eventbus.Event](buffer.DropOldest),
		buffer.WithDropCallback(func(ev eventbus.Event) {
			s.metrics.RecordEventDropped()
			s.logger.Warn("Dropping event for slow websocket client",
				"remote", r.RemoteAddr, "type", ev.Type, "pipeline_id", ev.PipelineID)
		}))
	defer events.Close()

	unsubscribe, err := s.bus.Subscribe(func(_ context.Context, ev eventbus.Event) {
		if canvas != "" && ev.CanvasID != canvas {
			return
		}
		_ = events.Write(ev)
	})
	if err != nil {
		s.logger.Error("Failed to subscribe websocket client", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(writeTimeout))
		return
	}
	defer unsubscribe()

	s.logger.Debug("WebSocket client connected", "remote", r.RemoteAddr, "canvas_id", canvas)
	defer s.logger.Debug("WebSocket client disconnected", "remote", r.RemoteAddr)

	// Reads only serve control frames and close detection
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case <-events.Ready():
			for batch := events.ReadBatch(eventBuffer); len(batch) > 0; batch = events.ReadBatch(eventBuffer) {
				for _, ev := range batch {
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteJSON(ev); err != nil {
						return
					}
				}
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
