// Package health tracks the status of the service's dependencies and
// serves the roll-up over HTTP.
//
// Checks are registered on a Monitor and evaluated by Run on a fixed
// interval:
//
//	monitor := health.NewMonitor()
//	monitor.Register("nats", func(ctx context.Context) health.Status {
//		if client.Status() != natsclient.StatusConnected {
//			return health.NewUnhealthy("nats", "disconnected")
//		}
//		return health.NewHealthy("nats", "connected")
//	})
//	go monitor.Run(ctx, 10*time.Second)
//	mux.Handle("GET /healthz", monitor.Handler("widgetflow"))
//
// Error text passed through FromError is sanitized before it is exposed.
package health
