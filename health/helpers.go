package health

import "time"

func newStatus(component, state, message string) Status {
	return Status{
		Component: component,
		Healthy:   state == StateHealthy,
		Status:    state,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewHealthy creates a healthy status
func NewHealthy(component, message string) Status {
	return newStatus(component, StateHealthy, message)
}

// NewUnhealthy creates an unhealthy status
func NewUnhealthy(component, message string) Status {
	return newStatus(component, StateUnhealthy, message)
}

// NewDegraded creates a degraded status
func NewDegraded(component, message string) Status {
	return newStatus(component, StateDegraded, message)
}

// Aggregate rolls subs up into one status. Any unhealthy sub makes the
// result unhealthy; otherwise any degraded sub makes it degraded.
func Aggregate(component string, subs []Status) Status {
	if len(subs) == 0 {
		return NewHealthy(component, "no checks registered")
	}

	var unhealthy, degraded bool
	for _, sub := range subs {
		switch {
		case sub.IsUnhealthy():
			unhealthy = true
		case sub.IsDegraded():
			degraded = true
		}
	}

	var status Status
	switch {
	case unhealthy:
		status = NewUnhealthy(component, "one or more checks are unhealthy")
	case degraded:
		status = NewDegraded(component, "one or more checks are degraded")
	default:
		status = NewHealthy(component, "all checks are healthy")
	}
	status.SubStatuses = append([]Status(nil), subs...)
	return status
}
