// Package errors provides classified error handling for widgetflow.
//
// # Overview
//
// Errors fall into three classes: Transient (temporary, the caller may try
// again), Invalid (bad input or a misused API, never retry) and Fatal
// (corrupted or unreadable state, stop processing). Graph operations in the
// pipeline package are pure and only ever produce Invalid errors; the
// persistence and event layers produce Transient errors for NATS failures and
// Fatal errors for records that cannot be decoded.
//
// # Error Wrapping Pattern
//
// All wrapping follows the format "component.method: action failed: cause":
//
//	if err := store.Save(ctx, p); err != nil {
//	    return errors.WrapTransient(err, "wiring", "Connect", "save pipeline")
//	}
//
// The wrapped error keeps the cause in its chain, so sentinel checks work
// through any number of layers:
//
//	if errors.Is(err, errors.ErrVersionConflict) {
//	    // reload and let the author retry
//	}
//
// # Sentinels
//
// ErrNoPendingConnection is returned by the pipeline builder when To is
// called without a preceding Connect. It is a programmer error and is never
// absorbed. Duplicate connections are not errors at all: they are dropped
// silently by every layer. ErrMissingWidgetID marks a builder call with a
// widget that has no instance ID.
package errors
