package wiring

import "github.com/c360/widgetflow/pipeline"

// Outcome describes what an editor operation did to the canvas
type Outcome int

const (
	// OutcomeUnknown is the zero value and never reported by the editor
	OutcomeUnknown Outcome = iota
	// OutcomeCreated means a new connection was saved
	OutcomeCreated
	// OutcomeDuplicate means an identical connection already existed
	OutcomeDuplicate
	// OutcomeSelfConnection means both endpoints were on one widget
	OutcomeSelfConnection
	// OutcomeMissingWidget means an endpoint named no widget or port
	OutcomeMissingWidget
	// OutcomeNotFound means the connection, node or pipeline was not found
	OutcomeNotFound
	// OutcomeRemoved means something was deleted and the change saved
	OutcomeRemoved
	// OutcomeUpdated means nodes were added or refreshed and saved
	OutcomeUpdated
	// OutcomeUnchanged means there was nothing to save
	OutcomeUnchanged
)

// String returns the metric label for the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeUnknown:
		return "unknown"
	case OutcomeCreated:
		return "created"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeSelfConnection:
		return "self_connection"
	case OutcomeMissingWidget:
		return "missing_widget"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRemoved:
		return "removed"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// MarshalText encodes the outcome by name
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Committed reports whether the outcome saved a change
func (o Outcome) Committed() bool {
	return o == OutcomeCreated || o == OutcomeRemoved || o == OutcomeUpdated
}

// Result is the outcome of one editor operation. Pipeline is the stored
// pipeline after the operation, when one was loaded or saved.
type Result struct {
	Outcome    Outcome               `json:"outcome"`
	Pipeline   *pipeline.Pipeline    `json:"pipeline,omitempty"`
	Connection *pipeline.Connection  `json:"connection,omitempty"`
	Removed    []pipeline.Connection `json:"removed,omitempty"`
}

// AutoWireReport summarizes an AutoWire run
type AutoWireReport struct {
	Suggestions []pipeline.Suggestion `json:"suggestions"`
	Created     int                   `json:"created"`
	Duplicates  int                   `json:"duplicates"`
	Rejected    int                   `json:"rejected"`
}
