package provisioning

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-logr/logr"
)

// Logger is the minimal printf-style logging interface.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Observer defines the interface for structured observability during a run.
type Observer interface {
	Logger

	// Event emits a structured event
	Event(event Event)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured run event.
type Event struct {
	Type      EventType         // Type of event
	Stage     string            // Stage or phase name (e.g., "clusters")
	Entity    string            // Cluster, install key or peering key if applicable
	Message   string            // Human-readable message
	Err       error             // Set on failure events
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of run event.
type EventType string

const (
	// EventStageStarted indicates a stage has started.
	EventStageStarted EventType = "stage.started"
	// EventStageCompleted indicates a stage completed.
	EventStageCompleted EventType = "stage.completed"
	// EventStageFailed indicates a stage ended the run.
	EventStageFailed EventType = "stage.failed"

	// EventEntityStarted indicates a capability call was dispatched.
	EventEntityStarted EventType = "entity.started"
	// EventEntitySucceeded indicates a capability call succeeded.
	EventEntitySucceeded EventType = "entity.succeeded"
	// EventEntityFailed indicates a capability call failed.
	EventEntityFailed EventType = "entity.failed"
	// EventEntitySkipped indicates an entity was recorded without dispatch.
	EventEntitySkipped EventType = "entity.skipped"

	// EventWarning indicates a non-fatal problem.
	EventWarning EventType = "warning"
)

// LogObserver implements Observer on top of a logr.Logger.
type LogObserver struct {
	log logr.Logger
}

// NewLogObserver creates an observer writing to log.
func NewLogObserver(log logr.Logger) *LogObserver {
	return &LogObserver{log: log}
}

// Printf implements Logger.
func (o *LogObserver) Printf(format string, v ...interface{}) {
	o.log.Info(fmt.Sprintf(format, v...))
}

// Event implements Observer.
func (o *LogObserver) Event(event Event) {
	kv := []interface{}{"event", string(event.Type)}
	if event.Stage != "" {
		kv = append(kv, "stage", event.Stage)
	}
	if event.Entity != "" {
		kv = append(kv, "entity", event.Entity)
	}

	keys := make([]string, 0, len(event.Fields))
	for k := range event.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		kv = append(kv, k, event.Fields[k])
	}

	switch event.Type {
	case EventStageFailed, EventEntityFailed:
		o.log.Error(event.Err, event.Message, kv...)
	case EventEntityStarted:
		o.log.V(1).Info(event.Message, kv...)
	default:
		o.log.Info(event.Message, kv...)
	}
}

// WithFields implements Observer.
func (o *LogObserver) WithFields(fields map[string]string) Observer {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]interface{}, 0, 2*len(keys))
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}
	return &LogObserver{log: o.log.WithValues(kv...)}
}

// Helper functions for common events

// LogStageStart logs a stage start event.
func LogStageStart(observer Observer, stage string) {
	observer.Event(Event{
		Type:    EventStageStarted,
		Stage:   stage,
		Message: "starting",
	})
}

// LogStageComplete logs a stage completion event.
func LogStageComplete(observer Observer, stage string, duration time.Duration) {
	observer.Event(Event{
		Type:    EventStageCompleted,
		Stage:   stage,
		Message: fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

// LogStageFailed logs a stage failure event.
func LogStageFailed(observer Observer, stage string, err error) {
	observer.Event(Event{
		Type:    EventStageFailed,
		Stage:   stage,
		Message: "failed",
		Err:     err,
	})
}

// LogEntityStarted logs the dispatch of a capability call.
func LogEntityStarted(observer Observer, stage, entity, action string) {
	observer.Event(Event{
		Type:    EventEntityStarted,
		Stage:   stage,
		Entity:  entity,
		Message: action,
	})
}

// LogEntitySucceeded logs a successful capability call.
func LogEntitySucceeded(observer Observer, stage, entity, message string, duration time.Duration) {
	observer.Event(Event{
		Type:    EventEntitySucceeded,
		Stage:   stage,
		Entity:  entity,
		Message: message,
		Fields: map[string]string{
			"duration": duration.Round(time.Millisecond).String(),
		},
	})
}

// LogEntityFailed logs a failed capability call.
func LogEntityFailed(observer Observer, stage, entity string, err error) {
	observer.Event(Event{
		Type:    EventEntityFailed,
		Stage:   stage,
		Entity:  entity,
		Message: "failed",
		Err:     err,
		Fields: map[string]string{
			"kind": string(KindOf(err)),
		},
	})
}

// LogEntitySkipped logs an entity recorded without dispatch.
func LogEntitySkipped(observer Observer, stage, entity, reason string) {
	observer.Event(Event{
		Type:    EventEntitySkipped,
		Stage:   stage,
		Entity:  entity,
		Message: "skipped",
		Fields: map[string]string{
			"reason": reason,
		},
	})
}

// LogWarning logs a non-fatal problem.
func LogWarning(observer Observer, stage, entity, message string) {
	observer.Event(Event{
		Type:    EventWarning,
		Stage:   stage,
		Entity:  entity,
		Message: message,
	})
}
