package provisioning

import (
	"fmt"
	"sync"
)

// MockObserver records events for assertions. It is safe for concurrent use.
type MockObserver struct {
	mu       *sync.Mutex
	events   *[]Event
	messages *[]string
	fields   map[string]string
}

// NewMockObserver creates an empty recording observer.
func NewMockObserver() *MockObserver {
	return &MockObserver{
		mu:       &sync.Mutex{},
		events:   &[]Event{},
		messages: &[]string{},
		fields:   map[string]string{},
	}
}

// Printf implements Logger.
func (m *MockObserver) Printf(format string, v ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.messages = append(*m.messages, fmt.Sprintf(format, v...))
}

// Event implements Observer.
func (m *MockObserver) Event(event Event) {
	if len(m.fields) > 0 {
		merged := make(map[string]string, len(m.fields)+len(event.Fields))
		for k, v := range m.fields {
			merged[k] = v
		}
		for k, v := range event.Fields {
			merged[k] = v
		}
		event.Fields = merged
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	*m.events = append(*m.events, event)
}

// WithFields implements Observer. Derived observers record into the same
// event list as their parent.
func (m *MockObserver) WithFields(fields map[string]string) Observer {
	merged := make(map[string]string, len(m.fields)+len(fields))
	for k, v := range m.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &MockObserver{mu: m.mu, events: m.events, messages: m.messages, fields: merged}
}

// Events returns a copy of the recorded events.
func (m *MockObserver) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), *m.events...)
}

// EventsOfType returns the recorded events with the given type.
func (m *MockObserver) EventsOfType(t EventType) []Event {
	var out []Event
	for _, e := range m.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Messages returns a copy of the recorded Printf messages.
func (m *MockObserver) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), *m.messages...)
}
