// Package eventstest provides an in-process events.Publisher for tests.
package eventstest

import (
	"context"
	"sync"

	"github.com/Alexjoshwa/agri-1.0/internal/events"
)

// Recorded is one event captured by a Recorder.
type Recorded struct {
	Subject string
	Event   interface{}
}

// Recorder is an events.Publisher that keeps every event.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

var _ events.Publisher = (*Recorder)(nil)

func (r *Recorder) Publish(_ context.Context, subject string, event interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Subject: subject, Event: event})
	return nil
}

// Subjects returns the recorded subjects in publish order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Subject
	}
	return out
}

// Events returns a copy of everything recorded.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}
