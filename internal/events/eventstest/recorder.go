// Package eventstest provides an in-memory events.Publisher for tests.
package eventstest

import (
    "context"
    "sync"

    "github.com/iliyamo/show-reservation/internal/events"
)

// Recorder keeps published events in memory. When Err is set every Publish
// fails with it.
type Recorder struct {
    mu     sync.Mutex
    events []events.ReservationEvent
    Err    error
}

func (r *Recorder) Publish(_ context.Context, ev events.ReservationEvent) error {
    if r.Err != nil {
        return r.Err
    }
    r.mu.Lock()
    defer r.mu.Unlock()
    r.events = append(r.events, ev)
    return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of what has been published.
func (r *Recorder) Events() []events.ReservationEvent {
    r.mu.Lock()
    defer r.mu.Unlock()
    return append([]events.ReservationEvent(nil), r.events...)
}
