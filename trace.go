// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

// A Change is a new signal value.
//
type Change struct {
	Signal *Signal
	Value  uint64
}

// A Tracer records the signal values of a running circuit.
//
// TraceStart is called once with the initial, settled circuit. TraceChanges
// is then called at the end of every instant where at least one signal
// changed, with the changes in arena order.
//
type Tracer interface {
	TraceStart(c *Circuit) error
	TraceChanges(t uint64, changes []Change) error
}

// Event is a signal value change recorded by a Recorder.
//
type Event struct {
	Time  uint64
	Path  string
	Value uint64
}

// Recorder is an in-memory Tracer. Initial values are recorded as events at
// the start time.
//
type Recorder struct {
	Events []Event
}

// TraceStart implements Tracer.
//
func (r *Recorder) TraceStart(c *Circuit) error {
	for _, s := range c.sigs {
		r.Events = append(r.Events, Event{c.now, s.Path(), c.cur[s.id]})
	}
	return nil
}

// TraceChanges implements Tracer.
//
func (r *Recorder) TraceChanges(t uint64, changes []Change) error {
	for _, ch := range changes {
		r.Events = append(r.Events, Event{t, ch.Signal.Path(), ch.Value})
	}
	return nil
}

// Filter returns the events of the signal with the given path.
//
func (r *Recorder) Filter(path string) []Event {
	var evs []Event
	for _, e := range r.Events {
		if e.Path == path {
			evs = append(evs, e)
		}
	}
	return evs
}

// SignalValue is the value of a signal at some point in time.
//
type SignalValue struct {
	Path  string `yaml:"path"`
	Width int    `yaml:"width"`
	Value uint64 `yaml:"value"`
}

// Snapshot is the value of every signal of a circuit, in arena order.
//
type Snapshot []SignalValue

// Value returns the value of the signal with the given path.
//
func (s Snapshot) Value(path string) (uint64, bool) {
	for _, v := range s {
		if v.Path == path {
			return v.Value, true
		}
	}
	return 0, false
}
