package testkit

import "github.com/adevs-go/adevs/model"

// Event is one recorded listener callback, in the order it was delivered.
type Event struct {
	Kind   string // "output", "input", "state"
	Atomic model.ID
	Pin    model.Pin
	Value  int
	T      float64
}

// RecordingListener captures every callback in delivery order, for
// assertions on exact sequencing (e.g. that S4's injected input produces a
// single inputEvent and nothing else).
type RecordingListener struct {
	Events []Event
}

func NewRecordingListener() *RecordingListener { return &RecordingListener{} }

func (r *RecordingListener) OutputEvent(id model.ID, pv model.PinValue[int], t float64) {
	r.Events = append(r.Events, Event{Kind: "output", Atomic: id, Pin: pv.Pin, Value: pv.Value, T: t})
}

func (r *RecordingListener) InputEvent(id model.ID, pv model.PinValue[int], t float64) {
	r.Events = append(r.Events, Event{Kind: "input", Atomic: id, Pin: pv.Pin, Value: pv.Value, T: t})
}

func (r *RecordingListener) StateChange(id model.ID, t float64) {
	r.Events = append(r.Events, Event{Kind: "state", Atomic: id, T: t})
}
