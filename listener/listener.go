// Package listener implements the DEVS EventListener observation contract:
// registered listeners are notified, in registration order, of every routed
// output, every delivered input, and every state change a simulator commits.
package listener

import (
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/adevs-go/adevs/model"
)

// Listener observes committed simulation events. Under the optimistic
// engine, notifications are deferred until an event survives to fossil
// collection; the sequential and conservative engines notify immediately
// since they never speculate.
type Listener[X any] interface {
	OutputEvent(atomic model.ID, pv model.PinValue[X], t float64)
	InputEvent(atomic model.ID, pv model.PinValue[X], t float64)
	StateChange(atomic model.ID, t float64)
}

// Dispatcher fans a notification out to every registered listener, in the
// order they were registered.
type Dispatcher[X any] struct {
	listeners []Listener[X]
}

func NewDispatcher[X any]() *Dispatcher[X] { return &Dispatcher[X]{} }

func (d *Dispatcher[X]) Register(l Listener[X]) { d.listeners = append(d.listeners, l) }

func (d *Dispatcher[X]) NotifyOutput(atomic model.ID, pv model.PinValue[X], t float64) {
	for _, l := range d.listeners {
		l.OutputEvent(atomic, pv, t)
	}
}

func (d *Dispatcher[X]) NotifyInput(atomic model.ID, pv model.PinValue[X], t float64) {
	for _, l := range d.listeners {
		l.InputEvent(atomic, pv, t)
	}
}

func (d *Dispatcher[X]) NotifyStateChange(atomic model.ID, t float64) {
	for _, l := range d.listeners {
		l.StateChange(atomic, t)
	}
}

// StatsListener aggregates the mean and variance of every numeric output it
// observes via gonum's streaming-friendly stat.MeanVariance, recomputed over
// the retained sample on each read. Safe for concurrent notification from
// the optimistic engine's single commit goroutine, and also safe to share
// across simulators running in the same process.
type StatsListener struct {
	mu      sync.Mutex
	samples []float64
}

func NewStatsListener() *StatsListener { return &StatsListener{} }

func (s *StatsListener) OutputEvent(_ model.ID, pv model.PinValue[float64], _ float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, pv.Value)
}

func (s *StatsListener) InputEvent(model.ID, model.PinValue[float64], float64) {}

func (s *StatsListener) StateChange(model.ID, float64) {}

// Mean returns the mean of every observed output value, or 0 if none have
// been observed yet.
func (s *StatsListener) Mean() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) == 0 {
		return 0
	}
	mean, _ := stat.MeanVariance(s.samples, nil)
	return mean
}

// Variance returns the sample variance of every observed output value, or 0
// if fewer than two have been observed.
func (s *StatsListener) Variance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) < 2 {
		return 0
	}
	_, variance := stat.MeanVariance(s.samples, nil)
	return variance
}
