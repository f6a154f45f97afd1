// Package sequential implements the single-threaded DEVS executive: a
// Scheduler-driven macro-step loop that computes Moore and Mealy output,
// routes it through a Graph, and drives state transitions, one macro-step
// per call to ExecNextEvent.
package sequential

import (
	"fmt"
	"math"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/adevs-go/adevs/devstime"
	"github.com/adevs-go/adevs/graph"
	"github.com/adevs-go/adevs/listener"
	"github.com/adevs-go/adevs/model"
	"github.com/adevs-go/adevs/scheduler"
)

type record[X any] struct {
	tL, tN  devstime.T
	inputs  []model.PinValue[X]
	outputs []model.PinValue[X]
}

// Simulator is the sequential DEVS executive.
type Simulator[X any] struct {
	runID string
	graph *graph.Graph[X]
	sched *scheduler.Scheduler
	disp  *listener.Dispatcher[X]

	externalInput []model.PinValue[X]
	active        map[model.ID]bool
	records       map[model.ID]*record[X]
	tNext         devstime.T
}

// New builds a sequential simulator over g, scheduling every currently
// registered atomic at t=0. g is put into provisional mode for the lifetime
// of the simulator; structural mutations a model performs from within a
// transition function are buffered and applied once per macro-step (see
// Graph.ApplyPending).
func New[X any](g *graph.Graph[X]) (*Simulator[X], error) {
	s := &Simulator[X]{
		runID:   xid.New().String(),
		graph:   g,
		sched:   scheduler.New(),
		disp:    listener.NewDispatcher[X](),
		records: map[model.ID]*record[X]{},
		active:  map[model.ID]bool{},
	}
	g.SetProvisional(true)
	for _, id := range g.Atomics() {
		if err := s.schedule(id, devstime.Zero()); err != nil {
			return nil, err
		}
	}
	s.tNext = s.sched.MinPriority()
	logrus.Debugf("[seq %s] initialized with %d atomics, tNext=%v", s.runID, len(g.Atomics()), s.tNext)
	return s, nil
}

func (s *Simulator[X]) recordFor(id model.ID) *record[X] {
	r, ok := s.records[id]
	if !ok {
		r = &record[X]{}
		s.records[id] = r
	}
	return r
}

func (s *Simulator[X]) schedule(id model.ID, t devstime.T) error {
	a, ok := s.graph.GetAtomic(id)
	if !ok {
		return nil
	}
	rec := s.recordFor(id)
	rec.tL = t
	dt := a.TA()
	if math.IsInf(dt, 1) {
		rec.tN = devstime.Inf()
		s.sched.Schedule(id, devstime.Inf())
		return nil
	}
	if dt < 0 {
		return model.NewError(model.ErrNegativeTimeAdvance, id, fmt.Sprintf("ta() returned %g", dt))
	}
	rec.tN = t.AdvanceBy(dt)
	s.sched.Schedule(id, rec.tN)
	return nil
}

// NextEventTime returns the absolute time of the next output and state
// change.
func (s *Simulator[X]) NextEventTime() devstime.T { return s.tNext }

// AddEventListener registers a listener for output/input/state-change
// notifications, in registration order.
func (s *Simulator[X]) AddEventListener(l listener.Listener[X]) { s.disp.Register(l) }

// InjectInput schedules x for delivery at the next ComputeNextOutput call.
func (s *Simulator[X]) InjectInput(x model.PinValue[X]) {
	s.externalInput = append(s.externalInput, x)
}

// ClearInjectedInput discards any input injected but not yet applied.
func (s *Simulator[X]) ClearInjectedInput() { s.externalInput = nil }

// SetNextTime forces the next macro-step to occur at t, used to apply
// injected input earlier than the schedule would otherwise dictate.
func (s *Simulator[X]) SetNextTime(t devstime.T) { s.tNext = t }

// ExecNextEvent runs one full macro-step: ComputeNextOutput followed by
// ComputeNextState.
func (s *Simulator[X]) ExecNextEvent() (devstime.T, error) {
	if err := s.ComputeNextOutput(); err != nil {
		return devstime.T{}, err
	}
	return s.ComputeNextState()
}

// deliver routes value from pin, appends it as input to every resolved
// receiver, and buckets the receiver into active (Moore) or pending
// (Mealy, output computation deferred). When checkFeedback is set, routing
// to an already-active Mealy atomic is a feedback-loop error — this only
// applies while draining the Mealy pending queue, matching the reference
// algorithm which never raises the check during Moore/injected routing.
func (s *Simulator[X]) deliver(
	deliveries []graph.Delivery[X], value X,
	pending *[]model.ID, pendingSet map[model.ID]bool,
	checkFeedback bool, sourceID model.ID,
) error {
	for _, d := range deliveries {
		a, ok := s.graph.GetAtomic(d.AtomicID)
		if !ok {
			continue
		}
		_, isMealy := a.(model.MealyAtomic[X])
		if checkFeedback && isMealy && s.active[d.AtomicID] {
			return model.NewError(model.ErrMealyFeedback, sourceID,
				"feedback loop of Mealy models is illegal")
		}
		rec := s.recordFor(d.AtomicID)
		rec.inputs = append(rec.inputs, model.PinValue[X]{Pin: d.Pin, Value: value})
		if isMealy {
			if !pendingSet[d.AtomicID] {
				pendingSet[d.AtomicID] = true
				*pending = append(*pending, d.AtomicID)
			}
		} else {
			s.active[d.AtomicID] = true
		}
	}
	return nil
}

// ComputeNextOutput builds the active set and computes output for every
// imminent and externally-influenced model, routing results into receiver
// input lists, without changing any model's state. See SPEC_FULL.md §4.2.2
// for the full algorithm this implements.
func (s *Simulator[X]) ComputeNextOutput() error {
	for id := range s.active {
		rec := s.records[id]
		rec.inputs = nil
		rec.outputs = nil
	}
	s.active = map[model.ID]bool{}

	var pending []model.ID
	pendingSet := map[model.ID]bool{}

	for _, pv := range s.externalInput {
		deliveries, err := s.graph.RouteExternal(pv.Pin)
		if err != nil {
			return err
		}
		if err := s.deliver(deliveries, pv.Value, &pending, pendingSet, false, 0); err != nil {
			return err
		}
	}
	s.externalInput = nil

	if s.sched.MinPriority().Equal(s.tNext) {
		for _, id := range s.sched.VisitImminent() {
			a, _ := s.graph.GetAtomic(id)
			if _, isMealy := a.(model.MealyAtomic[X]); isMealy {
				if !pendingSet[id] {
					pendingSet[id] = true
					pending = append(pending, id)
				}
				continue
			}
			s.active[id] = true
			rec := s.recordFor(id)
			rec.outputs = a.Output()
			for _, y := range rec.outputs {
				s.disp.NotifyOutput(id, y, s.tNext.Time)
				deliveries, err := s.graph.Route(y.Pin, id)
				if err != nil {
					return err
				}
				if err := s.deliver(deliveries, y.Value, &pending, pendingSet, false, id); err != nil {
					return err
				}
			}
		}
	}

	for len(pending) > 0 {
		id := pending[0]
		pending = pending[1:]
		delete(pendingSet, id)
		s.active[id] = true
		rec := s.recordFor(id)
		a, _ := s.graph.GetAtomic(id)
		mealy := a.(model.MealyAtomic[X])
		var outputs []model.PinValue[X]
		switch {
		case len(rec.inputs) == 0 && rec.tN.Equal(s.tNext):
			outputs = a.Output()
		case rec.tN.Equal(s.tNext):
			outputs = mealy.ConfluentOutput(rec.inputs)
		default:
			outputs = mealy.ExternalOutput(s.tNext.Sub(rec.tL), rec.inputs)
		}
		rec.outputs = outputs
		for _, y := range outputs {
			s.disp.NotifyOutput(id, y, s.tNext.Time)
			deliveries, err := s.graph.Route(y.Pin, id)
			if err != nil {
				return err
			}
			if err := s.deliver(deliveries, y.Value, &pending, pendingSet, true, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// ComputeNextState applies delta_int/delta_ext/delta_conf to every active
// model, notifies listeners, reschedules, and drains provisional graph
// mutations. Returns the committed simulation time.
func (s *Simulator[X]) ComputeNextState() (devstime.T, error) {
	t := s.tNext.Epsilon()
	logrus.Debugf("[seq %s] committing macro-step at t=%v (%d active)", s.runID, s.tNext, len(s.active))

	for id := range s.active {
		rec := s.records[id]
		a, _ := s.graph.GetAtomic(id)
		for _, x := range rec.inputs {
			s.disp.NotifyInput(id, x, s.tNext.Time)
		}
		switch {
		case len(rec.inputs) == 0:
			a.DeltaInt()
		case rec.tN.Equal(s.tNext):
			a.DeltaConf(rec.inputs)
			rec.inputs = nil
		default:
			a.DeltaExt(s.tNext.Sub(rec.tL), rec.inputs)
			rec.inputs = nil
		}
		s.disp.NotifyStateChange(id, s.tNext.Time)
		rec.outputs = nil
		if err := s.schedule(id, t); err != nil {
			return devstime.T{}, err
		}
	}
	s.active = map[model.ID]bool{}

	res := s.graph.ApplyPending()
	for _, id := range res.Added {
		if err := s.schedule(id, t); err != nil {
			return devstime.T{}, err
		}
	}
	for _, id := range res.Removed {
		s.sched.Remove(id)
		delete(s.records, id)
	}

	s.tNext = s.sched.MinPriority()
	return t, nil
}
