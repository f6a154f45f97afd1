// Package graph implements the DEVS coupling model: a finite set of owned
// atomics, a finite set of named pins, and a routing relation over them.
// Structural mutations can be buffered in "provisional" mode so a running
// simulator never observes a half-applied coupling change mid-macro-step.
package graph

import (
	"fmt"

	"github.com/adevs-go/adevs/model"
)

// OpKind discriminates a buffered structural mutation.
type OpKind int

const (
	opAddAtomic OpKind = iota
	opRemoveAtomic
	opConnectPinPin
	opDisconnectPinPin
	opConnectPinAtomic
	opDisconnectPinAtomic
	opRemovePin
)

type op[X any] struct {
	kind     OpKind
	id       model.ID
	atomic   model.Atomic[X]
	src, dst model.Pin
}

// PendingResult reports the structural changes a drain applied, so a
// simulator can (re)schedule affected atomics.
type PendingResult struct {
	Added   []model.ID
	Removed []model.ID
}

// Delivery is one resolved (pin, atomic) endpoint of a route.
type Delivery[X any] struct {
	Pin      model.Pin
	AtomicID model.ID
}

// noSource marks a routed value with no originating atomic (external
// injection), which is exempt from the self-influence check.
const noSource model.ID = -1

// Graph owns a set of atomics and the pin coupling between them.
type Graph[X any] struct {
	atomics map[model.ID]model.Atomic[X]
	nextID  model.ID

	pinToPin    map[model.Pin][]model.Pin
	pinToAtomic map[model.Pin][]model.ID

	provisional bool
	pending     []op[X]
}

// New returns an empty graph.
func New[X any]() *Graph[X] {
	return &Graph[X]{
		atomics:     map[model.ID]model.Atomic[X]{},
		pinToPin:    map[model.Pin][]model.Pin{},
		pinToAtomic: map[model.Pin][]model.ID{},
	}
}

// SetProvisional toggles buffering of structural mutations without draining
// the queue. Simulators call ApplyPending to drain explicitly between
// macro-steps.
func (g *Graph[X]) SetProvisional(on bool) { g.provisional = on }

// Provisional reports the current buffering mode.
func (g *Graph[X]) Provisional() bool { return g.provisional }

// AddAtomic registers a new atomic and returns its graph-local ID. The ID is
// allocated immediately so callers can wire pins to it even while the
// insertion itself is buffered under provisional mode.
func (g *Graph[X]) AddAtomic(a model.Atomic[X]) model.ID {
	g.nextID++
	id := g.nextID
	if g.provisional {
		g.pending = append(g.pending, op[X]{kind: opAddAtomic, id: id, atomic: a})
		return id
	}
	g.atomics[id] = a
	return id
}

// RemoveAtomic unregisters an atomic. Any pin bindings that referenced it
// are pruned when the removal applies.
func (g *Graph[X]) RemoveAtomic(id model.ID) {
	if g.provisional {
		g.pending = append(g.pending, op[X]{kind: opRemoveAtomic, id: id})
		return
	}
	g.removeAtomicNow(id)
}

func (g *Graph[X]) removeAtomicNow(id model.ID) {
	delete(g.atomics, id)
	for pin, ids := range g.pinToAtomic {
		g.pinToAtomic[pin] = removeID(ids, id)
	}
}

func removeID(ids []model.ID, target model.ID) []model.ID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// Connect adds a pin-to-pin coupling edge.
func (g *Graph[X]) Connect(src, dst model.Pin) {
	if g.provisional {
		g.pending = append(g.pending, op[X]{kind: opConnectPinPin, src: src, dst: dst})
		return
	}
	g.pinToPin[src] = append(g.pinToPin[src], dst)
}

// Disconnect removes a pin-to-pin coupling edge.
func (g *Graph[X]) Disconnect(src, dst model.Pin) {
	if g.provisional {
		g.pending = append(g.pending, op[X]{kind: opDisconnectPinPin, src: src, dst: dst})
		return
	}
	g.pinToPin[src] = removePin(g.pinToPin[src], dst)
}

// ConnectToAtomic terminates a pin at an atomic's input.
func (g *Graph[X]) ConnectToAtomic(pin model.Pin, id model.ID) {
	if g.provisional {
		g.pending = append(g.pending, op[X]{kind: opConnectPinAtomic, src: pin, id: id})
		return
	}
	g.pinToAtomic[pin] = append(g.pinToAtomic[pin], id)
}

// DisconnectFromAtomic removes a pin-to-atomic termination.
func (g *Graph[X]) DisconnectFromAtomic(pin model.Pin, id model.ID) {
	if g.provisional {
		g.pending = append(g.pending, op[X]{kind: opDisconnectPinAtomic, src: pin, id: id})
		return
	}
	g.pinToAtomic[pin] = removeID(g.pinToAtomic[pin], id)
}

// RemovePin deletes a pin and all edges touching it.
func (g *Graph[X]) RemovePin(pin model.Pin) {
	if g.provisional {
		g.pending = append(g.pending, op[X]{kind: opRemovePin, src: pin})
		return
	}
	g.removePinNow(pin)
}

func (g *Graph[X]) removePinNow(pin model.Pin) {
	delete(g.pinToPin, pin)
	delete(g.pinToAtomic, pin)
	for p, dsts := range g.pinToPin {
		g.pinToPin[p] = removePin(dsts, pin)
	}
}

func removePin(pins []model.Pin, target model.Pin) []model.Pin {
	out := pins[:0]
	for _, p := range pins {
		if p != target {
			out = append(out, p)
		}
	}
	return out
}

func (g *Graph[X]) GetAtomic(id model.ID) (model.Atomic[X], bool) {
	a, ok := g.atomics[id]
	return a, ok
}

// Atomics returns every currently registered atomic ID.
func (g *Graph[X]) Atomics() []model.ID {
	ids := make([]model.ID, 0, len(g.atomics))
	for id := range g.atomics {
		ids = append(ids, id)
	}
	return ids
}

// Route resolves the transitive closure of pin-to-pin edges from pin down to
// terminal pin-to-atomic bindings. source identifies the emitting atomic
// (noSource for externally injected values) and is used to reject
// self-influence: a route that would deliver back to source is a structural
// fault, not a silent no-op, since a Moore/Mealy atomic feeding its own input
// breaks the DEVS causality model this kernel implements.
func (g *Graph[X]) Route(pin model.Pin, source model.ID) ([]Delivery[X], error) {
	var out []Delivery[X]
	visited := map[model.Pin]bool{}
	var walk func(p model.Pin) error
	walk = func(p model.Pin) error {
		if visited[p] {
			return nil
		}
		visited[p] = true
		for _, id := range g.pinToAtomic[p] {
			if source != noSource && id == source {
				return model.NewError(model.ErrSelfInfluence, source,
					fmt.Sprintf("atomic routes to itself via pin %q", pin))
			}
			out = append(out, Delivery[X]{Pin: p, AtomicID: id})
		}
		for _, next := range g.pinToPin[p] {
			if err := walk(next); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(pin); err != nil {
		return nil, err
	}
	return out, nil
}

// RouteExternal is Route with no self-influence check, for values injected
// by an external authority rather than produced by an atomic.
func (g *Graph[X]) RouteExternal(pin model.Pin) ([]Delivery[X], error) {
	return g.Route(pin, noSource)
}

// ApplyPending drains the buffered mutation queue in FIFO order and reports
// which atomics were added or removed, so a simulator can (re)schedule them.
// Draining happens with provisional mode momentarily off so the queued
// operations apply directly, mirroring the enter/apply/re-enable sequence
// the sequential engine runs once per macro-step.
func (g *Graph[X]) ApplyPending() PendingResult {
	pending := g.pending
	g.pending = nil
	wasProvisional := g.provisional
	g.provisional = false
	defer func() { g.provisional = wasProvisional }()

	var res PendingResult
	for _, o := range pending {
		switch o.kind {
		case opAddAtomic:
			g.atomics[o.id] = o.atomic
			res.Added = append(res.Added, o.id)
		case opRemoveAtomic:
			g.removeAtomicNow(o.id)
			res.Removed = append(res.Removed, o.id)
		case opConnectPinPin:
			g.Connect(o.src, o.dst)
		case opDisconnectPinPin:
			g.Disconnect(o.src, o.dst)
		case opConnectPinAtomic:
			g.ConnectToAtomic(o.src, o.id)
		case opDisconnectPinAtomic:
			g.DisconnectFromAtomic(o.src, o.id)
		case opRemovePin:
			g.removePinNow(o.src)
		}
	}
	return res
}
