// Package testkit provides fake Atomic/MealyAtomic implementations and test
// doubles shared across the engine test suites, in the spirit of the
// teacher's own in-package test fixtures (small structs built directly
// against the interfaces under test, no table-driven marshal grids).
package testkit

import "github.com/adevs-go/adevs/model"

// Generator is a Moore atomic that emits a fixed value on pin "out" every
// fixed time advance, forever. Grounds scenario S1.
type Generator[X any] struct {
	ta    float64
	value X
	OutPin model.Pin
}

func NewGenerator[X any](ta float64, value X) *Generator[X] {
	return &Generator[X]{ta: ta, value: value, OutPin: "out"}
}

func (g *Generator[X]) TA() float64                          { return g.ta }
func (g *Generator[X]) DeltaInt()                             {}
func (g *Generator[X]) DeltaExt(e float64, x []model.PinValue[X]) {}
func (g *Generator[X]) DeltaConf(x []model.PinValue[X])        {}
func (g *Generator[X]) Output() []model.PinValue[X] {
	return []model.PinValue[X]{{Pin: g.OutPin, Value: g.value}}
}
func (g *Generator[X]) SaveState() model.StateHandle      { return nil }
func (g *Generator[X]) RestoreState(model.StateHandle)    {}
func (g *Generator[X]) GCState(model.StateHandle)         {}
func (g *Generator[X]) GCOutput([]model.PinValue[X])      {}

// Call records which transition function fired and with what arguments, for
// assertions that don't care about the atomic's domain behavior, only that
// the right function was invoked exactly once (scenario S2).
type Call struct {
	Kind  string // "int", "ext", "conf"
	E     float64
	Input []int
}

// Receiver is a Moore atomic with a fixed time advance whose transitions are
// recorded rather than acted on, so a test can assert exactly which
// transition function the engine dispatched to. Grounds scenario S2
// (confluent events).
type Receiver struct {
	ta    float64
	Calls []Call
}

func NewReceiver(ta float64) *Receiver { return &Receiver{ta: ta} }

func (r *Receiver) TA() float64 { return r.ta }
func (r *Receiver) DeltaInt()   { r.Calls = append(r.Calls, Call{Kind: "int"}) }
func (r *Receiver) DeltaExt(e float64, x []model.PinValue[int]) {
	r.Calls = append(r.Calls, Call{Kind: "ext", E: e, Input: values(x)})
}
func (r *Receiver) DeltaConf(x []model.PinValue[int]) {
	r.Calls = append(r.Calls, Call{Kind: "conf", Input: values(x)})
}
func (r *Receiver) Output() []model.PinValue[int]      { return nil }
func (r *Receiver) SaveState() model.StateHandle       { return r.ta }
func (r *Receiver) RestoreState(h model.StateHandle)   { r.ta = h.(float64) }
func (r *Receiver) GCState(model.StateHandle)          {}
func (r *Receiver) GCOutput([]model.PinValue[int])     {}

func values(x []model.PinValue[int]) []int {
	out := make([]int, len(x))
	for i, pv := range x {
		out[i] = pv.Value
	}
	return out
}

// MealyEcho is a Mealy atomic that outputs the value 1 on its OutPin
// (default "out") from every output function, whatever its input, used to
// construct feedback-loop scenarios (S3): two MealyEcho atomics
// coupled A->B and B->A both imminent at the same instant.
type MealyEcho struct {
	ta     float64
	OutPin model.Pin
}

func NewMealyEcho(ta float64) *MealyEcho { return &MealyEcho{ta: ta, OutPin: "out"} }

func (m *MealyEcho) TA() float64                                { return m.ta }
func (m *MealyEcho) DeltaInt()                                   {}
func (m *MealyEcho) DeltaExt(e float64, x []model.PinValue[int]) {}
func (m *MealyEcho) DeltaConf(x []model.PinValue[int])           {}
func (m *MealyEcho) Output() []model.PinValue[int] {
	return []model.PinValue[int]{{Pin: m.OutPin, Value: 1}}
}
func (m *MealyEcho) ConfluentOutput(x []model.PinValue[int]) []model.PinValue[int] {
	return []model.PinValue[int]{{Pin: m.OutPin, Value: 1}}
}
func (m *MealyEcho) ExternalOutput(e float64, x []model.PinValue[int]) []model.PinValue[int] {
	return []model.PinValue[int]{{Pin: m.OutPin, Value: 1}}
}
func (m *MealyEcho) SaveState() model.StateHandle    { return nil }
func (m *MealyEcho) RestoreState(model.StateHandle)  {}
func (m *MealyEcho) GCState(model.StateHandle)       {}
func (m *MealyEcho) GCOutput([]model.PinValue[int])  {}
