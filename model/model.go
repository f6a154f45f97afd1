// Package model defines the contract between user components and the three
// simulation engines: the Atomic/MealyAtomic interfaces, the input/output
// value type PinValue, and the single discriminated error type the engines
// return on a causality or structural violation.
package model

import "fmt"

// ID identifies an atomic within a Graph. IDs are graph-local handles, not
// pointers, so an atomic never needs a back-reference to its owning graph or
// to the logical process driving it under the optimistic/conservative
// engines; see the "Cyclic ownership" note this package is grounded on.
type ID int64

// Pin names a coupling point on the graph: either an atomic's declared
// input/output pin, or an intermediate routing pin with no atomic attached.
type Pin string

// PinValue pairs a pin with a value flowing across it, either as an output
// produced by output_func/confluent_output_func/external_output_func, or as
// a delivered input to delta_ext/delta_conf.
type PinValue[X any] struct {
	Pin   Pin
	Value X
}

// StateHandle is an opaque checkpoint returned by SaveState. A nil handle
// means "nothing to checkpoint"; the engine never dereferences it.
type StateHandle any

// Atomic is a Moore-style DEVS component: leaf behavior with no coupling of
// its own. ta reports the time advance from the current state; a negative
// return is an ErrNegativeTimeAdvance error the engine raises at schedule
// time. The engine calls DeltaInt/DeltaExt/DeltaConf/Output only at the times
// it itself computes from ta's return values, and owns tL/tN externally to
// the implementation (see the note on ID).
type Atomic[X any] interface {
	TA() float64
	DeltaInt()
	DeltaExt(e float64, x []PinValue[X])
	DeltaConf(x []PinValue[X])
	Output() []PinValue[X]

	// SaveState/RestoreState/GCState are only required by the optimistic
	// engine. Atomics that never run under optimistic.Simulator may return
	// nil from SaveState and leave RestoreState/GCState empty.
	SaveState() StateHandle
	RestoreState(h StateHandle)
	GCState(h StateHandle)

	// GCOutput releases resources held by an output bag discarded by a
	// rollback or retired by fossil collection.
	GCOutput(y []PinValue[X])
}

// MealyAtomic extends Atomic with input-dependent output. The engine
// discovers this capability with a type assertion at routing time; an
// Atomic that only implements the base interface is treated as Moore.
type MealyAtomic[X any] interface {
	Atomic[X]
	ConfluentOutput(x []PinValue[X]) []PinValue[X]
	ExternalOutput(e float64, x []PinValue[X]) []PinValue[X]
}

// ErrorKind discriminates the fixed set of faults the engines can raise.
type ErrorKind string

const (
	ErrNegativeTimeAdvance ErrorKind = "negative_time_advance"
	ErrSelfInfluence       ErrorKind = "self_influence"
	ErrMealyFeedback       ErrorKind = "mealy_feedback_loop"
	ErrStructuralPrecond   ErrorKind = "structural_precondition"
	ErrUnsupportedOptStruct ErrorKind = "unsupported_optimistic_structure_change"
)

// SimError is the single error type every engine returns. Model carries the
// offending atomic's ID when one is applicable; it is the zero ID otherwise.
type SimError struct {
	Kind  ErrorKind
	Model ID
	Msg   string
}

func (e *SimError) Error() string {
	if e.Model == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s (model %d): %s", e.Kind, e.Model, e.Msg)
}

// Is supports errors.Is(err, &SimError{Kind: someKind}) style comparisons
// against a kind, without requiring exact model/message equality.
func (e *SimError) Is(target error) bool {
	t, ok := target.(*SimError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func NewError(kind ErrorKind, id ID, msg string) *SimError {
	return &SimError{Kind: kind, Model: id, Msg: msg}
}
