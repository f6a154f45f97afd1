package sequential

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adevs-go/adevs/devstime"
	"github.com/adevs-go/adevs/graph"
	"github.com/adevs-go/adevs/internal/testkit"
	"github.com/adevs-go/adevs/model"
)

// S1: a generator with ta=1 emitting 42 forever, observed through t=5.
func TestS1SimpleGenerator(t *testing.T) {
	g := graph.New[int]()
	gen := testkit.NewGenerator(1.0, 42)
	id := g.AddAtomic(gen)
	g.ConnectToAtomic("out", id)

	sim, err := New(g)
	assert.NoError(t, err)
	rec := testkit.NewRecordingListener()
	sim.AddEventListener(rec)

	for i := 0; i < 5; i++ {
		_, err := sim.ExecNextEvent()
		assert.NoError(t, err)
	}

	var outputs []float64
	for _, e := range rec.Events {
		if e.Kind == "output" {
			outputs = append(outputs, e.T)
			assert.Equal(t, 42, e.Value)
		}
	}
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, outputs)
}

// S2: A (ta=1, emits 1) coupled to B (ta=1); at t=1 B is imminent and
// receives input, so delta_conf fires exactly once and neither delta_int
// nor delta_ext fires.
func TestS2ConfluentEvent(t *testing.T) {
	g := graph.New[int]()
	a := testkit.NewGenerator(1.0, 1)
	a.OutPin = "a-out"
	b := testkit.NewReceiver(1.0)
	aID := g.AddAtomic(a)
	bID := g.AddAtomic(b)
	g.ConnectToAtomic("a-out", aID)
	g.Connect("a-out", "b-in")
	g.ConnectToAtomic("b-in", bID)

	sim, err := New(g)
	assert.NoError(t, err)

	_, err = sim.ExecNextEvent()
	assert.NoError(t, err)

	assert.Equal(t, []testkit.Call{{Kind: "conf", Input: []int{1}}}, b.Calls)
}

// S3: two Mealy atomics coupled A->B and B->A, both imminent: computeNextOutput
// must report a feedback-loop error.
func TestS3MealyFeedbackRejected(t *testing.T) {
	g := graph.New[int]()
	a := testkit.NewMealyEcho(1.0)
	a.OutPin = "a-out"
	b := testkit.NewMealyEcho(1.0)
	b.OutPin = "b-out"
	aID := g.AddAtomic(a)
	bID := g.AddAtomic(b)
	g.ConnectToAtomic("a-out", aID)
	g.Connect("a-out", "b-in")
	g.ConnectToAtomic("b-in", bID)
	g.ConnectToAtomic("b-out", bID)
	g.Connect("b-out", "a-in")
	g.ConnectToAtomic("a-in", aID)

	sim, err := New(g)
	assert.NoError(t, err)

	err = sim.ComputeNextOutput()
	var simErr *model.SimError
	assert.ErrorAs(t, err, &simErr)
	assert.Equal(t, model.ErrMealyFeedback, simErr.Kind)
}

// S4: a receiver with ta=+Inf never schedules; an injected input at t=0
// produces exactly one inputEvent and the injection buffer is cleared.
func TestS4Injection(t *testing.T) {
	g := graph.New[int]()
	recv := testkit.NewReceiver(math.Inf(1))
	id := g.AddAtomic(recv)
	g.ConnectToAtomic("in", id)

	sim, err := New(g)
	assert.NoError(t, err)
	rec := testkit.NewRecordingListener()
	sim.AddEventListener(rec)

	sim.InjectInput(model.PinValue[int]{Pin: "in", Value: 7})
	sim.SetNextTime(devstime.Zero())
	_, err = sim.ExecNextEvent()
	assert.NoError(t, err)

	var inputs int
	for _, e := range rec.Events {
		if e.Kind == "input" {
			inputs++
			assert.Equal(t, 7, e.Value)
		}
	}
	assert.Equal(t, 1, inputs)

	sim.ClearInjectedInput()
	assert.Empty(t, sim.externalInput)
}
