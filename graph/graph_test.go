package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adevs-go/adevs/internal/testkit"
	"github.com/adevs-go/adevs/model"
)

func TestRouteDirectToAtomic(t *testing.T) {
	g := New[int]()
	id := g.AddAtomic(testkit.NewGenerator(1, 42))
	g.ConnectToAtomic("out", id)

	got, err := g.Route("out", noSource)
	assert.NoError(t, err)
	assert.Equal(t, []Delivery[int]{{Pin: "out", AtomicID: id}}, got)
}

func TestRouteTransitiveThroughPins(t *testing.T) {
	g := New[int]()
	id := g.AddAtomic(testkit.NewGenerator(1, 42))
	g.Connect("a", "b")
	g.Connect("b", "c")
	g.ConnectToAtomic("c", id)

	got, err := g.Route("a", noSource)
	assert.NoError(t, err)
	assert.Equal(t, []Delivery[int]{{Pin: "c", AtomicID: id}}, got)
}

func TestRouteSelfInfluenceRejected(t *testing.T) {
	g := New[int]()
	id := g.AddAtomic(testkit.NewGenerator(1, 42))
	g.ConnectToAtomic("loop", id)

	_, err := g.Route("loop", id)
	var simErr *model.SimError
	assert.ErrorAs(t, err, &simErr)
	assert.Equal(t, model.ErrSelfInfluence, simErr.Kind)
}

func TestProvisionalBuffersAndDrains(t *testing.T) {
	g := New[int]()
	g.SetProvisional(true)

	id := g.AddAtomic(testkit.NewGenerator(1, 42))
	g.ConnectToAtomic("out", id)

	// Nothing applied yet: the atomic doesn't resolve, but its ID handle
	// was allocated synchronously.
	_, ok := g.GetAtomic(id)
	assert.False(t, ok)
	deliveries, err := g.Route("out", noSource)
	assert.NoError(t, err)
	assert.Empty(t, deliveries)

	res := g.ApplyPending()
	assert.Equal(t, []model.ID{id}, res.Added)

	_, ok = g.GetAtomic(id)
	assert.True(t, ok)
	deliveries, err = g.Route("out", noSource)
	assert.NoError(t, err)
	assert.Equal(t, []Delivery[int]{{Pin: "out", AtomicID: id}}, deliveries)
}

func TestRemoveAtomicPrunesBindings(t *testing.T) {
	g := New[int]()
	id := g.AddAtomic(testkit.NewGenerator(1, 42))
	g.ConnectToAtomic("out", id)
	g.RemoveAtomic(id)

	deliveries, err := g.Route("out", noSource)
	assert.NoError(t, err)
	assert.Empty(t, deliveries)
}
