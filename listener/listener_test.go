package listener

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/adevs-go/adevs/internal/testkit"
	"github.com/adevs-go/adevs/model"
)

func TestDispatcherDrivesMockListenerExpectations(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := testkit.NewMockListener(ctrl)

	pv := model.PinValue[int]{Pin: "out", Value: 5}
	m.EXPECT().OutputEvent(model.ID(1), pv, 1.0)
	m.EXPECT().InputEvent(model.ID(2), pv, 1.0)
	m.EXPECT().StateChange(model.ID(1), 1.0)

	d := NewDispatcher[int]()
	d.Register(m)
	d.NotifyOutput(1, pv, 1.0)
	d.NotifyInput(2, pv, 1.0)
	d.NotifyStateChange(1, 1.0)
}

func TestDispatcherNotifiesInRegistrationOrder(t *testing.T) {
	var order []int
	d := NewDispatcher[int]()
	d.Register(orderTracker{id: 1, order: &order})
	d.Register(orderTracker{id: 2, order: &order})

	d.NotifyOutput(1, model.PinValue[int]{Pin: "p", Value: 5}, 1.0)
	assert.Equal(t, []int{1, 2}, order)
}

type orderTracker struct {
	id    int
	order *[]int
}

func (o orderTracker) OutputEvent(model.ID, model.PinValue[int], float64) {
	*o.order = append(*o.order, o.id)
}
func (o orderTracker) InputEvent(model.ID, model.PinValue[int], float64)  {}
func (o orderTracker) StateChange(model.ID, float64)                     {}

func TestStatsListenerZeroBeforeAnyObservation(t *testing.T) {
	s := NewStatsListener()
	assert.Equal(t, 0.0, s.Mean())
	assert.Equal(t, 0.0, s.Variance())
}

func TestStatsListenerMeanVariance(t *testing.T) {
	s := NewStatsListener()
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		s.OutputEvent(1, model.PinValue[float64]{Pin: "p", Value: v}, 0)
	}
	assert.InDelta(t, 5.0, s.Mean(), 1e-9)
	assert.InDelta(t, 4.571428571, s.Variance(), 1e-6)
}
