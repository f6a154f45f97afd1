package conservative

import (
	"github.com/adevs-go/adevs/devstime"
	"github.com/adevs-go/adevs/graph"
	"github.com/adevs-go/adevs/listener"
	"github.com/adevs-go/adevs/model"
	"github.com/adevs-go/adevs/scheduler"
)

// message travels on the buffered channel between two logical processes.
// A null message carries no pin value; it exists only to advance the
// receiving LP's lower bound on what its sender might still deliver,
// the Chandy-Misra-Bryant liveness fix for a lookahead-gated scheme.
type message[X any] struct {
	t    float64
	real bool
	dst  model.ID
	pv   model.PinValue[X]
}

// record is the engine-owned runtime state for one atomic under this LP,
// kept outside the Atomic implementation exactly as the sequential engine
// keeps its own per-atomic record.
type record[X any] struct {
	tL, tN devstime.T
}

// procHinted lets an Atomic pin itself to a specific logical process rather
// than being assigned by hashing its graph-local ID.
type procHinted interface {
	ProcHint() int
}

// lp owns a partition of the graph's atomics, one inbound channel per
// incoming neighbor LP and one outbound channel per outgoing neighbor,
// and runs entirely on its own goroutine: no field here is touched by any
// other goroutine except through those channels.
type lp[X any] struct {
	idx int

	ids     []model.ID
	g       *graph.Graph[X]
	sched   *scheduler.Scheduler
	records map[model.ID]*record[X]

	inFrom  []int // neighbor LP indices this LP receives from
	outTo   []int // neighbor LP indices this LP sends to
	inbound map[int]<-chan message[X]
	lastIn  map[int]float64 // lowest timestamp still possible from each inbound neighbor

	disp *listener.Dispatcher[X]
}

func newLP[X any](idx int, g *graph.Graph[X], disp *listener.Dispatcher[X]) *lp[X] {
	return &lp[X]{
		idx:     idx,
		g:       g,
		sched:   scheduler.New(),
		records: map[model.ID]*record[X]{},
		inbound: map[int]<-chan message[X]{},
		lastIn:  map[int]float64{},
		disp:    disp,
	}
}

func (l *lp[X]) addAtomic(id model.ID, a model.Atomic[X]) error {
	ta := a.TA()
	if ta < 0 {
		return model.NewError(model.ErrNegativeTimeAdvance, id, "ta() returned a negative value")
	}
	l.ids = append(l.ids, id)
	l.records[id] = &record[X]{tL: devstime.Zero(), tN: devstime.Zero().AdvanceBy(ta)}
	l.sched.Schedule(id, l.records[id].tN)
	return nil
}

// safeHorizon is the latest real time this LP may advance to without risking
// a message arriving from an inbound neighbor with an earlier timestamp: the
// minimum of every inbound neighbor's last reported lower bound, and stop.
func (l *lp[X]) safeHorizon(stop float64) float64 {
	safe := stop
	for _, t := range l.lastIn {
		if t < safe {
			safe = t
		}
	}
	return safe
}

// lookahead is this LP's current promise to its outgoing neighbors: nothing
// it produces will be timestamped earlier than its nearest local atomic's
// next event time. An LP none of whose atomics has a finite next event has
// no local event to bound it, so it simply forwards the global stop time as
// its promise.
func (l *lp[X]) lookahead(stop float64) float64 {
	min := devstime.Inf()
	for _, id := range l.ids {
		if r := l.records[id]; r.tN.Less(min) {
			min = r.tN
		}
	}
	if min.IsInf() {
		return stop
	}
	return min.Time
}
