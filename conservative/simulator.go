// Package conservative implements a lookahead-gated parallel DEVS engine:
// one goroutine per logical process, synchronized purely by buffered
// channel message passing, no rollback. A logical process only advances its
// local clock past the point every incoming neighbor has promised ("at
// least this far, nothing earlier"), and promises its own outgoing
// neighbors the same via null messages when it produces no real output —
// the classic Chandy-Misra-Bryant scheme. The reference adevs source has no
// equivalent (its "ParSimulator" is Time-Warp under another name); this
// package is grounded on this specification's own description of the
// scheme plus the channel-per-edge, goroutine-per-LP shape the teacher uses
// for its own worker pools.
package conservative

import (
	"sync"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/adevs-go/adevs/config"
	"github.com/adevs-go/adevs/graph"
	"github.com/adevs-go/adevs/listener"
	"github.com/adevs-go/adevs/model"
)

const channelBuffer = 1024

// Simulator is the conservative (lookahead, no-rollback) parallel engine.
// Only Moore atomics are supported, matching the optimistic engine.
type Simulator[X any] struct {
	runID    string
	lps      []*lp[X]
	atomicLP map[model.ID]int
	lpGraph  [][]bool // lpGraph[i][j]: LP i feeds LP j
	disp     *listener.Dispatcher[X]

	// chansOut is the full n-by-n outbound channel matrix, indexed
	// [from][to]; kept on the simulator rather than the per-LP struct since
	// a send crosses two LPs' ownership and must not require either side's
	// internal state.
	chansOut [][]chan message[X]
}

// New partitions g's atomics across cfg.Workers logical processes (an
// atomic implementing ProcHint()int is pinned to that LP if in range; else
// it is assigned by hashing its graph-local ID) and wires one buffered
// channel per edge of the LP coupling graph, defaulting to all-to-all when
// cfg.LPGraph is empty.
//
// injected must be empty: the conservative engine has no InjectInput
// method, and a non-empty slice here is rejected as a structural
// precondition violation rather than silently ignored.
func New[X any](g *graph.Graph[X], cfg config.EngineConfig, injected []model.PinValue[X]) (*Simulator[X], error) {
	if len(injected) > 0 {
		return nil, model.NewError(model.ErrStructuralPrecond, model.ID(0),
			"conservative engine does not support injected input")
	}
	n := cfg.Workers
	if n <= 0 {
		n = config.DefaultEngineConfig().Workers
	}
	if n < 1 {
		n = 1
	}

	s := &Simulator[X]{
		runID:    xid.New().String(),
		disp:     listener.NewDispatcher[X](),
		atomicLP: map[model.ID]int{},
		lpGraph:  defaultOrExplicitLPGraph(n, cfg.LPGraph),
	}
	for i := 0; i < n; i++ {
		s.lps = append(s.lps, newLP[X](i, g, s.disp))
	}

	for _, id := range g.Atomics() {
		a, _ := g.GetAtomic(id)
		idx := partitionOf(a, id, n)
		s.atomicLP[id] = idx
		if err := s.lps[idx].addAtomic(id, a); err != nil {
			return nil, err
		}
	}

	chans := make([][]chan message[X], n)
	for i := range chans {
		chans[i] = make([]chan message[X], n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j && s.lpGraph[i][j] {
				chans[i][j] = make(chan message[X], channelBuffer)
			}
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if chans[j][i] != nil {
				s.lps[i].inFrom = append(s.lps[i].inFrom, j)
				s.lps[i].inbound[j] = chans[j][i]
				s.lps[i].lastIn[j] = 0
			}
			if chans[i][j] != nil {
				s.lps[i].outTo = append(s.lps[i].outTo, j)
			}
		}
	}
	s.chansOut = chans
	logrus.Debugf("[cons %s] initialized %d logical processes over %d atomics", s.runID, n, len(s.atomicLP))
	return s, nil
}

func defaultOrExplicitLPGraph(n int, edges []config.LPEdge) [][]bool {
	g := make([][]bool, n)
	for i := range g {
		g[i] = make([]bool, n)
	}
	if len(edges) == 0 {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i != j {
					g[i][j] = true
				}
			}
		}
		return g
	}
	for _, e := range edges {
		if e.Src >= 0 && e.Src < n && e.Dst >= 0 && e.Dst < n && e.Src != e.Dst {
			g[e.Src][e.Dst] = true
		}
	}
	return g
}

func partitionOf[X any](a model.Atomic[X], id model.ID, n int) int {
	if h, ok := a.(procHinted); ok {
		if p := h.ProcHint(); p >= 0 && p < n {
			return p
		}
	}
	v := int64(id)
	if v < 0 {
		v = -v
	}
	return int(v % int64(n))
}

// AddEventListener registers a listener. The conservative engine never
// speculates, so every callback reflects a fully committed event.
func (s *Simulator[X]) AddEventListener(l listener.Listener[X]) { s.disp.Register(l) }

// ExecUntil runs every logical process to completion concurrently and
// blocks until all of them have advanced their local clock past stop.
func (s *Simulator[X]) ExecUntil(stop float64) error {
	var wg sync.WaitGroup
	errs := make([]error, len(s.lps))
	for i, l := range s.lps {
		wg.Add(1)
		go func(i int, l *lp[X]) {
			defer wg.Done()
			errs[i] = s.runLP(l, stop)
		}(i, l)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	logrus.Debugf("[cons %s] exec until %g complete", s.runID, stop)
	return nil
}

func (s *Simulator[X]) sendTo(from, to int, msg message[X]) {
	if ch := s.chansOut[from][to]; ch != nil {
		ch <- msg
	}
}
