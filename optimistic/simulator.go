package optimistic

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/adevs-go/adevs/config"
	"github.com/adevs-go/adevs/devstime"
	"github.com/adevs-go/adevs/graph"
	"github.com/adevs-go/adevs/listener"
	"github.com/adevs-go/adevs/model"
	"github.com/adevs-go/adevs/scheduler"
)

// Simulator is the optimistic (Time-Warp) parallel DEVS engine.
type Simulator[X any] struct {
	runID string
	graph *graph.Graph[X]
	disp  *listener.Dispatcher[X]

	lps   map[model.ID]*LogicalProcess[X]
	sched *scheduler.Scheduler

	maxBatch int
	workers  int

	activeMu   sync.Mutex
	activeList map[model.ID]bool

	gvt devstime.T
}

// New builds an optimistic simulator over g. Only Moore atomics are
// supported: the optimistic and conservative engines, like the reference
// design they are grounded on, do not extend Mealy semantics to parallel
// execution.
func New[X any](g *graph.Graph[X], cfg config.EngineConfig) (*Simulator[X], error) {
	s := &Simulator[X]{
		runID:      xid.New().String(),
		graph:      g,
		disp:       listener.NewDispatcher[X](),
		lps:        map[model.ID]*LogicalProcess[X]{},
		sched:      scheduler.New(),
		maxBatch:   cfg.OptimisticBatchSize,
		workers:    cfg.Workers,
		activeList: map[model.ID]bool{},
	}
	if s.maxBatch <= 0 {
		s.maxBatch = config.DefaultEngineConfig().OptimisticBatchSize
	}
	if s.workers <= 0 {
		s.workers = config.DefaultEngineConfig().Workers
	}
	for _, id := range g.Atomics() {
		a, _ := g.GetAtomic(id)
		lp := newLP[X](id, a)
		lp.checkpoints = append(lp.checkpoints, checkpoint{t: devstime.Zero(), data: a.SaveState()})
		lp.ta = a.TA()
		if lp.ta < 0 {
			return nil, model.NewError(model.ErrNegativeTimeAdvance, id, fmt.Sprintf("ta() returned %g", lp.ta))
		}
		lp.tN = devstime.Zero().AdvanceBy(lp.ta)
		s.lps[id] = lp
		s.sched.Schedule(id, lp.tN)
	}
	logrus.Debugf("[opt %s] initialized with %d logical processes", s.runID, len(s.lps))
	return s, nil
}

// AddEventListener registers a listener. Its callbacks are only invoked for
// committed events, once fossil collection has advanced GVT past them.
func (s *Simulator[X]) AddEventListener(l listener.Listener[X]) { s.disp.Register(l) }

// GVT returns the current global virtual time.
func (s *Simulator[X]) GVT() devstime.T { return s.gvt }

func (s *Simulator[X]) markActive(id model.ID) {
	s.activeMu.Lock()
	s.activeList[id] = true
	s.activeMu.Unlock()
}

func (s *Simulator[X]) sendMessage(dst model.ID, msg Message[X]) {
	lp, ok := s.lps[dst]
	if !ok {
		return
	}
	lp.mu.Lock()
	lp.input = append(lp.input, msg)
	if msg.Type == IO && msg.T.Less(lp.tMinInput) {
		lp.tMinInput = msg.T
	}
	wasInactive := !lp.active
	lp.active = true
	lp.mu.Unlock()
	if wasInactive {
		s.markActive(dst)
	}
}

type outgoing[X any] struct {
	dst model.ID
	msg Message[X]
}

// execOutput implements LogicalProcess::execOutput from adevs_lp.h: send
// any pending anti-message, then compute and route this LP's output if its
// time advance is finite.
func (s *Simulator[X]) execOutput(lp *LogicalProcess[X]) error {
	lp.mu.Lock()
	var sends []outgoing[X]
	if lp.rbPending {
		for r := range lp.recipients {
			sends = append(sends, outgoing[X]{dst: r, msg: Message[X]{T: lp.rbTime, Src: lp.id, Type: RB}})
		}
		lp.rbPending = false
	}
	type routed struct {
		pin   model.Pin
		value X
	}
	var toRoute []routed
	var msgT devstime.T
	if !math.IsInf(lp.ta, 1) {
		msgT = lp.tL.AdvanceBy(lp.ta)
		for _, y := range lp.atomic.Output() {
			lp.goodOutput = append(lp.goodOutput, Message[X]{T: msgT, Src: lp.id, Pin: y.Pin, Value: y.Value, Type: IO})
			lp.notifications = append(lp.notifications, Notification[X]{Kind: "output", PV: y, T: msgT.Time})
			toRoute = append(toRoute, routed{pin: y.Pin, value: y.Value})
		}
	}
	lp.mu.Unlock()

	for _, m := range sends {
		s.sendMessage(m.dst, m.msg)
	}
	for _, r := range toRoute {
		deliveries, err := s.graph.Route(r.pin, lp.id)
		if err != nil {
			return err
		}
		lp.mu.Lock()
		for _, d := range deliveries {
			lp.recipients[d.AtomicID] = true
		}
		lp.mu.Unlock()
		for _, d := range deliveries {
			s.sendMessage(d.AtomicID, Message[X]{T: msgT, Src: lp.id, Pin: d.Pin, Value: r.value, Type: IO})
		}
	}
	return nil
}

// execDeltfunc implements LogicalProcess::execDeltfunc from adevs_lp.h:
// drain the inbox, roll back if causality was violated, then advance state.
func (s *Simulator[X]) execDeltfunc(lp *LogicalProcess[X]) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	incoming := lp.input
	lp.input = nil

	usedCancelled := false
	rollbackAt := devstime.Inf()
	for _, msg := range incoming {
		if msg.Type == RB {
			var removed bool
			lp.avail, _ = filterFromAtOrAfter(lp.avail, msg.Src, msg.T)
			lp.used, removed = filterFromAtOrAfter(lp.used, msg.Src, msg.T)
			if removed {
				usedCancelled = true
				if msg.T.Less(rollbackAt) {
					rollbackAt = msg.T
				}
			}
			continue
		}
		lp.avail = insertTimeOrdered(lp.avail, msg)
		if msg.T.Less(lp.tL) && msg.T.Less(rollbackAt) {
			rollbackAt = msg.T
		}
	}
	lp.recomputeTMinInput()

	if usedCancelled || rollbackAt.Less(devstime.Inf()) {
		lp.rollback(rollbackAt)

		tBad := rollbackAt.Epsilon()
		if !lp.rbPending || tBad.Less(lp.rbTime) {
			lp.rbPending = true
			lp.rbTime = tBad
		}
	}

	tSelf := lp.tL.AdvanceBy(lp.ta)
	tN := tSelf
	if len(lp.avail) > 0 && lp.avail[0].T.Less(tSelf) {
		tN = lp.avail[0].T
	}

	var bag []model.PinValue[X]
	for len(lp.avail) > 0 && lp.avail[0].T.Equal(tN) {
		m := lp.avail[0]
		lp.avail = lp.avail[1:]
		lp.used = append(lp.used, m)
		pv := model.PinValue[X]{Pin: m.Pin, Value: m.Value}
		bag = append(bag, pv)
		lp.notifications = append(lp.notifications, Notification[X]{Kind: "input", PV: pv, T: tN.Time})
	}

	if tN.Less(tSelf) && !math.IsInf(lp.ta, 1) && !lp.rbPending {
		// The output computed by the most recent execOutput assumed no
		// input would arrive before tSelf; an earlier message proves that
		// wrong, so every output value tagged with tSelf is invalidated.
		i := len(lp.goodOutput)
		for i > 0 && lp.goodOutput[i-1].T.Equal(tSelf) {
			i--
		}
		lp.discard = append(lp.discard, lp.goodOutput[i:]...)
		lp.goodOutput = lp.goodOutput[:i]

		kept := lp.notifications[:0]
		for _, n := range lp.notifications {
			if n.Kind == "output" && n.T == tSelf.Time {
				continue
			}
			kept = append(kept, n)
		}
		lp.notifications = kept

		lp.rbPending = true
		lp.rbTime = tSelf
	}

	if tN.IsInf() {
		lp.tN = devstime.Inf()
		return
	}

	lp.checkpoints = append(lp.checkpoints, checkpoint{t: lp.tL, data: lp.atomic.SaveState()})
	switch {
	case len(bag) == 0:
		lp.atomic.DeltaInt()
	case tN.Equal(tSelf):
		lp.atomic.DeltaConf(bag)
	default:
		lp.atomic.DeltaExt(tN.Sub(lp.tL), bag)
	}
	lp.notifications = append(lp.notifications, Notification[X]{Kind: "state", T: tN.Time})
	lp.ta = lp.atomic.TA()
	lp.tL = tN.Epsilon()
	lp.tN = lp.tL.AdvanceBy(lp.ta)
}

// fossilCollect commits every notification and reclaims every queue entry
// and checkpoint with a timestamp strictly before gvt, keeping one backstop
// checkpoint so a later rollback still has somewhere to restore from.
func (s *Simulator[X]) fossilCollect(gvt devstime.T) {
	for _, lp := range s.lps {
		lp.mu.Lock()

		i := 0
		for i < len(lp.notifications) && lp.notifications[i].T < gvt.Time {
			i++
		}
		for _, n := range lp.notifications[:i] {
			switch n.Kind {
			case "output":
				s.disp.NotifyOutput(lp.id, n.PV, n.T)
			case "input":
				s.disp.NotifyInput(lp.id, n.PV, n.T)
			case "state":
				s.disp.NotifyStateChange(lp.id, n.T)
			}
		}
		lp.notifications = lp.notifications[i:]

		for len(lp.checkpoints) > 1 && lp.checkpoints[1].t.Time < gvt.Time {
			cp := lp.checkpoints[0]
			lp.checkpoints = lp.checkpoints[1:]
			lp.atomic.GCState(cp.data)
		}

		j := 0
		for j < len(lp.used) && lp.used[j].T.Time < gvt.Time {
			j++
		}
		lp.used = lp.used[j:]

		k := 0
		for k < len(lp.discard) && lp.discard[k].T.Time < gvt.Time {
			pv := model.PinValue[X]{Pin: lp.discard[k].Pin, Value: lp.discard[k].Value}
			lp.atomic.GCOutput([]model.PinValue[X]{pv})
			k++
		}
		lp.discard = lp.discard[k:]

		m := 0
		for m < len(lp.goodOutput) && lp.goodOutput[m].T.Time < gvt.Time {
			pv := model.PinValue[X]{Pin: lp.goodOutput[m].Pin, Value: lp.goodOutput[m].Value}
			lp.atomic.GCOutput([]model.PinValue[X]{pv})
			m++
		}
		lp.goodOutput = lp.goodOutput[m:]

		lp.mu.Unlock()
	}
}

// ExecUntil runs rounds of batch execution until every LP's next event is
// beyond stop, or no LP has a finite next event left. Events timestamped
// exactly at stop are executed.
func (s *Simulator[X]) ExecUntil(stop devstime.T) error {
	for {
		if s.sched.MinPriority().IsInf() || stop.Less(s.sched.MinPriority()) {
			break
		}
		batch := s.sched.PopBatch(s.maxBatch)
		if len(batch) == 0 {
			break
		}
		if err := s.runRound(batch); err != nil {
			return err
		}
	}
	s.fossilCollect(devstime.Inf())
	return nil
}

func (s *Simulator[X]) runRound(batch []model.ID) error {
	jobs := make(chan model.ID, len(batch))
	for _, id := range batch {
		jobs <- id
	}
	close(jobs)

	errs := make(chan error, len(batch))
	var wg sync.WaitGroup
	workers := s.workers
	if workers > len(batch) {
		workers = len(batch)
	}
	if workers < 1 {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				lp := s.lps[id]
				if err := s.execOutput(lp); err != nil {
					errs <- err
					continue
				}
				s.execDeltfunc(lp)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}

	for _, id := range batch {
		lp := s.lps[id]
		s.reschedule(lp)
	}

	s.activeMu.Lock()
	activated := s.activeList
	s.activeList = map[model.ID]bool{}
	s.activeMu.Unlock()
	for id := range activated {
		lp := s.lps[id]
		lp.mu.Lock()
		lp.active = false
		lp.mu.Unlock()
		s.reschedule(lp)
	}

	min := devstime.Inf()
	for _, lp := range s.lps {
		lp.mu.Lock()
		t := lp.tN
		lp.mu.Unlock()
		if t.Less(min) {
			min = t
		}
	}
	s.gvt = min
	s.fossilCollect(min)
	logrus.Debugf("[opt %s] round complete, gvt=%v", s.runID, s.gvt)
	return nil
}

// reschedule keys an LP by the earlier of its own next event and the
// earliest pending message it holds, so an LP with urgent unread input is
// picked up promptly rather than waiting for its own natural next event.
func (s *Simulator[X]) reschedule(lp *LogicalProcess[X]) {
	lp.mu.Lock()
	priority := devstime.Min(lp.tN, lp.tMinInput)
	lp.mu.Unlock()
	s.sched.Schedule(lp.id, priority)
}
