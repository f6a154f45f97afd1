package conservative

import (
	"math"
	"reflect"

	"github.com/adevs-go/adevs/devstime"
	"github.com/adevs-go/adevs/model"
	"github.com/adevs-go/adevs/scheduler"
)

// inbox is one not-yet-consumed delivery addressed to a local atomic,
// ordered by delivery time. Kept as a slice rather than a single slot so a
// second sender's earlier-timestamped message never overwrites a first
// sender's later one; multiple senders feeding the same atomic is the
// normal case once the LP coupling graph isn't a simple chain.
type inbox[X any] struct {
	t  devstime.T
	pv model.PinValue[X]
}

// stageLocal inserts a delivery into id's avail queue in time order and
// lowers id's scheduler priority to cover it, without touching r.tN: the
// atomic's own natural next-event time must survive untouched so a later
// round can still tell a genuine confluent collision (r.tN == next) apart
// from a purely externally forced wakeup.
func stageLocal[X any](avail map[model.ID][]inbox[X], sched *scheduler.Scheduler, r *record[X], id model.ID, t devstime.T, pv model.PinValue[X]) {
	list := avail[id]
	i := len(list)
	for i > 0 && t.Less(list[i-1].t) {
		i--
	}
	list = append(list, inbox[X]{})
	copy(list[i+1:], list[i:])
	list[i] = inbox[X]{t: t, pv: pv}
	avail[id] = list

	reschedule(sched, avail, r, id)
}

// reschedule sets id's scheduler priority to the earlier of its natural
// next-event time and the earliest still-queued delivery addressed to it.
func reschedule[X any](sched *scheduler.Scheduler, avail map[model.ID][]inbox[X], r *record[X], id model.ID) {
	priority := r.tN
	if list := avail[id]; len(list) > 0 && list[0].t.Less(priority) {
		priority = list[0].t
	}
	sched.Schedule(id, priority)
}

// runLP drives one logical process until its own next local event falls
// beyond stop: execute whenever the horizon its inbound neighbors have
// promised covers the next local event, otherwise block for more inbound
// information.
func (s *Simulator[X]) runLP(l *lp[X], stop float64) error {
	avail := map[model.ID][]inbox[X]{}

	// An LP that has returned, or holds no atomics, never sends real output
	// again, so it promises +Inf; any other LP opens with its lookahead.
	promise := func(t float64) {
		for _, to := range l.outTo {
			s.sendTo(l.idx, to, message[X]{t: t, real: false})
		}
	}
	defer promise(math.Inf(1))
	if len(l.ids) == 0 {
		promise(math.Inf(1))
	} else {
		s.broadcastNull(l, stop)
	}

	for {
		next := l.sched.MinPriority()

		// A local event beyond stop isn't grounds to stop on its own: a
		// not-yet-arrived message from an inbound neighbor could still land
		// at or before stop and pull this LP's own next event earlier. A
		// promise equal to stop still allows a message at stop, so only
		// once every neighbor has promised beyond stop can nothing more
		// arrive at or below it.
		if next.IsInf() || next.Time > stop {
			if l.safeHorizon(math.Inf(1)) <= stop {
				if err := s.waitForInbound(l, avail, stop); err != nil {
					return err
				}
				continue
			}
			return nil
		}

		if next.Time > l.safeHorizon(stop) {
			if err := s.waitForInbound(l, avail, stop); err != nil {
				return err
			}
			continue
		}

		if err := s.execRound(l, avail, next, stop); err != nil {
			return err
		}
	}
}

// waitForInbound blocks on whichever inbound channel has a message ready,
// using reflect.Select since the channel set varies by LP and Go's select
// statement cannot range over a dynamic case list.
func (s *Simulator[X]) waitForInbound(l *lp[X], avail map[model.ID][]inbox[X], stop float64) error {
	if len(l.inFrom) == 0 {
		return nil
	}
	cases := make([]reflect.SelectCase, len(l.inFrom))
	for i, from := range l.inFrom {
		cases[i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(l.inbound[from])}
	}
	chosen, recv, ok := reflect.Select(cases)
	if !ok {
		return nil
	}
	from := l.inFrom[chosen]
	msg := recv.Interface().(message[X])
	if msg.t > l.lastIn[from] {
		l.lastIn[from] = msg.t
	}
	if msg.real {
		if r, ok := l.records[msg.dst]; ok {
			stageLocal(avail, l.sched, r, msg.dst, devstime.At(msg.t), msg.pv)
		}
	}
	return nil
}

// execRound computes and routes output for every atomic whose own natural
// clock reads next, merges in whatever else is due at next (queued
// deliveries, including ones this same round's own local routing just
// staged), and applies the right transition to every affected atomic.
//
// "Naturally imminent" is decided from r.tN alone, captured before any of
// this round's routing runs: an atomic woken early only because an inbound
// message lowered its scheduler priority never has r.tN == next, so it
// always gets delta_ext, even though the scheduler can no longer tell the
// two cases apart once it has already folded the delivery time into id's
// priority.
func (s *Simulator[X]) execRound(l *lp[X], avail map[model.ID][]inbox[X], next devstime.T, stop float64) error {
	due := l.sched.VisitImminent()

	natural := make(map[model.ID]bool, len(due))
	for _, id := range due {
		if l.records[id].tN.Equal(next) {
			natural[id] = true
		}
	}

	for id := range natural {
		a, _ := l.g.GetAtomic(id)
		for _, y := range a.Output() {
			l.disp.NotifyOutput(id, y, next.Time)
			deliveries, err := l.g.Route(y.Pin, id)
			if err != nil {
				return err
			}
			for _, d := range deliveries {
				pv := model.PinValue[X]{Pin: d.Pin, Value: y.Value}
				if destLP := s.atomicLP[d.AtomicID]; destLP == l.idx {
					stageLocal(avail, l.sched, l.records[d.AtomicID], d.AtomicID, next, pv)
				} else {
					s.sendTo(l.idx, destLP, message[X]{t: next.Time, real: true, dst: d.AtomicID, pv: pv})
				}
			}
		}
	}

	seen := make(map[model.ID]bool, len(due))
	toProcess := append([]model.ID{}, due...)
	for _, id := range due {
		seen[id] = true
	}
	for id, list := range avail {
		if !seen[id] && len(list) > 0 && list[0].t.Equal(next) {
			toProcess = append(toProcess, id)
			seen[id] = true
		}
	}

	for _, id := range toProcess {
		a, _ := l.g.GetAtomic(id)
		r := l.records[id]

		var bag []model.PinValue[X]
		list := avail[id]
		i := 0
		for i < len(list) && list[i].t.Equal(next) {
			bag = append(bag, list[i].pv)
			i++
		}
		avail[id] = list[i:]

		for _, pv := range bag {
			l.disp.NotifyInput(id, pv, next.Time)
		}

		switch {
		case len(bag) == 0:
			a.DeltaInt()
		case natural[id]:
			a.DeltaConf(bag)
		default:
			a.DeltaExt(next.Sub(r.tL), bag)
		}
		l.disp.NotifyStateChange(id, next.Time)

		ta := a.TA()
		if ta < 0 {
			return model.NewError(model.ErrNegativeTimeAdvance, id, "ta() returned a negative value")
		}
		r.tL = next.Epsilon()
		r.tN = r.tL.AdvanceBy(ta)
		reschedule(l.sched, avail, r, id)
	}

	s.broadcastNull(l, stop)
	return nil
}

// broadcastNull tells every outgoing neighbor the earliest this LP might
// still produce real output, so a neighbor blocked only on this LP's
// silence can make progress even when this round produced no cross-LP
// message.
func (s *Simulator[X]) broadcastNull(l *lp[X], stop float64) {
	promise := l.lookahead(stop)
	for _, to := range l.outTo {
		s.sendTo(l.idx, to, message[X]{t: promise, real: false})
	}
}
