// Package optimistic implements the Time-Warp style parallel DEVS engine:
// one LogicalProcess per atomic, speculative execution ahead of global
// virtual time, checkpoint/restore rollback on causality violations, and
// anti-message cancellation of already-sent output. Grounded directly on
// the reference adevs_lp.h / adevs_opt_simulator.h algorithm.
package optimistic

import (
	"sync"

	"github.com/adevs-go/adevs/devstime"
	"github.com/adevs-go/adevs/model"
)

// MessageType discriminates an ordinary routed value (IO) from an
// anti-message (RB) cancelling every message the sender sent with a
// timestamp at or after RB.T.
type MessageType int

const (
	IO MessageType = iota
	RB
)

// Message is the unit of inter-LP communication.
type Message[X any] struct {
	T    devstime.T
	Src  model.ID
	Pin  model.Pin
	Value X
	Type MessageType
}

type checkpoint struct {
	t    devstime.T
	data model.StateHandle
}

// Notification is a deferred listener callback, held until its timestamp
// falls behind GVT and is committed by fossil collection.
type Notification[X any] struct {
	Kind string // "output", "input", "state"
	PV   model.PinValue[X]
	T    float64
}

// LogicalProcess owns one atomic's speculative execution state: its message
// queues, checkpoint stack, and recipient set. All mutable fields are
// guarded by mu; the owning Simulator never reaches into an LP's
// fields without holding it.
type LogicalProcess[X any] struct {
	id     model.ID
	atomic model.Atomic[X]

	mu sync.Mutex

	tL, tN devstime.T
	ta     float64

	input []Message[X] // inbox, appended by sendMessage

	avail      []Message[X] // accepted, unprocessed, time-ordered
	used       []Message[X] // processed, retained for rollback detection
	goodOutput []Message[X] // sent output, candidate for anti-messaging
	discard    []Message[X] // output cancelled by a rollback, pending GC

	checkpoints []checkpoint
	recipients  map[model.ID]bool

	rbPending bool
	rbTime    devstime.T

	tMinInput devstime.T
	active    bool

	notifications []Notification[X]
}

func newLP[X any](id model.ID, a model.Atomic[X]) *LogicalProcess[X] {
	return &LogicalProcess[X]{
		id:         id,
		atomic:     a,
		recipients: map[model.ID]bool{},
		tMinInput:  devstime.Inf(),
	}
}

func insertTimeOrdered[X any](queue []Message[X], m Message[X]) []Message[X] {
	i := len(queue)
	for i > 0 && m.T.Less(queue[i-1].T) {
		i--
	}
	queue = append(queue, Message[X]{})
	copy(queue[i+1:], queue[i:])
	queue[i] = m
	return queue
}

// filterFromAtOrAfter removes every message from src with T >= at, reporting
// whether anything was actually removed.
func filterFromAtOrAfter[X any](queue []Message[X], src model.ID, at devstime.T) ([]Message[X], bool) {
	out := queue[:0]
	removed := false
	for _, m := range queue {
		if m.Src == src && at.LessOrEqual(m.T) {
			removed = true
			continue
		}
		out = append(out, m)
	}
	return out, removed
}

func (lp *LogicalProcess[X]) recomputeTMinInput() {
	min := devstime.Inf()
	for _, m := range lp.input {
		if m.Type == IO && m.T.Less(min) {
			min = m.T
		}
	}
	lp.tMinInput = min
}

// rollback restores lp to the state captured by the latest checkpoint with
// time <= at, discarding (for anti-messaging) every output sent at or after
// at and requeuing every used message with timestamp >= the restored tL.
func (lp *LogicalProcess[X]) rollback(at devstime.T) {
	i := 0
	for i < len(lp.goodOutput) && lp.goodOutput[i].T.Less(at) {
		i++
	}
	lp.discard = append(lp.discard, lp.goodOutput[i:]...)
	lp.goodOutput = lp.goodOutput[:i]

	for len(lp.checkpoints) > 1 && at.Less(lp.checkpoints[len(lp.checkpoints)-1].t) {
		cp := lp.checkpoints[len(lp.checkpoints)-1]
		lp.checkpoints = lp.checkpoints[:len(lp.checkpoints)-1]
		lp.atomic.GCState(cp.data)
	}
	if len(lp.checkpoints) == 0 {
		return
	}
	last := lp.checkpoints[len(lp.checkpoints)-1]
	lp.atomic.RestoreState(last.data)
	lp.tL = last.t
	lp.ta = lp.atomic.TA()

	var keepUsed, requeue []Message[X]
	for _, m := range lp.used {
		if lp.tL.LessOrEqual(m.T) {
			requeue = append(requeue, m)
		} else {
			keepUsed = append(keepUsed, m)
		}
	}
	lp.used = keepUsed
	merged := append(requeue, lp.avail...)
	lp.avail = nil
	for _, m := range merged {
		lp.avail = insertTimeOrdered(lp.avail, m)
	}

	kept := lp.notifications[:0]
	for _, n := range lp.notifications {
		if n.T < lp.tL.Time {
			kept = append(kept, n)
		}
	}
	lp.notifications = kept
}
