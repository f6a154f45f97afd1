// Package scheduler implements the priority-queue contract every engine in
// this kernel shares: schedule an entity at a super-dense time, ask for the
// minimum scheduled time, and pull every entity tied at that minimum. The
// specification leaves the backing structure unspecified as long as ties at
// the minimum all surface together; this implementation substitutes an
// ordered github.com/google/btree for the binary/pairing heap the reference
// design mentions, keyed by (time, id) so every entry is unique even when
// several entities share the same super-dense time.
package scheduler

import (
	"github.com/google/btree"

	"github.com/adevs-go/adevs/devstime"
	"github.com/adevs-go/adevs/model"
)

type item struct {
	key devstime.T
	id  model.ID
}

func less(a, b item) bool {
	if !a.key.Equal(b.key) {
		return a.key.Less(b.key)
	}
	return a.id < b.id
}

// Scheduler is a priority queue over model.ID keyed by devstime.T.
type Scheduler struct {
	tree  *btree.BTreeG[item]
	index map[model.ID]item
}

func New() *Scheduler {
	return &Scheduler{
		tree:  btree.NewG(32, less),
		index: map[model.ID]item{},
	}
}

// Schedule inserts or reschedules id at time t.
func (s *Scheduler) Schedule(id model.ID, t devstime.T) {
	if old, ok := s.index[id]; ok {
		s.tree.Delete(old)
	}
	it := item{key: t, id: id}
	s.tree.ReplaceOrInsert(it)
	s.index[id] = it
}

// Remove drops id from the schedule entirely.
func (s *Scheduler) Remove(id model.ID) {
	if old, ok := s.index[id]; ok {
		s.tree.Delete(old)
		delete(s.index, id)
	}
}

// MinPriority returns the smallest scheduled time, or devstime.Inf() if the
// schedule is empty.
func (s *Scheduler) MinPriority() devstime.T {
	min, ok := s.tree.Min()
	if !ok {
		return devstime.Inf()
	}
	return min.key
}

// VisitImminent returns every ID scheduled at MinPriority(), in ID order.
// Calling it repeatedly with no intervening Schedule/Remove is idempotent.
func (s *Scheduler) VisitImminent() []model.ID {
	min, ok := s.tree.Min()
	if !ok {
		return nil
	}
	var result []model.ID
	s.tree.AscendGreaterOrEqual(min, func(it item) bool {
		if !it.key.Equal(min.key) {
			return false
		}
		result = append(result, it.id)
		return true
	})
	return result
}

// PopBatch removes and returns up to n IDs with the smallest scheduled
// times, used by the optimistic engine to pick the next round's active LPs.
func (s *Scheduler) PopBatch(n int) []model.ID {
	var result []model.ID
	for len(result) < n {
		min, ok := s.tree.Min()
		if !ok {
			break
		}
		result = append(result, min.id)
		s.tree.Delete(min)
		delete(s.index, min.id)
	}
	return result
}

// Len reports how many entities are currently scheduled.
func (s *Scheduler) Len() int { return s.tree.Len() }

// TimeOf returns the currently scheduled time for id, if any.
func (s *Scheduler) TimeOf(id model.ID) (devstime.T, bool) {
	it, ok := s.index[id]
	return it.key, ok
}
