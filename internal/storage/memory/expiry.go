package memory

import (
	"container/heap"
	"context"
	"time"
)

// expiryQueue is a min-heap of the live entries that carry a deadline.
// Each entry tracks its own index, so an overwrite or lazy delete takes its
// deadline out at once and the queue never outgrows the key space.
type expiryQueue []*entry

func (q expiryQueue) Len() int           { return len(q) }
func (q expiryQueue) Less(i, j int) bool { return q[i].expiresAt.Before(q[j].expiresAt) }

func (q expiryQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *expiryQueue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *expiryQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

func (q *expiryQueue) schedule(e *entry) {
	heap.Push(q, e)
}

func (q *expiryQueue) unschedule(e *entry) {
	if e.index >= 0 {
		heap.Remove(q, e.index)
	}
}

// Sweep removes entries whose deadline has passed. It handles at most one
// batch of deadlines and reports how many entries it removed and whether
// more due deadlines remain.
func (s *Store) Sweep() (removed int, more bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for i := 0; i < s.sweepBatch; i++ {
		if s.queue.Len() == 0 || !s.queue[0].expired(now) {
			return removed, false
		}
		e := heap.Pop(&s.queue).(*entry)
		delete(s.items, e.key)
		s.expired.Add(1)
		removed++
	}
	return removed, s.queue.Len() > 0 && s.queue[0].expired(now)
}

// RunExpiry sweeps due entries every interval until ctx is cancelled.
// The lock is only taken after the ticker fires.
func (s *Store) RunExpiry(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for {
				if _, more := s.Sweep(); !more {
					break
				}
				if ctx.Err() != nil {
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
