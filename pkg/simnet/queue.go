package simnet

import (
	"github.com/emirpasic/gods/queues/priorityqueue"
	"github.com/emirpasic/gods/utils"
	"github.com/gammazero/deque"
)

// wakeup is one pending notification: a sleeper or a message delivery
// becoming due at tick.
type wakeup struct {
	tick uint64
	seq  uint64 // insertion order, breaks ties deterministically
	fire func()
}

func wakeupComparator(a, b interface{}) int {
	wa, wb := a.(*wakeup), b.(*wakeup)
	if wa.tick != wb.tick {
		return utils.UInt64Comparator(wa.tick, wb.tick)
	}
	return utils.UInt64Comparator(wa.seq, wb.seq)
}

// dueQueue orders pending wakeups by (tick, insertion order) using
// emirpasic/gods' binary-heap priority queue, and stages everything that
// becomes due in a single Step call through a gammazero/deque so that
// wakeups are delivered in strict FIFO admission order even when several
// share the same tick — the concrete stand-in for "every ready task is
// polled" (§6.3) that this package implements.
type dueQueue struct {
	pq     *priorityqueue.Queue
	nextSeq uint64
}

func newDueQueue() *dueQueue {
	return &dueQueue{pq: priorityqueue.NewWith(wakeupComparator)}
}

func (q *dueQueue) push(tick uint64, fire func()) {
	q.pq.Enqueue(&wakeup{tick: tick, seq: q.nextSeq, fire: fire})
	q.nextSeq++
}

// drainDue pops every wakeup with tick <= now, stages them in a deque to
// preserve admission order, then fires them in that order.
func (q *dueQueue) drainDue(now uint64) {
	var ready deque.Deque[*wakeup]
	for {
		v, ok := q.pq.Peek()
		if !ok {
			break
		}
		w := v.(*wakeup)
		if w.tick > now {
			break
		}
		q.pq.Dequeue()
		ready.PushBack(w)
	}
	for ready.Len() > 0 {
		ready.PopFront().fire()
	}
}

func (q *dueQueue) empty() bool {
	return q.pq.Empty()
}
