// Package queue drives discovery to completion with an explicit worklist.
//
// Structured parsing keeps finding new work: a pointer field names an
// address that should hold a structure, whose own pointers name more
// addresses, and so on. Expanding those eagerly through recursion blows the
// stack on long chains and loops forever on cycles. A Queue instead records
// each key once, marks it resolved before its expander runs, and drains
// pending keys iteratively. A Request made while a drain is already running
// (from inside an expander) only appends; the outer drain picks it up.
//
// Queues are not safe for concurrent use.
package queue

// Set records which keys a Queue has resolved.
type Set[K comparable] interface {
	Add(k K)
	Contains(k K) bool
	Len() int
}

// mapSet is the default Set.
type mapSet[K comparable] map[K]struct{}

func (s mapSet[K]) Add(k K)  { s[k] = struct{}{} }
func (s mapSet[K]) Len() int { return len(s) }

func (s mapSet[K]) Contains(k K) bool {
	_, ok := s[k]
	return ok
}

// NewMapSet returns a map-backed Set.
func NewMapSet[K comparable]() Set[K] { return mapSet[K]{} }

// Expander performs the work a key stands for. It may call Request on the
// same queue.
type Expander[K comparable] func(K)

type item[K comparable] struct {
	key    K
	expand Expander[K]
}

// Queue is a deduplicating FIFO worklist.
type Queue[K comparable] struct {
	resolved Set[K]
	pending  map[K]struct{}
	items    []item[K]
	head     int
	draining bool
	limit    int
	dropped  int
}

// New returns a queue backed by a map set.
func New[K comparable]() *Queue[K] {
	return NewWithSet[K](NewMapSet[K]())
}

// NewWithSet returns a queue recording resolved keys in set.
func NewWithSet[K comparable](set Set[K]) *Queue[K] {
	return &Queue[K]{
		resolved: set,
		pending:  make(map[K]struct{}),
	}
}

// SetLimit caps how many keys the queue will ever accept. Requests past the
// cap are counted in Dropped and otherwise ignored. Zero means unlimited.
func (q *Queue[K]) SetLimit(n int) { q.limit = n }

// Dropped returns how many requests were refused by the limit.
func (q *Queue[K]) Dropped() int { return q.dropped }

// Resolved reports whether k has been taken off the queue.
func (q *Queue[K]) Resolved(k K) bool { return q.resolved.Contains(k) }

// Pending reports whether k is waiting to be expanded.
func (q *Queue[K]) Pending(k K) bool {
	_, ok := q.pending[k]
	return ok
}

// Known reports whether k is resolved or pending.
func (q *Queue[K]) Known(k K) bool { return q.Resolved(k) || q.Pending(k) }

// Len returns the number of pending keys.
func (q *Queue[K]) Len() int { return len(q.items) - q.head }

// ResolvedLen returns the number of resolved keys.
func (q *Queue[K]) ResolvedLen() int { return q.resolved.Len() }

// Push enqueues k without draining. It reports false when k was already
// known or the limit was reached.
func (q *Queue[K]) Push(k K, expand Expander[K]) bool {
	if q.Known(k) {
		return false
	}
	if q.limit > 0 && q.resolved.Len()+len(q.pending) >= q.limit {
		q.dropped++
		return false
	}
	q.pending[k] = struct{}{}
	q.items = append(q.items, item[K]{key: k, expand: expand})
	return true
}

// Request enqueues k and drains the queue unless a drain is already in
// progress. Known keys are ignored.
func (q *Queue[K]) Request(k K, expand Expander[K]) {
	if !q.Push(k, expand) {
		return
	}
	if q.draining {
		return
	}
	q.Drain()
}

// Drain expands pending keys in FIFO order until none remain. Each key is
// marked resolved before its expander runs. Returns the number of keys
// expanded. Calling Drain from inside an expander is a no-op.
func (q *Queue[K]) Drain() int {
	if q.draining {
		return 0
	}
	q.draining = true
	defer func() { q.draining = false }()

	n := 0
	for q.head < len(q.items) {
		it := q.items[q.head]
		q.items[q.head] = item[K]{}
		q.head++
		delete(q.pending, it.key)
		q.resolved.Add(it.key)
		if it.expand != nil {
			it.expand(it.key)
		}
		n++
	}
	q.items = q.items[:0]
	q.head = 0
	return n
}

// Next pops one pending key and marks it resolved without running its
// expander, for callers that run their own loop.
func (q *Queue[K]) Next() (K, bool) {
	var zero K
	if q.head >= len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return zero, false
	}
	it := q.items[q.head]
	q.items[q.head] = item[K]{}
	q.head++
	delete(q.pending, it.key)
	q.resolved.Add(it.key)
	return it.key, true
}
