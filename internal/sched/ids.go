package sched

// idAllocator hands out monotonically increasing job ids. It is rebuilt on
// startup from the highest id the store has ever seen (including records
// dropped at load), never persisted on its own.
//
// Not safe for concurrent use; callers hold the scheduler mutex.
type idAllocator struct {
	next uint64
}

func newIDAllocator(maxSeen uint64) *idAllocator {
	return &idAllocator{next: maxSeen + 1}
}

func (a *idAllocator) Next() uint64 {
	id := a.next
	a.next++
	return id
}
