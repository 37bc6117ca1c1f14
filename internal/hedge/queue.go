package hedge

// pendingQueue is an index-based FIFO over commitment IDs. Dequeuing moves
// a head cursor instead of re-slicing from the front, so draining a batch
// is O(batch) and the backing array is compacted once the dead prefix
// dominates.
type pendingQueue struct {
	buf  []string
	head int
}

func (q *pendingQueue) push(id string) {
	q.buf = append(q.buf, id)
}

func (q *pendingQueue) len() int {
	return len(q.buf) - q.head
}

// popN removes and returns up to n oldest entries in insertion order.
func (q *pendingQueue) popN(n int) []string {
	if n > q.len() {
		n = q.len()
	}
	if n == 0 {
		return nil
	}

	out := make([]string, n)
	copy(out, q.buf[q.head:q.head+n])
	q.head += n

	if q.head == len(q.buf) {
		q.buf = q.buf[:0]
		q.head = 0
	} else if q.head > 64 && q.head >= len(q.buf)/2 {
		q.buf = append(q.buf[:0:0], q.buf[q.head:]...)
		q.head = 0
	}
	return out
}

// snapshot returns the queued IDs in order without consuming them.
func (q *pendingQueue) snapshot() []string {
	out := make([]string, q.len())
	copy(out, q.buf[q.head:])
	return out
}
