package receipts

import "sync"

// Capacity is the number of receipts retained by a Log.
const Capacity = 3

// Log keeps the most recent Capacity receipts in completion order. Sequence
// numbers start at 1 and keep counting across trims.
type Log struct {
	mu    sync.RWMutex
	buf   [Capacity]Receipt
	head  int // index of the oldest entry
	count int
	next  uint64
}

// NewLog returns an empty log whose first receipt will be numbered 1.
func NewLog() *Log {
	return &Log{next: 1}
}

// Append stamps r with the next sequence number, stores it, and evicts the
// oldest entry when the log is full. The stamped receipt is returned.
func (l *Log) Append(r Receipt) Receipt {
	l.mu.Lock()
	defer l.mu.Unlock()

	r.Sequence = l.next
	l.next++

	if l.count < Capacity {
		l.buf[(l.head+l.count)%Capacity] = r
		l.count++
		return r
	}

	// Full: overwrite the oldest slot and advance the head past it.
	l.buf[l.head] = r
	l.head = (l.head + 1) % Capacity
	return r
}

// Snapshot returns the retained receipts, oldest first.
func (l *Log) Snapshot() []Receipt {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Receipt, l.count)
	for i := 0; i < l.count; i++ {
		out[i] = l.buf[(l.head+i)%Capacity]
	}
	return out
}

// Len returns the number of retained receipts.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Next returns the sequence number the next appended receipt will carry.
func (l *Log) Next() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.next
}

// Capacity returns the maximum number of retained receipts.
func (l *Log) Capacity() int {
	return Capacity
}
