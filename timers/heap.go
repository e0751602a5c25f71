package timers

// Heap is a min-heap of timers ordered by timestamp, with constant time
// membership checks. It is not safe for concurrent use.
type Heap[K, N comparable] struct {
	items []Timer[K, N]
	index map[Timer[K, N]]int
}

func NewHeap[K, N comparable]() *Heap[K, N] {
	return &Heap[K, N]{
		items: make([]Timer[K, N], 0),
		index: make(map[Timer[K, N]]int),
	}
}

// HeapOf builds a heap from a set. A nil set yields an empty heap.
func HeapOf[K, N comparable](s Set[K, N]) *Heap[K, N] {
	h := &Heap[K, N]{
		items: make([]Timer[K, N], 0, len(s)),
		index: make(map[Timer[K, N]]int, len(s)),
	}
	for t := range s {
		h.index[t] = len(h.items)
		h.items = append(h.items, t)
	}
	for i := len(h.items)/2 - 1; i >= 0; i-- {
		h.down(i)
	}
	return h
}

func (h *Heap[K, N]) Len() int {
	return len(h.items)
}

func (h *Heap[K, N]) Contains(t Timer[K, N]) bool {
	_, ok := h.index[t]
	return ok
}

// Add inserts t and reports whether the head of the heap changed.
// Adding a timer that is already present is a no-op.
func (h *Heap[K, N]) Add(t Timer[K, N]) bool {
	if _, exists := h.index[t]; exists {
		return false
	}
	i := len(h.items)
	h.items = append(h.items, t)
	h.index[t] = i
	h.up(i)
	return h.index[t] == 0
}

// Remove deletes t and reports whether it was present.
func (h *Heap[K, N]) Remove(t Timer[K, N]) bool {
	i, exists := h.index[t]
	if !exists {
		return false
	}

	last := len(h.items) - 1
	if i != last {
		h.swap(i, last)
	}
	h.items = h.items[:last]
	delete(h.index, t)

	if i < last {
		h.down(i)
		h.up(i)
	}
	return true
}

// Peek returns the timer with the smallest timestamp without removing it.
func (h *Heap[K, N]) Peek() (Timer[K, N], bool) {
	if len(h.items) == 0 {
		var zero Timer[K, N]
		return zero, false
	}
	return h.items[0], true
}

// Poll removes and returns the timer with the smallest timestamp.
func (h *Heap[K, N]) Poll() (Timer[K, N], bool) {
	t, ok := h.Peek()
	if ok {
		h.Remove(t)
	}
	return t, ok
}

// Timers returns a new set holding every timer in the heap.
func (h *Heap[K, N]) Timers() Set[K, N] {
	s := make(Set[K, N], len(h.items))
	for _, t := range h.items {
		s[t] = struct{}{}
	}
	return s
}

func (h *Heap[K, N]) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.index[h.items[i]] = i
	h.index[h.items[j]] = j
}

func (h *Heap[K, N]) less(i, j int) bool {
	return h.items[i].Timestamp < h.items[j].Timestamp
}

func (h *Heap[K, N]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *Heap[K, N]) down(i int) {
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2

		if left < len(h.items) && h.less(left, smallest) {
			smallest = left
		}
		if right < len(h.items) && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			break
		}

		h.swap(i, smallest)
		i = smallest
	}
}
