// Package heap provides a bounded max-heap for order-statistic selection.
package heap

// MaxHeap keeps the K smallest values pushed into it.
// The largest retained value is always at the root (index 0).
type MaxHeap struct {
	Values []int
	Size   int
	K      int
}

// New creates a new max-heap with capacity k.
func New(k int) *MaxHeap {
	return &MaxHeap{
		Values: make([]int, k),
		K:      k,
	}
}

// Push offers v to the heap.
// Returns true if v was retained (heap not full, or v smaller than the max).
func (h *MaxHeap) Push(v int) bool {
	if h.K == 0 {
		return false
	}
	if h.Size < h.K {
		h.Values[h.Size] = v
		h.siftUp(h.Size)
		h.Size++
		return true
	}

	// Quick reject if not better than current worst
	if v >= h.Values[0] {
		return false
	}

	// Replace root and sift down
	h.Values[0] = v
	h.siftDown(0, h.Size)
	return true
}

func (h *MaxHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.Values[parent] >= h.Values[i] {
			return
		}
		h.Values[parent], h.Values[i] = h.Values[i], h.Values[parent]
		i = parent
	}
}

// siftDown restores the heap property within the first n elements.
func (h *MaxHeap) siftDown(i, n int) {
	for {
		left := 2*i + 1
		right := 2*i + 2

		if left >= n {
			break
		}

		swap := i
		if h.Values[left] > h.Values[swap] {
			swap = left
		}
		if right < n && h.Values[right] > h.Values[swap] {
			swap = right
		}

		if swap == i {
			break
		}

		h.Values[i], h.Values[swap] = h.Values[swap], h.Values[i]
		i = swap
	}
}

// Sort converts the heap to ascending order and returns the retained values.
// After sorting, the heap property is no longer maintained.
func (h *MaxHeap) Sort() []int {
	for i := h.Size - 1; i > 0; i-- {
		h.Values[0], h.Values[i] = h.Values[i], h.Values[0]
		h.siftDown(0, i)
	}
	return h.Values[:h.Size]
}

// Smallest returns the k smallest values in ascending order.
func Smallest(values []int, k int) []int {
	k = min(k, len(values))
	h := New(k)
	for _, v := range values {
		h.Push(v)
	}
	return h.Sort()
}

// Largest returns the k largest values in descending order.
func Largest(values []int, k int) []int {
	k = min(k, len(values))
	h := New(k)
	for _, v := range values {
		h.Push(-v)
	}
	out := h.Sort()
	for i := range out {
		out[i] = -out[i]
	}
	return out
}
