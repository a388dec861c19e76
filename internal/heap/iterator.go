package heap

import "iter"

// Iterator walks the tuples of a single page in slot order. It never
// follows next_page_id and never writes to the page.
type Iterator struct {
	hp   *HeapPage
	next int
	cur  Tuple
	err  error
}

func NewIterator(hp *HeapPage) *Iterator {
	return &Iterator{hp: hp}
}

// Next advances to the next tuple. It returns false at the end of the page
// or on error; check Err afterwards.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	n, err := it.hp.NumTuples()
	if err != nil {
		it.err = err
		return false
	}
	if it.next >= n {
		it.cur = nil
		return false
	}

	t, err := it.hp.GetTuple(it.next)
	if err != nil {
		it.err = err
		it.cur = nil
		return false
	}
	it.cur = t
	it.next++
	return true
}

func (it *Iterator) Tuple() Tuple {
	return it.cur
}

// Slot is the slot index of the current tuple.
func (it *Iterator) Slot() int {
	return it.next - 1
}

func (it *Iterator) Err() error {
	return it.err
}

// Reset rewinds to slot 0.
func (it *Iterator) Reset() {
	it.next = 0
	it.cur = nil
	it.err = nil
}

// All yields (slot, tuple) pairs. Iteration stops silently on a corrupt
// slot; use an Iterator when the error matters.
func (hp *HeapPage) All() iter.Seq2[int, Tuple] {
	return func(yield func(int, Tuple) bool) {
		it := NewIterator(hp)
		for it.Next() {
			if !yield(it.Slot(), it.Tuple()) {
				return
			}
		}
	}
}
