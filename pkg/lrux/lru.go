package lrux

// LRU picks the slot whose most recent Touch is the oldest among evictable
// slots. Ties on the access stamp go to the lowest slot id, so victim choice
// is fully deterministic.
//
// It tracks slot IDs [0..capacity) and is not safe for concurrent use; the
// owner is expected to serialize calls.
type LRU struct {
	slots []lruSlot
	tick  uint64
	size  int // number of evictable slots
}

type lruSlot struct {
	lastAccess uint64
	present    bool
	evictable  bool
}

func New(capacity int) *LRU {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU{slots: make([]lruSlot, capacity)}
}

func (l *LRU) Capacity() int { return len(l.slots) }

func (l *LRU) inRange(id int) bool {
	return id >= 0 && id < len(l.slots)
}

// Touch stamps the slot with the current logical time.
func (l *LRU) Touch(id int) {
	if !l.inRange(id) {
		return
	}
	l.tick++
	s := &l.slots[id]
	s.present = true
	s.lastAccess = l.tick
}

// SetEvictable marks whether the slot may be chosen as a victim (pin==0).
func (l *LRU) SetEvictable(id int, evictable bool) {
	if !l.inRange(id) {
		return
	}
	s := &l.slots[id]
	if !s.present || s.evictable == evictable {
		return
	}
	s.evictable = evictable
	if evictable {
		l.size++
	} else {
		l.size--
	}
}

// Evict removes and returns the least recently touched evictable slot.
func (l *LRU) Evict() (id int, ok bool) {
	if l.size == 0 {
		return -1, false
	}

	victim := -1
	for i := range l.slots {
		s := &l.slots[i]
		if !s.present || !s.evictable {
			continue
		}
		// strict less keeps the lowest id on equal stamps
		if victim == -1 || s.lastAccess < l.slots[victim].lastAccess {
			victim = i
		}
	}
	if victim == -1 {
		return -1, false
	}

	l.slots[victim] = lruSlot{}
	l.size--
	return victim, true
}

// Remove stops tracking the slot.
func (l *LRU) Remove(id int) {
	if !l.inRange(id) {
		return
	}
	if l.slots[id].evictable {
		l.size--
	}
	l.slots[id] = lruSlot{}
}

func (l *LRU) Size() int { return l.size }
