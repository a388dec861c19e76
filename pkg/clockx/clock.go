package clockx

// Clock implements CLOCK (second-chance) replacement over slot IDs
// [0..capacity). The hand sweeps in slot order starting at 0, so for a
// given call sequence the victim is always the same.
type Clock struct {
	slots []clockSlot
	hand  int
	size  int // number of evictable slots
}

type clockSlot struct {
	ref       bool
	present   bool
	evictable bool
}

func New(capacity int) *Clock {
	if capacity <= 0 {
		capacity = 1
	}
	return &Clock{slots: make([]clockSlot, capacity)}
}

func (c *Clock) Capacity() int { return len(c.slots) }

func (c *Clock) slot(id int) *clockSlot {
	if id < 0 || id >= len(c.slots) {
		return nil
	}
	return &c.slots[id]
}

// Touch marks slot as recently accessed.
func (c *Clock) Touch(id int) {
	if s := c.slot(id); s != nil {
		s.present = true
		s.ref = true
	}
}

// SetEvictable marks whether slot can be evicted (pin==0). Unknown slots
// are ignored.
func (c *Clock) SetEvictable(id int, evictable bool) {
	s := c.slot(id)
	if s == nil || !s.present || s.evictable == evictable {
		return
	}
	s.evictable = evictable
	if evictable {
		c.size++
	} else {
		c.size--
	}
}

// Evict returns the victim slot and stops tracking it.
func (c *Clock) Evict() (id int, ok bool) {
	n := len(c.slots)
	if c.size == 0 {
		return -1, false
	}

	// Two sweeps: the first may only clear ref bits.
	for range 2 * n {
		idx := c.hand
		c.hand = (c.hand + 1) % n

		s := &c.slots[idx]
		if !s.present || !s.evictable {
			continue
		}
		if s.ref {
			s.ref = false
			continue
		}
		*s = clockSlot{}
		c.size--
		return idx, true
	}

	return -1, false
}

// Remove removes slot from tracking.
func (c *Clock) Remove(id int) {
	s := c.slot(id)
	if s == nil || !s.present {
		return
	}
	if s.evictable {
		c.size--
	}
	*s = clockSlot{}
}

func (c *Clock) Size() int { return c.size }
