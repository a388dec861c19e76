package storage

// Page is one in-memory frame of the buffer pool: a fixed PageSize buffer
// plus cache metadata. Frames are allocated once and reused, so a *Page
// only means "page ID()" between the fetch that returned it and the matching
// unpin.
//
// The metadata is owned by the buffer pool and only mutated under its lock.
type Page struct {
	Buf []byte // fixed-size 4KB

	id       PageID
	dirty    bool
	pinCount int32
}

func NewPage() *Page {
	return &Page{
		Buf: make([]byte, PageSize),
		id:  InvalidPageID,
	}
}

func (p *Page) ID() PageID {
	return p.id
}

func (p *Page) IsDirty() bool {
	return p.dirty
}

func (p *Page) PinCount() int32 {
	return p.pinCount
}

// Reset zeroes the buffer and rebinds the frame to id with one pin.
func (p *Page) Reset(id PageID) {
	clear(p.Buf)
	p.id = id
	p.dirty = false
	p.pinCount = 1
}

// Release detaches the frame from its logical page. Bytes are left stale
// until the next Reset.
func (p *Page) Release() {
	p.id = InvalidPageID
	p.dirty = false
	p.pinCount = 0
}

func (p *Page) Pin() {
	p.pinCount++
}

// Unpin drops one pin and reports false if the page was not pinned.
func (p *Page) Unpin() bool {
	if p.pinCount <= 0 {
		return false
	}
	p.pinCount--
	return true
}

func (p *Page) MarkDirty() {
	p.dirty = true
}

func (p *Page) MarkClean() {
	p.dirty = false
}
