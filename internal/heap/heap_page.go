package heap

import (
	"errors"
	"fmt"

	"github.com/tuannm99/novastore/internal/alias/bx"
	"github.com/tuannm99/novastore/internal/storage"
)

// +-------------------------+ 0
// | next_page_id (int32 BE) |
// | num_tuples   (int32 BE) |
// +-------------------------+ 8
// | slots[] (uint32 BE)     | --> grows up
// +-------------------------+ 8 + 4*num_tuples
// |                         |
// |       Free space        |
// |                         |
// +-------------------------+ slots[num_tuples-1]
// |  Tuple Data             | <-- grows down
// +-------------------------+ PageSize (4096)
//
// A slot holds the offset of its tuple's first byte. Tuple i ends where
// tuple i-1 starts (tuple 0 ends at PageSize), so lengths are recovered by
// subtracting adjacent offsets and never stored.
const (
	offNextPageID = 0
	offNumTuples  = 4

	HeaderSize = 8
	SlotSize   = 4
)

var (
	ErrPageFull    = errors.New("heap: tuple does not fit in page")
	ErrInvalidSlot = errors.New("heap: invalid slot")
	ErrEmptyTuple  = errors.New("heap: empty tuple")
	ErrCorruptPage = errors.New("heap: corrupt header or slot array")
)

// Tuple is an owned variable-length record.
type Tuple []byte

func (t Tuple) Len() int {
	return len(t)
}

// HeapPage is a slotted view over a pinned page's buffer. It holds no
// storage of its own: every write lands in Page.Buf immediately.
type HeapPage struct {
	Page *storage.Page
}

func NewHeapPage(p *storage.Page) *HeapPage {
	return &HeapPage{Page: p}
}

// ---- bounds-checked codec ----

func readUint32(buf []byte, off int) (uint32, error) {
	v, ok := bx.U32BEAt(buf, off)
	if !ok {
		return 0, fmt.Errorf("%w: read at %d", ErrCorruptPage, off)
	}
	return v, nil
}

func writeUint32(buf []byte, off int, v uint32) error {
	if !bx.PutU32BEAt(buf, off, v) {
		return fmt.Errorf("%w: write at %d", ErrCorruptPage, off)
	}
	return nil
}

// ---- header ----

// Init resets the header of a freshly allocated page: no next page, no tuples.
func (hp *HeapPage) Init() error {
	if err := hp.SetNextPageID(storage.InvalidPageID); err != nil {
		return err
	}
	return writeUint32(hp.Page.Buf, offNumTuples, 0)
}

func (hp *HeapPage) NextPageID() (storage.PageID, error) {
	v, err := readUint32(hp.Page.Buf, offNextPageID)
	if err != nil {
		return storage.InvalidPageID, err
	}
	return storage.PageID(int32(v)), nil
}

func (hp *HeapPage) SetNextPageID(id storage.PageID) error {
	return writeUint32(hp.Page.Buf, offNextPageID, uint32(int32(id)))
}

// NumTuples returns the validated tuple count from the header.
func (hp *HeapPage) NumTuples() (int, error) {
	v, err := readUint32(hp.Page.Buf, offNumTuples)
	if err != nil {
		return 0, err
	}
	n := int(int32(v))
	if n < 0 || slotsetSize(n) > len(hp.Page.Buf) {
		return 0, fmt.Errorf("%w: num_tuples=%d", ErrCorruptPage, n)
	}
	return n, nil
}

func (hp *HeapPage) setNumTuples(n int) error {
	return writeUint32(hp.Page.Buf, offNumTuples, uint32(int32(n)))
}

// ---- slots ----

func slotsetSize(n int) int {
	return HeaderSize + n*SlotSize
}

func slotOff(i int) int {
	return HeaderSize + i*SlotSize
}

func (hp *HeapPage) slot(i int) (int, error) {
	v, err := readUint32(hp.Page.Buf, slotOff(i))
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// tupleEnd is the exclusive end of tuple i.
func (hp *HeapPage) tupleEnd(i int) (int, error) {
	if i == 0 {
		return len(hp.Page.Buf), nil
	}
	return hp.slot(i - 1)
}

// top returns the lowest tuple start, or PageSize on an empty page.
func (hp *HeapPage) top(n int) (int, error) {
	if n == 0 {
		return len(hp.Page.Buf), nil
	}
	off, err := hp.slot(n - 1)
	if err != nil {
		return 0, err
	}
	if off < slotsetSize(n) || off > len(hp.Page.Buf) {
		return 0, fmt.Errorf("%w: slot %d offset %d", ErrCorruptPage, n-1, off)
	}
	return off, nil
}

// FreeSpace is the gap between the slot array and the tuple heap. A new
// tuple also needs SlotSize of it for its slot.
func (hp *HeapPage) FreeSpace() (int, error) {
	n, err := hp.NumTuples()
	if err != nil {
		return 0, err
	}
	top, err := hp.top(n)
	if err != nil {
		return 0, err
	}
	return top - slotsetSize(n), nil
}

// ---- tuples ----

// InsertTuple copies t below the current lowest tuple, appends a slot for
// it and returns its offset. On error the page is untouched.
func (hp *HeapPage) InsertTuple(t Tuple) (int, error) {
	if t.Len() == 0 {
		return -1, ErrEmptyTuple
	}
	n, err := hp.NumTuples()
	if err != nil {
		return -1, err
	}
	top, err := hp.top(n)
	if err != nil {
		return -1, err
	}

	off := top - t.Len()
	if off < slotsetSize(n+1) {
		return -1, fmt.Errorf("%w: need %d bytes, have %d", ErrPageFull, t.Len()+SlotSize, top-slotsetSize(n))
	}

	copy(hp.Page.Buf[off:top], t)
	if err := writeUint32(hp.Page.Buf, slotOff(n), uint32(off)); err != nil {
		return -1, err
	}
	if err := hp.setNumTuples(n + 1); err != nil {
		return -1, err
	}
	return off, nil
}

// GetTuple returns a copy of the tuple in slot.
func (hp *HeapPage) GetTuple(slot int) (Tuple, error) {
	n, err := hp.NumTuples()
	if err != nil {
		return nil, err
	}
	if slot < 0 || slot >= n {
		return nil, fmt.Errorf("%w: %d (num_tuples=%d)", ErrInvalidSlot, slot, n)
	}

	start, err := hp.slot(slot)
	if err != nil {
		return nil, err
	}
	end, err := hp.tupleEnd(slot)
	if err != nil {
		return nil, err
	}
	if start < slotsetSize(n) || start >= end || end > len(hp.Page.Buf) {
		return nil, fmt.Errorf("%w: slot %d bounds [%d, %d)", ErrCorruptPage, slot, start, end)
	}

	out := make(Tuple, end-start)
	copy(out, hp.Page.Buf[start:end])
	return out, nil
}
