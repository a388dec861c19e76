package heap

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novastore/internal/bufferpool"
	"github.com/tuannm99/novastore/internal/storage"
)

var (
	slot1Data = Tuple("data string of slot 1")
	slot2Data = Tuple("data string of slot 2, a little longer")
	slot3Data = Tuple{0x00, 0x01, 0xfe, 0xff}
)

func newTestHeapPage(t *testing.T) *HeapPage {
	t.Helper()
	return NewHeapPage(storage.NewPage())
}

func TestHeapPage_InsertOffsetsDecrease(t *testing.T) {
	hp := newTestHeapPage(t)

	off, err := hp.InsertTuple(Tuple{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	require.NoError(t, err)
	assert.Equal(t, storage.PageSize-10, off)

	off, err = hp.InsertTuple(Tuple{11, 12, 13})
	require.NoError(t, err)
	assert.Equal(t, storage.PageSize-10-3, off)

	off, err = hp.InsertTuple(make(Tuple, 100))
	require.NoError(t, err)
	assert.Equal(t, storage.PageSize-10-3-100, off)

	n, err := hp.NumTuples()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	free, err := hp.FreeSpace()
	require.NoError(t, err)
	assert.Equal(t, storage.PageSize-113-HeaderSize-3*SlotSize, free)
}

func TestHeapPage_ByteLayout(t *testing.T) {
	hp := newTestHeapPage(t)
	require.NoError(t, hp.Init())

	_, err := hp.InsertTuple(Tuple("abc"))
	require.NoError(t, err)
	_, err = hp.InsertTuple(Tuple("de"))
	require.NoError(t, err)

	buf := hp.Page.Buf
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, buf[0:4])
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(buf[4:8]))
	assert.Equal(t, uint32(storage.PageSize-3), binary.BigEndian.Uint32(buf[8:12]))
	assert.Equal(t, uint32(storage.PageSize-5), binary.BigEndian.Uint32(buf[12:16]))
	assert.Equal(t, []byte("deabc"), buf[storage.PageSize-5:])
}

func TestHeapPage_GetTuple_VariableLength(t *testing.T) {
	hp := newTestHeapPage(t)

	for _, tup := range []Tuple{slot1Data, slot2Data, slot3Data} {
		_, err := hp.InsertTuple(tup)
		require.NoError(t, err)
	}

	for i, want := range []Tuple{slot1Data, slot2Data, slot3Data} {
		got, err := hp.GetTuple(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := hp.GetTuple(3)
	require.ErrorIs(t, err, ErrInvalidSlot)
	_, err = hp.GetTuple(-1)
	require.ErrorIs(t, err, ErrInvalidSlot)
}

func TestHeapPage_GetTupleReturnsCopy(t *testing.T) {
	hp := newTestHeapPage(t)
	_, err := hp.InsertTuple(Tuple("immutable"))
	require.NoError(t, err)

	got, err := hp.GetTuple(0)
	require.NoError(t, err)
	got[0] = 'X'

	again, err := hp.GetTuple(0)
	require.NoError(t, err)
	assert.Equal(t, Tuple("immutable"), again)
}

func TestHeapPage_FailsWhenPageIsFull(t *testing.T) {
	hp := newTestHeapPage(t)
	tup := bytes.Repeat([]byte{1}, 1024)

	for range 3 {
		_, err := hp.InsertTuple(tup)
		require.NoError(t, err)
	}

	before := bytes.Clone(hp.Page.Buf)
	_, err := hp.InsertTuple(tup)
	require.ErrorIs(t, err, ErrPageFull)

	// nothing changed: count, prior tuples, every byte
	n, err := hp.NumTuples()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, before, hp.Page.Buf)
	for i := range 3 {
		got, err := hp.GetTuple(i)
		require.NoError(t, err)
		assert.Equal(t, Tuple(tup), got)
	}
}

func TestHeapPage_ExactFit(t *testing.T) {
	hp := newTestHeapPage(t)

	// one slot + header leaves exactly this much room
	room := storage.PageSize - HeaderSize - SlotSize
	off, err := hp.InsertTuple(make(Tuple, room))
	require.NoError(t, err)
	assert.Equal(t, HeaderSize+SlotSize, off)

	free, err := hp.FreeSpace()
	require.NoError(t, err)
	assert.Equal(t, 0, free)

	_, err = hp.InsertTuple(Tuple{1})
	require.ErrorIs(t, err, ErrPageFull)

	hp2 := newTestHeapPage(t)
	_, err = hp2.InsertTuple(make(Tuple, room+1))
	require.ErrorIs(t, err, ErrPageFull)
}

func TestHeapPage_EmptyTupleRejected(t *testing.T) {
	hp := newTestHeapPage(t)
	_, err := hp.InsertTuple(nil)
	require.ErrorIs(t, err, ErrEmptyTuple)

	n, err := hp.NumTuples()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestHeapPage_NextPageID(t *testing.T) {
	hp := newTestHeapPage(t)

	// zeroed page
	id, err := hp.NextPageID()
	require.NoError(t, err)
	assert.Equal(t, storage.PageID(0), id)

	require.NoError(t, hp.Init())
	id, err = hp.NextPageID()
	require.NoError(t, err)
	assert.Equal(t, storage.InvalidPageID, id)

	require.NoError(t, hp.SetNextPageID(17))
	id, err = hp.NextPageID()
	require.NoError(t, err)
	assert.Equal(t, storage.PageID(17), id)
}

func TestHeapPage_CorruptHeader(t *testing.T) {
	hp := newTestHeapPage(t)

	binary.BigEndian.PutUint32(hp.Page.Buf[4:8], 5000)
	_, err := hp.NumTuples()
	require.ErrorIs(t, err, ErrCorruptPage)
	_, err = hp.InsertTuple(Tuple("x"))
	require.ErrorIs(t, err, ErrCorruptPage)

	// negative count
	binary.BigEndian.PutUint32(hp.Page.Buf[4:8], 0xffffffff)
	_, err = hp.GetTuple(0)
	require.ErrorIs(t, err, ErrCorruptPage)

	// slot pointing into the slot array
	hp = newTestHeapPage(t)
	binary.BigEndian.PutUint32(hp.Page.Buf[4:8], 1)
	binary.BigEndian.PutUint32(hp.Page.Buf[8:12], 4)
	_, err = hp.GetTuple(0)
	require.ErrorIs(t, err, ErrCorruptPage)
	_, err = hp.InsertTuple(Tuple("x"))
	require.ErrorIs(t, err, ErrCorruptPage)
}

func TestHeapPage_ViewAliasesPage(t *testing.T) {
	page := storage.NewPage()
	a := NewHeapPage(page)
	b := NewHeapPage(page)

	_, err := a.InsertTuple(Tuple("shared"))
	require.NoError(t, err)

	got, err := b.GetTuple(0)
	require.NoError(t, err)
	assert.Equal(t, Tuple("shared"), got)
}

func TestHeapPage_DebugString(t *testing.T) {
	hp := newTestHeapPage(t)
	require.NoError(t, hp.Init())
	_, err := hp.InsertTuple(slot1Data)
	require.NoError(t, err)
	_, err = hp.InsertTuple(slot3Data)
	require.NoError(t, err)

	s := hp.DebugString()
	assert.Contains(t, s, "num_tuples=2")
	assert.Contains(t, s, "next_page_id=-1")
	assert.Contains(t, s, "data string of slot 1")
	assert.Contains(t, s, "0001feff")
}

func TestHeapPage_DebugStringReportsCorruptSlots(t *testing.T) {
	hp := newTestHeapPage(t)
	require.NoError(t, hp.Init())
	_, err := hp.InsertTuple(slot1Data)
	require.NoError(t, err)
	_, err = hp.InsertTuple(slot3Data)
	require.NoError(t, err)

	// slot 0 points past the end of the page
	binary.BigEndian.PutUint32(hp.Page.Buf[HeaderSize:], 0xffff)

	s := hp.DebugString()
	assert.Contains(t, s, "num_tuples=2")
	assert.Contains(t, s, "[0] off=65535 <error:")
	assert.Contains(t, s, "[1] off=")
	assert.Contains(t, s, ErrCorruptPage.Error())
	assert.Contains(t, s, "=== End Page Debug ===")
	assert.NotContains(t, s, "data string of slot 1")
}

// Tuples written through the buffer pool survive eviction and come back
// through a fresh view.
func TestHeapPage_ThroughBufferPool(t *testing.T) {
	dm, err := storage.NewDiskManager(filepath.Join(t.TempDir(), "heap.db"))
	require.NoError(t, err)
	defer func() { _ = dm.Close() }()

	bpm, err := bufferpool.NewBufferPoolManager(1, dm)
	require.NoError(t, err)

	page, err := bpm.NewPage()
	require.NoError(t, err)
	hp := NewHeapPage(page)
	require.NoError(t, hp.Init())
	for _, tup := range []Tuple{slot1Data, slot2Data, slot3Data} {
		_, err := hp.InsertTuple(tup)
		require.NoError(t, err)
	}
	pageID := page.ID()
	require.NoError(t, bpm.UnpinPage(pageID, true))

	// evict it
	other, err := bpm.NewPage()
	require.NoError(t, err)
	require.NoError(t, bpm.UnpinPage(other.ID(), false))

	page, err = bpm.FetchPage(pageID)
	require.NoError(t, err)
	defer func() { _ = bpm.UnpinPage(pageID, false) }()

	var got []Tuple
	for _, tup := range NewHeapPage(page).All() {
		got = append(got, tup)
	}
	assert.Equal(t, []Tuple{slot1Data, slot2Data, slot3Data}, got)
}
