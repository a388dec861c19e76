package heap

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIterator_EmptyPage(t *testing.T) {
	it := NewIterator(newTestHeapPage(t))
	require.False(t, it.Next())
	require.NoError(t, it.Err())
	assert.Nil(t, it.Tuple())
}

func TestIterator_YieldsSlotOrder(t *testing.T) {
	hp := newTestHeapPage(t)
	var want []Tuple
	for i := range 5 {
		tup := Tuple(fmt.Sprintf("tuple-%d-%s", i, string(make([]byte, i))))
		_, err := hp.InsertTuple(tup)
		require.NoError(t, err)
		want = append(want, tup)
	}

	it := NewIterator(hp)
	var got []Tuple
	for it.Next() {
		assert.Equal(t, len(got), it.Slot())
		got = append(got, it.Tuple())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, want, got)

	// exhausted stays exhausted until Reset
	require.False(t, it.Next())
	it.Reset()
	require.True(t, it.Next())
	assert.Equal(t, want[0], it.Tuple())
}

func TestIterator_DoesNotMutatePage(t *testing.T) {
	hp := newTestHeapPage(t)
	_, err := hp.InsertTuple(Tuple("one"))
	require.NoError(t, err)
	_, err = hp.InsertTuple(Tuple("two"))
	require.NoError(t, err)

	before := append([]byte(nil), hp.Page.Buf...)
	for range hp.All() {
	}
	assert.Equal(t, before, hp.Page.Buf)
}

func TestIterator_SeesTuplesInsertedLater(t *testing.T) {
	hp := newTestHeapPage(t)
	_, err := hp.InsertTuple(Tuple("first"))
	require.NoError(t, err)

	it := NewIterator(hp)
	require.True(t, it.Next())

	_, err = hp.InsertTuple(Tuple("second"))
	require.NoError(t, err)
	require.True(t, it.Next())
	assert.Equal(t, Tuple("second"), it.Tuple())
	require.False(t, it.Next())
}

func TestIterator_StopsOnCorruption(t *testing.T) {
	hp := newTestHeapPage(t)
	_, err := hp.InsertTuple(Tuple("ok"))
	require.NoError(t, err)
	_, err = hp.InsertTuple(Tuple("bad"))
	require.NoError(t, err)

	// slot 1 now claims to start above slot 0
	binary.BigEndian.PutUint32(hp.Page.Buf[12:16], 4095)

	it := NewIterator(hp)
	require.True(t, it.Next())
	require.False(t, it.Next())
	require.ErrorIs(t, it.Err(), ErrCorruptPage)

	var seen int
	for range hp.All() {
		seen++
	}
	assert.Equal(t, 1, seen)
}

func TestHeapPage_All_EarlyBreak(t *testing.T) {
	hp := newTestHeapPage(t)
	for _, s := range []string{"a", "b", "c"} {
		_, err := hp.InsertTuple(Tuple(s))
		require.NoError(t, err)
	}

	var slots []int
	for slot := range hp.All() {
		slots = append(slots, slot)
		if slot == 1 {
			break
		}
	}
	assert.Equal(t, []int{0, 1}, slots)
}
