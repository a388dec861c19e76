package storage

import (
	"errors"
)

const PageSize = 1 << 12 // 4,096 (4 KiB)

const (
	FileMode0644 = 0o644
	FileMode0755 = 0o755
)

// PageID is the logical identity of a page. Page p lives at byte offset
// p*PageSize in the backing file.
type PageID int32

// InvalidPageID marks "no page", e.g. the end of a page chain.
const InvalidPageID PageID = -1

// FrameID indexes the buffer pool's frame array. It is never persisted.
type FrameID int

// Offset returns the byte offset of the page in the backing file.
func (id PageID) Offset() int64 {
	return int64(id) * PageSize
}

func (id PageID) Valid() bool {
	return id >= 0
}

var (
	ErrIO            = errors.New("storage: I/O error")
	ErrWrongSize     = errors.New("storage: buffer size != PageSize")
	ErrInvalidPageID = errors.New("storage: invalid page id")
	ErrClosed        = errors.New("storage: disk manager is closed")
)
