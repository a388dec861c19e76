package bufferpool

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/tuannm99/novastore/internal/storage"
)

var (
	DefaultPoolSize = 128

	ErrBufferFull      = errors.New("bufferpool: no free frame available (all pinned)")
	ErrPagePinned      = errors.New("bufferpool: page is pinned")
	ErrInvalidUnpin    = errors.New("bufferpool: unpin of page with pin count 0")
	ErrPageNotResident = errors.New("bufferpool: page is not resident")
	ErrPageIDExhausted = errors.New("bufferpool: page id space exhausted")
)

// DiskManager is the slice of storage.DiskManager the pool needs.
type DiskManager interface {
	ReadPage(pageID storage.PageID, dst []byte) error
	WritePage(pageID storage.PageID, src []byte) error
	NumPages() (storage.PageID, error)
}

var _ DiskManager = (*storage.DiskManager)(nil)

type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Flushes   uint64
}

// BufferPoolManager caches a fixed number of pages over a DiskManager.
//
// frames is an arena allocated once; a frame's logical identity lives in
// pageTable. Every frame is either in freeList or mapped by pageTable, never
// both. Dirty frames are written back only on eviction or explicit flush.
type BufferPoolManager struct {
	dm     DiskManager
	logger *slog.Logger

	mu         sync.Mutex
	frames     []*storage.Page
	pageTable  map[storage.PageID]storage.FrameID
	freeList   []storage.FrameID
	replacer   Replacer
	nextPageID storage.PageID
	stats      Stats
}

type Option func(*BufferPoolManager)

func WithReplacer(r Replacer) Option {
	return func(b *BufferPoolManager) {
		if r != nil {
			b.replacer = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *BufferPoolManager) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBufferPoolManager builds a pool of poolSize frames. Page ids continue
// after the last page already present in the file.
func NewBufferPoolManager(poolSize int, dm DiskManager, opts ...Option) (*BufferPoolManager, error) {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}

	next, err := dm.NumPages()
	if err != nil {
		return nil, err
	}

	b := &BufferPoolManager{
		dm:         dm,
		logger:     slog.Default(),
		frames:     make([]*storage.Page, poolSize),
		pageTable:  make(map[storage.PageID]storage.FrameID, poolSize),
		freeList:   make([]storage.FrameID, 0, poolSize),
		nextPageID: next,
	}
	for i := range b.frames {
		b.frames[i] = storage.NewPage()
		b.freeList = append(b.freeList, storage.FrameID(i))
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.replacer == nil {
		b.replacer = newLRUAdapter(poolSize)
	}
	return b, nil
}

func (b *BufferPoolManager) PoolSize() int {
	return len(b.frames)
}

func (b *BufferPoolManager) FreeFrames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.freeList)
}

func (b *BufferPoolManager) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// NewPage allocates the next page id and pins a zeroed frame for it.
func (b *BufferPoolManager) NewPage() (*storage.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// MaxInt32 is never handed out so the counter cannot wrap negative
	if b.nextPageID < 0 || b.nextPageID == math.MaxInt32 {
		return nil, ErrPageIDExhausted
	}

	fid, err := b.acquireFrame()
	if err != nil {
		return nil, err
	}

	pageID := b.nextPageID
	b.nextPageID++

	page := b.frames[fid]
	page.Reset(pageID)
	b.pageTable[pageID] = fid

	b.logger.Debug("page allocated", "page_id", pageID, "frame_id", fid)
	return page, nil
}

// FetchPage pins pageID, loading it from disk on a miss.
func (b *BufferPoolManager) FetchPage(pageID storage.PageID) (*storage.Page, error) {
	if !pageID.Valid() {
		return nil, fmt.Errorf("%w: %d", storage.ErrInvalidPageID, pageID)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// 1) HIT
	if fid, ok := b.pageTable[pageID]; ok {
		page := b.frames[fid]
		if page.PinCount() == 0 {
			b.replacer.SetEvictable(fid, false)
		}
		page.Pin()
		b.stats.Hits++
		return page, nil
	}

	// 2) MISS
	b.stats.Misses++
	fid, err := b.acquireFrame()
	if err != nil {
		return nil, err
	}

	page := b.frames[fid]
	page.Reset(pageID)
	if err := b.dm.ReadPage(pageID, page.Buf); err != nil {
		page.Release()
		b.freeList = append(b.freeList, fid)
		return nil, fmt.Errorf("bufferpool: load page %d: %w", pageID, err)
	}
	b.pageTable[pageID] = fid

	// a page fetched past the allocation point must never be handed out again
	switch {
	case pageID == math.MaxInt32:
		b.nextPageID = math.MaxInt32
	case pageID >= b.nextPageID:
		b.nextPageID = pageID + 1
	}
	return page, nil
}

// UnpinPage drops one pin. isDirty only ever sets the dirty flag.
func (b *BufferPoolManager) UnpinPage(pageID storage.PageID, isDirty bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fid, ok := b.pageTable[pageID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrPageNotResident, pageID)
	}

	page := b.frames[fid]
	if !page.Unpin() {
		return fmt.Errorf("%w: page %d", ErrInvalidUnpin, pageID)
	}
	if isDirty {
		page.MarkDirty()
	}
	if page.PinCount() == 0 {
		b.replacer.RecordAccess(fid)
		b.replacer.SetEvictable(fid, true)
	}
	return nil
}

// FlushPage writes the resident page to disk regardless of its dirty flag.
func (b *BufferPoolManager) FlushPage(pageID storage.PageID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fid, ok := b.pageTable[pageID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrPageNotResident, pageID)
	}
	return b.flushFrame(fid)
}

func (b *BufferPoolManager) FlushAllPages() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, page := range b.frames {
		if page.ID() == storage.InvalidPageID {
			continue
		}
		if err := b.flushFrame(storage.FrameID(i)); err != nil {
			return err
		}
	}
	return nil
}

// FlushDirtyPages writes back only frames marked dirty.
func (b *BufferPoolManager) FlushDirtyPages() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, page := range b.frames {
		if page.ID() == storage.InvalidPageID || !page.IsDirty() {
			continue
		}
		if err := b.flushFrame(storage.FrameID(i)); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage drops pageID from the pool without writing it back.
// Deleting a page that is not resident is a no-op.
func (b *BufferPoolManager) DeletePage(pageID storage.PageID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fid, ok := b.pageTable[pageID]
	if !ok {
		return nil
	}

	page := b.frames[fid]
	if page.PinCount() != 0 {
		return fmt.Errorf("%w: page %d (pin=%d)", ErrPagePinned, pageID, page.PinCount())
	}

	delete(b.pageTable, pageID)
	b.replacer.Remove(fid)
	page.Release()
	b.freeList = append(b.freeList, fid)

	b.logger.Debug("page deleted", "page_id", pageID, "frame_id", fid)
	return nil
}

// flushFrame must be called with mu held.
func (b *BufferPoolManager) flushFrame(fid storage.FrameID) error {
	page := b.frames[fid]
	if err := b.dm.WritePage(page.ID(), page.Buf); err != nil {
		return fmt.Errorf("bufferpool: flush page %d: %w", page.ID(), err)
	}
	page.MarkClean()
	b.stats.Flushes++
	return nil
}

// acquireFrame returns an unmapped frame, evicting a victim if the free
// list is empty. Must be called with mu held.
func (b *BufferPoolManager) acquireFrame() (storage.FrameID, error) {
	if len(b.freeList) > 0 {
		fid := b.freeList[0]
		b.freeList = b.freeList[1:]
		return fid, nil
	}

	fid, ok := b.replacer.Evict()
	if !ok {
		return -1, ErrBufferFull
	}

	victim := b.frames[fid]
	if victim.IsDirty() {
		if err := b.flushFrame(fid); err != nil {
			// put victim back as evictable, still dirty
			b.replacer.RecordAccess(fid)
			b.replacer.SetEvictable(fid, true)
			b.logger.Warn("evict: write back failed", "page_id", victim.ID(), "err", err)
			return -1, err
		}
	}

	b.logger.Debug("page evicted", "page_id", victim.ID(), "frame_id", fid)
	delete(b.pageTable, victim.ID())
	victim.Release()
	b.stats.Evictions++
	return fid, nil
}
