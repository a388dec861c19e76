package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// DiskManager does page-addressed positional I/O on a single database file.
// Page p occupies [p*PageSize, (p+1)*PageSize). All reads and writes use
// ReadAt/WriteAt, so callers working on different pages never share a cursor.
type DiskManager struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex // guards file against Close
	file   *os.File
	closed bool
}

type Option func(*DiskManager)

func WithLogger(l *slog.Logger) Option {
	return func(dm *DiskManager) {
		if l != nil {
			dm.logger = l
		}
	}
}

// NewDiskManager opens (or creates) the database file at path.
func NewDiskManager(path string, opts ...Option) (*DiskManager, error) {
	dm := &DiskManager{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(dm)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, FileMode0755); err != nil {
			return nil, fmt.Errorf("%w: create dir %s: %w", ErrIO, dir, err)
		}
	}
	// RDWR | CREATE (no truncate)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, FileMode0644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	dm.file = f

	dm.logger.Debug("disk manager opened", "path", path)
	return dm, nil
}

func (dm *DiskManager) Path() string {
	return dm.path
}

// WritePage writes src verbatim at the page's offset and syncs the file
// before returning. Writing past EOF extends the file; the OS zero-fills
// any gap.
func (dm *DiskManager) WritePage(pageID PageID, src []byte) error {
	if len(src) != PageSize {
		return fmt.Errorf("%w: got %d bytes", ErrWrongSize, len(src))
	}
	if !pageID.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPageID, pageID)
	}

	dm.mu.RLock()
	defer dm.mu.RUnlock()
	if dm.closed {
		return ErrClosed
	}

	off := pageID.Offset()
	n, err := dm.file.WriteAt(src, off)
	if err != nil {
		return fmt.Errorf("%w: write page %d: %w", ErrIO, pageID, err)
	}
	if n != PageSize {
		return fmt.Errorf("%w: write page %d: %w", ErrIO, pageID, io.ErrShortWrite)
	}
	if err := dm.file.Sync(); err != nil {
		return fmt.Errorf("%w: sync page %d: %w", ErrIO, pageID, err)
	}

	dm.logger.Debug("page written", "page_id", pageID, "offset", off)
	return nil
}

// ReadPage reads exactly one page into dst. If the file is shorter than the
// requested range (never-written page, or past EOF) the remainder is
// zero-filled, so new pages always read as zeros.
func (dm *DiskManager) ReadPage(pageID PageID, dst []byte) error {
	if len(dst) != PageSize {
		return fmt.Errorf("%w: got %d bytes", ErrWrongSize, len(dst))
	}
	if !pageID.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPageID, pageID)
	}

	dm.mu.RLock()
	defer dm.mu.RUnlock()
	if dm.closed {
		return ErrClosed
	}

	off := pageID.Offset()
	n, err := dm.file.ReadAt(dst, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: read page %d: %w", ErrIO, pageID, err)
	}
	clear(dst[n:])

	dm.logger.Debug("page read", "page_id", pageID, "offset", off, "bytes", n)
	return nil
}

// NumPages returns how many pages the file currently spans. A trailing
// partial page counts as a page.
func (dm *DiskManager) NumPages() (PageID, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	if dm.closed {
		return 0, ErrClosed
	}

	info, err := dm.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat %s: %w", ErrIO, dm.path, err)
	}
	return PageID((info.Size() + PageSize - 1) / PageSize), nil
}

func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.closed {
		return nil
	}
	dm.closed = true
	if err := dm.file.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, dm.path, err)
	}
	return nil
}

// DeleteDatabase closes the file and removes it from disk. Teardown only.
func (dm *DiskManager) DeleteDatabase() error {
	if err := dm.Close(); err != nil {
		return err
	}
	if err := os.Remove(dm.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %w", ErrIO, dm.path, err)
	}
	dm.logger.Debug("database deleted", "path", dm.path)
	return nil
}
