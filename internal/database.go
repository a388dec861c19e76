package internal

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuannm99/novastore/internal/bufferpool"
	"github.com/tuannm99/novastore/internal/storage"
)

var ErrDatabaseClosed = errors.New("novastore: database is closed")

// Database wires a DiskManager and a BufferPoolManager from config.
type Database struct {
	DM   *storage.DiskManager
	Pool *bufferpool.BufferPoolManager

	logger *slog.Logger
	closed bool
}

func Open(cfg *StoreConfig, logger *slog.Logger) (*Database, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dm, err := storage.NewDiskManager(cfg.Storage.DBFile, storage.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	size := cfg.BufferPool.PoolSize
	if size <= 0 {
		size = bufferpool.DefaultPoolSize
	}
	repl, err := bufferpool.NewReplacer(cfg.BufferPool.Replacer, size)
	if err != nil {
		_ = dm.Close()
		return nil, err
	}

	pool, err := bufferpool.NewBufferPoolManager(size, dm,
		bufferpool.WithReplacer(repl),
		bufferpool.WithLogger(logger),
	)
	if err != nil {
		_ = dm.Close()
		return nil, err
	}

	logger.Info("database opened",
		"db_file", cfg.Storage.DBFile,
		"pool_size", size,
		"replacer", cfg.BufferPool.Replacer,
	)
	return &Database{DM: dm, Pool: pool, logger: logger}, nil
}

// Close writes back dirty pages and closes the file. Pages only read are
// left alone, so read-only sessions never grow the file.
func (db *Database) Close() error {
	if db.closed {
		return ErrDatabaseClosed
	}
	db.closed = true

	flushErr := db.Pool.FlushDirtyPages()
	if flushErr != nil {
		db.logger.Error("flush on close failed", "err", flushErr)
	}
	if err := db.DM.Close(); err != nil {
		return errors.Join(flushErr, err)
	}
	return flushErr
}

// Drop removes the backing file without flushing.
func (db *Database) Drop() error {
	db.closed = true
	if err := db.DM.DeleteDatabase(); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}
	db.logger.Info("database dropped", "db_file", db.DM.Path())
	return nil
}
