// Command pagedump creates, fills and inspects slotted pages in a novastore
// database file.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/zeebo/blake3"

	"github.com/tuannm99/novastore/internal"
	"github.com/tuannm99/novastore/internal/heap"
	"github.com/tuannm99/novastore/internal/storage"
)

const version = "0.1.0"

// Globals are shared by every command.
type Globals struct {
	Config   string `name:"config" short:"c" help:"YAML config file" type:"path"`
	DB       string `name:"db" help:"Database file (overrides storage.db_file)" type:"path"`
	PoolSize int    `name:"pool-size" help:"Buffer pool frames (overrides bufferpool.pool_size)"`
}

var CLI struct {
	Globals

	New     NewCmd     `cmd:"" help:"Allocate an empty slotted page"`
	Insert  InsertCmd  `cmd:"" help:"Insert tuples into a page"`
	Scan    ScanCmd    `cmd:"" help:"Print every tuple of a page"`
	Inspect InspectCmd `cmd:"" help:"Dump header, slots and a BLAKE3 digest of a page"`
	Drop    DropCmd    `cmd:"" help:"Delete the database file"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

func (g *Globals) open() (*internal.Database, error) {
	cfg, err := internal.LoadConfig(g.Config)
	if err != nil {
		return nil, err
	}
	if g.DB != "" {
		cfg.Storage.DBFile = g.DB
	}
	if g.PoolSize > 0 {
		cfg.BufferPool.PoolSize = g.PoolSize
	}
	return internal.Open(cfg, cfg.NewLogger(os.Stderr))
}

// withPage pins pageID for the duration of fn and closes the database after.
func (g *Globals) withPage(pageID int32, dirty bool, fn func(*heap.HeapPage) error) (err error) {
	db, err := g.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	id := storage.PageID(pageID)
	page, err := db.Pool.FetchPage(id)
	if err != nil {
		return err
	}
	ferr := fn(heap.NewHeapPage(page))
	if err := db.Pool.UnpinPage(id, dirty && ferr == nil); err != nil {
		return err
	}
	return ferr
}

type NewCmd struct{}

func (c *NewCmd) Run(g *Globals) (err error) {
	db, err := g.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	page, err := db.Pool.NewPage()
	if err != nil {
		return err
	}
	if err := heap.NewHeapPage(page).Init(); err != nil {
		_ = db.Pool.UnpinPage(page.ID(), false)
		return err
	}
	if err := db.Pool.UnpinPage(page.ID(), true); err != nil {
		return err
	}
	fmt.Printf("page %d\n", page.ID())
	return nil
}

type InsertCmd struct {
	Page   int32    `arg:"" help:"Page id"`
	Tuples []string `arg:"" help:"Tuples to insert"`
	Hex    bool     `name:"hex" help:"Tuples are hex encoded"`
}

func (c *InsertCmd) Run(g *Globals) error {
	tuples := make([]heap.Tuple, 0, len(c.Tuples))
	for _, s := range c.Tuples {
		if !c.Hex {
			tuples = append(tuples, heap.Tuple(s))
			continue
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return fmt.Errorf("decode tuple %q: %w", s, err)
		}
		tuples = append(tuples, heap.Tuple(b))
	}

	return g.withPage(c.Page, true, func(hp *heap.HeapPage) error {
		for _, t := range tuples {
			off, err := hp.InsertTuple(t)
			if err != nil {
				return err
			}
			fmt.Printf("inserted len=%d offset=%d\n", t.Len(), off)
		}
		return nil
	})
}

type ScanCmd struct {
	Page int32 `arg:"" help:"Page id"`
}

func (c *ScanCmd) Run(g *Globals) error {
	return g.withPage(c.Page, false, func(hp *heap.HeapPage) error {
		it := heap.NewIterator(hp)
		for it.Next() {
			fmt.Printf("%d\t%s\n", it.Slot(), hex.EncodeToString(it.Tuple()))
		}
		return it.Err()
	})
}

type InspectCmd struct {
	Page int32 `arg:"" help:"Page id"`
}

func (c *InspectCmd) Run(g *Globals) error {
	return g.withPage(c.Page, false, func(hp *heap.HeapPage) error {
		if err := hp.Debug(os.Stdout); err != nil {
			return err
		}
		sum := blake3.Sum256(hp.Page.Buf)
		fmt.Printf("blake3=%s\n", hex.EncodeToString(sum[:]))
		return nil
	})
}

type DropCmd struct{}

func (c *DropCmd) Run(g *Globals) error {
	db, err := g.open()
	if err != nil {
		return err
	}
	return db.Drop()
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("pagedump version %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("pagedump"),
		kong.Description("Inspect and edit slotted pages of a novastore database file"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(&CLI.Globals)
	ctx.FatalIfErrorf(err)
}
