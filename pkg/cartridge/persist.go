package cartridge

import (
	"fmt"

	"github.com/cartridgeio/cartridge/pkg/alloc"
	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
	"github.com/cartridgeio/cartridge/pkg/catalog"
	"github.com/cartridgeio/cartridge/pkg/header"
	"github.com/cartridgeio/cartridge/pkg/page"
	"github.com/cartridgeio/cartridge/pkg/storage"
)

// encodeInternalPayload compresses raw with the container's fixed
// internal codec (LZ4, never encrypted) and wraps it in a page of the
// given type. Used for the catalog and allocator-state pages, which
// compress independently of the user's configured file codec per
// spec's note that page 1 uses "a compact binary encoding after LZ4".
func (c *Cartridge) encodeInternalPayload(typ page.Type, raw []byte) (*page.Page, error) {
	res, err := c.icd.StoreBytes(raw)
	if err != nil {
		return nil, err
	}
	if len(res.Stored) > page.PayloadLen {
		kind := cartridgeerr.CatalogFull
		if typ == page.TypeAllocatorState {
			kind = cartridgeerr.AllocatorDesync
		}
		return nil, cartridgeerr.Wrap(kind, "", fmt.Errorf("encoded page %d payload %d bytes exceeds %d byte capacity", typ, len(res.Stored), page.PayloadLen))
	}

	p := &page.Page{
		Type:            typ,
		CodecTag:        res.Codec,
		Encrypted:       res.Encrypted,
		UncompressedLen: uint32(res.LogicalLen),
		CompressedLen:   uint32(len(res.Stored)),
	}
	copy(p.Payload[:], res.Stored)
	return p, nil
}

func (c *Cartridge) decodeInternalPayload(p *page.Page) ([]byte, error) {
	stored := p.Payload[:p.CompressedLen]
	return c.icd.LoadBytes(stored, p.CodecTag, p.Encrypted, int64(p.UncompressedLen))
}

func (c *Cartridge) readPage(id int64) (*page.Page, error) {
	buf, err := c.file.ReadBlock(id)
	if err != nil {
		return nil, err
	}
	return page.Decode(buf)
}

func (c *Cartridge) writePage(id int64, p *page.Page) error {
	page.SetDigest(p)
	return c.file.WriteBlock(id, page.Encode(p))
}

func (c *Cartridge) loadCatalog() (*catalog.Catalog, error) {
	p, err := c.readPage(int64(header.CatalogRootBlockID))
	if err != nil {
		return nil, err
	}
	raw, err := c.decodeInternalPayload(p)
	if err != nil {
		return nil, err
	}
	return catalog.Unmarshal(raw)
}

func (c *Cartridge) loadAllocator() (*alloc.Allocator, error) {
	p, err := c.readPage(int64(header.AllocatorBlockID))
	if err != nil {
		return nil, err
	}
	raw, err := c.decodeInternalPayload(p)
	if err != nil {
		return nil, err
	}
	return alloc.Unmarshal(raw)
}

func (c *Cartridge) persistHeader() error {
	buf := header.Encode(c.hdr)
	return c.file.WriteBlock(0, buf)
}

func (c *Cartridge) persistCatalog() error {
	raw, err := c.cat.Marshal()
	if err != nil {
		return err
	}
	p, err := c.encodeInternalPayload(page.TypeCatalogRoot, raw)
	if err != nil {
		return err
	}
	return c.writePage(int64(header.CatalogRootBlockID), p)
}

func (c *Cartridge) persistAllocator() error {
	raw, err := c.al.Marshal()
	if err != nil {
		return err
	}
	p, err := c.encodeInternalPayload(page.TypeAllocatorState, raw)
	if err != nil {
		return err
	}
	return c.writePage(int64(header.AllocatorBlockID), p)
}

// flushLocked writes the header page, then the catalog and allocator
// pages if they are dirty, clears the dirty content set, and fsyncs.
// It writes no content pages itself: writeContentBlock has already
// written each one to the backing file, so flush only makes them
// durable through the final fsync. Callers must hold c.mu for writing.
func (c *Cartridge) flushLocked() error {
	c.hdr.TotalBlocks = uint64(c.al.TotalBlocks())
	c.hdr.FreeBlocks = uint64(c.al.FreeCount())
	if err := c.persistHeader(); err != nil {
		return err
	}

	if c.dirtyCatalog {
		if err := c.persistCatalog(); err != nil {
			return err
		}
		c.dirtyCatalog = false
	}

	if c.dirtyAlloc {
		if err := c.persistAllocator(); err != nil {
			return err
		}
		c.dirtyAlloc = false
	}

	for id := range c.dirtyContent {
		delete(c.dirtyContent, id)
	}

	return c.file.Sync()
}

// Flush writes all dirty state to the backing file and fsyncs.
func (c *Cartridge) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

// Close flushes and releases the backing file handle. The Cartridge must
// not be used after Close returns.
func (c *Cartridge) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.flushLocked(); err != nil {
		_ = c.file.Close()
		return err
	}
	return c.file.Close()
}

// growIfNeeded ensures the allocator can satisfy an additional `needed`
// blocks, doubling the backing file and the allocator's controlled range
// as many times as required. It also grows early when the free-block
// ratio has already dropped below GrowthThresholdPercent, per spec's
// growth policy, rather than waiting for an allocation to fail outright.
// Callers must hold c.mu for writing.
func (c *Cartridge) growIfNeeded(needed int64) error {
	total := c.al.TotalBlocks()
	free := c.al.FreeCount()

	target := needed
	if storage.ShouldGrow(total, free, c.hdr.GrowthThresholdPercent) {
		if deficit := total*int64(c.hdr.GrowthThresholdPercent)/100 - free + 1; deficit > target {
			target = deficit
		}
	}
	if free >= target {
		return nil
	}

	plan, err := storage.PlanGrowth(total, free, target, c.opts.MaxBlocks)
	if err != nil {
		return err
	}
	if plan.Doublings == 0 {
		return nil
	}
	if err := c.file.Truncate(plan.NewTotalBlocks); err != nil {
		return err
	}
	c.al.Extend(plan.NewTotalBlocks)
	c.hdr.GrowthCount += uint64(plan.Doublings)
	c.dirtyAlloc = true
	c.opts.Logger.Infof("grew container %s to %d blocks (%d doubling(s))", c.path, plan.NewTotalBlocks, plan.Doublings)
	return nil
}
