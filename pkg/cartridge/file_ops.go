package cartridge

import (
	"time"

	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
	"github.com/cartridgeio/cartridge/pkg/catalog"
	"github.com/cartridgeio/cartridge/pkg/page"
)

// readContentBlock returns the raw 4096-byte encoded block at id,
// consulting the ARC page cache before falling back to the backing
// file. A cache miss warms the cache; reads never mark a block dirty.
func (c *Cartridge) readContentBlock(id int64) ([]byte, error) {
	if buf, ok := c.cch.Get(id); ok {
		return buf, nil
	}
	buf, err := c.file.ReadBlock(id)
	if err != nil {
		return nil, err
	}
	c.cch.Put(id, buf)
	return buf, nil
}

// writeContentBlock writes the raw 4096-byte encoded block at id,
// updating the cache and marking it dirty for the next flush.
func (c *Cartridge) writeContentBlock(id int64, buf []byte) error {
	if err := c.file.WriteBlock(id, buf); err != nil {
		return err
	}
	c.cch.Put(id, buf)
	c.dirtyContent[id] = true
	return nil
}

// splitIntoBlocks partitions stored (already codec-processed) bytes into
// page.PayloadLen-sized chunks, one content page per chunk, the last one
// zero-padded.
func splitIntoBlocks(stored []byte) [][]byte {
	if len(stored) == 0 {
		return nil
	}
	n := (len(stored) + page.PayloadLen - 1) / page.PayloadLen
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		start := i * page.PayloadLen
		end := start + page.PayloadLen
		if end > len(stored) {
			end = len(stored)
		}
		chunk := make([]byte, page.PayloadLen)
		copy(chunk, stored[start:end])
		out[i] = chunk
	}
	return out
}

// writeFileLocked creates or replaces the file at path with plaintext
// data, running the codec pipeline, allocating blocks (growing the
// container if necessary), and recording catalog metadata. Callers must
// hold c.mu for writing.
func (c *Cartridge) writeFileLocked(path string, data []byte, typ catalog.FileType) error {
	res, err := c.cd.StoreBytes(data)
	if err != nil {
		return err
	}

	chunks := splitIntoBlocks(res.Stored)

	if err := c.growIfNeeded(int64(len(chunks))); err != nil {
		return err
	}

	ids, err := c.al.Allocate(int64(len(chunks)))
	if err != nil {
		return err
	}
	c.dirtyAlloc = true

	for i, id := range ids {
		p := &page.Page{Type: page.TypeContentData}
		copy(p.Payload[:], chunks[i])
		used := len(res.Stored) - i*page.PayloadLen
		if used > page.PayloadLen {
			used = page.PayloadLen
		}
		p.CompressedLen = uint32(used)
		page.SetDigest(p)
		if err := c.writeContentBlock(id, page.Encode(p)); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	createdAt := now
	if existing, err := c.cat.Get(path); err == nil {
		createdAt = existing.CreatedAt
	}

	meta := catalog.Metadata{
		Type:        typ,
		Size:        int64(len(data)),
		Blocks:      ids,
		CreatedAt:   createdAt,
		ModifiedAt:  now,
		Checksum:    sha256Hex(data),
		StoredCodec: byte(res.Codec),
		Encrypted:   res.Encrypted,
	}

	prev, err := c.cat.Insert(path, meta)
	if err != nil {
		c.freeBlocks(ids)
		return err
	}
	if prev != nil {
		c.freeBlocks(prev.Blocks)
	}
	c.dirtyCatalog = true
	c.hdr.Touch()
	return nil
}

func (c *Cartridge) freeBlocks(ids []int64) {
	if len(ids) == 0 {
		return
	}
	_ = c.al.Free(ids)
	c.dirtyAlloc = true
	for _, id := range ids {
		c.cch.Invalidate(id)
		delete(c.dirtyContent, id)
	}
}

// Write creates or replaces the file at path with data.
func (c *Cartridge) Write(path string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkPolicy("write", path); err != nil {
		c.audit("write", path, "denied")
		c.opts.Logger.Warnf("write %s denied by policy: %v", path, err)
		return err
	}
	if err := c.writeFileLocked(path, data, catalog.RegularFile); err != nil {
		c.audit("write", path, "error")
		c.opts.Logger.Errorf("write %s failed: %v", path, err)
		return err
	}
	c.audit("write", path, "ok")
	c.opts.Logger.Debugf("wrote %s (%d bytes)", path, len(data))
	return nil
}

// Read returns the exact plaintext bytes stored at path.
func (c *Cartridge) Read(path string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	meta, err := c.cat.Get(path)
	if err != nil {
		return nil, err
	}
	if meta.Type != catalog.RegularFile {
		return nil, cartridgeerr.NotFoundErr(path)
	}

	stored := make([]byte, 0, len(meta.Blocks)*page.PayloadLen)
	for _, id := range meta.Blocks {
		buf, err := c.readContentBlock(id)
		if err != nil {
			return nil, err
		}
		p, err := page.Decode(buf)
		if err != nil {
			return nil, err
		}
		stored = append(stored, p.Payload[:p.CompressedLen]...)
	}

	plaintext, err := c.cd.LoadBytes(stored, page.Codec(meta.StoredCodec), meta.Encrypted, meta.Size)
	if err != nil {
		return nil, err
	}

	if meta.Checksum != "" && sha256Hex(plaintext) != meta.Checksum {
		return nil, cartridgeerr.New(cartridgeerr.ChecksumMismatch, path)
	}

	return plaintext, nil
}

// Delete removes the file at path, freeing its blocks.
func (c *Cartridge) Delete(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkPolicy("delete", path); err != nil {
		c.audit("delete", path, "denied")
		c.opts.Logger.Warnf("delete %s denied by policy: %v", path, err)
		return err
	}

	meta, err := c.cat.Remove(path)
	if err != nil {
		c.audit("delete", path, "error")
		return err
	}
	c.freeBlocks(meta.Blocks)
	c.dirtyCatalog = true
	c.hdr.Touch()
	c.audit("delete", path, "ok")
	c.opts.Logger.Debugf("deleted %s", path)
	return nil
}

// Exists reports whether path has a catalog entry.
func (c *Cartridge) Exists(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cat.Exists(path)
}

// IsDir reports whether path is a directory, explicit or inferred.
func (c *Cartridge) IsDir(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cat.IsDir(path)
}

// Metadata returns a copy of the catalog metadata stored at path.
func (c *Cartridge) Metadata(path string) (catalog.Metadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cat.Get(path)
}
