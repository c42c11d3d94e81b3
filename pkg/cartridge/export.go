package cartridge

import (
	"os"

	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
)

// ExportTo flushes all dirty state and streams a byte-exact copy of the
// backing file to destPath, used by internal/snapshot to take whole-file
// snapshots. destPath must not already exist.
func (c *Cartridge) ExportTo(destPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.flushLocked(); err != nil {
		return err
	}

	dst, err := os.OpenFile(destPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return cartridgeerr.Wrap(cartridgeerr.IO, destPath, err)
	}
	defer dst.Close()

	if _, err := c.file.CopyTo(dst); err != nil {
		return err
	}
	return dst.Sync()
}
