// Package cartridge implements the public façade binding the page,
// header, allocator, catalog, codec, and page-cache layers into a single
// container: a create/open/read/write/delete/list API enforcing the
// locking discipline, dirty-page tracking, and flush ordering described
// for the format as a whole.
//
// Grounded on pkg/vimg's top-level Builder type, which is the teacher's
// closest analogue of "one façade struct composing several independent
// subsystems behind a single RWMutex and a Close method"; the flush
// ordering (header, catalog, allocator, fsync; content pages are written
// through when each file is written, not at flush)
// generalizes vimg's image-assembly write-then-finalize sequencing to an
// in-place mutable container.
package cartridge

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"

	"github.com/cartridgeio/cartridge/pkg/alloc"
	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
	"github.com/cartridgeio/cartridge/pkg/catalog"
	"github.com/cartridgeio/cartridge/pkg/codec"
	"github.com/cartridgeio/cartridge/pkg/config"
	"github.com/cartridgeio/cartridge/pkg/header"
	"github.com/cartridgeio/cartridge/pkg/manifest"
	"github.com/cartridgeio/cartridge/pkg/page"
	"github.com/cartridgeio/cartridge/pkg/pagecache"
	"github.com/cartridgeio/cartridge/pkg/storage"
)

// Cartridge is an open container. A Cartridge is safe for concurrent use
// by multiple goroutines: public methods hold mu for the duration of the
// operation, except the page cache's own interior lock which read-only
// operations use without upgrading to the write lock.
type Cartridge struct {
	mu sync.RWMutex

	path string
	file *storage.File
	hdr  *header.Header
	cat  *catalog.Catalog
	al   *alloc.Allocator
	cd   *codec.Codec // user-configured codec, applied to file payloads
	icd  *codec.Codec // fixed LZ4-only codec for the catalog/allocator pages
	cch  *pagecache.Cache
	opts config.Options

	dirtyContent map[int64]bool
	dirtyCatalog bool
	dirtyAlloc   bool
}

// Create initializes a new container at path with the given slug and
// title, writes the minimal 3-block layout, records the manifest, and
// returns it opened for use.
func Create(path, slug, title string, opts ...config.Option) (*Cartridge, error) {
	o := config.New(opts...)

	hdr, err := header.New(slug, title)
	if err != nil {
		return nil, err
	}

	f, err := storage.Create(path)
	if err != nil {
		return nil, err
	}

	initial := o.InitialBlocks
	if initial < header.ReservedBlocks {
		initial = header.ReservedBlocks
	}
	if err := f.Truncate(initial); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}

	al := alloc.New(header.ReservedBlocks, initial, alloc.DefaultThresholdBytes, page.Size)
	hdr.TotalBlocks = uint64(initial)
	hdr.FreeBlocks = uint64(al.FreeCount())
	applyFeatureFlags(hdr, o)

	cd, err := codec.New(codecConfig(o))
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	icd, err := codec.New(codec.Config{Compression: page.CodecLZ4})
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}

	c := &Cartridge{
		path:         path,
		file:         f,
		hdr:          hdr,
		cat:          catalog.New(),
		al:           al,
		cd:           cd,
		icd:          icd,
		cch:          pagecache.New(o.CacheCapacity),
		opts:         o,
		dirtyContent: make(map[int64]bool),
		dirtyCatalog: true,
		dirtyAlloc:   true,
	}

	if err := c.writeManifestLocked(slug, title); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}

	if err := c.flushLocked(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}

	o.Logger.Infof("created container %s at %s (%d initial blocks)", slug, path, initial)
	return c, nil
}

// Open loads an existing container at path, validating the header and
// restoring the catalog and allocator from their respective pages.
func Open(path string, opts ...config.Option) (*Cartridge, error) {
	o := config.New(opts...)

	f, err := storage.Open(path)
	if err != nil {
		return nil, err
	}

	hdrBuf, err := f.ReadBlock(0)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	hdr, err := header.Decode(hdrBuf)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	cd, err := codec.New(codecConfig(o))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	icd, err := codec.New(codec.Config{Compression: page.CodecLZ4})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	c := &Cartridge{
		path:         path,
		file:         f,
		hdr:          hdr,
		cd:           cd,
		icd:          icd,
		cch:          pagecache.New(o.CacheCapacity),
		opts:         o,
		dirtyContent: make(map[int64]bool),
	}

	if c.al, err = c.loadAllocator(); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := c.al.VerifyFreeBlocks(int64(hdr.FreeBlocks)); err != nil {
		_ = f.Close()
		return nil, err
	}

	if c.cat, err = c.loadCatalog(); err != nil {
		_ = f.Close()
		return nil, err
	}

	o.Logger.Debugf("opened container %s (slug=%s, %d blocks, %d free)", path, hdr.Slug, hdr.TotalBlocks, hdr.FreeBlocks)
	return c, nil
}

func codecConfig(o config.Options) codec.Config {
	return codec.Config{Compression: o.Compression, Key: o.EncryptionKey}
}

func applyFeatureFlags(hdr *header.Header, o config.Options) {
	hdr.SetFlag(header.FlagCompression, o.Compression != page.CodecNone)
	hdr.SetFlag(header.FlagEncryption, len(o.EncryptionKey) > 0)
	hdr.SetFlag(header.FlagPolicyActive, o.Policy != nil)
	hdr.SetFlag(header.FlagAuditActive, o.Audit != nil)
}

func (c *Cartridge) writeManifestLocked(slug, title string) error {
	m := manifest.New(slug, title)
	buf, err := m.Encode()
	if err != nil {
		return err
	}
	return c.writeFileLocked(manifest.Path, buf, catalog.RegularFile)
}

// checkPolicy consults the configured access-policy evaluator, if any,
// before a mutating operation proceeds.
func (c *Cartridge) checkPolicy(action, path string) error {
	if c.opts.Policy == nil {
		return nil
	}
	allow, err := c.opts.Policy.Evaluate(action, path, nil)
	if err != nil {
		return cartridgeerr.Wrap(cartridgeerr.AccessDenied, path, err)
	}
	if !allow {
		return cartridgeerr.New(cartridgeerr.AccessDenied, path)
	}
	return nil
}

// audit records the outcome of a public operation, if an audit logger is
// configured.
func (c *Cartridge) audit(operation, path, outcome string) {
	if c.opts.Audit == nil {
		return
	}
	c.opts.Audit.Record(operation, path, outcome, nil)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Path returns the backing file path this Cartridge was created or
// opened from.
func (c *Cartridge) Path() string { return c.path }

// Slug returns the container's immutable slug.
func (c *Cartridge) Slug() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hdr.Slug
}

// Title returns the container's current display title.
func (c *Cartridge) Title() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hdr.Title
}

// TotalBlocks returns the container's current capacity in blocks.
func (c *Cartridge) TotalBlocks() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(c.hdr.TotalBlocks)
}

// FreeBlocks returns the allocator's current free-block count.
func (c *Cartridge) FreeBlocks() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.al.FreeCount()
}

// GrowthCount returns the number of times the container has doubled its
// capacity since creation.
func (c *Cartridge) GrowthCount() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(c.hdr.GrowthCount)
}
