// Package catalog implements the container's path-to-metadata map: the
// ordered associative structure serialized into page 1 that records, for
// every file, its block list, size, timestamps, and optional user
// metadata.
//
// Grounded on pkg/ext's binary.Read/binary.Write fixed-record style for
// on-disk tables, adapted here to a variable-length record format
// because catalog entries (paths, block lists, user metadata) are
// themselves variable length, unlike ext2's fixed-size inodes.
package catalog

import (
	"sort"
	"time"

	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
)

// FileType tags whether a catalog entry is a regular file or a
// (normally implicit) directory.
type FileType byte

// The file type tags.
const (
	RegularFile FileType = iota
	Directory
)

// Metadata is the catalog value associated with a path.
type Metadata struct {
	Type         FileType
	Size         int64
	Blocks       []int64
	CreatedAt    time.Time
	ModifiedAt   time.Time
	ContentType  string
	Checksum     string
	UserMetadata map[string]string

	// StoredCodec and Encrypted record how Blocks' payload was encoded,
	// so a read can reverse the codec pipeline; Size is the plaintext
	// length the decoded payload is trimmed to.
	StoredCodec byte
	Encrypted   bool
}

// Clone returns a deep copy of m, so callers that mutate a returned
// Metadata never corrupt catalog state.
func (m Metadata) Clone() Metadata {
	out := m
	out.Blocks = append([]int64(nil), m.Blocks...)
	if m.UserMetadata != nil {
		out.UserMetadata = make(map[string]string, len(m.UserMetadata))
		for k, v := range m.UserMetadata {
			out.UserMetadata[k] = v
		}
	}
	return out
}

// Catalog is the path -> Metadata map. It is not internally
// synchronized: callers (the façade) are expected to serialize access
// under their own lock, matching spec.md's "ordering irrelevant for
// correctness but listings rely on scanning" contract.
type Catalog struct {
	entries map[string]Metadata
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{entries: make(map[string]Metadata)}
}

// Get looks up the normalized path, returning NotFound if absent.
func (c *Catalog) Get(path string) (Metadata, error) {
	norm, err := Normalize(path)
	if err != nil {
		return Metadata{}, err
	}
	m, ok := c.entries[norm]
	if !ok {
		return Metadata{}, cartridgeerr.NotFoundErr(norm)
	}
	return m.Clone(), nil
}

// Insert replaces any prior entry at path. The caller is responsible for
// freeing the blocks of any replaced entry (Insert returns it so the
// caller can do so).
func (c *Catalog) Insert(path string, m Metadata) (previous *Metadata, err error) {
	norm, err := Normalize(path)
	if err != nil {
		return nil, err
	}
	if prev, ok := c.entries[norm]; ok {
		p := prev.Clone()
		previous = &p
	}
	c.entries[norm] = m
	return previous, nil
}

// Remove deletes the entry at path, returning it, or NotFound if absent.
func (c *Catalog) Remove(path string) (Metadata, error) {
	norm, err := Normalize(path)
	if err != nil {
		return Metadata{}, err
	}
	m, ok := c.entries[norm]
	if !ok {
		return Metadata{}, cartridgeerr.NotFoundErr(norm)
	}
	delete(c.entries, norm)
	return m, nil
}

// Exists reports whether path has an entry, without normalization
// errors surfacing: an invalid path simply does not exist.
func (c *Catalog) Exists(path string) bool {
	norm, err := Normalize(path)
	if err != nil {
		return false
	}
	_, ok := c.entries[norm]
	return ok
}

// Entry pairs a normalized path with its metadata, returned by Scan.
type Entry struct {
	Path     string
	Metadata Metadata
}

// Scan returns every entry whose normalized path begins with prefix
// (after normalization), sorted by path for deterministic iteration.
func (c *Catalog) Scan(prefix string) []Entry {
	norm := NormalizePrefix(prefix)
	out := make([]Entry, 0)
	for path, m := range c.entries {
		if HasPrefix(path, norm) {
			out = append(out, Entry{Path: path, Metadata: m.Clone()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Len returns the number of entries in the catalog.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// IsDir reports whether path is a directory: either an explicit
// Directory-typed entry, or a path with at least one entry using it as a
// strict prefix (a virtual directory inferred from the flat keyspace).
func (c *Catalog) IsDir(path string) bool {
	norm, err := Normalize(path)
	if err != nil {
		return false
	}
	if m, ok := c.entries[norm]; ok && m.Type == Directory {
		return true
	}
	boundary := norm
	if boundary != "/" {
		boundary += "/"
	}
	for p := range c.entries {
		if p != norm && len(p) > len(boundary) && p[:len(boundary)] == boundary {
			return true
		}
	}
	return false
}
