// Package entryview derives hierarchical directory/file listings from
// the catalog's flat path keyspace, synthesizing directory entries for
// intermediate path segments that were never explicitly inserted.
//
// Grounded on pkg/vio's FileTree.Walk pre-order traversal idiom
// (tree.go), adapted from an in-memory tree of *TreeNode into a
// stateless derivation over catalog.Catalog.Scan results, since the
// catalog itself stores no tree structure (see pkg/catalog).
package entryview

import (
	"sort"
	"strings"

	"github.com/cartridgeio/cartridge/pkg/catalog"
	"github.com/cartridgeio/cartridge/pkg/manifest"
)

// internalNamespace is the core-internal directory holding the
// manifest; it and everything under it are never surfaced to listing
// consumers, the way a filesystem hides its own journal or superblock
// metadata from a directory listing.
var internalNamespace = catalog.Parent(manifest.Path)

func isInternal(path string) bool {
	return path == internalNamespace || catalog.HasPrefix(path, internalNamespace)
}

// Entry is a single listing row: either a real catalog entry or a
// directory synthesized from path segments, per spec section 4.9.
type Entry struct {
	Path       string
	Name       string
	IsDir      bool
	Size       *int64 // nil for directories and synthesized entries
	ModifiedAt *int64 // microseconds; nil for synthesized entries

	// Synthesized is true when this entry has no corresponding catalog
	// row, e.g. the implicit "/a" directory for a stored "/a/b.txt".
	Synthesized bool
}

// List returns every real or synthesized entry whose path lies under
// prefix, including synthesized directory entries for each intermediate
// segment, ordered directories-first then alphabetically by full path.
func List(c *catalog.Catalog, prefix string) []Entry {
	byPath := make(map[string]Entry)

	for _, ce := range c.Scan(prefix) {
		if isInternal(ce.Path) {
			continue
		}
		byPath[ce.Path] = entryFromCatalog(ce)
		for _, dir := range ancestorDirs(ce.Path) {
			if !catalog.HasPrefix(dir, catalog.NormalizePrefix(prefix)) && dir != catalog.NormalizePrefix(prefix) {
				continue
			}
			if _, ok := byPath[dir]; !ok {
				byPath[dir] = synthesizedDir(dir)
			}
		}
	}

	out := make([]Entry, 0, len(byPath))
	for _, e := range byPath {
		out = append(out, e)
	}
	sortEntries(out)
	return out
}

// Children returns only the immediate children of parent: entries (real
// or synthesized) whose catalog.Parent equals the normalized parent
// path, ordered directories-first then alphabetically.
func Children(c *catalog.Catalog, parent string) []Entry {
	norm := catalog.NormalizePrefix(parent)
	all := List(c, norm)

	out := make([]Entry, 0)
	for _, e := range all {
		if catalog.Parent(e.Path) == norm || (norm == "/" && catalog.Parent(e.Path) == "") {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out
}

func entryFromCatalog(ce catalog.Entry) Entry {
	e := Entry{
		Path:  ce.Path,
		Name:  catalog.Name(ce.Path),
		IsDir: ce.Metadata.Type == catalog.Directory,
	}
	if !e.IsDir {
		size := ce.Metadata.Size
		e.Size = &size
		modified := ce.Metadata.ModifiedAt.UnixNano() / 1000
		e.ModifiedAt = &modified
	}
	return e
}

func synthesizedDir(path string) Entry {
	return Entry{
		Path:        path,
		Name:        catalog.Name(path),
		IsDir:       true,
		Synthesized: true,
	}
}

// ancestorDirs returns every strict ancestor directory of path, e.g.
// "/a/b/c.txt" yields ["/a", "/a/b"].
func ancestorDirs(path string) []string {
	trimmed := strings.TrimPrefix(path, "/")
	segments := strings.Split(trimmed, "/")
	if len(segments) <= 1 {
		return nil
	}

	dirs := make([]string, 0, len(segments)-1)
	current := ""
	for _, seg := range segments[:len(segments)-1] {
		current += "/" + seg
		dirs = append(dirs, current)
	}
	return dirs
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Path < entries[j].Path
	})
}
