// Package archive exports a container's catalog as an external,
// immutable archive: an archive/tar stream compressed with
// github.com/klauspost/compress/zstd, named after and shaped like the
// teacher's own pkg/gcparchive (a "compress this container into a
// portable archive format" package), and grounded on
// distr1-distri/internal/squashfs's streaming-writer idiom of wrapping
// one io.Writer in successive layers (compressor, then archive writer)
// and writing one entry at a time without holding the whole archive in
// memory.
package archive

import (
	"archive/tar"
	"io"
	"time"

	"github.com/cartridgeio/cartridge/pkg/cartridge"
	"github.com/klauspost/compress/zstd"
)

// Exporter streams a container's files into a tar+zstd archive.
type Exporter struct{}

// New returns an Exporter. It carries no state.
func New() *Exporter { return &Exporter{} }

// Export writes every regular file in c to w as a zstd-compressed tar
// stream, one tar entry per catalog path. Directories are not emitted
// as separate entries; tar reconstructs them implicitly from path
// prefixes on extraction, matching entryview's own directory-inference
// rule.
func (e *Exporter) Export(c *cartridge.Cartridge, w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	defer zw.Close()

	tw := tar.NewWriter(zw)
	defer tw.Close()

	now := time.Now().UTC()
	for _, path := range c.List("") {
		if c.IsDir(path) {
			continue
		}
		data, err := c.Read(path)
		if err != nil {
			return err
		}
		hdr := &tar.Header{
			Name:    path[1:], // tar entries are relative; catalog paths are absolute
			Size:    int64(len(data)),
			Mode:    0o644,
			ModTime: now,
		}
		if meta, err := c.Metadata(path); err == nil {
			hdr.ModTime = meta.ModifiedAt
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(data); err != nil {
			return err
		}
	}
	return nil
}
