// Package manifest reads and writes the well-known internal file
// /.cartridge/manifest.json: a small JSON record of the container's
// slug, title, and creation time, kept alongside the binary header so a
// plain file-browser (or a human with `cat`) can identify a container
// without speaking the binary format.
//
// Grounded on pkg/vcfg's encoding/json usage (types.go) for the
// marshal/unmarshal idiom; unlike vcfg's typed config tree, the
// manifest preserves unrecognized fields verbatim by decoding into a
// map alongside the typed fields, so a future format revision can add
// fields without older readers discarding them.
package manifest

import (
	"encoding/json"
	"time"

	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
)

// CurrentVersion is written into new manifests' "version" field.
const CurrentVersion = "1.0"

// Path is the catalog path the manifest is stored under.
const Path = "/.cartridge/manifest.json"

// Manifest is the decoded content of /.cartridge/manifest.json.
type Manifest struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at"` // microseconds since the Unix epoch
	Version   string `json:"version"`

	// extra holds any fields present in the decoded JSON beyond the ones
	// above, so Encode can round-trip them unchanged.
	extra map[string]json.RawMessage
}

// New builds a fresh Manifest for a container being created now.
func New(slug, title string) Manifest {
	return Manifest{
		Slug:      slug,
		Title:     title,
		CreatedAt: time.Now().UTC().UnixNano() / int64(time.Microsecond),
		Version:   CurrentVersion,
	}
}

// Encode serializes m to the JSON bytes stored at Path.
func (m Manifest) Encode() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(m.extra)+4)
	for k, v := range m.extra {
		fields[k] = v
	}

	set := func(key string, v interface{}) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fields[key] = raw
		return nil
	}
	if err := set("slug", m.Slug); err != nil {
		return nil, cartridgeerr.Wrap(cartridgeerr.IO, Path, err)
	}
	if err := set("title", m.Title); err != nil {
		return nil, cartridgeerr.Wrap(cartridgeerr.IO, Path, err)
	}
	if err := set("created_at", m.CreatedAt); err != nil {
		return nil, cartridgeerr.Wrap(cartridgeerr.IO, Path, err)
	}
	if err := set("version", m.Version); err != nil {
		return nil, cartridgeerr.Wrap(cartridgeerr.IO, Path, err)
	}

	out, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return nil, cartridgeerr.Wrap(cartridgeerr.IO, Path, err)
	}
	return out, nil
}

// Decode parses manifest JSON bytes, preserving any fields not known to
// this version of Manifest for round-tripping by a later Encode.
func Decode(data []byte) (Manifest, error) {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return Manifest{}, cartridgeerr.Wrap(cartridgeerr.IO, Path, err)
	}

	var m Manifest
	m.extra = fields

	if raw, ok := fields["slug"]; ok {
		if err := json.Unmarshal(raw, &m.Slug); err != nil {
			return Manifest{}, cartridgeerr.Wrap(cartridgeerr.IO, Path, err)
		}
	}
	if raw, ok := fields["title"]; ok {
		if err := json.Unmarshal(raw, &m.Title); err != nil {
			return Manifest{}, cartridgeerr.Wrap(cartridgeerr.IO, Path, err)
		}
	}
	if raw, ok := fields["created_at"]; ok {
		if err := json.Unmarshal(raw, &m.CreatedAt); err != nil {
			return Manifest{}, cartridgeerr.Wrap(cartridgeerr.IO, Path, err)
		}
	}
	if raw, ok := fields["version"]; ok {
		if err := json.Unmarshal(raw, &m.Version); err != nil {
			return Manifest{}, cartridgeerr.Wrap(cartridgeerr.IO, Path, err)
		}
	}

	delete(m.extra, "slug")
	delete(m.extra, "title")
	delete(m.extra, "created_at")
	delete(m.extra, "version")

	return m, nil
}
