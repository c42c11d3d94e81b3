package catalog

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
)

// Marshal encodes the catalog into the binary record stream stored,
// after LZ4 compression, as page 1's payload. The encoding is a simple
// length-prefixed record format rather than ext's fixed-width inode
// table, because paths, block lists, and user metadata are all variable
// length.
//
// Record layout, repeated once per entry:
//
//	uint16  path length       | path bytes
//	byte    type (0=file,1=dir)
//	int64   size
//	uint32  block count       | int64 block id, repeated
//	int64   created (unix nanos)
//	int64   modified (unix nanos)
//	uint16  content-type length | content-type bytes
//	uint16  checksum length   | checksum bytes
//	byte    stored codec
//	byte    encrypted (0/1)
//	uint16  user-metadata pair count, then for each: uint16 key-len|key, uint16 val-len|val
func (c *Catalog) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(c.entries))); err != nil {
		return nil, cartridgeerr.Wrap(cartridgeerr.IO, "", err)
	}

	for _, e := range c.Scan("/") {
		if err := writeEntry(&buf, e.Path, e.Metadata); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writeEntry(buf *bytes.Buffer, path string, m Metadata) error {
	wrap := func(err error) error {
		if err != nil {
			return cartridgeerr.Wrap(cartridgeerr.IO, path, err)
		}
		return nil
	}

	if err := wrap(writeString16(buf, path)); err != nil {
		return err
	}
	if err := wrap(buf.WriteByte(byte(m.Type))); err != nil {
		return err
	}
	if err := wrap(binary.Write(buf, binary.LittleEndian, m.Size)); err != nil {
		return err
	}
	if err := wrap(binary.Write(buf, binary.LittleEndian, uint32(len(m.Blocks)))); err != nil {
		return err
	}
	for _, b := range m.Blocks {
		if err := wrap(binary.Write(buf, binary.LittleEndian, b)); err != nil {
			return err
		}
	}
	if err := wrap(binary.Write(buf, binary.LittleEndian, m.CreatedAt.UnixNano())); err != nil {
		return err
	}
	if err := wrap(binary.Write(buf, binary.LittleEndian, m.ModifiedAt.UnixNano())); err != nil {
		return err
	}
	if err := wrap(writeString16(buf, m.ContentType)); err != nil {
		return err
	}
	if err := wrap(writeString16(buf, m.Checksum)); err != nil {
		return err
	}
	if err := wrap(buf.WriteByte(m.StoredCodec)); err != nil {
		return err
	}
	flag := byte(0)
	if m.Encrypted {
		flag = 1
	}
	if err := wrap(buf.WriteByte(flag)); err != nil {
		return err
	}
	if err := wrap(binary.Write(buf, binary.LittleEndian, uint16(len(m.UserMetadata)))); err != nil {
		return err
	}
	for k, v := range m.UserMetadata {
		if err := wrap(writeString16(buf, k)); err != nil {
			return err
		}
		if err := wrap(writeString16(buf, v)); err != nil {
			return err
		}
	}
	return nil
}

func writeString16(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

// Unmarshal decodes a catalog previously produced by Marshal.
func Unmarshal(data []byte) (*Catalog, error) {
	r := bytes.NewReader(data)

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, cartridgeerr.Wrap(cartridgeerr.CorruptedHeader, "", err)
	}

	c := New()
	for i := uint32(0); i < count; i++ {
		path, m, err := readEntry(r)
		if err != nil {
			return nil, err
		}
		c.entries[path] = m
	}
	return c, nil
}

func readEntry(r *bytes.Reader) (string, Metadata, error) {
	wrap := func(err error) error {
		if err != nil {
			return cartridgeerr.Wrap(cartridgeerr.CorruptedHeader, "", err)
		}
		return nil
	}

	path, err := readString16(r)
	if err != nil {
		return "", Metadata{}, wrap(err)
	}

	typeByte, err := r.ReadByte()
	if err != nil {
		return "", Metadata{}, wrap(err)
	}

	var m Metadata
	m.Type = FileType(typeByte)

	if err := wrap(binary.Read(r, binary.LittleEndian, &m.Size)); err != nil {
		return "", Metadata{}, err
	}

	var blockCount uint32
	if err := wrap(binary.Read(r, binary.LittleEndian, &blockCount)); err != nil {
		return "", Metadata{}, err
	}
	if blockCount > 0 {
		m.Blocks = make([]int64, blockCount)
		for i := range m.Blocks {
			if err := wrap(binary.Read(r, binary.LittleEndian, &m.Blocks[i])); err != nil {
				return "", Metadata{}, err
			}
		}
	}

	var createdNanos, modifiedNanos int64
	if err := wrap(binary.Read(r, binary.LittleEndian, &createdNanos)); err != nil {
		return "", Metadata{}, err
	}
	if err := wrap(binary.Read(r, binary.LittleEndian, &modifiedNanos)); err != nil {
		return "", Metadata{}, err
	}
	m.CreatedAt = time.Unix(0, createdNanos).UTC()
	m.ModifiedAt = time.Unix(0, modifiedNanos).UTC()

	if m.ContentType, err = readString16(r); err != nil {
		return "", Metadata{}, wrap(err)
	}
	if m.Checksum, err = readString16(r); err != nil {
		return "", Metadata{}, wrap(err)
	}

	codecByte, err := r.ReadByte()
	if err != nil {
		return "", Metadata{}, wrap(err)
	}
	m.StoredCodec = codecByte

	encByte, err := r.ReadByte()
	if err != nil {
		return "", Metadata{}, wrap(err)
	}
	m.Encrypted = encByte != 0

	var pairCount uint16
	if err := wrap(binary.Read(r, binary.LittleEndian, &pairCount)); err != nil {
		return "", Metadata{}, err
	}
	if pairCount > 0 {
		m.UserMetadata = make(map[string]string, pairCount)
		for i := uint16(0); i < pairCount; i++ {
			k, err := readString16(r)
			if err != nil {
				return "", Metadata{}, wrap(err)
			}
			v, err := readString16(r)
			if err != nil {
				return "", Metadata{}, wrap(err)
			}
			m.UserMetadata[k] = v
		}
	}

	return path, m, nil
}

func readString16(r *bytes.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
