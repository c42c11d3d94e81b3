package page

import (
	"testing"

	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := &Page{
		Type:            TypeContentData,
		CodecTag:        CodecZstd,
		Encrypted:       true,
		UncompressedLen: 4000,
		CompressedLen:   1200,
	}
	copy(p.Payload[:], []byte("hello cartridge"))
	SetDigest(p)

	buf := Encode(p)
	require.Len(t, buf, Size)

	got, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, p.Type, got.Type)
	require.Equal(t, p.CodecTag, got.CodecTag)
	require.Equal(t, p.Encrypted, got.Encrypted)
	require.Equal(t, p.UncompressedLen, got.UncompressedLen)
	require.Equal(t, p.CompressedLen, got.CompressedLen)
	require.Equal(t, p.Payload, got.Payload)
	require.Equal(t, p.Digest, got.Digest)
}

func TestDecodeUncheckedDigest(t *testing.T) {
	p := &Page{Type: TypeContentData}
	copy(p.Payload[:], []byte("no digest set"))
	buf := Encode(p)

	got, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, p.Payload, got.Payload)
}

func TestDecodeChecksumMismatch(t *testing.T) {
	p := &Page{Type: TypeContentData}
	copy(p.Payload[:], []byte("tamper me"))
	SetDigest(p)
	buf := Encode(p)

	// tamper a single byte of the payload region.
	buf[HeaderLen] ^= 0xFF

	_, err := Decode(buf)
	require.Error(t, err)
	require.Equal(t, cartridgeerr.ChecksumMismatch, cartridgeerr.Of(err))
}

func TestDecodeWrongLength(t *testing.T) {
	_, err := Decode(make([]byte, 10))
	require.Error(t, err)
}
