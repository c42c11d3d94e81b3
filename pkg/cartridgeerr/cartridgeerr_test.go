package cartridgeerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMessageShapes(t *testing.T) {
	require.Equal(t, `cartridge: NotFound: path "/a.txt"`, New(NotFound, "/a.txt").Error())
	require.Equal(t, "cartridge: OutOfSpace", New(OutOfSpace, "").Error())

	wrapped := Wrap(IO, "/a.txt", fmt.Errorf("disk full"))
	require.Contains(t, wrapped.Error(), "disk full")
	require.Contains(t, wrapped.Error(), "/a.txt")

	withBlock := WrapBlock(AllocatorCorruption, 7, fmt.Errorf("bad bit"))
	require.Contains(t, withBlock.Error(), "block 7")
}

func TestIsMatchesByKindOnly(t *testing.T) {
	a := New(NotFound, "/a.txt")
	b := New(NotFound, "/b.txt")
	c := New(AccessDenied, "/a.txt")

	require.True(t, errors.Is(a, b))
	require.False(t, errors.Is(a, c))
}

func TestOfUnwrapsThroughStdlibWrapping(t *testing.T) {
	base := New(ChecksumMismatch, "/f.bin")
	outer := fmt.Errorf("read failed: %w", base)

	require.Equal(t, ChecksumMismatch, Of(outer))
	require.Equal(t, Unknown, Of(fmt.Errorf("plain error")))
	require.Equal(t, Unknown, Of(nil))
}

func TestWrapAttachesStackTrace(t *testing.T) {
	err := Wrap(IO, "", fmt.Errorf("boom"))

	formatted := fmt.Sprintf("%+v", err.Cause)
	require.Contains(t, formatted, "boom")
	require.Contains(t, formatted, "cartridgeerr_test.go")
}

func TestNotFoundAndOutOfSpaceHelpers(t *testing.T) {
	require.Equal(t, NotFound, Of(NotFoundErr("/x")))
	require.Equal(t, OutOfSpace, Of(OutOfSpaceErr()))
}
