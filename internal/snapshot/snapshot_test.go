package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/cartridgeio/cartridge/pkg/cartridge"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCopiesBackingFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.cart")
	dest := filepath.Join(dir, "snapshot.cart")

	c, err := cartridge.Create(src, "snap-test", "Snapshot Test")
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Write("/a.txt", []byte("hello snapshot")))

	m := New()
	snap, err := m.Snapshot(c, dest)
	require.NoError(t, err)
	require.Equal(t, dest, snap.Path)
	require.False(t, snap.TakenAt.IsZero())

	reopened, err := cartridge.Open(dest)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Read("/a.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("hello snapshot"), got)
}

func TestSnapshotNilContainerErrors(t *testing.T) {
	m := New()
	_, err := m.Snapshot(nil, "/tmp/anything.cart")
	require.Error(t, err)
}

func TestSnapshotDestinationAlreadyExistsFails(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.cart")
	dest := filepath.Join(dir, "snapshot.cart")

	c, err := cartridge.Create(src, "snap-test", "Snapshot Test")
	require.NoError(t, err)
	defer c.Close()

	_, err = cartridge.Create(dest, "placeholder", "Placeholder")
	require.NoError(t, err)

	m := New()
	_, err = m.Snapshot(c, dest)
	require.Error(t, err)
}
