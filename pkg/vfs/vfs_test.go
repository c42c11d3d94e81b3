package vfs

import (
	"path/filepath"
	"testing"

	"github.com/cartridgeio/cartridge/pkg/cartridge"
	"github.com/stretchr/testify/require"
)

func newTestContainer(t *testing.T) *cartridge.Cartridge {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vfs-test.cart")
	c, err := cartridge.Create(path, "vfs-test", "VFS Test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRegisterAndOpenRoundTrip(t *testing.T) {
	c := newTestContainer(t)
	name := "db1"
	require.NoError(t, Register(name, c))
	defer Unregister(name)

	f, err := Open(name, "/app.db")
	require.NoError(t, err)

	n, err := f.WriteAt([]byte("hello"), 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.NoError(t, f.Sync())

	f2, err := Open(name, "/app.db")
	require.NoError(t, err)
	buf := make([]byte, 5)
	n, err = f2.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
}

func TestReadPastEOFZeroFills(t *testing.T) {
	c := newTestContainer(t)
	require.NoError(t, Register("db2", c))
	defer Unregister("db2")

	f, err := Open("db2", "/empty.db")
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := f.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, make([]byte, 16), buf)
}

func TestWriteAtOffsetGrowsAndZeroFillsGap(t *testing.T) {
	c := newTestContainer(t)
	require.NoError(t, Register("db3", c))
	defer Unregister("db3")

	f, err := Open("db3", "/sparse.db")
	require.NoError(t, err)

	_, err = f.WriteAt([]byte("end"), 10)
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	size, err := f.FileSize()
	require.NoError(t, err)
	require.Equal(t, int64(13), size)

	buf := make([]byte, 13)
	_, err = f.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 10), buf[:10])
	require.Equal(t, "end", string(buf[10:]))
}

func TestTruncateShrinksAndGrows(t *testing.T) {
	c := newTestContainer(t)
	require.NoError(t, Register("db4", c))
	defer Unregister("db4")

	f, err := Open("db4", "/t.db")
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("0123456789"), 0)
	require.NoError(t, err)

	require.NoError(t, f.Truncate(4))
	size, err := f.FileSize()
	require.NoError(t, err)
	require.Equal(t, int64(4), size)

	require.NoError(t, f.Truncate(8))
	size, err = f.FileSize()
	require.NoError(t, err)
	require.Equal(t, int64(8), size)
}

func TestAccessAndDelete(t *testing.T) {
	c := newTestContainer(t)
	require.NoError(t, Register("db5", c))
	defer Unregister("db5")

	exists, err := Access("db5", "/missing.db")
	require.NoError(t, err)
	require.False(t, exists)

	f, err := Open("db5", "/present.db")
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("x"), 0)
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	exists, err = Access("db5", "/present.db")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, Delete("db5", "/present.db"))
	exists, err = Access("db5", "/present.db")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestLockEscalationAndReservedExclusivity(t *testing.T) {
	c := newTestContainer(t)
	require.NoError(t, Register("db6", c))
	defer Unregister("db6")

	a, err := Open("db6", "/shared.db")
	require.NoError(t, err)
	b, err := Open("db6", "/shared.db")
	require.NoError(t, err)

	require.NoError(t, a.Lock(LockShared))
	require.NoError(t, b.Lock(LockShared))

	require.NoError(t, a.Lock(LockReserved))
	require.Error(t, b.Lock(LockReserved))

	reserved, err := b.CheckReservedLock()
	require.NoError(t, err)
	require.True(t, reserved)

	require.NoError(t, a.Unlock(LockNone))
	reserved, err = b.CheckReservedLock()
	require.NoError(t, err)
	require.False(t, reserved)
}

func TestExclusiveRequiresSoleSharer(t *testing.T) {
	c := newTestContainer(t)
	require.NoError(t, Register("db7", c))
	defer Unregister("db7")

	a, err := Open("db7", "/excl.db")
	require.NoError(t, err)
	b, err := Open("db7", "/excl.db")
	require.NoError(t, err)

	require.NoError(t, a.Lock(LockShared))
	require.NoError(t, b.Lock(LockShared))
	require.NoError(t, a.Lock(LockReserved))

	err = a.Lock(LockExclusive)
	require.Error(t, err, "other reader still holds SHARED")

	require.NoError(t, b.Unlock(LockNone))
	require.NoError(t, a.Lock(LockExclusive))
}

func TestRandomBytesAndCurrentTime(t *testing.T) {
	b1, err := RandomBytes(16)
	require.NoError(t, err)
	b2, err := RandomBytes(16)
	require.NoError(t, err)
	require.Len(t, b1, 16)
	require.NotEqual(t, b1, b2)

	require.False(t, CurrentTime().IsZero())
}

func TestRegisterDuplicateNameFails(t *testing.T) {
	c := newTestContainer(t)
	require.NoError(t, Register("dup", c))
	defer Unregister("dup")

	err := Register("dup", c)
	require.Error(t, err)
}

func TestOpenUnknownContainerFails(t *testing.T) {
	_, err := Open("does-not-exist", "/f.db")
	require.Error(t, err)
}
