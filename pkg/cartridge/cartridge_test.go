package cartridge

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
	"github.com/cartridgeio/cartridge/pkg/config"
	"github.com/cartridgeio/cartridge/pkg/manifest"
	"github.com/cartridgeio/cartridge/pkg/page"
	"github.com/stretchr/testify/require"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "container.cart")
}

func TestCreateWritesManifest(t *testing.T) {
	path := tempPath(t)
	c, err := Create(path, "my-data", "My Data")
	require.NoError(t, err)
	defer c.Close()

	buf, err := c.Read(manifest.Path)
	require.NoError(t, err)

	m, err := manifest.Decode(buf)
	require.NoError(t, err)
	require.Equal(t, "my-data", m.Slug)
	require.Equal(t, "My Data", m.Title)
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := tempPath(t)
	c, err := Create(path, "my-data", "My Data")
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Write("/readme.txt", []byte("Hello, World!")))

	got, err := c.Read("/readme.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("Hello, World!"), got)

	meta, err := c.Metadata("/readme.txt")
	require.NoError(t, err)
	require.Equal(t, int64(13), meta.Size)

	entries := c.ListEntries("")
	var found bool
	for _, e := range entries {
		if e.Name == "readme.txt" {
			found = true
			require.False(t, e.IsDir)
			require.NotNil(t, e.Size)
			require.Equal(t, int64(13), *e.Size)
		}
	}
	require.True(t, found)
}

func TestGrowIfNeededTriggersOnLowFreeRatioAlone(t *testing.T) {
	path := tempPath(t)
	c, err := Create(path, "my-data", "My Data", config.WithInitialBlocks(20))
	require.NoError(t, err)
	defer c.Close()

	// Drain the allocator down to a single free block by hand so the
	// immediate request (1 block) could be satisfied without growing,
	// but the free ratio (1/20 = 5%) sits below the 10% default
	// threshold.
	ids, err := c.al.Allocate(c.al.FreeCount() - 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), c.al.FreeCount())

	require.Zero(t, c.GrowthCount())
	require.NoError(t, c.growIfNeeded(1))
	require.Greater(t, c.GrowthCount(), int64(0))

	c.freeBlocks(ids)
}

func TestLargeWriteGrowsContainer(t *testing.T) {
	path := tempPath(t)
	c, err := Create(path, "my-data", "My Data")
	require.NoError(t, err)
	defer c.Close()

	data := bytes.Repeat([]byte{0}, 100_000)
	require.NoError(t, c.Write("/large.bin", data))

	require.GreaterOrEqual(t, c.TotalBlocks(), int64(25))
	require.Greater(t, c.GrowthCount(), int64(0))

	got, err := c.Read("/large.bin")
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestOverwriteKeepsFreeBlocksInvariant(t *testing.T) {
	path := tempPath(t)
	c, err := Create(path, "my-data", "My Data")
	require.NoError(t, err)
	defer c.Close()

	for _, v := range []string{"one", "two", "three"} {
		require.NoError(t, c.Write("/a.txt", []byte(v)))
		require.Equal(t, c.FreeBlocks(), c.al.FreeCount())
	}

	got, err := c.Read("/a.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("three"), got)

	meta, err := c.Metadata("/a.txt")
	require.NoError(t, err)
	require.Len(t, meta.Blocks, 1)
}

func TestEncryptedRoundTripAndWrongKeyFails(t *testing.T) {
	path := tempPath(t)
	key := bytes.Repeat([]byte{0x42}, 32)

	c, err := Create(path, "secure", "Secure", config.WithEncryptionKey(key))
	require.NoError(t, err)
	require.NoError(t, c.Write("/secret.txt", []byte("classified")))
	require.NoError(t, c.Close())

	reopened, err := Open(path, config.WithEncryptionKey(key))
	require.NoError(t, err)
	got, err := reopened.Read("/secret.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("classified"), got)
	require.NoError(t, reopened.Close())

	wrongKey := bytes.Repeat([]byte{0x43}, 32)
	reopenedWrong, err := Open(path, config.WithEncryptionKey(wrongKey))
	require.NoError(t, err)
	defer reopenedWrong.Close()

	_, err = reopenedWrong.Read("/secret.txt")
	require.Error(t, err)
	require.Equal(t, cartridgeerr.DecryptionFailed, cartridgeerr.Of(err))
}

func TestDeleteEveryOtherFile(t *testing.T) {
	path := tempPath(t)
	c, err := Create(path, "my-data", "My Data")
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < 50; i++ {
		require.NoError(t, c.Write(fileName(i), []byte("x")))
	}
	for i := 0; i < 50; i += 2 {
		require.NoError(t, c.Delete(fileName(i)))
		require.Equal(t, c.FreeBlocks(), c.al.FreeCount())
	}

	children := c.ListChildren("/")
	require.Len(t, children, 25)
	for _, e := range children {
		require.False(t, e.IsDir)
	}
}

func fileName(i int) string {
	digits := "0123456789"
	s := ""
	if i == 0 {
		s = "0"
	}
	for i > 0 {
		s = string(digits[i%10]) + s
		i /= 10
	}
	return "/f" + s + ".txt"
}

func TestOpenMissingFileFails(t *testing.T) {
	path := tempPath(t)
	c, err := Create(path, "my-data", "My Data")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = Open(filepath.Join(t.TempDir(), "does-not-exist.cart"))
	require.Error(t, err)
}

func TestReadMissingPathIsNotFound(t *testing.T) {
	path := tempPath(t)
	c, err := Create(path, "my-data", "My Data")
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Read("/missing.txt")
	require.Error(t, err)
	require.Equal(t, cartridgeerr.NotFound, cartridgeerr.Of(err))
}

type denyAllPolicy struct{}

func (denyAllPolicy) Evaluate(action, path string, context map[string]string) (bool, error) {
	return false, nil
}

func TestPolicyDeniesWrite(t *testing.T) {
	path := tempPath(t)
	c, err := Create(path, "my-data", "My Data", config.WithPolicy(denyAllPolicy{}))
	require.NoError(t, err)
	defer c.Close()

	err = c.Write("/blocked.txt", []byte("nope"))
	require.Error(t, err)
	require.Equal(t, cartridgeerr.AccessDenied, cartridgeerr.Of(err))
}

type recordingAudit struct {
	records []string
}

func (r *recordingAudit) Record(operation, path, outcome string, metadataJSON []byte) {
	r.records = append(r.records, operation+":"+path+":"+outcome)
}

func TestAuditLoggerRecordsOperations(t *testing.T) {
	path := tempPath(t)
	audit := &recordingAudit{}
	c, err := Create(path, "my-data", "My Data", config.WithAuditLogger(audit))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Write("/a.txt", []byte("x")))
	require.NoError(t, c.Delete("/a.txt"))

	require.Contains(t, audit.records, "write:/a.txt:ok")
	require.Contains(t, audit.records, "delete:/a.txt:ok")
}

func TestCompressionReducesStoredSize(t *testing.T) {
	path := tempPath(t)
	c, err := Create(path, "my-data", "My Data", config.WithCompression(page.CodecZstd))
	require.NoError(t, err)
	defer c.Close()

	data := bytes.Repeat([]byte("repeat-me-"), 2000)
	require.NoError(t, c.Write("/compressible.bin", data))

	got, err := c.Read("/compressible.bin")
	require.NoError(t, err)
	require.Equal(t, data, got)

	meta, err := c.Metadata("/compressible.bin")
	require.NoError(t, err)
	require.Less(t, len(meta.Blocks)*page.PayloadLen, len(data))
}

func TestFlushAndReopenPreservesState(t *testing.T) {
	path := tempPath(t)
	c, err := Create(path, "my-data", "My Data")
	require.NoError(t, err)
	require.NoError(t, c.Write("/x.txt", []byte("persisted")))
	require.NoError(t, c.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Read("/x.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("persisted"), got)
	require.Equal(t, "my-data", reopened.Slug())
}
