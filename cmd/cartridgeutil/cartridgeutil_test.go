package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cartridgeio/cartridge/pkg/cartridge"
	"github.com/stretchr/testify/require"
)

func newTestContainer(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "util-test.cart")
	c, err := cartridge.Create(path, "util-test", "Util Test")
	require.NoError(t, err)
	require.NoError(t, c.Write("/greeting.txt", []byte("hello")))
	require.NoError(t, c.Close())
	return path
}

func TestInfoCmdPrintsSummary(t *testing.T) {
	path := newTestContainer(t)
	out := captureStdout(t, func() {
		require.NoError(t, infoCmd.RunE(infoCmd, []string{path}))
	})
	require.Contains(t, out, "util-test")
}

func TestLsCmdListsEntries(t *testing.T) {
	path := newTestContainer(t)
	out := captureStdout(t, func() {
		require.NoError(t, lsCmd.RunE(lsCmd, []string{path}))
	})
	require.Contains(t, out, "/greeting.txt")
}

func TestCatCmdPrintsFileContents(t *testing.T) {
	path := newTestContainer(t)
	out := captureStdout(t, func() {
		require.NoError(t, catCmd.RunE(catCmd, []string{path, "/greeting.txt"}))
	})
	require.Equal(t, "hello", out)
}

func TestStatCmdPrintsMetadata(t *testing.T) {
	path := newTestContainer(t)
	out := captureStdout(t, func() {
		require.NoError(t, statCmd.RunE(statCmd, []string{path, "/greeting.txt"}))
	})
	require.Contains(t, out, "size:")
	require.Contains(t, out, "checksum:")
}

func TestCatCmdMissingPathReturnsError(t *testing.T) {
	path := newTestContainer(t)
	err := catCmd.RunE(catCmd, []string{path, "/nope.txt"})
	require.Error(t, err)
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	old := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	require.NoError(t, w.Close())
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}
