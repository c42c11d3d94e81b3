package catalog

import (
	"testing"

	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/a/b/c", "/a/b/c"},
		{"a/b/c", "/a/b/c"},
		{"/a//b/./c/", "/a/b/c"},
		{"/a/b/../c", "/a/c"},
		{"", "/"},
		{"/", "/"},
		{".", "/"},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestNormalizeRejectsEscapingTraversal(t *testing.T) {
	_, err := Normalize("/a/../../b")
	require.Error(t, err)
	require.Equal(t, cartridgeerr.InvalidPath, cartridgeerr.Of(err))
}

func TestNormalizePrefixClampsInvalidTraversal(t *testing.T) {
	require.Equal(t, "/", NormalizePrefix("/../.."))
	require.Equal(t, "/", NormalizePrefix(""))
	require.Equal(t, "/a/b", NormalizePrefix("a/b/"))
}

func TestNameAndParent(t *testing.T) {
	require.Equal(t, "c.txt", Name("/a/b/c.txt"))
	require.Equal(t, "/a/b", Parent("/a/b/c.txt"))
	require.Equal(t, "", Parent("/a"))
	require.Equal(t, "a", Name("/a"))
}

func TestHasPrefixIsBoundaryAware(t *testing.T) {
	require.True(t, HasPrefix("/foo/bar", "/foo"))
	require.True(t, HasPrefix("/foo", "/foo"))
	require.False(t, HasPrefix("/foobar", "/foo"))
	require.True(t, HasPrefix("/anything", "/"))
}
