package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEncodeDecodeRoundTrip(t *testing.T) {
	m := New("my-data", "My Data")
	buf, err := m.Encode()
	require.NoError(t, err)

	decoded, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, "my-data", decoded.Slug)
	require.Equal(t, "My Data", decoded.Title)
	require.Equal(t, CurrentVersion, decoded.Version)
	require.Equal(t, m.CreatedAt, decoded.CreatedAt)
}

func TestDecodedFieldsMatchExpectedJSON(t *testing.T) {
	m := New("my-data", "My Data")
	buf, err := m.Encode()
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(buf, &raw))
	require.Equal(t, "my-data", raw["slug"])
	require.Equal(t, "My Data", raw["title"])
}

func TestUnknownFieldsPreservedOnRoundTrip(t *testing.T) {
	input := []byte(`{"slug":"s","title":"T","created_at":123,"version":"1.0","future_field":"kept"}`)

	m, err := Decode(input)
	require.NoError(t, err)

	out, err := m.Encode()
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &fields))
	require.Equal(t, "kept", fields["future_field"])
	require.Equal(t, "s", fields["slug"])
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte("not json"))
	require.Error(t, err)
}
