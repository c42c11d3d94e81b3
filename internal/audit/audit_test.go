package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestRecordAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	l.Record("write", "/a.txt", "ok", nil)
	l.Record("delete", "/a.txt", "ok", []byte(`{"size":3}`))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var records []Record
	for scanner.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		records = append(records, r)
	}
	require.Len(t, records, 2)
	require.Equal(t, "write", records[0].Operation)
	require.Equal(t, "delete", records[1].Operation)
	require.Equal(t, json.RawMessage(`{"size":3}`), records[1].MetadataJSON)
}

func TestRecordAppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l1, err := Open(path)
	require.NoError(t, err)
	l1.Record("write", "/a.txt", "ok", nil)
	require.NoError(t, l1.Close())

	l2, err := Open(path)
	require.NoError(t, err)
	defer l2.Close()
	l2.Record("write", "/b.txt", "ok", nil)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	require.Equal(t, 2, lines)
}

func TestWithLogrusForwardsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	log, hook := test.NewNullLogger()
	l.WithLogrus(log)

	l.Record("read", "/a.txt", "ok", nil)

	require.Len(t, hook.Entries, 1)
	require.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	require.Equal(t, "read", hook.LastEntry().Data["operation"])
}
