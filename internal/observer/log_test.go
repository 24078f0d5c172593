package observer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_AppendsInOrder(t *testing.T) {
	l := New()
	l.AddNote("domain classified", map[string]any{"domain": "legal"})
	l.AddNote("decision", nil)

	notes := l.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, "domain classified", notes[0].Note)
	assert.Equal(t, "legal", notes[0].Metadata["domain"])
	assert.Nil(t, notes[1].Metadata)
	assert.NotEqual(t, notes[0].ID, notes[1].ID)
	assert.False(t, notes[0].Timestamp.IsZero())
	assert.False(t, notes[1].Timestamp.Before(notes[0].Timestamp))
}

func TestLog_MetadataCopiedOnWrite(t *testing.T) {
	l := New()
	meta := map[string]any{
		"claims": []string{"a"},
		"nested": map[string]any{"degraded": true},
	}
	l.AddNote("n", meta)

	meta["claims"].([]string)[0] = "changed"
	meta["nested"].(map[string]any)["degraded"] = false
	meta["extra"] = 1

	got := l.Notes()[0].Metadata
	assert.Equal(t, []string{"a"}, got["claims"])
	assert.Equal(t, true, got["nested"].(map[string]any)["degraded"])
	assert.NotContains(t, got, "extra")
}

func TestLog_MetadataCopiedOnRead(t *testing.T) {
	l := New()
	l.AddNote("n", map[string]any{"nested": map[string]any{"k": "v"}, "list": []any{"x"}})

	first := l.Notes()
	first[0].Metadata["nested"].(map[string]any)["k"] = "tampered"
	first[0].Metadata["list"].([]any)[0] = "tampered"
	first[0].Note = "tampered"

	again := l.Notes()[0]
	assert.Equal(t, "n", again.Note)
	assert.Equal(t, "v", again.Metadata["nested"].(map[string]any)["k"])
	assert.Equal(t, "x", again.Metadata["list"].([]any)[0])
}

func TestLog_SinkWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithSink(&buf))
	l.AddNote("first", map[string]any{"degraded": true})
	l.AddNote("second", nil)

	scanner := bufio.NewScanner(&buf)
	var decoded []model.ObserverNote
	for scanner.Scan() {
		var n model.ObserverNote
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &n))
		decoded = append(decoded, n)
	}
	require.Len(t, decoded, 2)
	assert.Equal(t, "first", decoded[0].Note)
	assert.Equal(t, true, decoded[0].Metadata["degraded"])
	assert.Equal(t, l.Notes()[1].ID, decoded[1].ID)
}

func TestOpen_AppendsAcrossSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	for _, note := range []string{"one", "two"} {
		l, err := Open(path)
		require.NoError(t, err)
		l.AddNote(note, nil)
		require.NoError(t, l.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("\n")))
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "audit.jsonl"))
	assert.Error(t, err)
}

func TestLog_ConcurrentAddNote(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.AddNote("n", map[string]any{"i": i})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 64, l.Len())
}
