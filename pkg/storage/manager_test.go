package storage

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	zherrors "zhcrawler/pkg/errors"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	root := t.TempDir()
	m, err := NewManager(filepath.Join(root, "data"), filepath.Join(root, "imgs"))
	require.NoError(t, err)
	return m
}

func fixedClock(m *Manager, t time.Time) {
	m.now = func() time.Time { return t }
}

func TestNewManagerCreatesDirectories(t *testing.T) {
	m := newTestManager(t)

	for _, dir := range []string{m.DataDir(), m.ImageDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestFragment(t *testing.T) {
	ts := time.UnixMilli(1700000123456)

	assert.Equal(t, "000123456", Fragment(ts, SnapshotDigits))
	assert.Equal(t, "00123456", Fragment(ts, ImageDigits))
	assert.Equal(t, "1700000123456", Fragment(ts, 0))

	// Short timestamps are zero padded before slicing
	assert.Equal(t, "000000042", Fragment(time.UnixMilli(42), SnapshotDigits))
}

func TestSaveSnapshot(t *testing.T) {
	m := newTestManager(t)
	fixedClock(m, time.UnixMilli(1700000123456))

	items := []json.RawMessage{
		json.RawMessage(`{"id": 1, "author": {"name": "alice"}}`),
		json.RawMessage(`{"id":2}`),
	}

	path, err := m.SaveSnapshot(items)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.DataDir(), "000123456.json"), path)

	data, err := m.ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, `[{"id": 1, "author": {"name": "alice"}},{"id":2}]`, string(data))
}

func TestSaveSnapshotEmpty(t *testing.T) {
	m := newTestManager(t)

	path, err := m.SaveSnapshot(nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestSaveSnapshotAvoidsCollisions(t *testing.T) {
	m := newTestManager(t)
	fixedClock(m, time.UnixMilli(1700000123456))

	first, err := m.SaveSnapshot(nil)
	require.NoError(t, err)
	second, err := m.SaveSnapshot(nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(m.DataDir(), "000123456.json"), first)
	assert.Equal(t, filepath.Join(m.DataDir(), "000123457.json"), second)
}

func TestSaveSnapshotConcurrent(t *testing.T) {
	m := newTestManager(t)
	fixedClock(m, time.UnixMilli(1700000000000))

	var wg sync.WaitGroup
	paths := make([]string, 10)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := m.SaveSnapshot([]json.RawMessage{json.RawMessage(`{}`)})
			assert.NoError(t, err)
			paths[i] = p
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, p := range paths {
		assert.False(t, seen[p], "duplicate path %s", p)
		seen[p] = true
	}

	listed, err := m.ListSnapshots()
	require.NoError(t, err)
	assert.Len(t, listed, 10)
}

func TestListSnapshotsSortedAndFiltered(t *testing.T) {
	m := newTestManager(t)

	for _, name := range []string{"200.json", "100.json", "notes.txt", ".300.json.123.tmp"} {
		require.NoError(t, os.WriteFile(filepath.Join(m.DataDir(), name), []byte("[]"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(m.DataDir(), "dir.json"), 0755))

	paths, err := m.ListSnapshots()
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(m.DataDir(), "100.json"),
		filepath.Join(m.DataDir(), "200.json"),
	}, paths)
}

func TestListSnapshotsMissingDirectory(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, os.RemoveAll(m.DataDir()))

	_, err := m.ListSnapshots()
	require.Error(t, err)
	assert.True(t, zherrors.IsType(err, zherrors.ErrorTypeStorage))
}

func TestSaveImage(t *testing.T) {
	m := newTestManager(t)
	fixedClock(m, time.UnixMilli(1700000123456))

	path, err := m.SaveImage(strings.NewReader("png-bytes"), "alice", ".png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.ImageDir(), "alice00123456.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestSaveImageFailureLeavesNothing(t *testing.T) {
	m := newTestManager(t)

	_, err := m.SaveImage(io.MultiReader(strings.NewReader("partial"), failingReader{}), "bob", ".jpg")
	require.Error(t, err)
	assert.True(t, zherrors.IsType(err, zherrors.ErrorTypeStorage))

	entries, err := os.ReadDir(m.ImageDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "alice", "alice"},
		{"unicode kept", "知乎用户", "知乎用户"},
		{"separators", "a/b\\c", "a_b_c"},
		{"reserved", `x<y>:"z"|?*`, "x_y___z____"},
		{"control", "tab\there", "tab_here"},
		{"trimmed", "  ..dots.. ", "dots"},
		{"empty", "", "anonymous"},
		{"only dots", "...", "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in, "anonymous"))
		})
	}
}
