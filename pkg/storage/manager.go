package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"zhcrawler/pkg/errors"
)

const (
	// SnapshotExt is the extension of page snapshot files
	SnapshotExt = ".json"

	// SnapshotDigits is the length of a snapshot name's timestamp fragment
	SnapshotDigits = 9

	// ImageDigits is the length of an image name's timestamp fragment
	ImageDigits = 8

	// maxNameAttempts bounds the search for a free file name
	maxNameAttempts = 10000
)

// Manager writes page snapshots and avatar images
type Manager struct {
	dataDir  string
	imageDir string

	mu       sync.Mutex
	reserved map[string]bool // paths claimed by in-flight writes
	now      func() time.Time
}

// NewManager creates both output directories if needed
func NewManager(dataDir, imageDir string) (*Manager, error) {
	for _, dir := range []string{dataDir, imageDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeStorage, 0, "failed to create output directory")
		}
	}

	return &Manager{
		dataDir:  dataDir,
		imageDir: imageDir,
		reserved: make(map[string]bool),
		now:      time.Now,
	}, nil
}

// DataDir returns the snapshot directory
func (m *Manager) DataDir() string {
	return m.dataDir
}

// ImageDir returns the image directory
func (m *Manager) ImageDir() string {
	return m.imageDir
}

// Fragment returns the last digits of t's Unix time in milliseconds,
// zero-padded to 13 digits first
func Fragment(t time.Time, digits int) string {
	s := fmt.Sprintf("%013d", t.UnixMilli())
	if digits <= 0 || digits >= len(s) {
		return s
	}
	return s[len(s)-digits:]
}

// SaveSnapshot writes items as a JSON array to a new
// <9-digit fragment>.json file and returns its path. Item bytes are
// written exactly as given.
func (m *Manager) SaveSnapshot(items []json.RawMessage) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(item)
	}
	buf.WriteByte(']')

	path, err := m.reserve(m.dataDir, "", SnapshotExt, SnapshotDigits)
	if err != nil {
		return "", err
	}
	defer m.release(path)

	if err := writeAtomic(path, &buf); err != nil {
		return "", err
	}
	return path, nil
}

// ListSnapshots returns the snapshot files in the data directory, sorted by name
func (m *Manager) ListSnapshots() ([]string, error) {
	entries, err := os.ReadDir(m.dataDir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, 0, "failed to read data directory")
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != SnapshotExt {
			continue
		}
		paths = append(paths, filepath.Join(m.dataDir, entry.Name()))
	}
	return paths, nil
}

// ReadSnapshot returns the raw contents of a snapshot file
func (m *Manager) ReadSnapshot(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, 0, "failed to read snapshot")
	}
	return data, nil
}

// SaveImage streams r into a new <name><8-digit fragment><ext> file in the
// image directory. Nothing is left behind if the copy fails.
func (m *Manager) SaveImage(r io.Reader, name, ext string) (string, error) {
	path, err := m.reserve(m.imageDir, name, ext, ImageDigits)
	if err != nil {
		return "", err
	}
	defer m.release(path)

	if err := writeAtomic(path, r); err != nil {
		return "", err
	}
	return path, nil
}

// reserve picks a free path, advancing the timestamp by one millisecond
// while the name is taken on disk or by another writer
func (m *Manager) reserve(dir, prefix, ext string, digits int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.now()
	for i := 0; i < maxNameAttempts; i++ {
		path := filepath.Join(dir, prefix+Fragment(t, digits)+ext)
		if !m.reserved[path] {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				m.reserved[path] = true
				return path, nil
			}
		}
		t = t.Add(time.Millisecond)
	}

	return "", errors.New(errors.ErrorTypeStorage, 0, "no free file name for %q in %s", prefix, dir)
}

func (m *Manager) release(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reserved, path)
}

// writeAtomic copies r into a temp file next to path, then renames it
func writeAtomic(path string, r io.Reader) error {
	dir, base := filepath.Split(path)
	out, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, 0, "failed to create temporary file")
	}
	tempFile := out.Name()

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return errors.Wrap(err, errors.ErrorTypeStorage, 0, "failed to write data")
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return errors.Wrap(closeErr, errors.ErrorTypeStorage, 0, "failed to close file")
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return errors.Wrap(err, errors.ErrorTypeStorage, 0, "failed to rename temporary file")
	}

	return nil
}

// SanitizeName makes a display name safe to use as a file name prefix.
// Path separators, control characters and <>:"|?* become '_'; leading and
// trailing spaces and dots are trimmed. An empty result yields fallback.
func SanitizeName(name, fallback string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case strings.ContainsRune(`<>:"|?*`, r):
			return '_'
		case unicode.IsControl(r):
			return '_'
		default:
			return r
		}
	}, name)

	cleaned = strings.Trim(cleaned, " .")
	if cleaned == "" {
		return fallback
	}
	return cleaned
}
