package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/docsearch/internal/corpus"
)

// ErrNotFound is returned by Load when nothing has been saved yet
var ErrNotFound = errors.New("corpus file not found")

// CorpusStorage defines the interface for persisting a document collection
type CorpusStorage interface {
	Exists() (bool, error)
	Load() (*corpus.Snapshot, error)
	Save(snap *corpus.Snapshot) error
	Close() error
}

// Format is the on-disk encoding of a corpus file
type Format int

const (
	FormatJSON Format = iota
	FormatTSV
)

func (f Format) String() string {
	if f == FormatTSV {
		return "tsv"
	}
	return "json"
}

// FormatFor picks the encoding from the file extension
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return FormatTSV
	}
	return FormatJSON
}

// FileStorage implements CorpusStorage using a single local file
type FileStorage struct {
	path   string
	format Format
	logger *logrus.Entry
	mu     sync.RWMutex
}

// NewFileStorage creates a new file-based storage
func NewFileStorage(path string, logger *logrus.Entry) (*FileStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if logger == nil {
		logger = logrus.WithField("component", "file_storage")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return &FileStorage{
		path:   path,
		format: FormatFor(path),
		logger: logger,
	}, nil
}

func (fs *FileStorage) Path() string {
	return fs.path
}

func (fs *FileStorage) Format() Format {
	return fs.format
}

// Exists reports whether a corpus file has been saved
func (fs *FileStorage) Exists() (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, err := os.Stat(fs.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat corpus file: %w", err)
}

// Load reads the corpus file
func (fs *FileStorage) Load() (*corpus.Snapshot, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	f, err := os.Open(fs.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fs.path)
		}
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()

	var snap *corpus.Snapshot
	switch fs.format {
	case FormatTSV:
		snap, err = decodeTSV(f, corpusName(fs.path))
	default:
		snap, err = decodeJSON(f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", fs.path, err)
	}

	fs.logger.WithFields(logrus.Fields{
		"path":      fs.path,
		"documents": snap.Len(),
	}).Info("Loaded corpus")
	return snap, nil
}

// Save writes the snapshot to a temporary file and renames it into place
func (fs *FileStorage) Save(snap *corpus.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nothing to save")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	switch fs.format {
	case FormatTSV:
		err = encodeTSV(tmp, snap)
	default:
		err = encodeJSON(tmp, snap)
	}
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode corpus: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	fs.logger.WithFields(logrus.Fields{
		"path":      fs.path,
		"format":    fs.format.String(),
		"documents": snap.Len(),
	}).Info("Saved corpus")
	return nil
}

// Close is a no-op for file storage
func (fs *FileStorage) Close() error {
	return nil
}

func corpusName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
