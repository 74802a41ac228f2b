package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Store persists raw cache entries. Entries are never evicted.
type Store interface {
	// Get returns the entry and true, or false if there is none.
	Get(category, key string, version int) ([]byte, bool, error)
	Put(category, key string, version int, data []byte) error
}

// MemoryStore keeps entries in process memory. It backs runs that must
// not touch the disk cache.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

func memoryKey(category, key string, version int) string {
	return category + "\x00" + strconv.Itoa(version) + "\x00" + key
}

func (s *MemoryStore) Get(category, key string, version int) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.entries[memoryKey(category, key, version)]
	return data, ok, nil
}

func (s *MemoryStore) Put(category, key string, version int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[memoryKey(category, key, version)] = data
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// zstdEncoder and zstdDecoder are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("cache: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("cache: zstd decoder initialization failed: " + err.Error())
	}
}

// fileEntry is the on-disk record. Key is stored in full so that a lookup
// never returns an entry written for a different key.
type fileEntry struct {
	Key     string `json:"key"`
	Version int    `json:"version"`
	Data    []byte `json:"data"`
}

// FileStore keeps one zstd-compressed CBOR file per entry under
// root/<category>/v<version>/.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) path(category, key string, version int) string {
	return filepath.Join(s.root, category, "v"+strconv.Itoa(version), keyedHash(entryDomainKey, []byte(key))+".zst")
}

func (s *FileStore) Get(category, key string, version int) ([]byte, bool, error) {
	compressed, err := os.ReadFile(s.path(category, key, version))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s entry: %w", category, err)
	}

	raw, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false, fmt.Errorf("zstd decompress %s entry: %w", category, err)
	}
	var entry fileEntry
	if err := Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("decoding %s entry: %w", category, err)
	}
	if entry.Key != key || entry.Version != version {
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Put writes the entry atomically via temp file + rename.
func (s *FileStore) Put(category, key string, version int, data []byte) error {
	raw, err := Marshal(fileEntry{Key: key, Version: version, Data: data})
	if err != nil {
		return fmt.Errorf("encoding %s entry: %w", category, err)
	}

	finalPath := s.path(category, key, version)
	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp entry file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(zstdEncoder.EncodeAll(raw, nil)); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing %s entry: %w", category, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp entry file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("renaming entry file: %w", err)
	}

	success = true
	return nil
}
