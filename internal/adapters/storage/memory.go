package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryFileStorage keeps documents in process memory. It backs the
// "memory" storage type and lets tests inject failures.
type MemoryFileStorage struct {
	mu       sync.RWMutex
	files    map[string]*memoryFile
	failures []error
	closed   bool
}

type memoryFile struct {
	data        []byte
	contentType string
	metadata    map[string]string
	modified    time.Time
}

// NewMemoryFileStorage creates an empty in-memory store
func NewMemoryFileStorage() *MemoryFileStorage {
	return &MemoryFileStorage{files: make(map[string]*memoryFile)}
}

// FailNext makes the next len(errs) operations return errs in order
func (m *MemoryFileStorage) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, errs...)
}

// nextFailure pops an injected failure. Callers hold the write lock.
func (m *MemoryFileStorage) nextFailure() error {
	if m.closed {
		return ErrClosed
	}
	if len(m.failures) == 0 {
		return nil
	}
	err := m.failures[0]
	m.failures = m.failures[1:]
	return err
}

func (m *MemoryFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if err := validateKey(key); err != nil {
		return NewStorageError("store", key, err, false)
	}
	if opts == nil {
		opts = &StoreOptions{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.nextFailure(); err != nil {
		return err
	}

	if _, exists := m.files[key]; exists && !opts.Overwrite {
		return NewStorageError("store", key, ErrFileAlreadyExists, false)
	}

	m.files[key] = &memoryFile{
		data:        append([]byte(nil), data...),
		contentType: contentTypeFor(key, opts.ContentType),
		metadata:    copyMetadata(opts.Metadata),
		modified:    time.Now().UTC(),
	}
	return nil
}

func (m *MemoryFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, NewStorageError("retrieve", key, err, false)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.nextFailure(); err != nil {
		return nil, err
	}

	file, ok := m.files[key]
	if !ok {
		return nil, NewStorageError("retrieve", key, ErrFileNotFound, false)
	}
	return append([]byte(nil), file.data...), nil
}

func (m *MemoryFileStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return NewStorageError("delete", key, err, false)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.nextFailure(); err != nil {
		return err
	}

	if _, ok := m.files[key]; !ok {
		return NewStorageError("delete", key, ErrFileNotFound, false)
	}
	delete(m.files, key)
	return nil
}

func (m *MemoryFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, NewStorageError("exists", key, err, false)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.nextFailure(); err != nil {
		return false, err
	}

	_, ok := m.files[key]
	return ok, nil
}

func (m *MemoryFileStorage) GetMetadata(ctx context.Context, key string) (*FileMetadata, error) {
	if err := validateKey(key); err != nil {
		return nil, NewStorageError("metadata", key, err, false)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.nextFailure(); err != nil {
		return nil, err
	}

	file, ok := m.files[key]
	if !ok {
		return nil, NewStorageError("metadata", key, ErrFileNotFound, false)
	}
	return file.describe(key), nil
}

func (m *MemoryFileStorage) List(ctx context.Context, opts *ListOptions) (*ListResult, error) {
	if opts == nil {
		opts = &ListOptions{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.nextFailure(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(m.files))
	for key := range m.files {
		if strings.HasPrefix(key, opts.Prefix) && key > opts.Marker {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	limit := maxResults(opts)
	result := &ListResult{Files: []FileMetadata{}}
	if len(keys) > limit {
		keys = keys[:limit]
		result.IsTruncated = true
		result.NextMarker = keys[len(keys)-1]
	}

	for _, key := range keys {
		result.Files = append(result.Files, *m.files[key].describe(key))
	}
	return result, nil
}

// Close drops every document. Later calls fail with ErrClosed.
func (m *MemoryFileStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = make(map[string]*memoryFile)
	m.closed = true
	return nil
}

// Len returns the number of stored documents
func (m *MemoryFileStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

func (f *memoryFile) describe(key string) *FileMetadata {
	return &FileMetadata{
		Key:          key,
		Size:         int64(len(f.data)),
		ContentType:  f.contentType,
		LastModified: f.modified,
		Metadata:     copyMetadata(f.metadata),
	}
}

func copyMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
