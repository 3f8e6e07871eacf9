package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

const (
	sidecarSuffix = ".meta.json"
	tempPrefix    = ".tmp-"
)

// LocalFileStorage keeps documents on the local filesystem below basePath.
// Content type and custom metadata live in a JSON sidecar next to each file.
type LocalFileStorage struct {
	basePath string
}

type sidecar struct {
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewLocalFileStorage creates basePath if needed
func NewLocalFileStorage(basePath string) (*LocalFileStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, NewStorageError("open", "", err, false)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, NewStorageError("open", "", err, false)
	}

	return &LocalFileStorage{basePath: absPath}, nil
}

// BasePath returns the absolute directory documents are stored in
func (l *LocalFileStorage) BasePath() string {
	return l.basePath
}

// Store writes data through a temp file and rename so readers never see a
// partial document
func (l *LocalFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if err := validateKey(key); err != nil {
		return NewStorageError("store", key, err, false)
	}
	if err := ctx.Err(); err != nil {
		return NewStorageError("store", key, err, false)
	}
	if opts == nil {
		opts = &StoreOptions{}
	}

	filePath := l.filePath(key)

	if !opts.Overwrite {
		if _, err := os.Stat(filePath); err == nil {
			return NewStorageError("store", key, ErrFileAlreadyExists, false)
		}
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return NewStorageError("store", key, err, true)
	}

	if err := writeAtomic(filePath, data); err != nil {
		return NewStorageError("store", key, err, true)
	}

	meta := sidecar{ContentType: contentTypeFor(key, opts.ContentType), Metadata: opts.Metadata}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return NewStorageError("store", key, err, false)
	}
	if err := writeAtomic(filePath+sidecarSuffix, encoded); err != nil {
		return NewStorageError("store", key, err, true)
	}

	return nil
}

func writeAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), tempPrefix+"*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (l *LocalFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, NewStorageError("retrieve", key, err, false)
	}

	data, err := os.ReadFile(l.filePath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewStorageError("retrieve", key, ErrFileNotFound, false)
		}
		return nil, NewStorageError("retrieve", key, err, true)
	}

	return data, nil
}

func (l *LocalFileStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return NewStorageError("delete", key, err, false)
	}

	filePath := l.filePath(key)
	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewStorageError("delete", key, ErrFileNotFound, false)
		}
		return NewStorageError("delete", key, err, true)
	}

	if err := os.Remove(filePath + sidecarSuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return NewStorageError("delete", key, err, true)
	}

	return nil
}

func (l *LocalFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, NewStorageError("exists", key, err, false)
	}

	if _, err := os.Stat(l.filePath(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, NewStorageError("exists", key, err, true)
	}

	return true, nil
}

func (l *LocalFileStorage) GetMetadata(ctx context.Context, key string) (*FileMetadata, error) {
	if err := validateKey(key); err != nil {
		return nil, NewStorageError("metadata", key, err, false)
	}

	info, err := os.Stat(l.filePath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewStorageError("metadata", key, ErrFileNotFound, false)
		}
		return nil, NewStorageError("metadata", key, err, true)
	}

	return l.describe(key, info), nil
}

func (l *LocalFileStorage) describe(key string, info fs.FileInfo) *FileMetadata {
	meta := &FileMetadata{
		Key:          key,
		Size:         info.Size(),
		ContentType:  contentTypeFor(key, ""),
		LastModified: info.ModTime().UTC(),
	}

	raw, err := os.ReadFile(l.filePath(key) + sidecarSuffix)
	if err != nil {
		return meta
	}

	var sc sidecar
	if json.Unmarshal(raw, &sc) == nil {
		if sc.ContentType != "" {
			meta.ContentType = sc.ContentType
		}
		meta.Metadata = sc.Metadata
	}

	return meta
}

// List walks basePath and returns documents in key order
func (l *LocalFileStorage) List(ctx context.Context, opts *ListOptions) (*ListResult, error) {
	if opts == nil {
		opts = &ListOptions{}
	}

	var keys []string
	err := filepath.WalkDir(l.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		if strings.HasSuffix(name, sidecarSuffix) || strings.HasPrefix(name, tempPrefix) {
			return nil
		}

		rel, err := filepath.Rel(l.basePath, p)
		if err != nil {
			return err
		}

		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, opts.Prefix) && key > opts.Marker {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, NewStorageError("list", opts.Prefix, err, true)
	}

	sort.Strings(keys)

	limit := maxResults(opts)
	result := &ListResult{Files: []FileMetadata{}}
	if len(keys) > limit {
		keys = keys[:limit]
		result.IsTruncated = true
	}

	for _, key := range keys {
		info, err := os.Stat(l.filePath(key))
		if err != nil {
			// removed while listing
			continue
		}
		result.Files = append(result.Files, *l.describe(key, info))
	}

	if result.IsTruncated && len(keys) > 0 {
		result.NextMarker = keys[len(keys)-1]
	}

	return result, nil
}

func (l *LocalFileStorage) Close() error {
	return nil
}

func (l *LocalFileStorage) filePath(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}

// validateKey rejects keys that could escape the storage root or collide
// with sidecar and temp files
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	if path.Clean(key) != key {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || strings.HasPrefix(part, tempPrefix) {
			return ErrInvalidKey
		}
	}
	if strings.HasSuffix(key, sidecarSuffix) {
		return ErrInvalidKey
	}
	return nil
}

func contentTypeFor(key, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
