package storage

import (
	"context"
	"time"
)

// FileMetadata describes a stored document
type FileMetadata struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type"`
	LastModified time.Time         `json:"last_modified"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ListOptions filters and pages a listing. Keys are returned in ascending
// order and Marker is the last key of the previous page.
type ListOptions struct {
	Prefix     string `json:"prefix,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
	Marker     string `json:"marker,omitempty"`
}

// ListResult is one page of a listing
type ListResult struct {
	Files       []FileMetadata `json:"files"`
	NextMarker  string         `json:"next_marker,omitempty"`
	IsTruncated bool           `json:"is_truncated"`
}

// StoreOptions controls how a document is written
type StoreOptions struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	// Overwrite replaces an existing document. Without it Store fails with
	// ErrFileAlreadyExists.
	Overwrite bool `json:"overwrite,omitempty"`
}

// FileStorage stores bill documents under slash separated keys such as
// bills/2026/AJ-GOLD-2026-0001.json
type FileStorage interface {
	Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error
	Retrieve(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetMetadata(ctx context.Context, key string) (*FileMetadata, error)
	List(ctx context.Context, opts *ListOptions) (*ListResult, error)
	Close() error
}

// Config selects and configures a storage backend
type Config struct {
	Type     string `json:"type" mapstructure:"type"`
	BasePath string `json:"base_path" mapstructure:"base_path"`
}

const defaultMaxResults = 1000

func maxResults(opts *ListOptions) int {
	if opts == nil || opts.MaxResults <= 0 {
		return defaultMaxResults
	}
	return opts.MaxResults
}
