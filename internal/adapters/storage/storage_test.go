package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

// backends runs fn against every FileStorage implementation
func backends(t *testing.T, fn func(t *testing.T, s FileStorage)) {
	t.Run("Local", func(t *testing.T) {
		s, err := NewLocalFileStorage(t.TempDir())
		if err != nil {
			t.Fatalf("NewLocalFileStorage failed: %v", err)
		}
		fn(t, s)
	})
	t.Run("Memory", func(t *testing.T) {
		fn(t, NewMemoryFileStorage())
	})
}

func TestFileStorage_StoreAndRetrieve(t *testing.T) {
	backends(t, func(t *testing.T, s FileStorage) {
		ctx := context.Background()
		key := "bills/2026/AJ-GOLD-2026-0001.json"
		data := []byte(`{"bill_number":"AJ-GOLD-2026-0001"}`)

		err := s.Store(ctx, key, data, &StoreOptions{Metadata: map[string]string{"type": "Bill"}})
		if err != nil {
			t.Fatalf("Store failed: %v", err)
		}

		got, err := s.Retrieve(ctx, key)
		if err != nil {
			t.Fatalf("Retrieve failed: %v", err)
		}
		if string(got) != string(data) {
			t.Errorf("Retrieve = %s, want %s", got, data)
		}

		exists, err := s.Exists(ctx, key)
		if err != nil || !exists {
			t.Errorf("Exists = %v, %v, want true", exists, err)
		}

		meta, err := s.GetMetadata(ctx, key)
		if err != nil {
			t.Fatalf("GetMetadata failed: %v", err)
		}
		if meta.Size != int64(len(data)) {
			t.Errorf("Size = %d, want %d", meta.Size, len(data))
		}
		if meta.ContentType != "application/json" {
			t.Errorf("ContentType = %q, want application/json", meta.ContentType)
		}
		if meta.Metadata["type"] != "Bill" {
			t.Errorf("Metadata[type] = %q, want Bill", meta.Metadata["type"])
		}
	})
}

func TestFileStorage_Overwrite(t *testing.T) {
	backends(t, func(t *testing.T, s FileStorage) {
		ctx := context.Background()
		key := "bills/2026/EST-SILVER-2026-0002.json"

		if err := s.Store(ctx, key, []byte("first"), nil); err != nil {
			t.Fatalf("Store failed: %v", err)
		}

		err := s.Store(ctx, key, []byte("second"), nil)
		if !IsAlreadyExists(err) {
			t.Fatalf("Store without overwrite = %v, want already exists", err)
		}

		if err := s.Store(ctx, key, []byte("second"), &StoreOptions{Overwrite: true}); err != nil {
			t.Fatalf("Store with overwrite failed: %v", err)
		}

		got, _ := s.Retrieve(ctx, key)
		if string(got) != "second" {
			t.Errorf("Retrieve = %q, want second", got)
		}
	})
}

func TestFileStorage_NotFound(t *testing.T) {
	backends(t, func(t *testing.T, s FileStorage) {
		ctx := context.Background()

		if _, err := s.Retrieve(ctx, "bills/missing.json"); !IsNotFound(err) {
			t.Errorf("Retrieve = %v, want not found", err)
		}
		if err := s.Delete(ctx, "bills/missing.json"); !IsNotFound(err) {
			t.Errorf("Delete = %v, want not found", err)
		}
		if _, err := s.GetMetadata(ctx, "bills/missing.json"); !IsNotFound(err) {
			t.Errorf("GetMetadata = %v, want not found", err)
		}
		exists, err := s.Exists(ctx, "bills/missing.json")
		if err != nil || exists {
			t.Errorf("Exists = %v, %v, want false, nil", exists, err)
		}
	})
}

func TestFileStorage_InvalidKeys(t *testing.T) {
	keys := []string{"", "/etc/passwd", "../outside.json", "bills/../../x", "bills//a.json", "bills/a.json.meta.json", "bills/.tmp-1"}

	backends(t, func(t *testing.T, s FileStorage) {
		for _, key := range keys {
			t.Run(fmt.Sprintf("%q", key), func(t *testing.T) {
				err := s.Store(context.Background(), key, []byte("x"), nil)
				if !errors.Is(err, ErrInvalidKey) {
					t.Errorf("Store(%q) = %v, want ErrInvalidKey", key, err)
				}
			})
		}
	})
}

func TestFileStorage_ListAndDelete(t *testing.T) {
	backends(t, func(t *testing.T, s FileStorage) {
		ctx := context.Background()
		keys := []string{
			"bills/2025/AJ-GOLD-2025-0009.json",
			"bills/2026/AJ-GOLD-2026-0001.json",
			"bills/2026/AJ-GOLD-2026-0002.json",
			"bills/2026/AJ-SILVER-2026-0001.json",
		}
		for _, key := range keys {
			if err := s.Store(ctx, key, []byte("{}"), &StoreOptions{Metadata: map[string]string{"k": key}}); err != nil {
				t.Fatalf("Store(%s) failed: %v", key, err)
			}
		}

		page, err := s.List(ctx, &ListOptions{Prefix: "bills/2026/", MaxResults: 2})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(page.Files) != 2 || !page.IsTruncated {
			t.Fatalf("first page = %d files truncated=%v, want 2 truncated", len(page.Files), page.IsTruncated)
		}
		if page.Files[0].Key != keys[1] || page.Files[1].Key != keys[2] {
			t.Errorf("first page keys = %s, %s", page.Files[0].Key, page.Files[1].Key)
		}

		next, err := s.List(ctx, &ListOptions{Prefix: "bills/2026/", MaxResults: 2, Marker: page.NextMarker})
		if err != nil {
			t.Fatalf("List page 2 failed: %v", err)
		}
		if len(next.Files) != 1 || next.IsTruncated || next.Files[0].Key != keys[3] {
			t.Errorf("second page = %+v", next)
		}

		if err := s.Delete(ctx, keys[0]); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		all, err := s.List(ctx, nil)
		if err != nil {
			t.Fatalf("List all failed: %v", err)
		}
		if len(all.Files) != 3 {
			t.Errorf("List after delete = %d files, want 3", len(all.Files))
		}
	})
}

func TestLocalFileStorage_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalFileStorage(dir)
	if err != nil {
		t.Fatalf("NewLocalFileStorage failed: %v", err)
	}

	if err := s.Store(context.Background(), "bills/2026/a.json", []byte("{}"), nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "bills", "2026"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	if len(names) != 2 || !names["a.json"] || !names["a.json"+sidecarSuffix] {
		t.Errorf("directory entries = %v, want document and sidecar only", names)
	}
}

func TestLocalFileStorage_CancelledContext(t *testing.T) {
	s, err := NewLocalFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFileStorage failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Store(ctx, "bills/a.json", []byte("{}"), nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Store = %v, want context.Canceled", err)
	}
}

func TestMemoryFileStorage_Close(t *testing.T) {
	s := NewMemoryFileStorage()
	ctx := context.Background()

	if err := s.Store(ctx, "a.json", []byte("{}"), nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len after Close = %d, want 0", s.Len())
	}
	if err := s.Store(ctx, "a.json", []byte("{}"), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Store after Close = %v, want ErrClosed", err)
	}
}

func TestRetryConfig_Delay(t *testing.T) {
	config := &RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 300 * time.Millisecond},
		{6, 300 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt %d", tt.attempt), func(t *testing.T) {
			if got := config.Delay(tt.attempt); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func fastRetry() *RetryConfig {
	return &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func TestWithRetry(t *testing.T) {
	transient := NewStorageError("store", "k", ErrStorageUnavailable, true)
	permanent := NewStorageError("store", "k", ErrInvalidKey, false)

	tests := []struct {
		name         string
		errs         []error
		wantAttempts int
		wantErr      error
	}{
		{"SucceedsFirstTime", nil, 1, nil},
		{"RecoversFromTransient", []error{transient}, 2, nil},
		{"GivesUpAfterMaxAttempts", []error{transient, transient, transient}, 3, ErrStorageUnavailable},
		{"StopsOnPermanent", []error{permanent, transient}, 1, ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := WithRetry(context.Background(), fastRetry(), testLogger(), "store", func(ctx context.Context) error {
				attempts++
				if attempts <= len(tt.errs) {
					return tt.errs[attempts-1]
				}
				return nil
			})

			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("err = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := WithRetry(ctx, fastRetry(), nil, "store", func(ctx context.Context) error {
		called = true
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Error("operation ran after cancellation")
	}
}

func TestRetryableFileStorage(t *testing.T) {
	inner := NewMemoryFileStorage()
	s := NewRetryableFileStorage(inner, fastRetry(), testLogger())
	ctx := context.Background()

	inner.FailNext(NewStorageError("store", "a.json", ErrStorageUnavailable, true))
	if err := s.Store(ctx, "a.json", []byte("{}"), nil); err != nil {
		t.Fatalf("Store with one transient failure = %v", err)
	}

	inner.FailNext(ErrStorageUnavailable, ErrStorageUnavailable)
	data, err := s.Retrieve(ctx, "a.json")
	if err != nil || string(data) != "{}" {
		t.Errorf("Retrieve = %q, %v", data, err)
	}

	if _, err := s.Retrieve(ctx, "missing.json"); !IsNotFound(err) {
		t.Errorf("Retrieve missing = %v, want not found", err)
	}
}

func TestFactory_Create(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantNil bool
		wantErr bool
	}{
		{"Local", &Config{Type: "local", BasePath: t.TempDir()}, false, false},
		{"DefaultIsLocal", &Config{BasePath: t.TempDir()}, false, false},
		{"Memory", &Config{Type: "MEMORY"}, false, false},
		{"None", &Config{Type: "none"}, true, false},
		{"Unsupported", &Config{Type: "s3"}, true, true},
		{"NilConfig", nil, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewFactory(fastRetry(), testLogger()).Create(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Create err = %v, wantErr %v", err, tt.wantErr)
			}
			if (s == nil) != tt.wantNil {
				t.Fatalf("Create storage = %v, wantNil %v", s, tt.wantNil)
			}
			if s != nil {
				if _, ok := s.(*RetryableFileStorage); !ok {
					t.Errorf("Create returned %T, want *RetryableFileStorage", s)
				}
				s.Close()
			}
		})
	}
}
