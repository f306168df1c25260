package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

var _ Storage = (*MemoryStorage)(nil)

// MemoryStorage keeps objects in process memory. The API and job tests use
// it in place of MinIO; downloads return copies so callers cannot mutate
// stored sources or outputs.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]object

	// Unhealthy, when set, is returned by HealthCheck.
	Unhealthy error
}

type object struct {
	data        []byte
	contentType string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]object)}
}

func (s *MemoryStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return ErrInvalidKey
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("upload %s: got %d bytes, want %d", key, len(data), size)
	}

	s.mu.Lock()
	s.objects[key] = object{data: data, contentType: contentType}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := s.get(ctx, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetPresignedURL returns a memory:// URL; there is nothing to sign.
func (s *MemoryStorage) GetPresignedURL(ctx context.Context, key string, expirySeconds int) (string, error) {
	if _, err := s.get(ctx, key); err != nil {
		return "", err
	}
	return fmt.Sprintf("memory://%s?expires=%d", key, expirySeconds), nil
}

func (s *MemoryStorage) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Unhealthy
}

func (s *MemoryStorage) get(ctx context.Context, key string) (object, error) {
	if err := ctx.Err(); err != nil {
		return object{}, err
	}
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return object{}, ErrNotFound
	}
	return obj, nil
}

// GetData returns the stored bytes for key without copying.
func (s *MemoryStorage) GetData(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.data, ok
}

func (s *MemoryStorage) GetContentType(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.contentType, ok
}

func (s *MemoryStorage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Keys lists stored keys under prefix in sorted order.
func (s *MemoryStorage) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
