package metrics

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/resize.cheap/internal/storage"
)

// InstrumentedStorage records operation counts, latency and bytes moved
// for the wrapped Storage, split by key space (sources or outputs).
type InstrumentedStorage struct {
	storage.Storage
}

func NewInstrumentedStorage(s storage.Storage) *InstrumentedStorage {
	return &InstrumentedStorage{Storage: s}
}

func (s *InstrumentedStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error {
	done := observeStorage("upload", key)
	err := s.Storage.Upload(ctx, key, reader, contentType, size)
	done(err)
	if err == nil {
		StorageBytesTotal.WithLabelValues("upload", keySpace(key)).Add(float64(size))
	}
	return err
}

func (s *InstrumentedStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	done := observeStorage("download", key)
	r, err := s.Storage.Download(ctx, key)
	done(err)
	if err != nil {
		return nil, err
	}
	return &countingReader{ReadCloser: r, space: keySpace(key)}, nil
}

func (s *InstrumentedStorage) Delete(ctx context.Context, key string) error {
	done := observeStorage("delete", key)
	err := s.Storage.Delete(ctx, key)
	done(err)
	return err
}

func (s *InstrumentedStorage) Exists(ctx context.Context, key string) (bool, error) {
	done := observeStorage("exists", key)
	ok, err := s.Storage.Exists(ctx, key)
	done(err)
	return ok, err
}

func (s *InstrumentedStorage) GetPresignedURL(ctx context.Context, key string, expirySeconds int) (string, error) {
	done := observeStorage("presign", key)
	u, err := s.Storage.GetPresignedURL(ctx, key, expirySeconds)
	done(err)
	return u, err
}

func (s *InstrumentedStorage) HealthCheck(ctx context.Context) error {
	done := observeStorage("health", "")
	err := s.Storage.HealthCheck(ctx)
	done(err)
	return err
}

// keySpace maps a key to a bounded label value.
func keySpace(key string) string {
	switch {
	case key == "":
		return "none"
	case strings.HasPrefix(key, storage.SourcePrefix):
		return "sources"
	case strings.HasPrefix(key, storage.OutputPrefix):
		return "outputs"
	default:
		return "other"
	}
}

// observeStorage starts timing an operation and returns the func that
// records its outcome. A missing object is its own status so 404s do not
// read as backend failures.
func observeStorage(operation, key string) func(error) {
	start := time.Now()
	space := keySpace(key)
	return func(err error) {
		status := "success"
		switch {
		case errors.Is(err, storage.ErrNotFound):
			status = "not_found"
		case err != nil:
			status = "error"
		}
		StorageOperationsTotal.WithLabelValues(operation, space, status).Inc()
		StorageOperationDuration.WithLabelValues(operation, space).Observe(time.Since(start).Seconds())
	}
}

type countingReader struct {
	io.ReadCloser
	space string
	n     int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	r.n += int64(n)
	return n, err
}

func (r *countingReader) Close() error {
	StorageBytesTotal.WithLabelValues("download", r.space).Add(float64(r.n))
	return r.ReadCloser.Close()
}
