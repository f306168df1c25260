package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"source", SourceKey("req-1"), "sources/req-1"},
		{"output", OutputKey("req-1", "webp"), "outputs/req-1.webp"},
		{"output with dot", OutputKey("req-1", ".jpg"), "outputs/req-1.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestMemoryStorage_Upload(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		content     string
		contentType string
		wantErr     error
	}{
		{
			name:        "upload source image",
			key:         SourceKey("abc"),
			content:     "\xff\xd8\xff\xe0binary data",
			contentType: "image/jpeg",
		},
		{
			name:        "upload empty content",
			key:         OutputKey("abc", "png"),
			content:     "",
			contentType: "image/png",
		},
		{
			name:        "upload with empty key",
			key:         "",
			content:     "content",
			contentType: "image/png",
			wantErr:     ErrInvalidKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStorage()
			err := s.Upload(context.Background(), tt.key, strings.NewReader(tt.content), tt.contentType, int64(len(tt.content)))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Upload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}

			data, ok := s.GetData(tt.key)
			if !ok {
				t.Fatal("Upload() file not stored")
			}
			if string(data) != tt.content {
				t.Errorf("stored content = %q, want %q", data, tt.content)
			}
			if ct, _ := s.GetContentType(tt.key); ct != tt.contentType {
				t.Errorf("content type = %q, want %q", ct, tt.contentType)
			}
		})
	}
}

func TestMemoryStorage_Download(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	if _, err := s.Download(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Download(missing) error = %v, want ErrNotFound", err)
	}

	_ = s.Upload(ctx, "k", strings.NewReader("payload"), "image/png", 7)

	r, err := s.Download(ctx, "k")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	defer func() { _ = r.Close() }()

	got, _ := io.ReadAll(r)
	if !bytes.Equal(got, []byte("payload")) {
		t.Errorf("Download() = %q, want %q", got, "payload")
	}
}

func TestMemoryStorage_DeleteAndExists(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()
	_ = s.Upload(ctx, "k", strings.NewReader("x"), "image/png", 1)

	if ok, _ := s.Exists(ctx, "k"); !ok {
		t.Fatal("Exists() = false after upload")
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Error("Exists() = true after delete")
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete() on missing key should be idempotent, got %v", err)
	}
}

func TestMemoryStorage_ContextCanceled(t *testing.T) {
	s := NewMemoryStorage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Upload(ctx, "k", strings.NewReader("x"), "image/png", 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Upload() error = %v, want context.Canceled", err)
	}
	if _, err := s.Download(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Download() error = %v, want context.Canceled", err)
	}
	if err := s.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestMemoryStorage_HealthCheck(t *testing.T) {
	s := NewMemoryStorage()
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	s.Unhealthy = errors.New("disk on fire")
	if err := s.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() expected error")
	}
}

func TestMemoryStorage_GetPresignedURL(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	if _, err := s.GetPresignedURL(ctx, "missing", 60); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPresignedURL(missing) error = %v, want ErrNotFound", err)
	}

	_ = s.Upload(ctx, "outputs/a.png", strings.NewReader("x"), "image/png", 1)
	url, err := s.GetPresignedURL(ctx, "outputs/a.png", 60)
	if err != nil {
		t.Fatalf("GetPresignedURL() error = %v", err)
	}
	if !strings.Contains(url, "outputs/a.png") {
		t.Errorf("GetPresignedURL() = %q, want it to contain the key", url)
	}
}

func TestMemoryStorage_Concurrent(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := SourceKey(string(rune('a' + i%26)))
			_ = s.Upload(ctx, key, strings.NewReader("data"), "image/png", 4)
			_, _ = s.Exists(ctx, key)
			if r, err := s.Download(ctx, key); err == nil {
				_ = r.Close()
			}
		}(i)
	}
	wg.Wait()

	if s.Count() != 26 {
		t.Errorf("Count() = %d, want 26", s.Count())
	}
}

func TestMemoryStorage_SizeMismatch(t *testing.T) {
	s := NewMemoryStorage()
	err := s.Upload(context.Background(), "sources/a", strings.NewReader("abc"), "", 5)
	if err == nil {
		t.Fatal("Upload() with wrong size succeeded")
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
}

func TestMemoryStorage_Keys(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()
	for _, key := range []string{OutputKey("b", "png"), SourceKey("a"), OutputKey("a", "jpg")} {
		if err := s.Upload(ctx, key, strings.NewReader("x"), "", 1); err != nil {
			t.Fatalf("Upload(%s) error = %v", key, err)
		}
	}

	got := s.Keys("outputs/")
	want := []string{"outputs/a.jpg", "outputs/b.png"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Keys(outputs/) = %v, want %v", got, want)
	}
}

func TestPutOptions(t *testing.T) {
	tests := []struct {
		key         string
		cache       string
		disposition string
	}{
		{OutputKey("req-1", "webp"), "public, max-age=31536000, immutable", `inline; filename="req-1.webp"`},
		{SourceKey("req-1"), "no-store", ""},
		{"other/key", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			opts := putOptions(tt.key, "image/webp")
			if opts.ContentType != "image/webp" {
				t.Errorf("ContentType = %q", opts.ContentType)
			}
			if opts.CacheControl != tt.cache {
				t.Errorf("CacheControl = %q, want %q", opts.CacheControl, tt.cache)
			}
			if opts.ContentDisposition != tt.disposition {
				t.Errorf("ContentDisposition = %q, want %q", opts.ContentDisposition, tt.disposition)
			}
		})
	}
}

// TestMinIOStorage_RoundTrip runs against a live MinIO when MINIO_TEST_ENDPOINT is set.
func TestMinIOStorage_RoundTrip(t *testing.T) {
	endpoint := os.Getenv("MINIO_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_TEST_ENDPOINT not set, skipping integration test")
	}

	s, err := NewMinIOStorage(&Config{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "resize-test",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("NewMinIOStorage() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket() error = %v", err)
	}
	if err := s.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	key := OutputKey("integration", "png")
	if err := s.Upload(ctx, key, strings.NewReader("png-bytes"), "image/png", 9); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	defer func() { _ = s.Delete(ctx, key) }()

	r, err := s.Download(ctx, key)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	defer func() { _ = r.Close() }()

	got, _ := io.ReadAll(r)
	if string(got) != "png-bytes" {
		t.Errorf("Download() = %q, want %q", got, "png-bytes")
	}

	if _, err := s.Download(ctx, OutputKey("missing", "png")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Download(missing) error = %v, want ErrNotFound", err)
	}
}
