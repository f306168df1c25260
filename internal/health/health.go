package health

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
	"github.com/redis/go-redis/v9"
)

type StorageHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// TransformRunner is satisfied by *transform.Transformer.
type TransformRunner interface {
	Transform(ctx context.Context, req transform.Request) transform.Result
}

type CheckFunc func(ctx context.Context) error

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

type ComponentHealth struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Latency int64  `json:"latency_ms"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status     Status            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Components []ComponentHealth `json:"components,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

type Checker struct {
	version string
	timeout time.Duration
	checks  map[string]CheckFunc
}

func NewChecker(version string) *Checker {
	return &Checker{
		version: version,
		timeout: 5 * time.Second,
		checks:  make(map[string]CheckFunc),
	}
}

func (c *Checker) WithCheck(name string, fn CheckFunc) *Checker {
	c.checks[name] = fn
	return c
}

func (c *Checker) WithRedis(client redis.UniversalClient) *Checker {
	return c.WithCheck("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

func (c *Checker) WithStorage(s StorageHealthChecker) *Checker {
	return c.WithCheck("storage", s.HealthCheck)
}

// WithTransformer adds a check that pushes a 4x4 PNG through the full
// decode, resize and encode pipeline. It catches missing codecs and a
// misconfigured transformer before traffic does.
func (c *Checker) WithTransformer(t TransformRunner) *Checker {
	return c.WithCheck("transform", func(ctx context.Context) error {
		return probeTransform(ctx, t)
	})
}

var probeSource = func() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.NRGBA{R: 0x20, G: 0x40, B: 0x80, A: 0xff})
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}()

func probeTransform(ctx context.Context, t TransformRunner) error {
	res := t.Transform(ctx, transform.Request{
		Source:    probeSource,
		Width:     2,
		Height:    2,
		Format:    "image/jpeg",
		Quality:   0.5,
		RequestID: "health-probe",
	})
	if !res.Success {
		return fmt.Errorf("probe transform failed (%s): %s", res.ErrorKind, res.Error)
	}
	if res.Width != 2 || res.Height != 2 {
		return fmt.Errorf("probe transform produced %dx%d, want 2x2", res.Width, res.Height)
	}
	return nil
}

// CheckAll runs every registered check concurrently under a shared timeout.
func (c *Checker) CheckAll(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		components = make([]ComponentHealth, 0, len(c.checks))
	)

	for name, fn := range c.checks {
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			comp := runCheck(ctx, name, fn)
			mu.Lock()
			components = append(components, comp)
			mu.Unlock()
		}(name, fn)
	}

	wg.Wait()

	sort.Slice(components, func(i, j int) bool { return components[i].Name < components[j].Name })

	status := StatusHealthy
	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			status = StatusUnhealthy
			break
		}
	}

	return HealthResponse{
		Status:     status,
		Version:    c.version,
		Components: components,
		Timestamp:  time.Now(),
	}
}

func runCheck(ctx context.Context, name string, fn CheckFunc) ComponentHealth {
	start := time.Now()
	err := fn(ctx)
	comp := ComponentHealth{
		Name:    name,
		Status:  StatusHealthy,
		Latency: time.Since(start).Milliseconds(),
	}
	if err != nil {
		comp.Status = StatusUnhealthy
		comp.Error = err.Error()
	}
	return comp
}

func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": string(StatusHealthy)})
	}
}

func ReadinessHandler(checker *Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := checker.CheckAll(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
