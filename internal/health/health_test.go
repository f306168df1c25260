package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abdul-hamid-achik/resize.cheap/internal/storage"
	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
)

func TestCheckAll(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus Status
		wantNames  []string
	}{
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: StatusHealthy,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"storage": func(context.Context) error { return nil },
				"redis":   func(context.Context) error { return nil },
			},
			wantStatus: StatusHealthy,
			wantNames:  []string{"redis", "storage"},
		},
		{
			name: "one unhealthy",
			checks: map[string]CheckFunc{
				"redis":   func(context.Context) error { return errors.New("connection refused") },
				"storage": func(context.Context) error { return nil },
			},
			wantStatus: StatusUnhealthy,
			wantNames:  []string{"redis", "storage"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker("test")
			for name, fn := range tt.checks {
				c.WithCheck(name, fn)
			}

			resp := c.CheckAll(context.Background())
			if resp.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", resp.Status, tt.wantStatus)
			}
			if len(resp.Components) != len(tt.wantNames) {
				t.Fatalf("got %d components, want %d", len(resp.Components), len(tt.wantNames))
			}
			for i, name := range tt.wantNames {
				if resp.Components[i].Name != name {
					t.Errorf("Components[%d] = %s, want %s", i, resp.Components[i].Name, name)
				}
			}
		})
	}
}

func TestReadinessHandler(t *testing.T) {
	store := storage.NewMemoryStorage()
	c := NewChecker("1.2.3").WithStorage(store)

	rec := httptest.NewRecorder()
	ReadinessHandler(c)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthy status = %d, want 200", rec.Code)
	}

	var body HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Version != "1.2.3" || len(body.Components) != 1 {
		t.Errorf("body = %+v", body)
	}

	store.Unhealthy = errors.New("bucket missing")
	rec = httptest.NewRecorder()
	ReadinessHandler(c)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d, want 503", rec.Code)
	}
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

type fakeRunner struct {
	res transform.Result
}

func (f fakeRunner) Transform(_ context.Context, req transform.Request) transform.Result {
	f.res.RequestID = req.RequestID
	return f.res
}

func TestWithTransformer(t *testing.T) {
	pipeline, err := transform.NewTransformer(nil, nil)
	if err != nil {
		t.Fatalf("NewTransformer() error = %v", err)
	}

	tests := []struct {
		name   string
		runner TransformRunner
		want   Status
	}{
		{"real pipeline", pipeline, StatusHealthy},
		{"failing pipeline", fakeRunner{res: transform.Result{ErrorKind: transform.KindEncode, Error: "no codec"}}, StatusUnhealthy},
		{"wrong size", fakeRunner{res: transform.Result{Success: true, Width: 1, Height: 1}}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewChecker("test").WithTransformer(tt.runner).CheckAll(context.Background())
			if resp.Status != tt.want {
				t.Errorf("Status = %s, want %s (components %+v)", resp.Status, tt.want, resp.Components)
			}
		})
	}
}
