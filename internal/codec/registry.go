package codec

import (
	"fmt"
	"sort"
	"sync"
)

type Registry struct {
	encoders map[string]Encoder
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		encoders: make(map[string]Encoder),
	}
}

// Default returns a registry with every built-in encoder registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(NewJPEGEncoder())
	r.Register(NewPNGEncoder())
	r.Register(NewGIFEncoder())
	r.Register(NewBMPEncoder())
	r.Register(NewTIFFEncoder())
	r.Register(NewWebPEncoder())
	return r
}

func (r *Registry) Register(enc Encoder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.encoders[enc.ContentType()] = enc
}

// Get looks up an encoder by MIME type or short name.
func (r *Registry) Get(format string) (Encoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enc, ok := r.encoders[Normalize(format)]
	return enc, ok
}

func (r *Registry) GetOrError(format string) (Encoder, error) {
	enc, ok := r.Get(format)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return enc, nil
}

// List returns the registered content types in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.encoders))
	for ct := range r.encoders {
		types = append(types, ct)
	}
	sort.Strings(types)
	return types
}
