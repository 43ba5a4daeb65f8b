package common

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
)

// ModelMetadata describes a loaded model or dictionary.
type ModelMetadata struct {
	Name     string    `json:"name"`
	Kind     ModelKind `json:"kind"`
	Location string    `json:"location"`
	Labels   []string  `json:"labels,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

var (
	ErrModelNotFound      = errors.New("model not found")
	ErrModelAlreadyExists = errors.New("model already registered")
)

// ModelRegistry tracks the models a process has loaded so readiness checks
// and the HTTP side-car can report them.  It does not own the models.
type ModelRegistry struct {
	mu     sync.RWMutex
	models map[string]*ModelMetadata
	logger logging.Logger
}

// NewModelRegistry creates an empty registry.
func NewModelRegistry(logger logging.Logger) *ModelRegistry {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ModelRegistry{
		models: make(map[string]*ModelMetadata),
		logger: logger,
	}
}

// Register records meta under meta.Name.  LoadedAt defaults to now.
func (r *ModelRegistry) Register(meta ModelMetadata) error {
	if meta.Name == "" {
		return errors.New("model name is required")
	}
	if meta.LoadedAt.IsZero() {
		meta.LoadedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[meta.Name]; exists {
		return ErrModelAlreadyExists
	}
	r.models[meta.Name] = &meta
	r.logger.Info("Model registered",
		logging.String("model", meta.Name),
		logging.String("kind", meta.Kind.String()),
		logging.String("location", meta.Location))
	return nil
}

// Replace records meta, overwriting any entry with the same name.
func (r *ModelRegistry) Replace(meta ModelMetadata) {
	if meta.LoadedAt.IsZero() {
		meta.LoadedAt = time.Now().UTC()
	}
	r.mu.Lock()
	r.models[meta.Name] = &meta
	r.mu.Unlock()
}

// Unregister removes name.
func (r *ModelRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[name]; !ok {
		return ErrModelNotFound
	}
	delete(r.models, name)
	return nil
}

// Get returns a copy of the metadata registered under name.
func (r *ModelRegistry) Get(name string) (*ModelMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	if !ok {
		return nil, ErrModelNotFound
	}
	cp := *m
	return &cp, nil
}

// List returns copies of every entry sorted by name.
func (r *ModelRegistry) List() []*ModelMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ModelMetadata, 0, len(r.models))
	for _, m := range r.models {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered models.
func (r *ModelRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}
