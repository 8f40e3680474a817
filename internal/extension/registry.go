package extension

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/agentx/internal/config"
	"github.com/kingrea/agentx/internal/llm"
	"github.com/kingrea/agentx/internal/procexec"
)

// Deps carries shared runtime dependencies into every extension factory.
type Deps struct {
	Config *config.Config
	Exec   procexec.Runner
	Logger *zap.Logger
	Models *llm.Registry
	Now    func() time.Time
}

// WithLogger returns a copy of d using logger.
func (d Deps) WithLogger(logger *zap.Logger) Deps {
	d.Logger = logger
	return d
}

// Log returns the logger, never nil.
func (d Deps) Log() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Clock returns the current time from Now, defaulting to time.Now.
func (d Deps) Clock() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// Factory constructs an extension.
type Factory func(Deps) (Extension, error)

// Registry maintains known extension factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register installs a factory. Returns an error if the ID already exists.
func (r *Registry) Register(id string, factory Factory) error {
	if id == "" {
		return fmt.Errorf("extension: id is required")
	}
	if factory == nil {
		return fmt.Errorf("extension: factory is required for %s", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[id]; exists {
		return fmt.Errorf("extension: %s already registered", id)
	}
	r.factories[id] = factory
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(id string, factory Factory) {
	if err := r.Register(id, factory); err != nil {
		panic(err)
	}
}

// Resolve constructs an extension by ID and checks that it reports that ID.
func (r *Registry) Resolve(id string, deps Deps) (Extension, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("extension: unknown id %s", id)
	}
	ext, err := factory(deps.WithLogger(deps.Log().With(zap.String("extension", id))))
	if err != nil {
		return nil, fmt.Errorf("extension: build %s: %w", id, err)
	}
	info := ext.Info()
	if err := info.Validate(); err != nil {
		return nil, err
	}
	if info.ID != id {
		return nil, fmt.Errorf("extension: %s reports id %s", id, info.ID)
	}
	return ext, nil
}

// IDs returns a sorted list of registered extension identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
