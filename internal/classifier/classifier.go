// Package classifier defines the pluggable triage strategy: a pure
// function from a lead's note to a Classification, selected at worker
// startup by name via the LLM_ADAPTER environment variable.
package classifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nearline/leadtriage/internal/domain"
)

// Classifier is the contract every triage strategy implements.
type Classifier interface {
	// Name returns the adapter's registry key (e.g. "rule_based", "openai").
	Name() string

	// Triage classifies a single note. Implementations must return an
	// error rather than an invalid Classification; the worker treats
	// both as a processing failure.
	Triage(ctx context.Context, note string) (domain.Classification, error)

	// HealthCheck reports whether the adapter is currently able to serve
	// requests. Rule-based adapters are always healthy; HTTP-backed
	// adapters probe their upstream.
	HealthCheck(ctx context.Context) HealthStatus
}

// HealthStatus mirrors the shape used elsewhere in this codebase's
// provider-connector health reporting.
type HealthStatus struct {
	Healthy   bool
	Latency   time.Duration
	LastCheck time.Time
	Error     string
}

// Registry holds every registered classifier by name.
type Registry struct {
	mu    sync.RWMutex
	byName map[string]Classifier
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Classifier)}
}

// Register adds c under its own Name().
func (r *Registry) Register(c Classifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[c.Name()] = c
}

// Get returns the classifier registered under name, and whether it exists.
func (r *Registry) Get(name string) (Classifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// Select resolves the LLM_ADAPTER configuration value to a registered
// classifier, falling back to "rule_based" when name is empty or
// unregistered.
func (r *Registry) Select(name string) (Classifier, error) {
	if name == "" {
		name = "rule_based"
	}
	c, ok := r.Get(name)
	if !ok {
		if fallback, ok := r.Get("rule_based"); ok {
			return fallback, nil
		}
		return nil, fmt.Errorf("classifier: unknown adapter %q and no rule_based fallback registered", name)
	}
	return c, nil
}

// List returns all registered classifier names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}

// HealthCheckAll runs HealthCheck concurrently across every registered
// classifier and returns the results keyed by name.
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]HealthStatus {
	r.mu.RLock()
	classifiers := make(map[string]Classifier, len(r.byName))
	for k, v := range r.byName {
		classifiers[k] = v
	}
	r.mu.RUnlock()

	results := make(map[string]HealthStatus, len(classifiers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, c := range classifiers {
		wg.Add(1)
		go func(n string, classifier Classifier) {
			defer wg.Done()
			status := classifier.HealthCheck(ctx)
			mu.Lock()
			results[n] = status
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()
	return results
}
