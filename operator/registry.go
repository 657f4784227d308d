// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package operator

import (
	"fmt"
	"slices"
	"sync"
)

// Factory builds an operator from its parameters and shared dependencies.
type Factory func(params Params, deps Deps) (Operator, error)

// Entry is a registered operator.
type Entry struct {
	Factory     Factory
	Description Description
}

// Registry maps operator names to factories. It is safe for concurrent use.
// Names cannot be unregistered.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds an operator under name.
func (r *Registry) Register(name string, entry Entry) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrConfig)
	}
	if entry.Factory == nil {
		return fmt.Errorf("%w: %q has no factory", ErrConfig, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicate, name)
	}
	r.entries[name] = entry
	return nil
}

// Get returns the factory registered under name or a *NotFoundError.
func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return entry.Factory, nil
}

// Build constructs the operator registered under name.
func (r *Registry) Build(name string, params Params, deps Deps) (Operator, error) {
	factory, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	op, err := factory(params, deps)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	return op, nil
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Describe returns the description of name in lang.
func (r *Registry) Describe(name, lang string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return "", &NotFoundError{Name: name}
	}
	return entry.Description.For(lang), nil
}

// Lazy defers init until the factory is first called. The first successful
// result is reused; a failed init is retried on the next call.
func Lazy(init func() (Factory, error)) Factory {
	var (
		mu      sync.Mutex
		factory Factory
	)
	return func(params Params, deps Deps) (Operator, error) {
		mu.Lock()
		if factory == nil {
			f, err := init()
			if err != nil {
				mu.Unlock()
				return nil, err
			}
			factory = f
		}
		f := factory
		mu.Unlock()
		return f(params, deps)
	}
}
