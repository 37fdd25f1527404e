// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrBackendNotAvailable is returned when no registered backend can be opened.
var ErrBackendNotAvailable = errors.New("render: backend not available")

// Options are passed to a backend factory.
type Options struct {
	// PrepareSteps is the number of Prepare calls a model needs before it
	// is ready. Backends that prepare in one step ignore it.
	PrepareSteps int

	// Provider supplies an existing GPU device for hardware backends.
	// Backends type-assert it to what they need.
	Provider any

	Logger *slog.Logger
}

// Factory opens a backend.
type Factory func(opts Options) (Backend, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Selection order for Default. Hardware first, headless as the fallback.
	backendPriority = []string{"halgpu", "headless"}
)

// Register registers a backend factory under name, replacing any previous one.
// Backend packages call it from init.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = f
}

// Unregister removes a backend factory. Useful for tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open opens the backend registered under name.
func Open(name string, opts Options) (Backend, error) {
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", ErrBackendNotAvailable, name)
	}
	b, err := f(opts)
	if err != nil {
		return nil, fmt.Errorf("render: open %s: %w", name, err)
	}
	return b, nil
}

// Default opens the first backend in priority order that opens without
// error, then any other registered backend.
func Default(opts Options) (Backend, error) {
	registryMu.RLock()
	ordered := make([]Factory, 0, len(factories))
	seen := make(map[string]bool, len(backendPriority))
	for _, name := range backendPriority {
		if f, ok := factories[name]; ok {
			ordered = append(ordered, f)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(factories))
	for name := range factories {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		ordered = append(ordered, factories[name])
	}
	registryMu.RUnlock()

	var errs []error
	for _, f := range ordered {
		b, err := f(opts)
		if err == nil && b != nil {
			return b, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return nil, errors.Join(append([]error{ErrBackendNotAvailable}, errs...)...)
}
