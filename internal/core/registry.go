package core

import (
	"fmt"
	"sort"
	"sync"
)

// DatasetSpec describes one CSV input. All inputs share one loader; only
// their name and required columns differ.
type DatasetSpec struct {
	Key             string   // Unique identifier, also the table name when persisted: "training"
	Label           string   // Display name used in errors and logs: "Training data"
	RequiredColumns []string // Header columns that must be present, including XColumn
}

var (
	registry   = make(map[string]DatasetSpec)
	registryMu sync.RWMutex
)

// Register adds a dataset spec to the registry.
// Panics if a spec with the same key is already registered.
func Register(spec DatasetSpec) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[spec.Key]; exists {
		panic(fmt.Sprintf("dataset already registered: %s", spec.Key))
	}

	if len(spec.RequiredColumns) == 0 {
		spec.RequiredColumns = []string{XColumn}
	}

	registry[spec.Key] = spec
}

// Get returns a dataset spec by key.
// Returns false if not found.
func Get(key string) (DatasetSpec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	spec, ok := registry[key]
	return spec, ok
}

// MustGet returns a dataset spec by key and panics if it is not registered.
func MustGet(key string) DatasetSpec {
	spec, ok := Get(key)
	if !ok {
		panic(fmt.Sprintf("unknown dataset: %s", key))
	}
	return spec
}

// All returns all registered dataset specs sorted by key.
func All() []DatasetSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DatasetSpec, 0, len(registry))
	for _, spec := range registry {
		result = append(result, spec)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// Clear removes all registered specs.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]DatasetSpec)
}
