package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry   = make(map[string]ResourceDefinition)
	byPath     = make(map[string]string)
	registryMu sync.RWMutex
)

// Register adds a resource definition to the registry.
// Panics if a resource with the same key or path is already registered.
func Register(def ResourceDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("resource already registered: %s", def.Info.Key))
	}
	if def.Info.Path == "" {
		def.Info.Path = strings.ReplaceAll(def.Info.Key, "_", "-")
	}
	if other, exists := byPath[def.Info.Path]; exists {
		panic(fmt.Sprintf("resource path %q already used by %s", def.Info.Path, other))
	}
	if def.Info.DefaultSort.Column == "" {
		def.Info.DefaultSort = SortSpec{Column: ColCreatedAt, Dir: "desc"}
	}

	registry[def.Info.Key] = def
	byPath[def.Info.Path] = def.Info.Key
}

// Get returns a resource definition by table key.
func Get(key string) (ResourceDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// ByPath returns a resource definition by URL slug or table key.
func ByPath(path string) (ResourceDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if key, ok := byPath[path]; ok {
		return registry[key], true
	}
	def, ok := registry[path]
	return def, ok
}

// Resolve is ByPath returning ErrUnknownResource when nothing matches.
func Resolve(path string) (ResourceDefinition, error) {
	def, ok := ByPath(path)
	if !ok {
		return ResourceDefinition{}, fmt.Errorf("%w: %s", ErrUnknownResource, path)
	}
	return def, nil
}

// All returns all registered resource definitions.
// Sorted by group then by key for consistent ordering.
func All() []ResourceDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ResourceDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Group != result[j].Info.Group {
			return result[i].Info.Group < result[j].Info.Group
		}
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// ByGroup returns all resource definitions for a specific group, sorted by key.
func ByGroup(group string) []ResourceDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []ResourceDefinition
	for _, def := range registry {
		if def.Info.Group == group {
			result = append(result, def)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// Groups returns all unique group names, sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Info.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// Count returns the number of registered resources.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered resources. Tests use it.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]ResourceDefinition)
	byPath = make(map[string]string)
}
