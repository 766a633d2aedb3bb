package storage

import (
	"fmt"
	"slices"
)

// BackendFactory opens a backend for one annotation.
type BackendFactory func(annotationID int64) (Backend, error)

// BackendRegistry maps storage.backend names to factories.
var BackendRegistry = map[string]BackendFactory{
	"fs": func(id int64) (Backend, error) { return NewFileSystemBackend(id) },
	"memory": func(id int64) (Backend, error) {
		return NewInMemoryBackend(id)
	},
}

// GetBackend opens the named backend for annotationID.
func GetBackend(name string, annotationID int64) (Backend, error) {
	factory, ok := BackendRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown storage backend %q (known: %v)", name, BackendNames())
	}
	return factory(annotationID)
}

// BackendNames lists the registered backends in order.
func BackendNames() []string {
	names := make([]string, 0, len(BackendRegistry))
	for name := range BackendRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
