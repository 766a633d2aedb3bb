package storage

// Backend is the contract for annotation persistence. A backend instance is
// bound to one annotation.
type Backend interface {
	// Load retrieves the record of the annotation. It MUST return (nil, nil)
	// if nothing has been saved yet.
	Load(annotationID int64) (*Record, error)

	// Save atomically replaces the record.
	Save(rec *Record) error

	// Close releases backend resources, such as file locks.
	Close() error
}
