package storage

import (
	"time"
)

// CurrentSchemaVersion is written into every record.
const CurrentSchemaVersion = "1.0.0"

// Record is the persisted state of one annotation. Content holds the item
// list JSON in its stored, HTML-escaped form.
type Record struct {
	Version      string    `json:"version"`
	AnnotationID int64     `json:"annotation_id"`
	Content      string    `json:"content"`
	DraftAssetID int64     `json:"draft_asset_id,omitempty"`
	Revision     int64     `json:"revision"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
