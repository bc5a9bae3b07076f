package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID             string         `json:"id"`
	Filename       string         `json:"filename"`
	MimeType       string         `json:"mime_type"`
	StoragePath    string         `json:"storage_path"`
	ClassifiedType string         `json:"classified_type,omitempty"`
	Extracted      string         `json:"-"`
	Status         DocumentStatus `json:"status"`
	Error          string         `json:"error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsExtracted reports whether plaintext content is available. Classification
// and question answering require it as a precondition.
func (d *Document) IsExtracted() bool {
	return d != nil && d.Extracted != ""
}
