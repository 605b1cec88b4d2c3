package domain

import "time"

// Category groups tickets. Category management happens outside this service;
// the engine only resolves references.
type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attachment stores metadata for a file uploaded ahead of ticket creation.
// Upload and storage are external; the engine only links attachments to the
// ticket they belong to.
type Attachment struct {
	ID         string
	TicketID   *string
	UploadedBy string
	FileName   string
	StorageKey string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
