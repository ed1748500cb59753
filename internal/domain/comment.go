package domain

import "time"

// Comment is a note on a ticket, optionally replying to another comment.
type Comment struct {
	ID          string
	TicketID    string
	ParentID    *string
	AuthorID    string
	Body        string
	IsInternal  bool
	Attachments []Attachment
	CreatedAt   time.Time
}

// Attachment stores metadata for a file kept in object storage.
type Attachment struct {
	ID          string
	TicketID    string
	CommentID   *string
	StoragePath string
	URL         string
	FileName    string
	MimeType    string
	SizeBytes   int64
	UploadedBy  string
	CreatedAt   time.Time
}
