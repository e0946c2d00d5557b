package models

import "time"

type Album struct {
	ID             string
	PhotographerID string
	Title          string
	Description    string
	CreatedAt      time.Time
}

// Photo points at a blob in object storage. ObjectURL is the only durable
// reference to the content.
type Photo struct {
	ID           string
	AlbumID      string
	Filename     string
	ObjectURL    string
	OriginalName string
	ContentType  string
	SizeBytes    int64
	UploadedAt   time.Time
}
