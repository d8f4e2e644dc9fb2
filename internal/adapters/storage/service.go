// Package storage stores followup documents in S3-compatible object storage.
package storage

import (
	"context"
	"io"
	"time"
)

// DownloadURL is a presigned link to a stored document.
type DownloadURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Document is an upload waiting to be stored.
type Document struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// DocumentStore is the upload port used by followups.
type DocumentStore interface {
	// Upload stores doc under folder and returns the object key.
	Upload(ctx context.Context, folder string, doc Document) (string, error)
	// DownloadURL presigns a GET for a stored key.
	DownloadURL(ctx context.Context, fileKey string) (*DownloadURL, error)
	// Delete removes a stored object. Used to undo an upload whose followup was not saved.
	Delete(ctx context.Context, fileKey string) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinIOBucketFollowupDocs() string
	IsMinIOEnabled() bool
}
