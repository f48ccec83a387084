package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// ScanArchiver persists completed scan snapshots to cold storage so
// disputed prices can be replayed against the offers that produced them.
type ScanArchiver interface {
	// ArchiveScan uploads the snapshot and returns the object path.
	ArchiveScan(ctx context.Context, snap ScanSnapshot) (string, error)
}
