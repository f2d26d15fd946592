// Package storage holds uploaded invoice documents in an S3-compatible object store.
// Implementations stream and never touch local disk.
package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size is the exact byte count, or -1 when unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is a reusable, S3-compatible object storage client interface.
type Storage interface {
	// Put uploads an object under the given key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get returns an object's content as a stream alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL. A non-empty filename is
	// sent back as the attachment name.
	PresignGet(ctx context.Context, key, filename string, expiry time.Duration) (string, error)
}

// InvoiceKey places a document under invoices/<id><ext>, keeping the
// lower-cased extension of the uploaded name.
func InvoiceKey(id, originalFilename string) string {
	return path.Join("invoices", id+strings.ToLower(path.Ext(originalFilename)))
}
