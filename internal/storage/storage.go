// Package storage keeps uploaded document bytes in MinIO/S3 or on local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrPresignUnsupported is returned by stores that cannot hand out URLs;
// callers stream the object through Get instead.
var ErrPresignUnsupported = errors.New("presigned urls not supported")

// ErrObjectNotFound is returned by Get for a missing key.
var ErrObjectNotFound = errors.New("object not found")

type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// DocumentKey builds documents/<client>/<uuid>/<filename>. Documents
// without a client go under "unfiled".
func DocumentKey(clientID uint, filename string) string {
	owner := "unfiled"
	if clientID != 0 {
		owner = fmt.Sprintf("%d", clientID)
	}
	return path.Join("documents", owner, uuid.NewString(), SafeFilename(filename))
}

// SafeFilename strips directories and characters that are awkward in keys.
func SafeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}
