// Package storage holds attachment files. Store has two implementations:
// S3 for deployments and Disk for local development.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrObjectNotFound is returned by Delete when nothing is stored at path.
// Callers removing attachment references treat it as success.
var ErrObjectNotFound = errors.New("object not found")

// Store puts and deletes attachment files.
type Store interface {
	// Put stores body at objectPath and returns a URL the client can fetch it from.
	Put(ctx context.Context, objectPath, contentType string, body io.Reader, size int64) (string, error)

	// Delete removes the object. Returns ErrObjectNotFound when absent.
	Delete(ctx context.Context, objectPath string) error
}

// AttachmentPath builds activity_files/<dayID>/<activityID>/<unix millis>_<filename>.
// The filename is reduced to its base name.
func AttachmentPath(dayID, activityID, filename string, now time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return fmt.Sprintf("activity_files/%s/%s/%d_%s", dayID, activityID, now.UnixMilli(), name)
}

// ActivityPrefix is the directory holding every attachment of an activity.
func ActivityPrefix(dayID, activityID string) string {
	return fmt.Sprintf("activity_files/%s/%s/", dayID, activityID)
}
