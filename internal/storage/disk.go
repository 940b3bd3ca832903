package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// Disk stores objects as files under Root and hands out URLs under BaseURL,
// which the API serves with http.FileServer.
type Disk struct {
	Root    string
	BaseURL string // e.g. "/files"
}

// NewDisk creates root if needed.
func NewDisk(root, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage.NewDisk: %w", err)
	}
	return &Disk{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (d *Disk) Put(ctx context.Context, objectPath, _ string, body io.Reader, _ int64) (string, error) {
	full, err := d.resolve(objectPath)
	if err != nil {
		return "", fmt.Errorf("storage.Disk.Put: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("storage.Disk.Put: %w: %w", domain.ErrRemote, err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("storage.Disk.Put: %w: %w", domain.ErrRemote, err)
	}
	if _, err := io.Copy(f, readerWithContext(ctx, body)); err != nil {
		f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("storage.Disk.Put: %w: %w", domain.ErrRemote, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("storage.Disk.Put: %w: %w", domain.ErrRemote, err)
	}
	return d.BaseURL + "/" + escapePath(objectPath), nil
}

func (d *Disk) Delete(_ context.Context, objectPath string) error {
	full, err := d.resolve(objectPath)
	if err != nil {
		return fmt.Errorf("storage.Disk.Delete: %w", err)
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("storage.Disk.Delete: %s: %w", objectPath, ErrObjectNotFound)
		}
		return fmt.Errorf("storage.Disk.Delete: %w: %w", domain.ErrRemote, err)
	}
	return nil
}

// resolve maps an object path into Root, refusing paths that escape it.
func (d *Disk) resolve(objectPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash("/" + objectPath))
	full := filepath.Join(d.Root, clean)
	rel, err := filepath.Rel(d.Root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: invalid object path %q", domain.ErrValidation, objectPath)
	}
	return full, nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
