package storage_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/storage"
)

func TestAttachmentPath(t *testing.T) {
	now := time.UnixMilli(1718000000123)

	assert.Equal(t, "activity_files/jour3/abc/1718000000123_billet.pdf",
		storage.AttachmentPath("jour3", "abc", "billet.pdf", now))
	assert.Equal(t, "activity_files/jour3/abc/1718000000123_evil.txt",
		storage.AttachmentPath("jour3", "abc", "../../evil.txt", now))
	assert.Equal(t, "activity_files/jour3/abc/1718000000123_scan.png",
		storage.AttachmentPath("jour3", "abc", `C:\Users\me\scan.png`, now))
}

// ---- Disk ------------------------------------------------------------------

func TestDisk_PutAndDelete(t *testing.T) {
	root := t.TempDir()
	d, err := storage.NewDisk(root, "/files/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := d.Put(ctx, "activity_files/jour1/a1/1_plan de ville.pdf", "application/pdf", strings.NewReader("%PDF"), 4)
	require.NoError(t, err)
	assert.Equal(t, "/files/activity_files/jour1/a1/1_plan%20de%20ville.pdf", url)

	b, err := os.ReadFile(filepath.Join(root, "activity_files", "jour1", "a1", "1_plan de ville.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(b))

	require.NoError(t, d.Delete(ctx, "activity_files/jour1/a1/1_plan de ville.pdf"))
	err = d.Delete(ctx, "activity_files/jour1/a1/1_plan de ville.pdf")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestDisk_StaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	d, err := storage.NewDisk(filepath.Join(root, "store"), "/files")
	require.NoError(t, err)

	_, err = d.Put(context.Background(), "../outside.txt", "", strings.NewReader("x"), 1)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(root, "outside.txt"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "file must not escape the store root")
}

// ---- S3 --------------------------------------------------------------------

type fakeS3 struct {
	put    func(*s3.PutObjectInput) error
	head   func(*s3.HeadObjectInput) error
	delete func(*s3.DeleteObjectInput) error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return &s3.PutObjectOutput{}, f.put(in)
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return &s3.HeadObjectOutput{}, f.head(in)
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return &s3.DeleteObjectOutput{}, f.delete(in)
}

var _ storage.S3API = (*fakeS3)(nil)

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://signed.example/" + *in.Key + "?X-Amz-Signature=x"}, nil
}

func TestS3_Put_PresignsWhenNoPublicURL(t *testing.T) {
	var gotKey, gotType string
	api := &fakeS3{put: func(in *s3.PutObjectInput) error {
		gotKey, gotType = *in.Key, *in.ContentType
		_, _ = io.ReadAll(in.Body)
		return nil
	}}
	s := storage.NewS3WithClient(api, fakePresigner{}, "bucket", "")

	url, err := s.Put(context.Background(), "activity_files/d/a/1_x.png", "image/png", strings.NewReader("png"), 3)

	require.NoError(t, err)
	assert.Equal(t, "activity_files/d/a/1_x.png", gotKey)
	assert.Equal(t, "image/png", gotType)
	assert.True(t, strings.HasPrefix(url, "https://signed.example/activity_files/d/a/1_x.png"))
}

func TestS3_Put_PublicURL(t *testing.T) {
	api := &fakeS3{put: func(*s3.PutObjectInput) error { return nil }}
	s := storage.NewS3WithClient(api, fakePresigner{}, "bucket", "https://cdn.example/")

	url, err := s.Put(context.Background(), "activity_files/d/a/1_x.png", "", strings.NewReader(""), 0)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/activity_files/d/a/1_x.png", url)
}

func TestS3_Put_Failure(t *testing.T) {
	api := &fakeS3{put: func(*s3.PutObjectInput) error { return errors.New("access denied") }}
	s := storage.NewS3WithClient(api, fakePresigner{}, "bucket", "")

	_, err := s.Put(context.Background(), "k", "", strings.NewReader(""), 0)

	assert.ErrorIs(t, err, domain.ErrRemote)
}

func TestS3_Delete_MissingObject(t *testing.T) {
	deleted := false
	api := &fakeS3{
		head:   func(*s3.HeadObjectInput) error { return &smithy.GenericAPIError{Code: "NotFound"} },
		delete: func(*s3.DeleteObjectInput) error { deleted = true; return nil },
	}
	s := storage.NewS3WithClient(api, fakePresigner{}, "bucket", "")

	err := s.Delete(context.Background(), "k")

	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	assert.False(t, deleted)
}

func TestS3_Delete_OK(t *testing.T) {
	var deletedKey string
	api := &fakeS3{
		head:   func(*s3.HeadObjectInput) error { return nil },
		delete: func(in *s3.DeleteObjectInput) error { deletedKey = *in.Key; return nil },
	}
	s := storage.NewS3WithClient(api, fakePresigner{}, "bucket", "")

	require.NoError(t, s.Delete(context.Background(), "activity_files/d/a/1_x.png"))
	assert.Equal(t, "activity_files/d/a/1_x.png", deletedKey)
}
