package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// uploadPartSize is the part size for multipart uploads. 8 MiB keeps memory
// bounded while staying above the S3 minimum of 5 MiB.
const uploadPartSize int64 = 8 * 1024 * 1024

// Writer implements domain.BlobWriter against an S3-compatible backend.
type Writer struct {
	uploader *manager.Uploader
	bucket   string
}

// NewWriter creates a Writer that uploads objects to the client's configured
// bucket. Uploads go through the SDK's upload manager, which streams the body
// and switches to multipart automatically when the payload exceeds one part.
func NewWriter(c *Client) *Writer {
	return &Writer{
		uploader: manager.NewUploader(c.API(), func(u *manager.Uploader) {
			u.PartSize = uploadPartSize
		}),
		bucket: c.Bucket(),
	}
}

// Put uploads data to path with the given content type. A monthly audit
// archive can grow past a single request's practical limit, so the upload
// manager decides between one-shot and multipart.
func (w *Writer) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	_, err := w.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(path),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: upload %s: %w", path, err)
	}
	return nil
}
