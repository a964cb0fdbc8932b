package blobs

import (
	"context"

	"github.com/dmitrijs2005/keybox/internal/s3x"
)

// S3Repository stores each blob as the object <prefix>/<namespace>/<key>.
type S3Repository struct {
	bucket *s3x.Bucket
}

func NewS3Repository(bucket *s3x.Bucket) *S3Repository {
	return &S3Repository{bucket: bucket}
}

func (r *S3Repository) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	return r.bucket.WithPrefix(namespace).Get(ctx, key)
}

func (r *S3Repository) Put(ctx context.Context, namespace, key string, value []byte) error {
	return r.bucket.WithPrefix(namespace).Put(ctx, key, value)
}

func (r *S3Repository) Ping(ctx context.Context) error {
	return r.bucket.Ping(ctx)
}
