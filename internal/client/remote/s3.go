package remote

import (
	"context"
	"time"

	"github.com/dmitrijs2005/keybox/internal/s3x"
)

const DefaultPollInterval = 15 * time.Second

// S3 stores blobs directly in a bucket shared by all devices. Watch polls
// object ETags.
type S3 struct {
	bucket   *s3x.Bucket
	interval time.Duration
}

func NewS3(bucket *s3x.Bucket, interval time.Duration) *S3 {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &S3{bucket: bucket, interval: interval}
}

func (s *S3) Get(ctx context.Context, key string) ([]byte, error) {
	return s.bucket.Get(ctx, key)
}

func (s *S3) Set(ctx context.Context, key string, value []byte) error {
	return s.bucket.Put(ctx, key, value)
}

func (s *S3) Synchronize(ctx context.Context) error {
	return s.bucket.Ping(ctx)
}

func (s *S3) Watch(ctx context.Context, keys []string, fn func(key string)) error {
	seen := make(map[string]string, len(keys))
	for _, k := range keys {
		tag, err := s.bucket.ETag(ctx, k)
		if err != nil {
			return err
		}
		seen[k] = tag
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		for _, k := range keys {
			tag, err := s.bucket.ETag(ctx, k)
			if err != nil {
				return err
			}
			if tag != seen[k] {
				seen[k] = tag
				fn(k)
			}
		}
	}
}

func (s *S3) Close() error { return nil }
