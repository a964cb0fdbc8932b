package metadata

import (
	"context"
	"fmt"
	"time"
)

// GetBool reads a flag stored by SetBool; absent keys read as false.
func GetBool(ctx context.Context, r Repository, key string) (bool, error) {
	v, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return string(v) == "1", nil
}

func SetBool(ctx context.Context, r Repository, key string, value bool) error {
	v := "0"
	if value {
		v = "1"
	}
	return r.Set(ctx, key, []byte(v))
}

// GetTime reads an instant stored by SetTime. ok is false when key is absent.
func GetTime(ctx context.Context, r Repository, key string) (t time.Time, ok bool, err error) {
	v, err := r.Get(ctx, key)
	if err != nil || v == nil {
		return time.Time{}, false, err
	}
	t, err = time.Parse(time.RFC3339Nano, string(v))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse metadata[%s]: %w", key, err)
	}
	return t, true, nil
}

func SetTime(ctx context.Context, r Repository, key string, t time.Time) error {
	return r.Set(ctx, key, []byte(t.UTC().Format(time.RFC3339Nano)))
}
