// internal/artifact/store.go
package artifact

import (
	"context"
	"net/http"
)

// Store fetches raw artifact bytes by bucket and key.
type Store interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

// StoreFunc adapts a function to Store.
type StoreFunc func(ctx context.Context, bucket, key string) ([]byte, error)

func (f StoreFunc) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	return f(ctx, bucket, key)
}

// Image is a fetched display image.
type Image struct {
	Key         string
	ContentType string
	Data        []byte
}

// LoadImage fetches an image and sniffs its content type.
func LoadImage(ctx context.Context, store Store, bucket, key string) (Image, error) {
	data, err := store.Fetch(ctx, bucket, key)
	if err != nil {
		return Image{}, err
	}
	return Image{
		Key:         key,
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}
