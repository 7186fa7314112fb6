package storage

import "context"

// Object describes an uploaded blob.
type Object struct {
	Key string
	URL string
}

// Service is the blob store used for profile images. Callers only keep the
// returned URL; content is never inspected.
type Service interface {
	// Upload sends the local file and removes it afterwards, whether the
	// upload succeeded or not.
	Upload(ctx context.Context, localPath string) (Object, error)
	Delete(ctx context.Context, key string) error
}
