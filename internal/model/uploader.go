package model

import "context"

// Uploader persists the encoded BatchResult (gzipped JSON).
type Uploader interface {
	Upload(ctx context.Context, raw []byte) error
}

type UploadCloser interface {
	Uploader
	Close() error
}
