package storage

import (
	"context"
	"io"
)

// FileStorage is the blob store collaborator. The submission core only
// ever sees opaque URLs: SaveFile hands one back at create time and
// DeleteFile is invoked best-effort on submission deletion.
type FileStorage interface {
	// SaveFile saves a file and returns its public URL
	SaveFile(ctx context.Context, file io.Reader, filename string, contentType string) (string, error)
	// DeleteFile deletes a file by its URL
	DeleteFile(ctx context.Context, fileURL string) error
}
