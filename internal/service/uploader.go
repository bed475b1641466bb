package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/paragraph-tools/multigrm/internal/objectstore"
)

// ResultName is the file name of the result inside the output directory.
const ResultName = objectstore.ObjectName

type WriteUploader struct {
	w io.Writer
}

func NewWriteUploader(w io.Writer) WriteUploader {
	return WriteUploader{w: w}
}

func (u WriteUploader) Upload(_ context.Context, raw []byte) error {
	if u.w == nil {
		u.w = os.Stdout
	}
	_, err := u.w.Write(raw)
	return err
}

// OSRootUploader stores the result into a directory.
type OSRootUploader struct {
	root   *os.Root
	logger *slog.Logger
}

func NewOSRootUploader(path string, logger *slog.Logger) (*OSRootUploader, error) {
	root, err := os.OpenRoot(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &OSRootUploader{root: root, logger: logger}, nil
}

func (u *OSRootUploader) Upload(ctx context.Context, b []byte) error {
	if u.root == nil {
		return errors.New("root already closed")
	}

	f, err := u.root.Create(ResultName)
	if err != nil {
		return fmt.Errorf("creating genotyping results: %w", err)
	}
	_, err = f.Write(b)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("saving genotyping results: %w", err)
	}
	err = f.Close()
	if err != nil {
		return fmt.Errorf("closing genotyping result: %w", err)
	}
	u.logger.InfoContext(ctx, "result saved", "dir", u.root.Name(), "path", ResultName)
	return nil
}

func (u *OSRootUploader) Close() error {
	if u.root == nil {
		return errors.New("uploader already closed")
	}
	err := u.root.Close()
	u.root = nil
	return err
}
