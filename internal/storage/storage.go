package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/nomadnest/nomadnest/internal/config"
	"github.com/nomadnest/nomadnest/internal/logging"
)

const folder = "nomadnest"

var ErrUnsupportedType = errors.New("only png, jpg and jpeg images are allowed")

var allowedExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// Upload is an image received from a form.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Object identifies a stored image.
type Object struct {
	URL      string
	Filename string
}

type ImageStore interface {
	Save(ctx context.Context, upload Upload) (Object, error)
	Delete(ctx context.Context, filename string) error
}

// New returns the S3 store when a bucket is configured and the local disk
// store otherwise.
func New(ctx context.Context, cfg config.StorageConfig, logger *logging.Logger) (ImageStore, error) {
	if cfg.S3Bucket == "" {
		logger.Info("storing uploads on local disk", "dir", cfg.UploadDir)
		return NewLocalStore(cfg.UploadDir, "/uploads")
	}
	logger.Info("storing uploads in s3", "bucket", cfg.S3Bucket, "region", cfg.S3Region)
	return NewS3Store(ctx, cfg)
}

// objectKey builds a fresh key, keeping only the extension of the client
// supplied name.
func objectKey(name string) (key, contentType string, err error) {
	ext := strings.ToLower(path.Ext(name))
	contentType, ok := allowedExt[ext]
	if !ok {
		return "", "", ErrUnsupportedType
	}
	return path.Join(folder, uuid.NewString()+ext), contentType, nil
}
