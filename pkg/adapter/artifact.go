package adapter

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
)

// Artifacts stores screenshots and log snapshots under slash separated keys such as
// "screenshots/20250101-120000-000.jpg".
type Artifacts interface {
	Put(ctx context.Context, key string) (io.WriteCloser, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// LocalArtifacts keeps artifacts below a data directory.
type LocalArtifacts struct {
	root string
}

func NewLocalArtifacts(root string) *LocalArtifacts {
	return &LocalArtifacts{root: root}
}

func (x *LocalArtifacts) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", goerr.New("invalid artifact key", goerr.V("key", key))
	}
	return filepath.Join(x.root, clean), nil
}

func (x *LocalArtifacts) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	path, err := x.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create artifact directory", goerr.V("path", path))
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create artifact", goerr.V("path", path))
	}
	return f, nil
}

func (x *LocalArtifacts) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := x.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open artifact", goerr.V("path", path))
	}
	return f, nil
}

// GCSArtifacts keeps artifacts in a Cloud Storage bucket.
type GCSArtifacts struct {
	bucket string
	client *storage.Client
}

func NewGCSArtifacts(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSArtifacts, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}
	return &GCSArtifacts{bucket: bucket, client: client}, nil
}

func (x *GCSArtifacts) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	return x.client.Bucket(x.bucket).Object(key).NewWriter(ctx), nil
}

func (x *GCSArtifacts) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := x.client.Bucket(x.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read from storage",
			goerr.V("bucket", x.bucket),
			goerr.V("key", key))
	}
	return r, nil
}

func (x *GCSArtifacts) Close() error {
	return x.client.Close()
}
