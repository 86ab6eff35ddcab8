// Package remote mirrors datasets published in S3-compatible buckets
// (as public neuroimaging archives do) into a local directory, so the
// indexer always walks a plain filesystem tree.
package remote

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mwantia/bids/data"
	"github.com/mwantia/bids/log"
)

type S3Source struct {
	client *minio.Client

	bucket string
	prefix string
	logger *log.Logger
}

// NewS3Source creates a source for one dataset below prefix in the
// given bucket. Empty credentials access the bucket anonymously,
// which is how public dataset archives are typically published.
func NewS3Source(endpoint, bucket, prefix, accessKey, secretKey string, useSsl bool, logger *log.Logger) (*S3Source, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSsl,
	})
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.Discard()
	}

	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}, nil
}

// Open verifies the bucket is reachable.
func (s *S3Source) Open(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}

	if !exists {
		return data.ErrRemoteBucket
	}

	return nil
}

// Mirror downloads the dataset into dest and returns the number of
// objects fetched. Objects whose size already matches the local copy
// are skipped, so a re-mirror of an unchanged dataset touches nothing
// and preserves the local fingerprint.
func (s *S3Source) Mirror(ctx context.Context, dest string) (int, error) {
	prefix := s.prefix
	if prefix != "" {
		prefix += "/"
	}

	fetched := 0
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objects {
		if object.Err != nil {
			return fetched, object.Err
		}

		rel := strings.TrimPrefix(object.Key, prefix)
		if rel == "" || strings.HasSuffix(rel, "/") {
			continue
		}

		target := filepath.Join(dest, filepath.FromSlash(rel))
		if info, err := os.Stat(target); err == nil && info.Size() == object.Size {
			continue
		}

		if err := s.fetch(ctx, object.Key, target); err != nil {
			return fetched, err
		}

		s.logger.Debug("mirrored %s (%d bytes)", rel, object.Size)
		fetched++
	}

	return fetched, nil
}

func (s *S3Source) fetch(ctx context.Context, key, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer object.Close()

	tmp := target + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, object); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}

	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, target)
}
