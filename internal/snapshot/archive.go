package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"homewatch/internal/oauth"
)

// Archiver copies stored snapshots to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, cameraID, name string, data []byte) error
}

// S3Archiver uploads snapshots to an S3-compatible bucket.
type S3Archiver struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Archiver reuses the oauth blob S3 settings shape for snapshots.
func NewS3Archiver(cfg oauth.S3Config) (*S3Archiver, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKeyFile == "" || cfg.SecretKeyFile == "" {
		return nil, fmt.Errorf("missing archive configuration")
	}

	accessKey, err := readSecret(cfg.AccessKeyFile)
	if err != nil {
		return nil, fmt.Errorf("read archive access key: %w", err)
	}
	secretKey, err := readSecret(cfg.SecretKeyFile)
	if err != nil {
		return nil, fmt.Errorf("read archive secret key: %w", err)
	}

	host, secure, err := oauth.ParseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init archive client: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "homewatch/snapshots"
	}

	return &S3Archiver{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

func (a *S3Archiver) Archive(ctx context.Context, cameraID, name string, data []byte) error {
	key := path.Join(a.prefix, sanitize(cameraID), name)
	reader := bytes.NewReader(data)
	_, err := a.client.PutObject(ctx, a.bucket, key, reader, int64(reader.Len()), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return fmt.Errorf("archive snapshot: %w", err)
	}
	return nil
}

func readSecret(path string) (string, error) {
	return oauth.ReadSecretFile(path)
}
