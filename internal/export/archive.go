package export

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveConfig points at an S3-compatible bucket.
type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	LinkTTL   time.Duration
}

// Archive stores rendered exports and hands out presigned download links.
type Archive struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
	now    func() time.Time
}

// Stored describes an uploaded export.
type Stored struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func NewArchive(cfg ArchiveConfig) (*Archive, error) {
	if cfg.Endpoint == "" {
		return nil, ErrArchiveUnavailable
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	ttl := cfg.LinkTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Archive{client: client, bucket: cfg.Bucket, ttl: ttl, now: time.Now}, nil
}

// EnsureBucket creates the bucket when it does not exist.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	return nil
}

// Put uploads a rendered export under the user's prefix and presigns a
// download link.
func (a *Archive) Put(ctx context.Context, userID string, result *Result) (Stored, error) {
	if a == nil {
		return Stored{}, ErrArchiveUnavailable
	}
	now := a.now().UTC()
	key := objectKey(userID, result.Filename, now)

	if _, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(result.Data), int64(len(result.Data)), minio.PutObjectOptions{
		ContentType: result.MimeType,
	}); err != nil {
		return Stored{}, fmt.Errorf("put export: %w", err)
	}

	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	link, err := a.client.PresignedGetObject(ctx, a.bucket, key, a.ttl, params)
	if err != nil {
		return Stored{}, fmt.Errorf("presign export: %w", err)
	}
	return Stored{Key: key, URL: link.String(), ExpiresAt: now.Add(a.ttl)}, nil
}

func objectKey(userID, filename string, at time.Time) string {
	return path.Join("exports", userID, at.Format("20060102T150405Z")+"-"+filename)
}
