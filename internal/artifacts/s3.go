package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/boarddeck/boarddeck/internal/apperr"
)

// S3Store puts artifacts in an S3-compatible bucket and returns presigned download URLs.
type S3Store struct {
	client     *minio.Client
	bucketName string
	region     string
	expiry     time.Duration
}

func NewS3Store(endpoint, accessKey, secretKey, bucketName, region string, useSSL bool, expiry time.Duration) (*S3Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &S3Store{
		client:     client,
		bucketName: bucketName,
		region:     region,
		expiry:     expiry,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return apperr.Upstream(err, true, "failed to check bucket existence")
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{
			Region: s.region,
		})
		if err != nil {
			return apperr.Upstream(err, false, "failed to create bucket")
		}
	}

	return nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", apperr.Upstream(err, true, "failed to upload export")
	}

	url, err := s.client.PresignedGetObject(ctx, s.bucketName, key, s.expiry, nil)
	if err != nil {
		return "", apperr.Upstream(err, false, "failed to generate presigned URL")
	}

	return url.String(), nil
}
