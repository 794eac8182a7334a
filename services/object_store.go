package services

import (
	"context"
	"fmt"
	"time"

	"swinglab-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// ObjectStoreConfig holds the connection settings for the S3-compatible
// backend. Endpoint and path-style are set for MinIO-like stores and
// left empty for AWS itself.
type ObjectStoreConfig struct {
	Bucket         string
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// ObjectStore wraps the S3 client with the operations the upload and
// cleanup paths consume.
type ObjectStore struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	logger        *zap.Logger
}

// NewObjectStore builds the S3 client and its presigner.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig, logger *zap.Logger) (*ObjectStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Info("Initialized object store client",
		zap.String("bucket", cfg.Bucket),
		zap.String("region", cfg.Region),
	)

	return &ObjectStore{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		logger:        logger,
	}, nil
}

// CreateMultipartUpload opens a multipart session and returns the
// store-assigned upload ID.
func (s *ObjectStore) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	resp, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create multipart upload for %s: %w", key, err)
	}
	return aws.ToString(resp.UploadId), nil
}

// PresignUploadParts mints one presigned PUT URL per part. Signing is
// local; no store round-trip happens per URL.
func (s *ObjectStore) PresignUploadParts(ctx context.Context, key, uploadID string, partCount int, expires time.Duration) ([]string, error) {
	urls := make([]string, 0, partCount)
	for partNumber := 1; partNumber <= partCount; partNumber++ {
		req, err := s.presignClient.PresignUploadPart(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(s.bucket),
			Key:        aws.String(key),
			UploadId:   aws.String(uploadID),
			PartNumber: aws.Int32(int32(partNumber)),
		}, func(o *s3.PresignOptions) {
			o.Expires = expires
		})
		if err != nil {
			return nil, fmt.Errorf("failed to presign part %d for %s: %w", partNumber, key, err)
		}
		urls = append(urls, req.URL)
	}
	return urls, nil
}

// CompleteMultipartUpload submits the client-reported parts. The store
// validates part integrity and coverage authoritatively.
func (s *ObjectStore) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []models.CompletedPart) error {
	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.PartNumber),
		}
	}

	_, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return fmt.Errorf("failed to complete multipart upload for %s: %w", key, err)
	}
	return nil
}

// AbortMultipartUpload cancels an open multipart session.
func (s *ObjectStore) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return fmt.Errorf("failed to abort multipart upload for %s: %w", key, err)
	}
	return nil
}

// PresignGetObject mints a time-boxed GET URL for playback and thumbnails.
func (s *ObjectStore) PresignGetObject(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign GET for %s: %w", key, err)
	}
	return req.URL, nil
}

// PresignPutObject mints a time-boxed PUT URL for single-shot uploads
// (thumbnails and other small objects).
func (s *ObjectStore) PresignPutObject(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign PUT for %s: %w", key, err)
	}
	return req.URL, nil
}

// DeleteObject removes a single key.
func (s *ObjectStore) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// ListKeys returns up to maxKeys keys under the prefix.
func (s *ObjectStore) ListKeys(ctx context.Context, prefix string, maxKeys int32) ([]string, error) {
	var keys []string
	var continuationToken *string

	for {
		remaining := maxKeys - int32(len(keys))
		if remaining <= 0 {
			break
		}

		resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			MaxKeys:           aws.Int32(remaining),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list keys under %s: %w", prefix, err)
		}

		for _, object := range resp.Contents {
			keys = append(keys, aws.ToString(object.Key))
		}

		if !aws.ToBool(resp.IsTruncated) {
			break
		}
		continuationToken = resp.NextContinuationToken
	}

	return keys, nil
}

// DeletePrefix removes every object under the prefix with batched
// DeleteObjects calls. Returns the number of keys deleted.
func (s *ObjectStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	deleted := 0
	var continuationToken *string

	for {
		resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to list prefix %s: %w", prefix, err)
		}
		if len(resp.Contents) == 0 {
			break
		}

		identifiers := make([]types.ObjectIdentifier, len(resp.Contents))
		for i, object := range resp.Contents {
			identifiers[i] = types.ObjectIdentifier{Key: object.Key}
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: identifiers, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to delete prefix %s: %w", prefix, err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return deleted, fmt.Errorf("failed to delete %d keys under %s (first: %s %s)",
				len(out.Errors), prefix, aws.ToString(first.Key), aws.ToString(first.Message))
		}
		deleted += len(identifiers)

		if !aws.ToBool(resp.IsTruncated) {
			break
		}
		continuationToken = resp.NextContinuationToken
	}

	return deleted, nil
}
