// Package s3 implements the object channel on Amazon S3 or a compatible
// service (MinIO, Localstack).
//
// Each slot is one object under an optional key prefix. Publishing is a
// PutObject that replaces the object; the display name, caption and publish
// ID travel as user metadata. Pinning tags the published version as
// canonical.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/store/object"
)

// User metadata keys. S3 lower-cases them.
const (
	metaDisplayName = "display-name"
	metaCaption     = "caption"
	metaPublishID   = "publish-id"
)

// Tag keys set by Pin.
const (
	tagCanonical = "canonical"
	tagPublishID = "publish-id"
)

// API is the subset of *s3.Client used by the store.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObjectTagging(ctx context.Context, in *s3.PutObjectTaggingInput, optFns ...func(*s3.Options)) (*s3.PutObjectTaggingOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Config configures an S3 object store.
type Config struct {
	// Client is the S3 client. See NewClientFromConfig.
	Client API

	// Bucket holds the backup objects.
	Bucket string

	// KeyPrefix is prepended to slot names ("backups/" + "drive.data").
	KeyPrefix string

	// Metrics receives per-operation observations. Nil disables them.
	Metrics S3Metrics

	// SkipBucketCheck skips the HeadBucket probe in New.
	SkipBucketCheck bool
}

// S3ObjectStore is an object.Store on S3.
//
// Thread Safety:
// The store keeps no mutable state; the S3 client is safe for concurrent use.
type S3ObjectStore struct {
	client    API
	bucket    string
	keyPrefix string
	metrics   S3Metrics
}

// New creates an S3 object store and checks that the bucket is reachable.
func New(ctx context.Context, cfg Config) (*S3ObjectStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, errors.New("s3 object store: client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3 object store: bucket is required")
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	s := &S3ObjectStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		metrics:   metrics,
	}

	if !cfg.SkipBucketCheck {
		start := time.Now()
		_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
		s.metrics.ObserveOperation("HeadBucket", time.Since(start), err)
		if err != nil {
			return nil, fmt.Errorf("failed to access bucket %s: %w", s.bucket, err)
		}
	}

	return s, nil
}

func (s *S3ObjectStore) objectKey(slot string) string {
	return s.keyPrefix + slot
}

// Fetch downloads the object in slot.
func (s *S3ObjectStore) Fetch(ctx context.Context, slot string) (*object.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := s.objectKey(slot)
	start := time.Now()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.metrics.ObserveOperation("GetObject", time.Since(start), err)
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, object.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	s.metrics.ObserveOperation("GetObject", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	s.metrics.RecordBytes("read", int64(len(data)))

	obj := &object.Object{
		Data:        data,
		DisplayName: unescapeMeta(out.Metadata[metaDisplayName]),
		Caption:     unescapeMeta(out.Metadata[metaCaption]),
	}
	if out.LastModified != nil {
		obj.UpdatedAt = out.LastModified.UTC()
	}
	return obj, nil
}

// Publish uploads data as the object of slot, replacing the previous one.
func (s *S3ObjectStore) Publish(ctx context.Context, slot string, data []byte, displayName, caption string) (object.Ack, error) {
	if err := ctx.Err(); err != nil {
		return object.Ack{}, err
	}

	key := s.objectKey(slot)
	publishID := uuid.New()
	start := time.Now()

	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(data),
		ContentLength:      aws.Int64(int64(len(data))),
		ContentType:        aws.String("application/octet-stream"),
		ContentDisposition: aws.String(mime.FormatMediaType("attachment", map[string]string{"filename": displayName})),
		Metadata: map[string]string{
			metaDisplayName: url.QueryEscape(displayName),
			metaCaption:     url.QueryEscape(caption),
			metaPublishID:   publishID.String(),
		},
	})
	s.metrics.ObserveOperation("PutObject", time.Since(start), err)
	if err != nil {
		return object.Ack{}, fmt.Errorf("failed to put object %s: %w", key, err)
	}
	s.metrics.RecordBytes("write", int64(len(data)))

	logger.Debug("Published %s to s3://%s/%s (%d bytes, publish %s)", displayName, s.bucket, key, len(data), publishID)

	return object.Ack{
		Slot:      slot,
		Version:   aws.ToString(out.VersionId),
		PublishID: publishID,
	}, nil
}

// Pin tags the acknowledged object version as canonical.
func (s *S3ObjectStore) Pin(ctx context.Context, ack object.Ack) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := s.objectKey(ack.Slot)
	in := &s3.PutObjectTaggingInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Tagging: &types.Tagging{TagSet: []types.Tag{
			{Key: aws.String(tagCanonical), Value: aws.String("true")},
			{Key: aws.String(tagPublishID), Value: aws.String(ack.PublishID.String())},
		}},
	}
	if ack.Version != "" {
		in.VersionId = aws.String(ack.Version)
	}

	start := time.Now()
	_, err := s.client.PutObjectTagging(ctx, in)
	s.metrics.ObserveOperation("PutObjectTagging", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to tag object %s: %w", key, err)
	}
	return nil
}

// unescapeMeta reverses the escaping applied on publish. Values written by
// other tools are returned as is.
func unescapeMeta(v string) string {
	out, err := url.QueryUnescape(v)
	if err != nil {
		return v
	}
	return out
}
