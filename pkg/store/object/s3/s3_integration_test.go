//go:build integration

package s3

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/backup"
	"github.com/marmos91/dittodrive/pkg/drive"
)

// TestS3ObjectStore_Integration runs the object store and the backup
// scheduler against a real S3-compatible service (Localstack).
//
// Prerequisites:
//   - Localstack running on localhost:4566 (or LOCALSTACK_ENDPOINT)
//   - Run with: go test -tags=integration ./pkg/store/object/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3ObjectStore_Integration(t *testing.T) {
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	client, err := NewClientFromConfig(ctx, ClientConfig{
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		MaxRetries:      3,
	})
	require.NoError(t, err)

	bucket := fmt.Sprintf("dittodrive-test-%d", time.Now().UnixNano())
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)
	_, err = client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(bucket),
		VersioningConfiguration: &types.VersioningConfiguration{
			Status: types.BucketVersioningStatusEnabled,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { cleanupBucket(client, bucket) })

	store, err := New(ctx, Config{Client: client, Bucket: bucket, KeyPrefix: "it/"})
	require.NoError(t, err)

	t.Run("PublishFetchPin", func(t *testing.T) {
		ack, err := store.Publish(ctx, "blob", []byte("payload"), "drive.data", "Line one\n\nLast Updated: now")
		require.NoError(t, err)
		assert.NotEmpty(t, ack.Version)

		obj, err := store.Fetch(ctx, "blob")
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), obj.Data)
		assert.Equal(t, "drive.data", obj.DisplayName)
		assert.Equal(t, "Line one\n\nLast Updated: now", obj.Caption)

		require.NoError(t, store.Pin(ctx, ack))
	})

	t.Run("SchedulerRoundTrip", func(t *testing.T) {
		src := drive.New(drive.Config{})
		docs, err := src.CreateFolder(ctx, "/", "Docs")
		require.NoError(t, err)

		_, err = backup.New(src, store, backup.Config{}).Tick(ctx)
		require.NoError(t, err)

		dst := drive.New(drive.Config{})
		outcome, err := backup.New(dst, store, backup.Config{}).Restore(ctx)
		require.NoError(t, err)
		assert.Equal(t, backup.RestoreRestored, outcome)

		dir, err := dst.GetDirectory(ctx, drive.JoinPath(docs))
		require.NoError(t, err)
		assert.Equal(t, "Docs", dir.Name)
	})
}

func cleanupBucket(client *s3.Client, bucket string) {
	ctx := context.Background()

	versions, err := client.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{Bucket: aws.String(bucket)})
	if err == nil {
		for _, v := range versions.Versions {
			_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket:    aws.String(bucket),
				Key:       v.Key,
				VersionId: v.VersionId,
			})
		}
	}

	_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
}
