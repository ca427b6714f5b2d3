package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/ckpt/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestStore_Open(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "runs/exp-42")

	t.Run("NotFound", func(t *testing.T) {
		mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Bucket == "test-bucket" && *input.Key == "runs/exp-42/epoch=1-acc=0.5000.ckpt"
		})).Return(nil, &types.NotFound{}).Once()

		_, err := store.Open(context.Background(), "epoch=1-acc=0.5000.ckpt")
		assert.Equal(t, blobstore.ErrNotFound, err)
	})

	t.Run("Success", func(t *testing.T) {
		mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Key == "runs/exp-42/epoch=2-acc=0.6000.ckpt"
		})).Return(&s3.HeadObjectOutput{
			ContentLength: aws.Int64(7),
		}, nil).Once()
		mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
			return *input.Key == "runs/exp-42/epoch=2-acc=0.6000.ckpt"
		})).Return(&s3.GetObjectOutput{
			Body: io.NopCloser(strings.NewReader("payload")),
		}, nil).Once()

		blob, err := store.Open(context.Background(), "epoch=2-acc=0.6000.ckpt")
		assert.NoError(t, err)
		assert.Equal(t, int64(7), blob.Size())

		data, err := io.ReadAll(blob)
		assert.NoError(t, err)
		assert.Equal(t, "payload", string(data))
		assert.NoError(t, blob.Close())
	})
}

func TestStore_Delete(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "runs/exp-42")

	mockClient.On("DeleteObject", mock.Anything, mock.MatchedBy(func(input *s3.DeleteObjectInput) bool {
		return *input.Bucket == "test-bucket" && *input.Key == "runs/exp-42/epoch=1-acc=0.5000.ckpt"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()

	err := store.Delete(context.Background(), "epoch=1-acc=0.5000.ckpt")
	assert.NoError(t, err)
}

func TestStore_List(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "runs/exp-42/")

	mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return *input.Bucket == "test-bucket" && *input.Prefix == "runs/exp-42/epoch=1-"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("runs/exp-42/epoch=1-acc=0.5000.ckpt")},
		},
	}, nil).Once()

	keys, err := store.List(context.Background(), "epoch=1-")
	assert.NoError(t, err)
	assert.Equal(t, []string{"epoch=1-acc=0.5000.ckpt"}, keys)
}

func TestStore_List_Pagination(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "runs/exp-42/")

	// Page 1
	mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return input.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("token"),
		Contents:              []types.Object{{Key: aws.String("runs/exp-42/epoch=1-a.ckpt")}},
	}, nil).Once()

	// Page 2
	mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return input.ContinuationToken != nil && *input.ContinuationToken == "token"
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated: aws.Bool(false),
		Contents:    []types.Object{{Key: aws.String("runs/exp-42/epoch=2-a.ckpt")}},
	}, nil).Once()

	keys, err := store.List(context.Background(), "")
	assert.NoError(t, err)
	assert.Equal(t, []string{"epoch=1-a.ckpt", "epoch=2-a.ckpt"}, keys)
}

func TestStore_Create(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "runs/exp-42")

	mockClient.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
		return *input.Bucket == "test-bucket" && *input.Key == "runs/exp-42/epoch=1-acc=0.5000.ckpt"
	})).Run(func(args mock.Arguments) {
		input := args.Get(1).(*s3.PutObjectInput)
		// Drain the pipe so the background upload can finish.
		_, _ = io.ReadAll(input.Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	wb, err := store.Create(context.Background(), "epoch=1-acc=0.5000.ckpt")
	assert.NoError(t, err)

	_, err = wb.Write([]byte("payload"))
	assert.NoError(t, err)
	assert.NoError(t, wb.Sync())
	assert.NoError(t, wb.Close())

	// Double close reports the pipe as closed.
	assert.ErrorIs(t, wb.Close(), io.ErrClosedPipe)
}
