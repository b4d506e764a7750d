package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/platelens/internal/photostore"
)

type object struct {
	data        []byte
	contentType string
}

// fakeBucket is an in-memory objectAPI.
type fakeBucket struct {
	objects map[string]object
	putErr  error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string]object)}
}

func (f *fakeBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = object{data: data, contentType: aws.ToString(in.ContentType)}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	out := &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}
	if obj.contentType != "" {
		out.ContentType = aws.String(obj.contentType)
	}
	return out, nil
}

// onlyReader hides the Seek method of the wrapped reader.
type onlyReader struct{ io.Reader }

func TestS3PhotoStoreSaveAndGet(t *testing.T) {
	bucket := newFakeBucket()
	store := newWithAPI(bucket, "photos")
	ctx := context.Background()

	key, err := store.Save(ctx, "meal", "image/webp", onlyReader{bytes.NewReader([]byte("webp bytes"))})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "uploads/meal_"))
	assert.True(t, strings.HasSuffix(key, ".webp"))

	reader, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "image/webp", mimeType)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, []byte("webp bytes"), data)
}

func TestS3PhotoStoreContentTypeFallback(t *testing.T) {
	bucket := newFakeBucket()
	bucket.objects["uploads/meal_x.png"] = object{data: []byte("png")}
	store := newWithAPI(bucket, "photos")

	reader, mimeType, err := store.Get(context.Background(), "uploads/meal_x.png")
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, "image/png", mimeType)
}

func TestS3PhotoStoreNotFound(t *testing.T) {
	store := newWithAPI(newFakeBucket(), "photos")

	_, _, err := store.Get(context.Background(), "uploads/missing.jpg")
	assert.True(t, errors.Is(err, photostore.ErrNotFound))
}

func TestS3PhotoStoreUploadError(t *testing.T) {
	bucket := newFakeBucket()
	bucket.putErr = errors.New("access denied")
	store := newWithAPI(bucket, "photos")

	_, err := store.Save(context.Background(), "meal", "image/jpeg", bytes.NewReader([]byte("jpeg")))
	assert.Error(t, err)
}

func TestNewS3PhotoStoreRequiresBucket(t *testing.T) {
	_, err := NewS3PhotoStore(context.Background(), Options{Region: "auto"})
	assert.Error(t, err)
}
