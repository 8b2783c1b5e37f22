package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// uploadedEvidence is one archived object as the archive sent it.
type uploadedEvidence struct {
	body        []byte
	contentType string
	metadata    map[string]string
}

// memoryBucket answers the two S3 calls the archive makes, keyed by "bucket/key".
type memoryBucket struct {
	mu       sync.Mutex
	uploads  map[string]uploadedEvidence
	rejected map[string]error // key suffix -> upload error
}

var _ S3API = (*memoryBucket)(nil)

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{
		uploads:  map[string]uploadedEvidence{},
		rejected: map[string]error{},
	}
}

// rejectUploads fails every upload whose key ends in suffix.
func (b *memoryBucket) rejectUploads(suffix string, err error) {
	b.mu.Lock()
	b.rejected[suffix] = err
	b.mu.Unlock()
}

func (b *memoryBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)

	b.mu.Lock()
	defer b.mu.Unlock()
	for suffix, err := range b.rejected {
		if strings.HasSuffix(key, suffix) {
			return nil, err
		}
	}

	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, fmt.Errorf("drain upload body: %w", err)
	}
	b.uploads[aws.ToString(in.Bucket)+"/"+key] = uploadedEvidence{
		body:        body,
		contentType: aws.ToString(in.ContentType),
		metadata:    in.Metadata,
	}
	return &s3.PutObjectOutput{}, nil
}

// ListObjectsV2 returns every matching key in one page.
func (b *memoryBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	bucket := aws.ToString(in.Bucket) + "/"
	prefix := aws.ToString(in.Prefix)

	b.mu.Lock()
	defer b.mu.Unlock()
	var listed []types.Object
	for full, up := range b.uploads {
		key, ok := strings.CutPrefix(full, bucket)
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		listed = append(listed, types.Object{Key: aws.String(key), Size: aws.Int64(int64(len(up.body)))})
	}
	sort.Slice(listed, func(i, j int) bool { return *listed[i].Key < *listed[j].Key })

	return &s3.ListObjectsV2Output{
		Contents:    listed,
		KeyCount:    aws.Int32(int32(len(listed))),
		IsTruncated: aws.Bool(false),
	}, nil
}

func (b *memoryBucket) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.uploads)
}

func (b *memoryBucket) upload(bucket, key string) (uploadedEvidence, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	up, ok := b.uploads[bucket+"/"+key]
	return up, ok
}
