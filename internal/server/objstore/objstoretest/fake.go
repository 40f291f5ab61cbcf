// Package objstoretest provides an in-memory objstore.API for tests.
package objstoretest

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Fake is a goroutine-safe bucket. The Fail* hooks, when set, are consulted
// before each call and a non-nil result is returned as the call's error.
type Fake struct {
	mu      sync.Mutex
	objects map[string][]byte

	// PageSize bounds ListObjectsV2 pages; zero means 1000.
	PageSize int

	FailPut    func(key string) error
	FailGet    func(key string) error
	FailDelete func(key string) error
	FailList   func(prefix string) error

	puts int
}

func New() *Fake {
	return &Fake{objects: make(map[string][]byte)}
}

func (f *Fake) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	f.mu.Lock()
	hook := f.FailPut
	f.mu.Unlock()
	if hook != nil {
		if err := hook(key); err != nil {
			return nil, err
		}
	}

	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if aws.ToString(in.IfNoneMatch) == "*" {
		if _, ok := f.objects[key]; ok {
			return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
		}
	}
	f.objects[key] = body
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func (f *Fake) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	f.mu.Lock()
	hook := f.FailGet
	body, ok := f.objects[key]
	f.mu.Unlock()
	if hook != nil {
		if err := hook(key); err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *Fake) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	f.mu.Lock()
	hook := f.FailDelete
	f.mu.Unlock()
	if hook != nil {
		if err := hook(key); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	delete(f.objects, key)
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func (f *Fake) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := aws.ToString(in.Prefix)
	f.mu.Lock()
	hook := f.FailList
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	size := f.PageSize
	f.mu.Unlock()
	if hook != nil {
		if err := hook(prefix); err != nil {
			return nil, err
		}
	}
	sort.Strings(keys)
	if size <= 0 {
		size = 1000
	}

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, &smithy.GenericAPIError{Code: "InvalidArgument", Message: "bad continuation token"}
		}
		start = n
	}
	end := min(start+size, len(keys))

	out := &s3.ListObjectsV2Output{KeyCount: aws.Int32(int32(end - start))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	} else {
		out.IsTruncated = aws.Bool(false)
	}
	return out, nil
}

// Keys returns a sorted snapshot of stored keys.
func (f *Fake) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Object returns the raw body stored at key.
func (f *Fake) Object(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	return b, ok
}

// SetObject stores a raw body, bypassing hooks.
func (f *Fake) SetObject(key string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = body
}

// Puts counts successful PutObject calls.
func (f *Fake) Puts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}
