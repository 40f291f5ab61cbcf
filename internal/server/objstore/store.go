package objstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/whisperbox/internal/common"
)

var (
	// ErrPreconditionFailed is returned by Create when the object already exists.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrMalformed is returned by Get when the object body does not decode.
	ErrMalformed = errors.New("malformed object")
)

// Store reads and writes JSON documents under an optional key prefix.
type Store struct {
	api    API
	bucket string
	prefix string
}

func NewStore(api API, bucket, prefix string) *Store {
	return &Store{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key joins path elements below the store prefix.
func (s *Store) Key(elem ...string) string {
	if s.prefix != "" {
		elem = append([]string{s.prefix}, elem...)
	}
	return path.Join(elem...)
}

// Put writes v as JSON, replacing any existing object.
func (s *Store) Put(ctx context.Context, key string, v any) error {
	return s.put(ctx, key, v, false)
}

// Create writes v only if key does not exist yet. A lost race returns
// ErrPreconditionFailed.
func (s *Store) Create(ctx context.Context, key string, v any) error {
	return s.put(ctx, key, v, true)
}

func (s *Store) put(ctx context.Context, key string, v any, exclusive bool) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}
	if exclusive {
		in.IfNoneMatch = aws.String("*")
	}

	if _, err := s.api.PutObject(ctx, in); err != nil {
		if isPreconditionFailed(err) {
			return ErrPreconditionFailed
		}
		return fmt.Errorf("%w: put %s: %w", common.ErrStoreUnavailable, key, err)
	}
	return nil
}

// Get decodes the object at key into v. A missing object is
// common.ErrorNotFound.
func (s *Store) Get(ctx context.Context, key string, v any) error {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("%w: get %s: %w", common.ErrStoreUnavailable, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", common.ErrStoreUnavailable, key, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", common.ErrStoreUnavailable, key, err)
	}
	return nil
}

// List returns every key that starts with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", common.ErrStoreUnavailable, prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	return errors.As(err, &nf)
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}
