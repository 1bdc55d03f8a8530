// Package s3store implements chunkstore.ChunkStore against an S3-
// compatible object store, keying objects by chunk hash under a
// configurable prefix.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/driftvault/store/chunkstore"
)

// Store stores chunk bytes as objects in an S3 bucket.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// Config configures the S3-backed chunk store.
type Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

// New builds a Store from the default AWS credential chain, optionally
// overridden with a custom region/endpoint (for S3-compatible backends).
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3store: bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3store: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *Store) key(hash chunkstore.Hash) string {
	if s.prefix == "" {
		return hash.String()
	}
	return s.prefix + "/" + hash.String()
}

// Get downloads the chunk stored under hash.
func (s *Store) Get(ctx context.Context, hash chunkstore.Hash) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(hash)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, chunkstore.ErrNotFound
		}
		return nil, fmt.Errorf("s3store: get object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3store: read object body: %w", err)
	}
	return data, nil
}

// Put uploads data under hash, overwriting any existing object.
func (s *Store) Put(ctx context.Context, hash chunkstore.Hash, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(hash)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3store: put object: %w", err)
	}
	return nil
}

// Delete removes the object stored under hash, returning
// chunkstore.ErrNotFound if no such object exists.
func (s *Store) Delete(ctx context.Context, hash chunkstore.Hash) error {
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(hash)),
	}); err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return chunkstore.ErrNotFound
		}
		return fmt.Errorf("s3store: head object: %w", err)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(hash)),
	})
	if err != nil {
		return fmt.Errorf("s3store: delete object: %w", err)
	}
	return nil
}
