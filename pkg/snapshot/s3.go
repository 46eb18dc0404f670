package snapshot

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the part of *s3.Client that S3Store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store keeps snapshots as objects in an S3 bucket.
//
// Example usage:
//
//	client := snapshot.NewS3Client("eu-west-1", "")
//	store := snapshot.NewS3Store(client, "my-bucket", "ripple/")
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

var _ Store = (*S3Store)(nil)

// NewS3Store creates a store writing objects named prefix+key to bucket.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// NewS3Client builds an S3 client for region. Credentials are read from
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN. A
// non-empty endpoint switches to path-style addressing against it, for
// S3-compatible stores.
func NewS3Client(region, endpoint string) *s3.Client {
	opts := s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials)),
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func envCredentials(context.Context) (aws.Credentials, error) {
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return aws.Credentials{}, stderrors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return creds, nil
}

// Key returns the object key for a snapshot key.
func (s *S3Store) Key(key string) string {
	return s.prefix + key
}

// Save uploads data.
func (s *S3Store) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/cbor"),
	})
	if err != nil {
		return backendError("save", s.Key(key), err)
	}
	return nil
}

// Load downloads the object for key.
func (s *S3Store) Load(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if stderrors.As(err, &nsk) {
			return nil, notFound(s.Key(key))
		}
		return nil, backendError("load", s.Key(key), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, backendError("load", s.Key(key), err)
	}
	return data, nil
}

// Close is a no-op; the client holds no per-store resources.
func (s *S3Store) Close() error {
	return nil
}
