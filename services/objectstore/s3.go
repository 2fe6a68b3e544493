package objectstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	verrors "variationutil/api/errors"
	"variationutil/api/models/indexes"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

type S3Options struct {
	Region string
	// Endpoint overrides the AWS endpoint, i.e. for MinIO.
	Endpoint     string
	UsePathStyle bool
}

// S3Store keys each object as <id>/<file name>; the key is the handle id.
// Single-part uploads report the md5 of the content as ETag.
type S3Store struct {
	client *s3.Client
	bucket string
}

func NewS3Store(ctx context.Context, bucket string, opts S3Options) (*S3Store, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "failed to load AWS config")
	}

	var s3Opts []func(*s3.Options)
	if opts.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		})
	}
	if opts.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Store{client: s3.NewFromConfig(awsCfg, s3Opts...), bucket: bucket}, nil
}

func (s *S3Store) Upload(ctx context.Context, path string) (indexes.Handle, error) {
	name := filepath.Base(path)
	key := uuid.New().String() + "/" + name

	f, err := os.Open(path)
	if err != nil {
		return indexes.Handle{}, verrors.Wrap(verrors.KindStorage, err, "upload of %s failed", name)
	}
	defer f.Close()

	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return indexes.Handle{}, verrors.Wrap(verrors.KindStorage, err, "upload of %s to s3://%s failed", name, s.bucket)
	}

	return indexes.Handle{
		Id:           key,
		FileName:     name,
		Type:         KindS3,
		Url:          "s3://" + s.bucket + "/" + key,
		Checksum:     strings.Trim(aws.ToString(out.ETag), `"`),
		ChecksumType: ChecksumMd5,
	}, nil
}

func (s *S3Store) Download(ctx context.Context, handleId string, dest string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(handleId),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return verrors.New(verrors.KindNotFound, "object %s not found", handleId)
		}
		return verrors.Wrap(verrors.KindStorage, err, "download of %s failed", handleId)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "unable to create %s", filepath.Dir(dest))
	}
	f, err := os.Create(dest)
	if err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "unable to create %s", dest)
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		return verrors.Wrap(verrors.KindStorage, err, "download of %s failed", handleId)
	}
	return f.Close()
}
