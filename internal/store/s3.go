package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zip"

	"github.com/ppiankov/vesselinfo/internal/model"
)

// S3Client is the subset of the S3 API used to read extracts.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// NewS3Client builds a client from the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg model.S3Config) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	}), nil
}

type s3Source struct {
	client S3Client
	bucket string
	key    string
	delim  rune
}

func (s *s3Source) Name() string { return "s3://" + s.bucket + "/" + s.key }

func (s *s3Source) Scan(ctx context.Context, fn func(Row) error) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return fmt.Errorf("get object: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	if strings.HasSuffix(strings.ToLower(s.key), ".zip") {
		// zip needs random access
		data, err := io.ReadAll(out.Body)
		if err != nil {
			return fmt.Errorf("read object: %w", err)
		}
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		return scanZip(ctx, s.Name(), zr, s.delim, fn)
	}

	r, closeFn, err := decompress(s.key, out.Body)
	if err != nil {
		return err
	}
	defer closeFn()

	return scanDelimited(ctx, s.Name(), r, s.delim, fn)
}

// expandS3 resolves s3://bucket/key to one source, or s3://bucket/prefix/
// to every data file under the prefix sorted by key.
func expandS3(ctx context.Context, spec string, opts Options) ([]Source, error) {
	u, err := url.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse s3 url: %w", err)
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" {
		return nil, fmt.Errorf("s3 url %q has no bucket", spec)
	}

	client := opts.S3Client
	if client == nil {
		c, err := NewS3Client(ctx, opts.S3)
		if err != nil {
			return nil, err
		}
		client = c
	}

	if key != "" && !strings.HasSuffix(key, "/") {
		return []Source{&s3Source{client: client, bucket: bucket, key: key, delim: delimiterFor(key, opts.delimiter())}}, nil
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(key),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, key, err)
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if isDataFile(k) {
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)

	sources := make([]Source, 0, len(keys))
	for _, k := range keys {
		sources = append(sources, &s3Source{client: client, bucket: bucket, key: k, delim: delimiterFor(k, opts.delimiter())})
	}
	return sources, nil
}
