package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"capsnap/internal/application/port"
	"capsnap/internal/domain/model"
	"capsnap/internal/infrastructure/output/file"
)

type Options struct {
	Region          string
	Bucket          string
	Prefix          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// PutObjectAPI is the part of the S3 client the mirror uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Mirror uploads every document to <bucket>/<prefix>/<symbol>.json.
type Mirror struct {
	client PutObjectAPI
	bucket string
	prefix string
}

func New(ctx context.Context, opts Options) (*Mirror, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return NewWithClient(client, opts.Bucket, opts.Prefix), nil
}

func NewWithClient(client PutObjectAPI, bucket, prefix string) *Mirror {
	return &Mirror{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (m *Mirror) Name() string { return "s3" }

func (m *Mirror) Key(symbol string) string {
	if m.prefix == "" {
		return symbol + ".json"
	}
	return path.Join(m.prefix, symbol+".json")
}

func (m *Mirror) Write(ctx context.Context, symbol string, doc *model.Snapshot) error {
	b, err := file.Encode(doc)
	if err != nil {
		return &port.WriteError{Symbol: symbol, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(m.Key(symbol)),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"symbol":     symbol,
			"data-as-of": doc.Metadata.DataAsOf,
		},
	})
	if err != nil {
		return &port.WriteError{Symbol: symbol, Err: fmt.Errorf("upload %s: %w", m.Key(symbol), err)}
	}
	return nil
}

var _ port.DocumentSink = (*Mirror)(nil)
