package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cfg "github.com/jhonny218/social-media-scheduler-sub001/configs"
)

// R2Service talks to the Cloudflare R2 bucket holding uploaded media.
type R2Service struct {
	config  cfg.R2
	client  *s3.Client
	presign *s3.PresignClient
}

func NewR2Service(ctx context.Context, r2 cfg.R2) (*R2Service, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("loading r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(r2.EndpointURL())
	})

	return &R2Service{
		config:  r2,
		client:  client,
		presign: s3.NewPresignClient(client),
	}, nil
}

// UploadToR2 stores a file under key in the media bucket.
func (r *R2Service) UploadToR2(ctx context.Context, key string, file []byte, filetype string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(filetype),
	}

	_, err := r.client.PutObject(ctx, input)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

// PresignBatch signs a GET URL for every path. Duplicate paths are signed once.
func (r *R2Service) PresignBatch(ctx context.Context, paths []string, ttl time.Duration) (map[string]string, error) {
	urls := make(map[string]string, len(paths))
	for _, p := range paths {
		if _, ok := urls[p]; ok {
			continue
		}
		req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(r.config.BucketName),
			Key:    aws.String(p),
		}, s3.WithPresignExpires(ttl))
		if err != nil {
			return nil, fmt.Errorf("presigning %s: %w", p, err)
		}
		urls[p] = req.URL
	}
	return urls, nil
}

// Download reads an object and its stored content type.
func (r *R2Service) Download(ctx context.Context, key string) ([]byte, string, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("downloading %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", key, err)
	}
	return data, aws.ToString(out.ContentType), nil
}
