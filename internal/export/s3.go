// internal/export/s3.go
// Package export uploads order reports to S3-compatible storage and hands
// back a time-limited download link.
package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DownloadURLTTL is how long a presigned report link stays valid.
const DownloadURLTTL = 15 * time.Minute

// ReportName returns the file name of the order report generated on day.
func ReportName(day time.Time) string {
	return fmt.Sprintf("orders_report_%s.csv", day.Format("2006-01-02"))
}

// S3Exporter wraps the AWS S3 client for report uploads.
type S3Exporter struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewS3Exporter creates an exporter for bucket.
// It supports both AWS S3 and S3-compatible services like MinIO.
// Parameters:
//   - endpoint: S3 service endpoint URL
//   - region: AWS region (or equivalent for S3-compatible services)
//   - bucket: Bucket that receives the reports
//   - accessKey, secretKey: Static credentials
func NewS3Exporter(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string) (*S3Exporter, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     accessKey,
					SecretAccessKey: secretKey,
				}, nil
			})),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for MinIO and other S3-compatible services
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &S3Exporter{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}, nil
}

// Upload stores a CSV report under name and returns a presigned GET URL for it.
func (s *S3Exporter) Upload(ctx context.Context, name string, report []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(name),
		Body:               bytes.NewReader(report),
		ContentLength:      aws.Int64(int64(len(report))),
		ContentType:        aws.String("text/csv;charset=utf-8"),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", name)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	res, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = DownloadURLTTL
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return res.URL, nil
}
