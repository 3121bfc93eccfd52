// internal/services/archive_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/config"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
)

// ArchiveService mirrors each traceability record as a public JSON document on
// S3 so consumers can verify provenance without calling the API.
type ArchiveService struct {
	s3Client *s3.S3
	config   config.AWSConfig
}

// NewArchiveService returns a disabled archive when no AWS credentials are set.
func NewArchiveService(cfg config.AWSConfig) (*ArchiveService, error) {
	if cfg.AccessKeyID == "" {
		return &ArchiveService{config: cfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &ArchiveService{
		s3Client: s3.New(sess),
		config:   cfg,
	}, nil
}

func (s *ArchiveService) Enabled() bool {
	return s != nil && s.s3Client != nil
}

func (s *ArchiveService) key(batchID string) string {
	return fmt.Sprintf("traceability/%s.json", batchID)
}

// PublicURL is where the archived record for batchID is served, or "" when disabled.
func (s *ArchiveService) PublicURL(batchID string) string {
	if !s.Enabled() {
		return ""
	}
	key := s.key(batchID)
	if s.config.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", s.config.CloudFrontURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.S3Bucket, s.config.Region, key)
}

// Store uploads the current state of the record, replacing any earlier copy.
func (s *ArchiveService) Store(ctx context.Context, record *models.Traceability) error {
	if !s.Enabled() {
		return nil
	}

	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal traceability record: %w", err)
	}

	_, err = s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.config.S3Bucket),
		Key:           aws.String(s.key(record.BatchID)),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
		ACL:           aws.String("public-read"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload traceability record to S3: %w", err)
	}

	return nil
}
