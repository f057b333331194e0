package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
	Bucket    string
}

// SummaryArchive is the document stored for each delivered summary.
type SummaryArchive struct {
	RecordID    string    `json:"record_id"`
	ChannelID   string    `json:"channel_id"`
	VideoID     string    `json:"video_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	Granularity string    `json:"granularity"`
	Provider    string    `json:"provider"`
	Summary     string    `json:"summary"`
	Transcript  string    `json:"transcript"`
	CreatedAt   time.Time `json:"created_at"`
}

// Archiver persists delivered summaries.
type Archiver interface {
	SaveSummary(ctx context.Context, archive *SummaryArchive) (string, error)
}

type SpacesClient struct {
	client *s3.Client
	bucket string
}

func NewSpacesClient(ctx context.Context, cfg SpacesConfig) (*SpacesClient, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load SDK config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &SpacesClient{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

func summaryKey(a *SummaryArchive) string {
	return fmt.Sprintf("summaries/%s/%s/%s.json", a.ChannelID, a.VideoID, a.RecordID)
}

// SaveSummary uploads archive as JSON and returns its object key.
func (s *SpacesClient) SaveSummary(ctx context.Context, archive *SummaryArchive) (string, error) {
	jsonData, err := json.Marshal(archive)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal summary archive")
	}

	key := summaryKey(archive)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(jsonData),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to save %s to Spaces", key)
	}

	return key, nil
}
