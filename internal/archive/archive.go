// Package archive mirrors generated subtitle files to an S3-compatible
// bucket.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"autocap/internal/config"
	"autocap/internal/logging"
	"autocap/internal/services"
)

const srtContentType = "application/x-subrip"

// S3Client abstracts the S3 API operations used by Archiver.
// The *s3.Client type satisfies this interface.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Archiver uploads subtitle files under bucket/prefix. A nil *Archiver is a
// valid disabled archiver.
type Archiver struct {
	client S3Client
	bucket string
	prefix string
	logger *slog.Logger
}

// New creates an Archiver over client.
func New(client S3Client, bucket, prefix string, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Archiver{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logging.NewComponentLogger(logger, "archive"),
	}
}

// NewFromConfig builds an Archiver from the [archive] section. It returns
// nil when archiving is disabled.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Archiver, error) {
	if cfg == nil || !cfg.Archive.Enabled {
		return nil, nil
	}
	a := cfg.Archive
	if strings.TrimSpace(a.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "archive", "config", "bucket required", nil)
	}
	opts := s3.Options{
		Region:       a.Region,
		UsePathStyle: a.UsePathStyle,
	}
	if a.AccessKeyID != "" && a.SecretAccessKey != "" {
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     a.AccessKeyID,
				SecretAccessKey: a.SecretAccessKey,
				Source:          "autocap config",
			}, nil
		}))
	}
	if endpoint := strings.TrimSpace(a.Endpoint); endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
	}
	return New(s3.New(opts), a.Bucket, a.Prefix, logger), nil
}

// Enabled reports whether uploads happen.
func (a *Archiver) Enabled() bool {
	return a != nil && a.client != nil
}

// Key returns the object key a subtitle for videoID is stored under.
func (a *Archiver) Key(videoID string) string {
	name := videoID + ".srt"
	if a == nil || a.prefix == "" {
		return name
	}
	return path.Join(a.prefix, name)
}

// Archive uploads the file at localPath for videoID and returns the object
// key. Disabled archivers return "" and do nothing.
func (a *Archiver) Archive(ctx context.Context, videoID, localPath string) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	key := a.Key(videoID)
	existed, err := a.exists(ctx, key)
	if err != nil {
		return "", services.Wrap(services.ErrRemoteHTTP, "archive", "head", key, err)
	}

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("archive: open %s: %w", localPath, err)
	}
	defer file.Close()

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(srtContentType),
	})
	if err != nil {
		return "", services.Wrap(services.ErrRemoteHTTP, "archive", "put", key, err)
	}
	a.logger.Info("subtitle archived",
		logging.VideoID(videoID),
		logging.String("bucket", a.bucket),
		logging.String("key", key),
		logging.Bool("replaced", existed),
	)
	return key, nil
}

func (a *Archiver) exists(ctx context.Context, key string) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// Ping verifies the bucket is reachable with the configured credentials.
// A missing marker object is the expected answer.
func (a *Archiver) Ping(ctx context.Context) error {
	if !a.Enabled() {
		return nil
	}
	if _, err := a.exists(ctx, a.Key(".autocap-ping")); err != nil {
		return services.Wrap(services.ErrRemoteHTTP, "archive", "ping", a.bucket, err)
	}
	return nil
}

// Bucket returns the target bucket name.
func (a *Archiver) Bucket() string {
	if a == nil {
		return ""
	}
	return a.bucket
}
