package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"stayquote/internal/app/policies"
)

const (
	icalContentType = "text/calendar"
	keyPrefix       = "ical"
)

// Archive keeps raw external calendar bodies in an S3-compatible bucket:
// a "latest" object per calendar plus a timestamped history copy.
type Archive struct {
	bucket         string
	client         *minio.Client
	logger         *slog.Logger
	now            func() time.Time
	bucketInitOnce sync.Once
	bucketInitErr  error
}

// NewArchive configures the archive using the provided endpoint and credentials.
func NewArchive(endpoint string, useSSL bool, accessKey, secretKey, bucket string, logger *slog.Logger) (*Archive, error) {
	cleanEndpoint := strings.TrimSpace(endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	if bucket = strings.TrimSpace(bucket); bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	minioClient, err := minio.New(parseEndpoint(cleanEndpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(accessKey), strings.TrimSpace(secretKey), ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	return &Archive{bucket: bucket, client: minioClient, logger: logger, now: time.Now}, nil
}

func (a *Archive) Put(ctx context.Context, calendarID string, body []byte) error {
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}
	opts := minio.PutObjectOptions{ContentType: icalContentType}
	historyKey := objectKey(calendarID, a.now().UTC().Format("20060102T150405Z")+".ics")
	for _, key := range []string{latestKey(calendarID), historyKey} {
		if _, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), opts); err != nil {
			return fmt.Errorf("s3: put object: %w", err)
		}
	}
	if a.logger != nil {
		a.logger.Debug("ical body archived", "bucket", a.bucket, "calendar_id", calendarID, "bytes", len(body))
	}
	return nil
}

// Latest returns false when the calendar was never archived.
func (a *Archive) Latest(ctx context.Context, calendarID string) ([]byte, bool, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, latestKey(calendarID), minio.GetObjectOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("s3: get object: %w", err)
	}
	defer obj.Close()
	body, err := io.ReadAll(obj)
	if err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "NoSuchKey" || code == "NoSuchBucket" {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("s3: read object: %w", err)
	}
	return body, true, nil
}

func (a *Archive) ensureBucket(ctx context.Context) error {
	a.bucketInitOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			a.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			a.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return a.bucketInitErr
}

func latestKey(calendarID string) string {
	return objectKey(calendarID, "latest.ics")
}

func objectKey(calendarID, name string) string {
	return keyPrefix + "/" + url.PathEscape(strings.Trim(calendarID, "/")) + "/" + name
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ policies.RawBodyStore = (*Archive)(nil)
