// Package archive exports the webhook event log to object storage as JSONL.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ManuelReschke/MemberGate/app/models"
)

const (
	keyPrefix   = "webhook-events"
	contentType = "application/x-ndjson"
)

// UploadResult describes one exported object.
type UploadResult struct {
	Bucket    string
	ObjectKey string
	Events    int
	Size      int64
}

type Exporter struct {
	putter ObjectPutter
	bucket string
	now    func() time.Time
	log    *zap.Logger
}

func NewExporter(putter ObjectPutter, bucket string, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{putter: putter, bucket: bucket, now: time.Now, log: log.Named("archive")}
}

// ObjectKey returns webhook-events/YYYY/MM/DD/<timestamp>.jsonl for t in UTC.
func ObjectKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s.jsonl", keyPrefix, t.Year(), int(t.Month()), t.Day(), t.Format("20060102T150405Z"))
}

// WriteJSONL writes one event per line and returns the number written.
func WriteJSONL(w io.Writer, events []models.WebhookEvent) (int, error) {
	enc := json.NewEncoder(w)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return i, fmt.Errorf("encode event %s: %w", events[i].ID, err)
		}
	}
	return len(events), nil
}

// Export uploads events as a single JSONL object.
func (e *Exporter) Export(ctx context.Context, events []models.WebhookEvent) (*UploadResult, error) {
	if e.bucket == "" {
		return nil, errors.New("S3 bucket is not configured")
	}

	var buf bytes.Buffer
	n, err := WriteJSONL(&buf, events)
	if err != nil {
		return nil, err
	}

	key := ObjectKey(e.now())
	size := int64(buf.Len())
	e.log.Info("uploading event log", zap.String("bucket", e.bucket), zap.String("key", key), zap.Int("events", n))

	_, err = e.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(e.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		Metadata: map[string]string{
			"event-count":   fmt.Sprintf("%d", n),
			"upload-source": "membergate-eventlog",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{Bucket: e.bucket, ObjectKey: key, Events: n, Size: size}, nil
}
