// Package publish writes the batch results artifact and uploads it to the
// results bucket under a date prefix.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/AndreyAkinshin/docsuite/internal/aggregate"
	docerrors "github.com/AndreyAkinshin/docsuite/internal/errors"
)

// ObjectName is the name of the uploaded results object under its date
// prefix.
const ObjectName = "results.json"

const contentType = "application/json"

// Uploader is the subset of the S3 client used to store results. It is
// satisfied by *s3.Client.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Key returns the object key for a batch started at start, using the
// calendar date in loc: YYYY/MM/DD/results.json.
func Key(start time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	t := start.In(loc)
	return fmt.Sprintf("%04d/%02d/%02d/%s", t.Year(), int(t.Month()), t.Day(), ObjectName)
}

// Marshal encodes the aggregate in its published form.
func Marshal(agg *aggregate.Aggregate) ([]byte, error) {
	return json.Marshal(agg)
}

// Publisher stores the aggregate locally and in the results bucket.
type Publisher struct {
	Uploader Uploader
	Bucket   string
	// OutputPath is where the artifact is written before upload. Empty
	// skips the local copy.
	OutputPath string
	Location   *time.Location
	// DryRun writes the local artifact but skips the upload.
	DryRun bool

	Logger *zap.Logger
}

// Publish writes and uploads agg, keyed by the date of start. It returns
// the object key.
func (p *Publisher) Publish(ctx context.Context, agg *aggregate.Aggregate, start time.Time) (string, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := Marshal(agg)
	if err != nil {
		return "", docerrors.Storage(err, "encode results")
	}

	if p.OutputPath != "" {
		if err := os.WriteFile(p.OutputPath, data, 0644); err != nil {
			return "", docerrors.Storage(err, "write %s", p.OutputPath)
		}
		logger.Info("wrote results", zap.String("path", p.OutputPath), zap.Int("bytes", len(data)))
	}

	key := Key(start, p.Location)
	if p.DryRun {
		logger.Info("dry run, skipping upload", zap.String("bucket", p.Bucket), zap.String("key", key))
		return key, nil
	}
	if p.Uploader == nil {
		return "", docerrors.Storage(nil, "no uploader configured")
	}

	logger.Info("uploading results", zap.String("bucket", p.Bucket), zap.String("key", key))
	_, err = p.Uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", docerrors.Storage(err, "upload s3://%s/%s", p.Bucket, key)
	}
	return key, nil
}
