package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/Jairedddy/ClockIn-Automation/internal/domain/model/outcome"
)

// EvidenceArchive copies a run's screenshots to S3.
// Key layout: <prefix>/<YYYY-MM-DD>/<run-id>/<file>, plus outcome.json.
type EvidenceArchive struct {
	client S3API
	bucket string
	prefix string
	fs     afero.Fs
	log    logrus.FieldLogger
}

// S3Config holds archive configuration
type S3Config struct {
	BucketName string
	Prefix     string // optional key prefix
	Region     string // optional; the SDK default chain applies when empty
}

// NewEvidenceArchive creates an archive using the default AWS credential chain
func NewEvidenceArchive(ctx context.Context, cfg S3Config, fs afero.Fs, log logrus.FieldLogger) (*EvidenceArchive, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewEvidenceArchiveWithClient(s3.NewFromConfig(awsCfg), cfg.BucketName, cfg.Prefix, fs, log), nil
}

// NewEvidenceArchiveWithClient creates an archive over a custom S3 client
func NewEvidenceArchiveWithClient(client S3API, bucket, prefix string, fs afero.Fs, log logrus.FieldLogger) *EvidenceArchive {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EvidenceArchive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		fs:     fs,
		log:    log,
	}
}

// Name implements the notifier contract
func (a *EvidenceArchive) Name() string { return "s3-archive" }

type archivedOutcome struct {
	RunID      string    `json:"run_id"`
	Kind       string    `json:"kind"`
	Date       time.Time `json:"date"`
	Reason     string    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
	Screenshot []string  `json:"screenshots"`
}

// Notify uploads every evidence file and an outcome.json summary. Skipped
// runs have no evidence and are not archived. Upload failures do not stop
// the remaining uploads.
func (a *EvidenceArchive) Notify(ctx context.Context, o outcome.Outcome) error {
	if o.Kind == outcome.KindSkipped {
		return nil
	}

	var (
		errs     []error
		uploaded []string
	)
	for _, p := range o.Evidence {
		data, err := afero.ReadFile(a.fs, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", p, err))
			continue
		}
		key := a.key(o, filepath.Base(p))
		if err := a.put(ctx, key, data, "image/png", map[string]string{
			"run-id": o.RunID,
			"kind":   string(o.Kind),
		}); err != nil {
			errs = append(errs, err)
			continue
		}
		uploaded = append(uploaded, key)
	}

	summary := archivedOutcome{
		RunID:      o.RunID,
		Kind:       string(o.Kind),
		Date:       o.Date,
		Reason:     o.Reason,
		Screenshot: uploaded,
	}
	if o.Err != nil {
		summary.Error = o.Err.Error()
	}
	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("marshal outcome: %w", err))...)
	}
	if err := a.put(ctx, a.key(o, "outcome.json"), body, "application/json", nil); err != nil {
		errs = append(errs, err)
	}

	a.log.WithFields(logrus.Fields{
		"run_id":   o.RunID,
		"uploaded": len(uploaded),
		"bucket":   a.bucket,
	}).Info("evidence archived")
	return errors.Join(errs...)
}

// Keys lists the archived object keys of one run
func (a *EvidenceArchive) Keys(ctx context.Context, date time.Time, runID string) ([]string, error) {
	prefix := a.buildKey(date.Format("2006-01-02"), runID) + "/"
	out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("list S3 objects: %w", err)
	}
	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}
	return keys, nil
}

func (a *EvidenceArchive) put(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata:    meta,
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", a.bucket, key, err)
	}
	return nil
}

func (a *EvidenceArchive) key(o outcome.Outcome, file string) string {
	return a.buildKey(o.Date.Format("2006-01-02"), o.RunID, file)
}

// buildKey joins parts under the configured prefix
func (a *EvidenceArchive) buildKey(parts ...string) string {
	if a.prefix != "" {
		parts = append([]string{a.prefix}, parts...)
	}
	return path.Join(parts...)
}
