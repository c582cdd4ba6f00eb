package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"relsave/core/relsave"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Entry describes one stored save report.
type Entry struct {
	// Key is the object name of the report.
	Key string `json:"key"`
	// Size is the object size in bytes.
	Size int64 `json:"size"`
	// LastModified is when the report was written.
	LastModified time.Time `json:"last_modified"`
}

// Journal stores save reports as JSON objects in a bucket.
// Objects are named <prefix>/<model>/<timestamp>-<uuid>.json so listing a
// model prefix returns reports in commit order.
type Journal struct {
	client Client
	bucket string
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

var _ relsave.Journal = (*Journal)(nil)

// NewJournal creates a journal writing into the configured bucket and prefix.
func NewJournal(client Client, cfg Config, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := strings.Trim(cfg.JournalPrefix, "/")
	if prefix == "" {
		prefix = "journal"
	}
	return &Journal{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}
}

// EnsureBucket creates the journal bucket if it does not exist.
func (j *Journal) EnsureBucket(ctx context.Context) error {
	exists, err := j.client.BucketExists(ctx, j.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", j.bucket, err)
	}
	if exists {
		return nil
	}
	if err := j.client.MakeBucket(ctx, j.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", j.bucket, err)
	}
	j.logger.Info("Created journal bucket", zap.String("bucket", j.bucket))
	return nil
}

// Write uploads the report.
func (j *Journal) Write(ctx context.Context, report *relsave.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	at := report.At
	if at.IsZero() {
		at = j.now()
	}
	key := path.Join(j.modelPrefix(report.Model), fmt.Sprintf("%s-%s.json", at.UTC().Format("20060102T150405.000000000Z"), uuid.NewString()))

	_, err = j.client.PutObject(ctx, j.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload report %s: %w", key, err)
	}

	j.logger.Debug("Wrote save report", zap.String("key", key), zap.Int("size", len(data)))
	return nil
}

// List returns the reports stored for a model, oldest first.
// An empty model lists every report. A positive limit keeps only the newest entries.
func (j *Journal) List(ctx context.Context, model string, limit int) ([]Entry, error) {
	prefix := j.prefix + "/"
	if model != "" {
		prefix = j.modelPrefix(model) + "/"
	}

	var entries []Entry
	for obj := range j.client.ListObjects(ctx, j.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", obj.Err)
		}
		if !strings.HasSuffix(obj.Key, ".json") {
			continue
		}
		entries = append(entries, Entry{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}

	sort.Slice(entries, func(a, b int) bool { return entries[a].Key < entries[b].Key })
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// Read downloads and decodes one report.
func (j *Journal) Read(ctx context.Context, key string) (*relsave.Report, error) {
	obj, err := j.client.GetObject(ctx, j.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", key, err)
	}
	defer obj.Close()

	var report relsave.Report
	if err := json.NewDecoder(obj).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", key, err)
	}
	return &report, nil
}

// Prune removes all but the newest keep reports of a model and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, model string, keep int) (int, error) {
	entries, err := j.List(ctx, model, 0)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(entries) <= keep {
		return 0, nil
	}

	stale := entries[:len(entries)-keep]
	for i, e := range stale {
		if err := j.client.RemoveObject(ctx, j.bucket, e.Key, minio.RemoveObjectOptions{}); err != nil {
			return i, fmt.Errorf("failed to remove report %s: %w", e.Key, err)
		}
	}
	j.logger.Info("Pruned save reports", zap.String("model", model), zap.Int("removed", len(stale)))
	return len(stale), nil
}

func (j *Journal) modelPrefix(model string) string {
	return path.Join(j.prefix, strings.ToLower(model))
}
