package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

var ErrObjectNotFound = errors.New("object not found")

// Archive keeps the submitted essay and the grading result of every report.
type Archive interface {
	SaveEssay(ctx context.Context, reportID, essay string) (string, error)
	SaveResult(ctx context.Context, reportID string, result []byte) (string, error)
	LoadResult(ctx context.Context, reportID string) ([]byte, error)
}

func EssayKey(reportID string) string  { return "essays/" + reportID + ".txt" }
func ResultKey(reportID string) string { return "results/" + reportID + ".json" }

type Config struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	Region         string
	UseSSL         bool
	ConnectTimeout time.Duration
}

type MinIOArchive struct {
	client *minio.Client
	bucket string
	region string
	logger zerolog.Logger

	ensureMu      sync.Mutex
	bucketEnsured bool
}

var _ Archive = (*MinIOArchive)(nil)

// NewMinIOArchive creates the client and tries to ensure the bucket. A
// MinIO that is not ready yet is logged, not fatal; the bucket is ensured
// again on first use.
func NewMinIOArchive(ctx context.Context, cfg Config, logger zerolog.Logger) (*MinIOArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	a := &MinIOArchive{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: logger,
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ensureCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.ensureBucket(ensureCtx); err != nil {
		logger.Error().Err(err).
			Str("endpoint", cfg.Endpoint).
			Str("bucket", cfg.Bucket).
			Msg("MinIO not ready during startup, will retry on demand")
	} else {
		logger.Info().
			Str("endpoint", cfg.Endpoint).
			Str("bucket", cfg.Bucket).
			Bool("ssl", cfg.UseSSL).
			Msg("Connected to MinIO")
	}

	return a, nil
}

func (a *MinIOArchive) ensureBucket(ctx context.Context) error {
	a.ensureMu.Lock()
	defer a.ensureMu.Unlock()
	if a.bucketEnsured {
		return nil
	}

	backoff := 500 * time.Millisecond
	for {
		err := a.makeBucket(ctx)
		if err == nil {
			a.bucketEnsured = true
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("minio not ready: %w", err)
		case <-time.After(backoff):
		}
	}
}

func (a *MinIOArchive) makeBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
		return err
	}
	a.logger.Info().Str("bucket", a.bucket).Msg("Created new bucket")
	return nil
}

func (a *MinIOArchive) SaveEssay(ctx context.Context, reportID, essay string) (string, error) {
	key := EssayKey(reportID)
	return key, a.put(ctx, key, []byte(essay), "text/plain; charset=utf-8")
}

func (a *MinIOArchive) SaveResult(ctx context.Context, reportID string, result []byte) (string, error) {
	key := ResultKey(reportID)
	return key, a.put(ctx, key, result, "application/json")
}

func (a *MinIOArchive) LoadResult(ctx context.Context, reportID string) ([]byte, error) {
	if err := a.ensureBucket(ctx); err != nil {
		return nil, err
	}

	key := ResultKey(reportID)
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (a *MinIOArchive) put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}

	info, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	a.logger.Debug().
		Str("bucket", a.bucket).
		Str("key", key).
		Str("etag", info.ETag).
		Int("size", len(data)).
		Msg("Object uploaded to MinIO")

	return nil
}
