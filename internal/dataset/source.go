package dataset

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/Additional-Code/salesboard/internal/entity"
	orderrepo "github.com/Additional-Code/salesboard/internal/repository/order"
)

// Source yields the raw orders and a fingerprint that changes whenever the
// underlying data does.
type Source interface {
	Name() string
	Fingerprint(ctx context.Context) (string, error)
	Fetch(ctx context.Context) ([]entity.Order, error)
}

// FileSource reads a workbook from the local filesystem.
type FileSource struct {
	path   string
	sheet  string
	logger *zap.Logger
}

// NewFileSource builds a source for the workbook at path.
func NewFileSource(path, sheet string, logger *zap.Logger) *FileSource {
	return &FileSource{path: path, sheet: sheet, logger: logger}
}

func (s *FileSource) Name() string { return "file:" + s.path }

// Fingerprint combines the file size and modification time.
func (s *FileSource) Fingerprint(context.Context) (string, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return "", fmt.Errorf("stat dataset: %w", err)
	}
	return fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixNano()), nil
}

func (s *FileSource) Fetch(context.Context) ([]entity.Order, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	orders, report, err := ParseWorkbook(f, s.sheet)
	if err != nil {
		return nil, err
	}
	logReport(s.logger, s.Name(), report)
	return orders, nil
}

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads the workbook from an S3 compatible bucket.
type S3Source struct {
	client S3API
	bucket string
	key    string
	sheet  string
	logger *zap.Logger
}

// NewS3Source builds a source for s3://bucket/key.
func NewS3Source(client S3API, bucket, key, sheet string, logger *zap.Logger) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key, sheet: sheet, logger: logger}
}

func (s *S3Source) Name() string { return "s3://" + s.bucket + "/" + s.key }

// Fingerprint uses the object ETag, falling back to its modification time.
func (s *S3Source) Fingerprint(ctx context.Context) (string, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return "", fmt.Errorf("head %s: %w", s.Name(), err)
	}
	if etag := aws.ToString(out.ETag); etag != "" {
		return etag, nil
	}
	return fmt.Sprintf("%d-%d", aws.ToInt64(out.ContentLength), aws.ToTime(out.LastModified).UnixNano()), nil
}

func (s *S3Source) Fetch(ctx context.Context) ([]entity.Order, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.Name(), err)
	}
	defer out.Body.Close()

	orders, report, err := ParseWorkbook(out.Body, s.sheet)
	if err != nil {
		return nil, err
	}
	logReport(s.logger, s.Name(), report)
	return orders, nil
}

// OrderStore is the repository surface needed by DatabaseSource.
type OrderStore interface {
	List(ctx context.Context) ([]entity.Order, error)
	Snapshot(ctx context.Context) (orderrepo.Snapshot, error)
}

// DatabaseSource reads orders previously imported into the orders table.
type DatabaseSource struct {
	store OrderStore
}

// NewDatabaseSource wraps an order store.
func NewDatabaseSource(store OrderStore) *DatabaseSource {
	return &DatabaseSource{store: store}
}

func (s *DatabaseSource) Name() string { return "database:orders" }

// Fingerprint combines the row count and the latest update time.
func (s *DatabaseSource) Fingerprint(ctx context.Context) (string, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("orders snapshot: %w", err)
	}
	return fmt.Sprintf("%d-%d", snap.Count, snap.LastUpdated.UnixNano()), nil
}

func (s *DatabaseSource) Fetch(ctx context.Context) ([]entity.Order, error) {
	return s.store.List(ctx)
}

func logReport(logger *zap.Logger, source string, report ParseReport) {
	if logger == nil {
		return
	}
	logger.Info("workbook parsed",
		zap.String("source", source),
		zap.String("sheet", report.Sheet),
		zap.Int("rows", report.Rows),
		zap.Int("skipped_rows", report.SkippedRows),
		zap.Int("null_dates", report.NullDates),
		zap.Int("null_amounts", report.NullAmounts),
		zap.Strings("missing_columns", report.MissingColumns),
	)
}
