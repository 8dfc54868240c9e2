package seeder

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/internal/entity"
	orderrepo "github.com/Additional-Code/salesboard/internal/repository/order"
)

const defaultBatchSize = 500

// Module exposes the Seeder to Fx.
var Module = fx.Provide(
	func(repo *orderrepo.Repository) OrderWriter { return repo },
	New,
)

// OrderWriter replaces the stored orders.
type OrderWriter interface {
	ReplaceAll(ctx context.Context, orders []entity.Order, batchSize int) (int, error)
}

// Result summarises one import.
type Result struct {
	Inserted int
	Report   dataset.ParseReport
}

// Seeder loads the order spreadsheet into the database so the database
// source can serve it.
type Seeder struct {
	writer    OrderWriter
	batchSize int
	logger    *zap.Logger
}

// New constructs a Seeder backed by the order repository.
func New(writer OrderWriter, logger *zap.Logger) *Seeder {
	return &Seeder{writer: writer, batchSize: defaultBatchSize, logger: logger}
}

// ImportFile reads the workbook at path and replaces the stored orders.
func (s *Seeder) ImportFile(ctx context.Context, path, sheet string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return s.Import(ctx, f, sheet)
}

// Import parses the workbook from r and replaces the stored orders in one
// transaction. An empty sheet selects the first one.
func (s *Seeder) Import(ctx context.Context, r io.Reader, sheet string) (Result, error) {
	orders, report, err := dataset.ParseWorkbook(r, sheet)
	if err != nil {
		return Result{Report: report}, err
	}
	inserted, err := s.writer.ReplaceAll(ctx, orders, s.batchSize)
	if err != nil {
		return Result{Report: report}, fmt.Errorf("store orders: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("imported orders",
			zap.String("sheet", report.Sheet),
			zap.Int("rows", inserted),
			zap.Int("skipped", report.SkippedRows),
			zap.Int("null_dates", report.NullDates),
			zap.Int("null_amounts", report.NullAmounts),
		)
	}
	return Result{Inserted: inserted, Report: report}, nil
}
