package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/salesboard/internal/database"
	"github.com/Additional-Code/salesboard/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/salesboard/repository/order")

const defaultBatchSize = 500

// Snapshot summarises the stored orders for change detection.
type Snapshot struct {
	Count       int
	LastUpdated time.Time
}

// Repository encapsulates read/write access for the orders table.
type Repository struct {
	conns *database.Connections
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{conns: conns}
}

// List returns every stored order ordered by insertion, using the reader.
func (r *Repository) List(ctx context.Context) ([]entity.Order, error) {
	if err := r.conns.Require(); err != nil {
		return nil, err
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	var orders []entity.Order
	if err := r.conns.Reader.NewSelect().Model(&orders).Order("o.id ASC").Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	return orders, nil
}

// Snapshot reports the row count and latest update time of the orders table.
func (r *Repository) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := r.conns.Require(); err != nil {
		return Snapshot{}, err
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Snapshot")
	defer span.End()

	var (
		count int
		last  sql.NullTime
	)
	err := r.conns.Reader.NewSelect().
		Model((*entity.Order)(nil)).
		ColumnExpr("COUNT(*)").
		ColumnExpr("MAX(o.updated_at)").
		Scan(ctx, &count, &last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot failed")
		return Snapshot{}, err
	}
	snap := Snapshot{Count: count}
	if last.Valid {
		snap.LastUpdated = last.Time
	}
	return snap, nil
}

// ReplaceAll swaps the table contents for orders inside one transaction and
// returns the number of inserted rows.
func (r *Repository) ReplaceAll(ctx context.Context, orders []entity.Order, batchSize int) (int, error) {
	if err := r.conns.Require(); err != nil {
		return 0, err
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ReplaceAll", trace.WithAttributes(attribute.Int("orders.count", len(orders))))
	defer span.End()

	now := time.Now().UTC()
	for i := range orders {
		orders[i].ID = 0
		orders[i].CreatedAt = now
		orders[i].UpdatedAt = now
	}

	inserted := 0
	err := r.conns.Writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*entity.Order)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return err
		}
		for start := 0; start < len(orders); start += batchSize {
			end := min(start+batchSize, len(orders))
			batch := orders[start:end]
			if _, err := tx.NewInsert().Model(&batch).Exec(ctx); err != nil {
				return err
			}
			inserted += len(batch)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "replace failed")
		return 0, err
	}
	return inserted, nil
}
