package order

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"

	"github.com/Additional-Code/salesboard/internal/database"
	"github.com/Additional-Code/salesboard/internal/entity"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqlDB, mysqldialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(&database.Connections{Writer: db, Reader: db}), mock
}

func TestListScansOrders(t *testing.T) {
	repo, mock := newMockRepository(t)
	day := time.Date(2022, 4, 30, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "order_id", "order_date", "status", "service_level", "category", "amount", "b2b"}).
		AddRow(1, "405-1", day, "Shipped", "Standard", "Set", "647.62", false).
		AddRow(2, "405-2", nil, "Cancelado", "Expedited", "kurta", nil, true)
	mock.ExpectQuery("SELECT (.+) FROM `orders` AS `o` ORDER BY o.id ASC").WillReturnRows(rows)

	orders, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, "405-1", orders[0].OrderID)
	require.NotNil(t, orders[0].OrderDate)
	assert.True(t, orders[0].OrderDate.Equal(day))
	assert.True(t, orders[0].Amount.Decimal.Equal(decimal.RequireFromString("647.62")))
	assert.False(t, orders[1].HasDate())
	assert.False(t, orders[1].Amount.Valid)
	assert.True(t, orders[1].B2B)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshot(t *testing.T) {
	repo, mock := newMockRepository(t)
	updated := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\), MAX\(o.updated_at\) FROM`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "max"}).AddRow(42, updated))

	snap, err := repo.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, snap.Count)
	assert.True(t, snap.LastUpdated.Equal(updated))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAllBatchesInsideTransaction(t *testing.T) {
	repo, mock := newMockRepository(t)
	orders := []entity.Order{{OrderID: "a"}, {OrderID: "b"}, {OrderID: "c"}}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `orders`").WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec("INSERT INTO `orders`").WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectExec("INSERT INTO `orders`").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	n, err := repo.ReplaceAll(context.Background(), orders, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, orders[0].CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAllRollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `orders`").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.ReplaceAll(context.Background(), []entity.Order{{OrderID: "a"}}, 0)
	require.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisabledDatabase(t *testing.T) {
	repo := NewRepository(&database.Connections{})

	_, err := repo.List(context.Background())
	assert.ErrorIs(t, err, database.ErrDisabled)
	_, err = repo.Snapshot(context.Background())
	assert.ErrorIs(t, err, database.ErrDisabled)
}
