package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/siwei1127/gyl-kuaidi/internal/domain"
)

type BatchRepo struct {
	db *sql.DB
}

func NewBatchRepo(db *sql.DB) *BatchRepo {
	return &BatchRepo{db: db}
}

const batchColumns = `id, name, courier, reconciliation_month, total_difference,
	exception_count, pending_exception_count, status, created_at, updated_at`

func (r *BatchRepo) Insert(b *domain.Batch) error {
	_, err := r.db.Exec(
		`INSERT INTO batches
		(id, name, courier, reconciliation_month, total_difference,
		 exception_count, pending_exception_count, status, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		b.ID, b.Name, b.Courier, b.ReconciliationMonth, b.TotalDifference,
		b.ExceptionCount, b.PendingExceptionCount, string(b.Status),
		b.CreatedAt.Format(time.RFC3339), b.UpdatedAt.Format(time.RFC3339),
	)
	return err
}

// GetByID returns nil without error when no batch has the given id.
func (r *BatchRepo) GetByID(id string) (*domain.Batch, error) {
	row := r.db.QueryRow("SELECT "+batchColumns+" FROM batches WHERE id = ?", id)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

type BatchFilter struct {
	Status  string
	Courier string
	Page    int
	Limit   int
}

func buildBatchWhere(f BatchFilter) (string, []any) {
	where := ""
	var args []any
	if f.Status != "" {
		where += " WHERE status = ?"
		args = append(args, f.Status)
	}
	if f.Courier != "" {
		if where == "" {
			where = " WHERE courier = ?"
		} else {
			where += " AND courier = ?"
		}
		args = append(args, f.Courier)
	}
	return where, args
}

func (r *BatchRepo) List(f BatchFilter) ([]domain.Batch, error) {
	where, args := buildBatchWhere(f)

	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	querySQL := "SELECT " + batchColumns + " FROM batches" + where +
		" ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var batches []domain.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

func (r *BatchRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM batches").Scan(&count)
	return count, err
}

func (r *BatchRepo) UpdateStatus(id string, status domain.BatchStatus) error {
	return updateBatchStatus(r.db, id, status)
}

// UpdateStatusTx is UpdateStatus inside an existing transaction.
func (r *BatchRepo) UpdateStatusTx(tx *sql.Tx, id string, status domain.BatchStatus) error {
	return updateBatchStatus(tx, id, status)
}

// SaveSummaryTx overwrites the batch's cached aggregates with freshly
// recomputed values.
func (r *BatchRepo) SaveSummaryTx(tx *sql.Tx, id string, sum domain.BatchSummary) error {
	_, err := tx.Exec(
		`UPDATE batches SET total_difference = ?, exception_count = ?,
		 pending_exception_count = ?, updated_at = ? WHERE id = ?`,
		sum.TotalDifference, sum.ExceptionCount, sum.PendingExceptionCount,
		time.Now().UTC().Format(time.RFC3339), id,
	)
	return err
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func updateBatchStatus(e execer, id string, status domain.BatchStatus) error {
	_, err := e.Exec(
		"UPDATE batches SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now().UTC().Format(time.RFC3339), id,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (*domain.Batch, error) {
	var b domain.Batch
	var status, createdAt, updatedAt string
	err := row.Scan(
		&b.ID, &b.Name, &b.Courier, &b.ReconciliationMonth, &b.TotalDifference,
		&b.ExceptionCount, &b.PendingExceptionCount, &status, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Status = domain.BatchStatus(status)
	if b.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if b.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &b, nil
}
