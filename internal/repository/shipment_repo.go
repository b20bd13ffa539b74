package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/siwei1127/gyl-kuaidi/internal/domain"
)

type ShipmentRepo struct {
	db *sql.DB
}

func NewShipmentRepo(db *sql.DB) *ShipmentRepo {
	return &ShipmentRepo{db: db}
}

const shipmentColumns = `id, batch_id, waybill_number, courier, province, shipping_date,
	total_difference, exception_types, conclusion, processing_note, raw_data,
	created_at, updated_at`

// InsertTx bulk-inserts shipments inside the given transaction using one
// prepared statement.
func (r *ShipmentRepo) InsertTx(tx *sql.Tx, records []domain.Shipment) (int, error) {
	stmt, err := tx.Prepare(
		`INSERT INTO shipments
		(id, batch_id, waybill_number, courier, province, shipping_date,
		 total_difference, exception_types, conclusion, processing_note, raw_data,
		 created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	inserted := 0
	for i := range records {
		rec := &records[i]

		tags, err := json.Marshal(tagsOrEmpty(rec.ExceptionTypes))
		if err != nil {
			return inserted, fmt.Errorf("marshal tags %d: %w", i, err)
		}
		var rawData any
		if rec.RawData != nil {
			raw, err := json.Marshal(rec.RawData)
			if err != nil {
				return inserted, fmt.Errorf("marshal raw row %d: %w", i, err)
			}
			rawData = string(raw)
		}
		var note any
		if rec.ProcessingNote != nil {
			note = *rec.ProcessingNote
		}

		if _, err := stmt.Exec(
			rec.ID, rec.BatchID, rec.WaybillNumber, rec.Courier, rec.Province,
			rec.ShippingDate.Format(time.RFC3339), rec.TotalDifference,
			string(tags), string(rec.Conclusion), note, rawData, now, now,
		); err != nil {
			return inserted, fmt.Errorf("insert row %d: %w", i, err)
		}
		inserted++
	}
	return inserted, nil
}

// SummarizeTx recomputes a batch's aggregates from its full current shipment
// set. NULL sums (zero shipments) coalesce to zero.
func (r *ShipmentRepo) SummarizeTx(tx *sql.Tx, batchID string) (domain.BatchSummary, error) {
	var sum domain.BatchSummary
	err := tx.QueryRow(`
		SELECT
			COALESCE(SUM(total_difference), 0),
			COALESCE(SUM(CASE WHEN json_array_length(exception_types) > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN json_array_length(exception_types) > 0 AND conclusion = 'pending' THEN 1 ELSE 0 END), 0)
		FROM shipments WHERE batch_id = ?`, batchID,
	).Scan(&sum.TotalDifference, &sum.ExceptionCount, &sum.PendingExceptionCount)
	if err != nil {
		return domain.BatchSummary{}, fmt.Errorf("summarize batch %s: %w", batchID, err)
	}
	return sum, nil
}

// ExceptionFilter narrows the exception workbench queries. Every populated
// field becomes one AND clause on top of the implicit "has at least one
// exception tag" predicate.
type ExceptionFilter struct {
	BatchID       string
	Courier       string
	ExceptionType string
	Conclusion    string
	MinDiff       *float64
	MaxDiff       *float64
	Page          int
	Limit         int
}

func buildExceptionWhere(f ExceptionFilter) (string, []any) {
	clauses := []string{"json_array_length(exception_types) > 0"}
	var args []any

	if f.BatchID != "" {
		clauses = append(clauses, "batch_id = ?")
		args = append(args, f.BatchID)
	}
	if f.Courier != "" {
		clauses = append(clauses, "courier = ?")
		args = append(args, f.Courier)
	}
	if f.Conclusion != "" {
		clauses = append(clauses, "conclusion = ?")
		args = append(args, f.Conclusion)
	}
	if f.ExceptionType != "" {
		clauses = append(clauses,
			"EXISTS (SELECT 1 FROM json_each(shipments.exception_types) WHERE json_each.value = ?)")
		args = append(args, f.ExceptionType)
	}
	if f.MinDiff != nil {
		clauses = append(clauses, "total_difference >= ?")
		args = append(args, *f.MinDiff)
	}
	if f.MaxDiff != nil {
		clauses = append(clauses, "total_difference <= ?")
		args = append(args, *f.MaxDiff)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListExceptions returns one page of exception shipments ordered by total
// difference descending, plus the unpaged total for the same predicate set.
func (r *ShipmentRepo) ListExceptions(f ExceptionFilter) ([]domain.Shipment, int, error) {
	where, args := buildExceptionWhere(f)

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM shipments"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	querySQL := "SELECT " + shipmentColumns + " FROM shipments" + where +
		" ORDER BY total_difference DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(querySQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var shipments []domain.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		shipments = append(shipments, *s)
	}
	return shipments, total, rows.Err()
}

// ExportExceptions returns the full filtered exception set (no paging) for
// serialization, raw payloads included.
func (r *ShipmentRepo) ExportExceptions(f ExceptionFilter) ([]domain.Shipment, error) {
	where, args := buildExceptionWhere(f)

	querySQL := "SELECT " + shipmentColumns + " FROM shipments" + where +
		" ORDER BY total_difference DESC"
	rows, err := r.db.Query(querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var shipments []domain.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		shipments = append(shipments, *s)
	}
	return shipments, rows.Err()
}

// ListByBatch returns a batch's shipments ordered by creation.
func (r *ShipmentRepo) ListByBatch(batchID string) ([]domain.Shipment, error) {
	rows, err := r.db.Query(
		"SELECT "+shipmentColumns+" FROM shipments WHERE batch_id = ? ORDER BY created_at",
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var shipments []domain.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		shipments = append(shipments, *s)
	}
	return shipments, rows.Err()
}

// UpdateConclusionTx sets the conclusion (and optionally the processing note)
// on every shipment whose waybill number is in the set, regardless of batch.
// It returns the number of rows touched and the distinct affected batch ids.
func (r *ShipmentRepo) UpdateConclusionTx(tx *sql.Tx, waybills []string, conclusion domain.Conclusion, note *string) (int, []string, error) {
	if len(waybills) == 0 {
		return 0, nil, nil
	}

	set := "conclusion = ?, updated_at = ?"
	args := []any{string(conclusion), time.Now().UTC().Format(time.RFC3339)}
	if note != nil {
		set += ", processing_note = ?"
		args = append(args, *note)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(waybills)), ",")
	for _, wb := range waybills {
		args = append(args, wb)
	}

	rows, err := tx.Query(
		"UPDATE shipments SET "+set+" WHERE waybill_number IN ("+placeholders+") RETURNING batch_id",
		args...,
	)
	if err != nil {
		return 0, nil, fmt.Errorf("update: %w", err)
	}
	defer rows.Close()

	updated := 0
	seen := map[string]bool{}
	for rows.Next() {
		var batchID string
		if err := rows.Scan(&batchID); err != nil {
			return 0, nil, fmt.Errorf("scan: %w", err)
		}
		updated++
		seen[batchID] = true
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	batchIDs := make([]string, 0, len(seen))
	for id := range seen {
		batchIDs = append(batchIDs, id)
	}
	sort.Strings(batchIDs)
	return updated, batchIDs, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func scanShipment(row rowScanner) (*domain.Shipment, error) {
	var s domain.Shipment
	var shippingDate, tags, conclusion, createdAt, updatedAt string
	var note, rawData sql.NullString

	err := row.Scan(
		&s.ID, &s.BatchID, &s.WaybillNumber, &s.Courier, &s.Province, &shippingDate,
		&s.TotalDifference, &tags, &conclusion, &note, &rawData, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &s.ExceptionTypes); err != nil {
		return nil, fmt.Errorf("parse exception_types: %w", err)
	}
	s.Conclusion = domain.Conclusion(conclusion)
	if note.Valid {
		s.ProcessingNote = &note.String
	}
	if rawData.Valid {
		if err := json.Unmarshal([]byte(rawData.String), &s.RawData); err != nil {
			return nil, fmt.Errorf("parse raw_data: %w", err)
		}
	}
	if s.ShippingDate, err = time.Parse(time.RFC3339, shippingDate); err != nil {
		return nil, fmt.Errorf("parse shipping_date: %w", err)
	}
	if s.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if s.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &s, nil
}
