package reconciliation

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/siwei1127/gyl-kuaidi/internal/repository"
)

// Summarizer recomputes a batch's cached aggregates from scratch. It takes no
// description of what changed; deriving from the full shipment set makes a
// refresh safe to run redundantly and the single source of consistency truth.
type Summarizer struct {
	db        *sql.DB
	batches   *repository.BatchRepo
	shipments *repository.ShipmentRepo
	log       *logrus.Entry
}

func NewSummarizer(db *sql.DB, batches *repository.BatchRepo, shipments *repository.ShipmentRepo, log *logrus.Entry) *Summarizer {
	return &Summarizer{db: db, batches: batches, shipments: shipments, log: log}
}

// RefreshSummary recomputes and persists the batch's total difference,
// exception count and pending-exception count in its own transaction.
func (s *Summarizer) RefreshSummary(batchID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.RefreshSummaryTx(tx, batchID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RefreshSummaryTx is RefreshSummary inside an existing transaction, for
// callers that must commit the refresh together with their own writes.
func (s *Summarizer) RefreshSummaryTx(tx *sql.Tx, batchID string) error {
	sum, err := s.shipments.SummarizeTx(tx, batchID)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	if err := s.batches.SaveSummaryTx(tx, batchID, sum); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"batch_id":          batchID,
		"total_difference":  sum.TotalDifference,
		"exception_count":   sum.ExceptionCount,
		"pending_exception": sum.PendingExceptionCount,
	}).Debug("refreshed batch summary")
	return nil
}
