package ingestion

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/siwei1127/gyl-kuaidi/internal/domain"
	"github.com/siwei1127/gyl-kuaidi/internal/reconciliation"
	"github.com/siwei1127/gyl-kuaidi/internal/repository"
)

// ImportResult is returned from a successful import.
type ImportResult struct {
	InsertedCount int `json:"inserted_count"`
	SkippedCount  int `json:"skipped_count"`
}

// Service ingests uploaded bill workbooks into a reconciliation batch.
type Service struct {
	db         *sql.DB
	batches    *repository.BatchRepo
	shipments  *repository.ShipmentRepo
	summarizer *reconciliation.Summarizer
	normalizer *Normalizer
	log        *logrus.Entry

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(
	db *sql.DB,
	batches *repository.BatchRepo,
	shipments *repository.ShipmentRepo,
	summarizer *reconciliation.Summarizer,
	log *logrus.Entry,
) *Service {
	return &Service{
		db:         db,
		batches:    batches,
		shipments:  shipments,
		summarizer: summarizer,
		normalizer: NewNormalizer(),
		log:        log,
		locks:      make(map[string]*sync.Mutex),
	}
}

// batchLock returns the write lock for one batch. Imports into different
// batches proceed independently; writes into the same batch serialize.
func (s *Service) batchLock(batchID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[batchID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[batchID] = l
	}
	return l
}

// ImportOrders parses the uploaded workbook and loads its rows into the
// batch. Rows without a waybill number are counted as skipped; every other
// per-row defect degrades to a default. The bulk insert, the transition to
// processing and the summary refresh commit as one transaction, so the
// returned counts always reflect committed totals.
func (s *Service) ImportOrders(batchID string, data []byte) (*ImportResult, error) {
	batch, err := s.batches.GetByID(batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch: %w", err)
	}
	if batch == nil {
		return nil, fmt.Errorf("%w: %s", reconciliation.ErrBatchNotFound, batchID)
	}

	sheet, err := DecodeWorkbook(data)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return &ImportResult{}, nil
	}

	lookup := ResolveColumns(sheet.Headers)

	var inserts []domain.Shipment
	skipped := 0
	for _, row := range sheet.Rows {
		rec, ok := s.normalizer.NormalizeRow(lookup, row, batch.Courier)
		if !ok {
			skipped++
			continue
		}
		rec.ID = uuid.NewString()
		rec.BatchID = batchID
		inserts = append(inserts, *rec)
	}

	if len(inserts) == 0 {
		return &ImportResult{SkippedCount: skipped}, nil
	}

	lock := s.batchLock(batchID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.shipments.InsertTx(tx, inserts); err != nil {
		return nil, fmt.Errorf("insert shipments: %w", err)
	}
	if err := s.batches.UpdateStatusTx(tx, batchID, domain.BatchProcessing); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if err := s.summarizer.RefreshSummaryTx(tx, batchID); err != nil {
		return nil, fmt.Errorf("refresh summary: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"batch_id": batchID,
		"inserted": len(inserts),
		"skipped":  skipped,
	}).Info("imported bill workbook")

	return &ImportResult{InsertedCount: len(inserts), SkippedCount: skipped}, nil
}
