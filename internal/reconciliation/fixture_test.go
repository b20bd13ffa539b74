package reconciliation

import (
	"database/sql"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/siwei1127/gyl-kuaidi/internal/domain"
	"github.com/siwei1127/gyl-kuaidi/internal/repository"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fixture struct {
	db         *sql.DB
	batches    *repository.BatchRepo
	shipments  *repository.ShipmentRepo
	summarizer *Summarizer
	batchSvc   *BatchService
	excSvc     *ExceptionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := repository.InitDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	batches := repository.NewBatchRepo(db)
	shipments := repository.NewShipmentRepo(db)
	summarizer := NewSummarizer(db, batches, shipments, testLog())

	return &fixture{
		db:         db,
		batches:    batches,
		shipments:  shipments,
		summarizer: summarizer,
		batchSvc:   NewBatchService(batches, testLog()),
		excSvc:     NewExceptionService(db, shipments, summarizer, testLog()),
	}
}

func (f *fixture) createBatch(t *testing.T, name, courier string) string {
	t.Helper()
	now := time.Now().UTC()
	batch := &domain.Batch{
		ID:                  uuid.NewString(),
		Name:                name,
		Courier:             courier,
		ReconciliationMonth: "2025-02",
		Status:              domain.BatchProcessing,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	require.NoError(t, f.batches.Insert(batch))
	return batch.ID
}

type seedShipment struct {
	waybill    string
	courier    string
	diff       float64
	tags       []string
	conclusion domain.Conclusion
	raw        domain.RawRow
}

func (f *fixture) insertShipments(t *testing.T, batchID string, seeds []seedShipment) {
	t.Helper()
	now := time.Now().UTC()

	records := make([]domain.Shipment, 0, len(seeds))
	for _, s := range seeds {
		conclusion := s.conclusion
		if conclusion == "" {
			conclusion = domain.ConclusionPending
		}
		records = append(records, domain.Shipment{
			ID:              uuid.NewString(),
			BatchID:         batchID,
			WaybillNumber:   s.waybill,
			Courier:         s.courier,
			Province:        domain.UnknownProvince,
			ShippingDate:    time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			TotalDifference: s.diff,
			ExceptionTypes:  s.tags,
			Conclusion:      conclusion,
			RawData:         s.raw,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	tx, err := f.db.Begin()
	require.NoError(t, err)
	_, err = f.shipments.InsertTx(tx, records)
	require.NoError(t, err)
	require.NoError(t, f.summarizer.RefreshSummaryTx(tx, batchID))
	require.NoError(t, tx.Commit())
}
