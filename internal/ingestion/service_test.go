package ingestion

import (
	"database/sql"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siwei1127/gyl-kuaidi/internal/domain"
	"github.com/siwei1127/gyl-kuaidi/internal/reconciliation"
	"github.com/siwei1127/gyl-kuaidi/internal/repository"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type serviceFixture struct {
	db        *sql.DB
	batches   *repository.BatchRepo
	shipments *repository.ShipmentRepo
	svc       *Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db, err := repository.InitDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	batches := repository.NewBatchRepo(db)
	shipments := repository.NewShipmentRepo(db)
	summarizer := reconciliation.NewSummarizer(db, batches, shipments, testLog())

	return &serviceFixture{
		db:        db,
		batches:   batches,
		shipments: shipments,
		svc:       NewService(db, batches, shipments, summarizer, testLog()),
	}
}

func (f *serviceFixture) createBatch(t *testing.T, courier string) string {
	t.Helper()
	now := time.Now().UTC()
	batch := &domain.Batch{
		ID:                  uuid.NewString(),
		Name:                "测试批次",
		Courier:             courier,
		ReconciliationMonth: "2025-02",
		Status:              domain.BatchDraft,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	require.NoError(t, f.batches.Insert(batch))
	return batch.ID
}

func TestImportOrdersCSV(t *testing.T) {
	f := newServiceFixture(t)
	batchID := f.createBatch(t, "顺丰")

	csvData := []byte(
		"运单号,省份,发货日期,系统费用,账单费用,异常原因\n" +
			"SF001,浙江省,2025-02-01,10,13.50,\n" +
			",江苏省,2025-02-02,5,5,\n" +
			"SF002,,2025-02-03,18,18,\n")

	result, err := f.svc.ImportOrders(batchID, csvData)
	require.NoError(t, err)
	assert.Equal(t, 2, result.InsertedCount)
	assert.Equal(t, 1, result.SkippedCount)

	batch, err := f.batches.GetByID(batchID)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, domain.BatchProcessing, batch.Status)
	assert.Equal(t, 3.5, batch.TotalDifference)
	assert.Equal(t, 1, batch.ExceptionCount)
	assert.Equal(t, 1, batch.PendingExceptionCount)

	rows, err := f.shipments.ListByBatch(batchID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byWaybill := map[string]domain.Shipment{}
	for _, r := range rows {
		byWaybill[r.WaybillNumber] = r
	}

	flagged := byWaybill["SF001"]
	assert.Equal(t, "顺丰", flagged.Courier)
	assert.Equal(t, "浙江省", flagged.Province)
	assert.Equal(t, 3.5, flagged.TotalDifference)
	assert.Equal(t, []string{domain.DefaultExceptionTag}, flagged.ExceptionTypes)
	assert.Equal(t, domain.ConclusionPending, flagged.Conclusion)
	assert.NotEmpty(t, flagged.RawData)

	clean := byWaybill["SF002"]
	assert.Equal(t, domain.UnknownProvince, clean.Province)
	assert.Zero(t, clean.TotalDifference)
	assert.Empty(t, clean.ExceptionTypes)
}

func TestImportOrdersEmptySheet(t *testing.T) {
	f := newServiceFixture(t)
	batchID := f.createBatch(t, "顺丰")

	result, err := f.svc.ImportOrders(batchID, []byte("运单号,差额\n"))
	require.NoError(t, err)
	assert.Zero(t, result.InsertedCount)
	assert.Zero(t, result.SkippedCount)

	// An import that inserts nothing leaves the batch untouched.
	batch, err := f.batches.GetByID(batchID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchDraft, batch.Status)
}

func TestImportOrdersAllSkipped(t *testing.T) {
	f := newServiceFixture(t)
	batchID := f.createBatch(t, "顺丰")

	result, err := f.svc.ImportOrders(batchID, []byte("运单号,差额\n,5\n,7\n"))
	require.NoError(t, err)
	assert.Zero(t, result.InsertedCount)
	assert.Equal(t, 2, result.SkippedCount)

	batch, err := f.batches.GetByID(batchID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchDraft, batch.Status)
}

func TestImportOrdersBatchNotFound(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.ImportOrders(uuid.NewString(), []byte("运单号\nSF001\n"))
	assert.ErrorIs(t, err, reconciliation.ErrBatchNotFound)
}

func TestImportOrdersBadWorkbook(t *testing.T) {
	f := newServiceFixture(t)
	batchID := f.createBatch(t, "顺丰")

	_, err := f.svc.ImportOrders(batchID, []byte(`"unterminated`))
	assert.ErrorIs(t, err, ErrBadWorkbook)
}

func TestImportOrdersAppendsToExisting(t *testing.T) {
	f := newServiceFixture(t)
	batchID := f.createBatch(t, "顺丰")

	_, err := f.svc.ImportOrders(batchID, []byte("运单号,差额\nSF001,5\n"))
	require.NoError(t, err)
	_, err = f.svc.ImportOrders(batchID, []byte("运单号,差额\nSF002,-2\n"))
	require.NoError(t, err)

	batch, err := f.batches.GetByID(batchID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, batch.TotalDifference)
	assert.Equal(t, 2, batch.ExceptionCount)
	assert.Equal(t, 2, batch.PendingExceptionCount)
}
