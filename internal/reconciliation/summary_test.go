package reconciliation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siwei1127/gyl-kuaidi/internal/domain"
)

func TestRefreshSummary(t *testing.T) {
	f := newFixture(t)
	batchID := f.createBatch(t, "顺丰二月", "顺丰")

	f.insertShipments(t, batchID, []seedShipment{
		{waybill: "SF001", courier: "顺丰", diff: 12.5, tags: []string{"重量偏差"}},
		{waybill: "SF002", courier: "顺丰", diff: -5.2, tags: []string{"包装费偏差"}, conclusion: domain.ConclusionAccepted},
		{waybill: "SF003", courier: "顺丰", diff: 0},
	})

	batch, err := f.batches.GetByID(batchID)
	require.NoError(t, err)
	assert.InDelta(t, 7.3, batch.TotalDifference, 1e-9)
	assert.Equal(t, 2, batch.ExceptionCount)
	assert.Equal(t, 1, batch.PendingExceptionCount)
}

func TestRefreshSummaryEmptyBatch(t *testing.T) {
	f := newFixture(t)
	batchID := f.createBatch(t, "空批次", "顺丰")

	require.NoError(t, f.summarizer.RefreshSummary(batchID))

	batch, err := f.batches.GetByID(batchID)
	require.NoError(t, err)
	assert.Zero(t, batch.TotalDifference)
	assert.Zero(t, batch.ExceptionCount)
	assert.Zero(t, batch.PendingExceptionCount)
}

func TestRefreshSummaryIsIdempotent(t *testing.T) {
	f := newFixture(t)
	batchID := f.createBatch(t, "顺丰二月", "顺丰")
	f.insertShipments(t, batchID, []seedShipment{
		{waybill: "SF001", courier: "顺丰", diff: 3, tags: []string{"重量偏差"}},
	})

	require.NoError(t, f.summarizer.RefreshSummary(batchID))
	require.NoError(t, f.summarizer.RefreshSummary(batchID))

	batch, err := f.batches.GetByID(batchID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, batch.TotalDifference)
	assert.Equal(t, 1, batch.ExceptionCount)
	assert.Equal(t, 1, batch.PendingExceptionCount)
}
