package domain

import "time"

type BatchStatus string

const (
	BatchDraft      BatchStatus = "draft"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchArchived   BatchStatus = "archived"
)

// Batch is one courier/month bill-reconciliation unit of work. The three
// numeric fields are caches derived from the batch's shipments; they are
// overwritten wholesale by a summary refresh and never edited directly.
type Batch struct {
	ID                    string      `json:"id"`
	Name                  string      `json:"name"`
	Courier               string      `json:"courier"`
	ReconciliationMonth   string      `json:"reconciliation_month"`
	TotalDifference       float64     `json:"total_difference"`
	ExceptionCount        int         `json:"exception_count"`
	PendingExceptionCount int         `json:"pending_exception_count"`
	Status                BatchStatus `json:"status"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// BatchSummary holds freshly recomputed aggregate values for one batch.
type BatchSummary struct {
	TotalDifference       float64 `json:"total_difference"`
	ExceptionCount        int     `json:"exception_count"`
	PendingExceptionCount int     `json:"pending_exception_count"`
}
