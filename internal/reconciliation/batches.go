package reconciliation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/siwei1127/gyl-kuaidi/internal/domain"
	"github.com/siwei1127/gyl-kuaidi/internal/repository"
)

var (
	// ErrBatchNotFound is returned when an operation references a batch id
	// that does not exist.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrPendingExceptions rejects closing a batch that still has
	// unresolved exception shipments.
	ErrPendingExceptions = errors.New("batch has pending exceptions")

	// ErrInvalidStatus rejects operator status values outside the batch
	// lifecycle.
	ErrInvalidStatus = errors.New("invalid batch status")

	// ErrInvalidBatch rejects create requests with missing fields or a
	// malformed reconciliation month.
	ErrInvalidBatch = errors.New("invalid batch")
)

// BatchService owns the reconciliation batch lifecycle.
type BatchService struct {
	repo *repository.BatchRepo
	log  *logrus.Entry
}

func NewBatchService(repo *repository.BatchRepo, log *logrus.Entry) *BatchService {
	return &BatchService{repo: repo, log: log}
}

func (s *BatchService) List(f repository.BatchFilter) ([]domain.Batch, error) {
	return s.repo.List(f)
}

// Create registers a new draft batch with zeroed aggregates.
func (s *BatchService) Create(name, courier, month string) (string, error) {
	name = strings.TrimSpace(name)
	courier = strings.TrimSpace(courier)
	month = strings.TrimSpace(month)
	if name == "" || courier == "" {
		return "", fmt.Errorf("%w: name and courier are required", ErrInvalidBatch)
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return "", fmt.Errorf("%w: reconciliation month must be YYYY-MM", ErrInvalidBatch)
	}

	now := time.Now().UTC()
	batch := &domain.Batch{
		ID:                  uuid.NewString(),
		Name:                name,
		Courier:             courier,
		ReconciliationMonth: month,
		Status:              domain.BatchDraft,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repo.Insert(batch); err != nil {
		return "", fmt.Errorf("insert batch: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"batch_id": batch.ID, "courier": courier, "month": month,
	}).Info("created reconciliation batch")
	return batch.ID, nil
}

// UpdateStatus applies an operator lifecycle action. Completing or archiving
// is only permitted once no exception shipment is still pending.
func (s *BatchService) UpdateStatus(id string, status domain.BatchStatus) error {
	if status != domain.BatchCompleted && status != domain.BatchArchived {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	batch, err := s.repo.GetByID(id)
	if err != nil {
		return fmt.Errorf("load batch: %w", err)
	}
	if batch == nil {
		return fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	if batch.PendingExceptionCount > 0 {
		return fmt.Errorf("%w: %d unresolved", ErrPendingExceptions, batch.PendingExceptionCount)
	}

	if err := s.repo.UpdateStatus(id, status); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.WithFields(logrus.Fields{"batch_id": id, "status": status}).Info("batch status updated")
	return nil
}
