package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/siwei1127/gyl-kuaidi/internal/api"
	"github.com/siwei1127/gyl-kuaidi/internal/config"
	"github.com/siwei1127/gyl-kuaidi/internal/domain"
	"github.com/siwei1127/gyl-kuaidi/internal/ingestion"
	"github.com/siwei1127/gyl-kuaidi/internal/reconciliation"
	"github.com/siwei1127/gyl-kuaidi/internal/repository"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	log.Infof("Initializing database at %s", cfg.DBPath)
	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init DB: %v", err)
	}
	defer db.Close()

	batchRepo := repository.NewBatchRepo(db)
	shipmentRepo := repository.NewShipmentRepo(db)
	pricingRepo := repository.NewPricingRepo(db)

	summarizer := reconciliation.NewSummarizer(db, batchRepo, shipmentRepo, log.WithField("component", "summary"))
	batchSvc := reconciliation.NewBatchService(batchRepo, log.WithField("component", "batches"))
	exceptionSvc := reconciliation.NewExceptionService(db, shipmentRepo, summarizer, log.WithField("component", "exceptions"))
	ingestSvc := ingestion.NewService(db, batchRepo, shipmentRepo, summarizer, log.WithField("component", "ingestion"))

	count, err := batchRepo.Count()
	if err != nil {
		log.Fatalf("Failed to count batches: %v", err)
	}
	if count == 0 {
		log.Info("Database is empty, seeding demo data...")
		if err := seed(db, batchRepo, shipmentRepo, pricingRepo, summarizer); err != nil {
			log.Warnf("Failed to seed demo data: %v", err)
		}
	} else {
		log.Infof("Database already has %d batches, skipping seed", count)
	}

	router := api.NewRouter(batchSvc, ingestSvc, exceptionSvc, pricingRepo, log.WithField("component", "api"))

	log.Info("Courier bill reconciliation service")
	log.Infof("Listening on http://localhost:%s", cfg.Port)
	log.Infof("API base:     http://localhost:%s/api/v1", cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func strPtr(s string) *string { return &s }

// seed loads two pricing rules and two demo batches with a few resolved and
// unresolved shipments, then lets the summarizer derive the batch aggregates.
func seed(
	db *sql.DB,
	batches *repository.BatchRepo,
	shipments *repository.ShipmentRepo,
	pricing *repository.PricingRepo,
	summarizer *reconciliation.Summarizer,
) error {
	now := time.Now().UTC()

	rules := []domain.PricingRule{
		{
			ID: uuid.NewString(), Name: "顺丰-华东标准", Courier: "顺丰",
			FirstWeight: 1, FirstWeightPrice: 12, ExtraWeightPrice: 2,
			BaseOperationFee: 1, ToleranceExpressFee: 3, TolerancePackagingFee: 1.5,
			Enabled: true, CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: uuid.NewString(), Name: "京东-华北标准", Courier: "京东",
			FirstWeight: 1, FirstWeightPrice: 10, ExtraWeightPrice: 1.8,
			BaseOperationFee: 1, ToleranceExpressFee: 2.5, TolerancePackagingFee: 1,
			Enabled: true, CreatedAt: now, UpdatedAt: now,
		},
	}
	for i := range rules {
		if err := pricing.Insert(&rules[i]); err != nil {
			return fmt.Errorf("insert pricing rule: %w", err)
		}
	}

	sfBatch := domain.Batch{
		ID: uuid.NewString(), Name: "2025-02 顺丰华东账单", Courier: "顺丰",
		ReconciliationMonth: "2025-02", Status: domain.BatchProcessing,
		CreatedAt: now, UpdatedAt: now,
	}
	jdBatch := domain.Batch{
		ID: uuid.NewString(), Name: "2025-01 京东华北账单", Courier: "京东",
		ReconciliationMonth: "2025-01", Status: domain.BatchCompleted,
		CreatedAt: now, UpdatedAt: now,
	}
	for _, b := range []*domain.Batch{&sfBatch, &jdBatch} {
		if err := batches.Insert(b); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
	}

	records := []domain.Shipment{
		{
			ID: uuid.NewString(), BatchID: sfBatch.ID, WaybillNumber: "WB20250201001",
			Courier: "顺丰", Province: "浙江省",
			ShippingDate:    time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC),
			TotalDifference: 12.5, ExceptionTypes: []string{"重量偏差"},
			Conclusion: domain.ConclusionPending, CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: uuid.NewString(), BatchID: sfBatch.ID, WaybillNumber: "WB20250201002",
			Courier: "顺丰", Province: "江苏省",
			ShippingDate:    time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC),
			TotalDifference: -5.2, ExceptionTypes: []string{"包装费偏差"},
			Conclusion: domain.ConclusionPending, CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: uuid.NewString(), BatchID: jdBatch.ID, WaybillNumber: "WB20250115001",
			Courier: "京东", Province: "北京市",
			ShippingDate:    time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
			TotalDifference: 0, ExceptionTypes: nil,
			Conclusion:     domain.ConclusionAccepted,
			ProcessingNote: strPtr("已自动匹配规则"),
			CreatedAt:      now, UpdatedAt: now,
		},
		{
			ID: uuid.NewString(), BatchID: jdBatch.ID, WaybillNumber: "WB20250115002",
			Courier: "京东", Province: "河北省",
			ShippingDate:    time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
			TotalDifference: 18.9, ExceptionTypes: []string{"超区费", "重量偏差"},
			Conclusion: domain.ConclusionAccepted, CreatedAt: now, UpdatedAt: now,
		},
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback()
	if _, err := shipments.InsertTx(tx, records); err != nil {
		return fmt.Errorf("insert shipments: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	for _, id := range []string{sfBatch.ID, jdBatch.ID} {
		if err := summarizer.RefreshSummary(id); err != nil {
			return fmt.Errorf("refresh summary: %w", err)
		}
	}
	return nil
}
