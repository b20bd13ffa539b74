package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/siwei1127/gyl-kuaidi/internal/ingestion"
	"github.com/siwei1127/gyl-kuaidi/internal/reconciliation"
	"github.com/siwei1127/gyl-kuaidi/internal/repository"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	batchSvc *reconciliation.BatchService,
	ingestSvc *ingestion.Service,
	exceptionSvc *reconciliation.ExceptionService,
	pricingRepo *repository.PricingRepo,
	log *logrus.Entry,
) http.Handler {
	h := &Handlers{
		batchSvc:     batchSvc,
		ingestSvc:    ingestSvc,
		exceptionSvc: exceptionSvc,
		pricingRepo:  pricingRepo,
		log:          log,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		// Reconciliation batches.
		r.Route("/reconciliation-batches", func(r chi.Router) {
			r.Get("/", h.ListBatches)
			r.Post("/", h.CreateBatch)
			r.Patch("/{id}/status", h.UpdateBatchStatus)
			r.Post("/{id}/import", h.ImportOrders)
		})

		// Order details / exception workbench.
		r.Route("/order-details", func(r chi.Router) {
			r.Get("/exceptions", h.ListExceptions)
			r.Get("/exceptions/export", h.ExportExceptions)
			r.Post("/batch-update", h.BatchUpdateConclusions)
		})

		// Pricing rules.
		r.Route("/pricing-rules", func(r chi.Router) {
			r.Get("/", h.ListPricingRules)
			r.Post("/", h.CreatePricingRule)
			r.Patch("/{id}", h.UpdatePricingRule)
		})
	})

	return r
}
