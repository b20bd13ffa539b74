package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/siwei1127/gyl-kuaidi/internal/domain"
	"github.com/siwei1127/gyl-kuaidi/internal/ingestion"
	"github.com/siwei1127/gyl-kuaidi/internal/reconciliation"
	"github.com/siwei1127/gyl-kuaidi/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	batchSvc     *reconciliation.BatchService
	ingestSvc    *ingestion.Service
	exceptionSvc *reconciliation.ExceptionService
	pricingRepo  *repository.PricingRepo
	log          *logrus.Entry
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reconciliation.ErrBatchNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ingestion.ErrBadWorkbook),
		errors.Is(err, reconciliation.ErrInvalidBatch),
		errors.Is(err, reconciliation.ErrInvalidStatus),
		errors.Is(err, reconciliation.ErrInvalidConclusion):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, reconciliation.ErrPendingExceptions):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

func parseOptionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// --- reconciliation batches ---

func (h *Handlers) ListBatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.BatchFilter{
		Status:  q.Get("status"),
		Courier: q.Get("courier"),
		Page:    parseIntDefault(q.Get("page"), 1),
		Limit:   parseIntDefault(q.Get("limit"), 20),
	}

	batches, err := h.batchSvc.List(filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if batches == nil {
		batches = []domain.Batch{}
	}
	writeJSON(w, http.StatusOK, batches)
}

type createBatchRequest struct {
	Name                string `json:"name"`
	Courier             string `json:"courier"`
	ReconciliationMonth string `json:"reconciliation_month"`
}

func (h *Handlers) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	id, err := h.batchSvc.Create(req.Name, req.Courier, req.ReconciliationMonth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type updateBatchStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handlers) UpdateBatchStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateBatchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	if err := h.batchSvc.UpdateStatus(id, domain.BatchStatus(req.Status)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handlers) ImportOrders(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read file: "+err.Error())
		return
	}

	result, err := h.ingestSvc.ImportOrders(id, data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- exception workbench ---

func exceptionFilterFromQuery(r *http.Request) repository.ExceptionFilter {
	q := r.URL.Query()
	return repository.ExceptionFilter{
		BatchID:       q.Get("batch_id"),
		Courier:       q.Get("courier"),
		ExceptionType: q.Get("exception_type"),
		Conclusion:    q.Get("conclusion"),
		MinDiff:       parseOptionalFloat(q.Get("min_diff")),
		MaxDiff:       parseOptionalFloat(q.Get("max_diff")),
		Page:          parseIntDefault(r.URL.Query().Get("page"), 1),
		Limit:         parseIntDefault(r.URL.Query().Get("limit"), 50),
	}
}

func (h *Handlers) ListExceptions(w http.ResponseWriter, r *http.Request) {
	page, err := h.exceptionSvc.List(exceptionFilterFromQuery(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) ExportExceptions(w http.ResponseWriter, r *http.Request) {
	filter := exceptionFilterFromQuery(r)
	filter.Page = 0
	filter.Limit = 0

	csvText, err := h.exceptionSvc.Export(filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	filename := "exception-orders-" + time.Now().UTC().Format("20060102") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(csvText)); err != nil {
		h.log.WithError(err).Warn("write export")
	}
}

type batchUpdateRequest struct {
	WaybillNumbers []string `json:"waybill_numbers"`
	Conclusion     string   `json:"conclusion"`
	ProcessingNote *string  `json:"processing_note"`
}

func (h *Handlers) BatchUpdateConclusions(w http.ResponseWriter, r *http.Request) {
	var req batchUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	updated, err := h.exceptionSvc.BatchUpdateConclusion(
		req.WaybillNumbers, domain.Conclusion(req.Conclusion), req.ProcessingNote,
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated_count": updated})
}

// --- pricing rules ---

func (h *Handlers) ListPricingRules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.PricingFilter{Courier: q.Get("courier")}
	if v := q.Get("enabled"); v == "true" || v == "false" {
		enabled := v == "true"
		filter.Enabled = &enabled
	}

	rules, err := h.pricingRepo.List(filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if rules == nil {
		rules = []domain.PricingRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

type createPricingRuleRequest struct {
	Name                  string  `json:"name"`
	Courier               string  `json:"courier"`
	FirstWeight           float64 `json:"first_weight"`
	FirstWeightPrice      float64 `json:"first_weight_price"`
	ExtraWeightPrice      float64 `json:"extra_weight_price"`
	BaseOperationFee      float64 `json:"base_operation_fee"`
	ToleranceExpressFee   float64 `json:"tolerance_express_fee"`
	TolerancePackagingFee float64 `json:"tolerance_packaging_fee"`
}

func (h *Handlers) CreatePricingRule(w http.ResponseWriter, r *http.Request) {
	var req createPricingRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.Name == "" || req.Courier == "" {
		writeError(w, http.StatusBadRequest, "name and courier are required")
		return
	}

	now := time.Now().UTC()
	rule := &domain.PricingRule{
		ID:                    uuid.NewString(),
		Name:                  req.Name,
		Courier:               req.Courier,
		FirstWeight:           req.FirstWeight,
		FirstWeightPrice:      req.FirstWeightPrice,
		ExtraWeightPrice:      req.ExtraWeightPrice,
		BaseOperationFee:      req.BaseOperationFee,
		ToleranceExpressFee:   req.ToleranceExpressFee,
		TolerancePackagingFee: req.TolerancePackagingFee,
		Enabled:               true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := h.pricingRepo.Insert(rule); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": rule.ID})
}

type updatePricingRuleRequest struct {
	Name                  *string  `json:"name"`
	FirstWeight           *float64 `json:"first_weight"`
	FirstWeightPrice      *float64 `json:"first_weight_price"`
	ExtraWeightPrice      *float64 `json:"extra_weight_price"`
	BaseOperationFee      *float64 `json:"base_operation_fee"`
	ToleranceExpressFee   *float64 `json:"tolerance_express_fee"`
	TolerancePackagingFee *float64 `json:"tolerance_packaging_fee"`
	Enabled               *bool    `json:"enabled"`
}

func (h *Handlers) UpdatePricingRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updatePricingRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	rule, err := h.pricingRepo.GetByID(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if rule == nil {
		writeError(w, http.StatusNotFound, "pricing rule not found")
		return
	}

	patch := repository.PricingPatch{
		Name:                  req.Name,
		FirstWeight:           req.FirstWeight,
		FirstWeightPrice:      req.FirstWeightPrice,
		ExtraWeightPrice:      req.ExtraWeightPrice,
		BaseOperationFee:      req.BaseOperationFee,
		ToleranceExpressFee:   req.ToleranceExpressFee,
		TolerancePackagingFee: req.TolerancePackagingFee,
		Enabled:               req.Enabled,
	}
	if err := h.pricingRepo.Update(id, patch); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
