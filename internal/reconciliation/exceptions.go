package reconciliation

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/siwei1127/gyl-kuaidi/internal/domain"
	"github.com/siwei1127/gyl-kuaidi/internal/repository"
)

// ErrInvalidConclusion rejects bulk updates with an unknown disposition.
var ErrInvalidConclusion = errors.New("invalid conclusion")

// ExceptionService serves the exception workbench: filtered queries, CSV
// export and bulk conclusion updates.
type ExceptionService struct {
	db         *sql.DB
	shipments  *repository.ShipmentRepo
	summarizer *Summarizer
	log        *logrus.Entry
}

func NewExceptionService(db *sql.DB, shipments *repository.ShipmentRepo, summarizer *Summarizer, log *logrus.Entry) *ExceptionService {
	return &ExceptionService{db: db, shipments: shipments, summarizer: summarizer, log: log}
}

// ExceptionPage is one page of exception shipments plus the unpaged total
// for the same predicate set.
type ExceptionPage struct {
	Items []domain.Shipment `json:"items"`
	Total int               `json:"total"`
}

func (s *ExceptionService) List(f repository.ExceptionFilter) (*ExceptionPage, error) {
	items, total, err := s.shipments.ListExceptions(f)
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	if items == nil {
		items = []domain.Shipment{}
	}
	return &ExceptionPage{Items: items, Total: total}, nil
}

// exportHeaders is the fixed leading column set of every export; raw-row
// extra columns follow in first-seen order.
var exportHeaders = []string{
	"waybillNumber",
	"courier",
	"province",
	"shippingDate",
	"totalDifference",
	"exceptionTypes",
	"conclusion",
	"processingNote",
}

// Export serializes the full filtered exception set as CSV text.
func (s *ExceptionService) Export(f repository.ExceptionFilter) (string, error) {
	rows, err := s.shipments.ExportExceptions(f)
	if err != nil {
		return "", fmt.Errorf("export exceptions: %w", err)
	}
	return buildExportCSV(rows), nil
}

func buildExportCSV(rows []domain.Shipment) string {
	headers := append([]string(nil), exportHeaders...)
	seen := make(map[string]bool, len(exportHeaders))
	for _, h := range exportHeaders {
		seen[h] = true
	}
	for _, row := range rows {
		for _, key := range row.RawData.Keys() {
			if !seen[key] {
				seen[key] = true
				headers = append(headers, key)
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(headers, ","))

	for i := range rows {
		row := &rows[i]
		cells := make([]string, 0, len(headers))
		for _, header := range headers {
			cells = append(cells, escapeCSV(exportValue(row, header)))
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return strings.Join(lines, "\n")
}

func exportValue(row *domain.Shipment, header string) string {
	switch header {
	case "waybillNumber":
		return row.WaybillNumber
	case "courier":
		return row.Courier
	case "province":
		return row.Province
	case "shippingDate":
		return row.ShippingDate.Format(time.RFC3339)
	case "totalDifference":
		return strconv.FormatFloat(row.TotalDifference, 'f', -1, 64)
	case "exceptionTypes":
		return strings.Join(row.ExceptionTypes, " / ")
	case "conclusion":
		return string(row.Conclusion)
	case "processingNote":
		if row.ProcessingNote != nil {
			return *row.ProcessingNote
		}
		return ""
	}
	if v, ok := row.RawData.Get(header); ok {
		return renderCell(v)
	}
	return ""
}

// renderCell is the export form of every cell kind; cells absent from a row
// render as empty.
func renderCell(v domain.CellValue) string {
	switch v.Kind {
	case domain.CellText:
		return v.Text
	case domain.CellNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case domain.CellDate:
		return v.Date.Format(time.RFC3339)
	case domain.CellList:
		return strings.Join(v.List, " / ")
	}
	return ""
}

// escapeCSV doubles internal quotes and wraps the value when it contains a
// comma, a quote or a newline.
func escapeCSV(s string) string {
	escaped := strings.ReplaceAll(s, `"`, `""`)
	if strings.ContainsAny(escaped, "\",\n") {
		return `"` + escaped + `"`
	}
	return escaped
}

// BatchUpdateConclusion sets the disposition on every shipment matching the
// waybill numbers, then refreshes the summary of every affected batch. Rows
// are matched by waybill number alone, across batches. Everything commits as
// one transaction.
func (s *ExceptionService) BatchUpdateConclusion(waybills []string, conclusion domain.Conclusion, note *string) (int, error) {
	if !domain.ValidConclusion(conclusion) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidConclusion, conclusion)
	}
	if len(waybills) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	updated, batchIDs, err := s.shipments.UpdateConclusionTx(tx, waybills, conclusion, note)
	if err != nil {
		return 0, fmt.Errorf("update conclusions: %w", err)
	}
	for _, batchID := range batchIDs {
		if err := s.summarizer.RefreshSummaryTx(tx, batchID); err != nil {
			return 0, fmt.Errorf("refresh batch %s: %w", batchID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"updated":    updated,
		"batches":    len(batchIDs),
		"conclusion": conclusion,
	}).Info("bulk conclusion update")
	return updated, nil
}
