package ingestion

import (
	"strings"
	"time"

	"github.com/siwei1127/gyl-kuaidi/internal/domain"
	"github.com/siwei1127/gyl-kuaidi/internal/money"
)

// excelEpoch anchors spreadsheet serial dates. 1899-12-30 reproduces the
// common 1900 date system including the historical Lotus leap-year offset.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts are tried in order for free-form date strings.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"20060102",
}

func isTagDelimiter(r rune) bool {
	return r == ',' || r == '，' || r == '、' || r == '/'
}

// Normalizer converts raw sheet rows into canonical shipment records. The
// clock is injected so the only impure fallback (missing shipping date
// defaults to "now") is fixable under test.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NormalizeRow maps one raw row to a shipment. ok is false when the row must
// be skipped, which happens only for a missing waybill number; every other
// defect degrades to a documented default. The returned record has no ID and
// no batch binding yet; the ingestor assigns both.
func (n *Normalizer) NormalizeRow(lookup *FieldLookup, row domain.RawRow, defaultCourier string) (*domain.Shipment, bool) {
	waybill := strings.TrimSpace(cellString(lookup.Pick(row, FieldWaybillNumber)))
	if waybill == "" {
		return nil, false
	}

	courier := strings.TrimSpace(cellString(lookup.Pick(row, FieldCourier)))
	if courier == "" {
		courier = defaultCourier
	}

	province := strings.TrimSpace(cellString(lookup.Pick(row, FieldProvince)))
	if province == "" {
		province = domain.UnknownProvince
	}

	shippingDate := n.now()
	if v, ok := lookup.Pick(row, FieldShippingDate); ok {
		if t, parsed := parseDate(v); parsed {
			shippingDate = t
		}
	}

	totalDifference, haveDiff := parseAmountCell(lookup.Pick(row, FieldTotalDifference))
	if !haveDiff {
		system, okSys := parseAmountCell(lookup.Pick(row, FieldSystemAmount))
		bill, okBill := parseAmountCell(lookup.Pick(row, FieldBillAmount))
		if okSys && okBill {
			totalDifference = money.Diff(bill, system)
			haveDiff = true
		}
	}
	if !haveDiff {
		totalDifference = 0
	}

	exceptionTypes := parseExceptionTags(lookup.Pick(row, FieldExceptionTypes))
	if len(exceptionTypes) == 0 && totalDifference != 0 {
		exceptionTypes = []string{domain.DefaultExceptionTag}
	}

	var note *string
	if v, ok := lookup.Pick(row, FieldProcessingNote); ok {
		if trimmed := strings.TrimSpace(v.String()); trimmed != "" {
			note = &trimmed
		}
	}

	return &domain.Shipment{
		WaybillNumber:   waybill,
		Courier:         courier,
		Province:        province,
		ShippingDate:    shippingDate,
		TotalDifference: totalDifference,
		ExceptionTypes:  exceptionTypes,
		Conclusion:      domain.ConclusionPending,
		ProcessingNote:  note,
		RawData:         row,
	}, true
}

func cellString(v domain.CellValue, ok bool) string {
	if !ok {
		return ""
	}
	return v.String()
}

// parseDate interprets a cell as a point in time: date cells pass through,
// numeric cells are spreadsheet serial day counts from the 1899-12-30 epoch
// (fractional days preserved), strings go through the known layouts.
func parseDate(v domain.CellValue) (time.Time, bool) {
	switch v.Kind {
	case domain.CellDate:
		return v.Date, true
	case domain.CellNumber:
		seconds := v.Number * 86400
		return excelEpoch.Add(time.Duration(seconds * float64(time.Second))), true
	case domain.CellText:
		s := strings.TrimSpace(v.Text)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func parseAmountCell(v domain.CellValue, ok bool) (float64, bool) {
	if !ok {
		return 0, false
	}
	switch v.Kind {
	case domain.CellNumber:
		return v.Number, true
	case domain.CellText:
		return money.ParseAmount(v.Text)
	}
	return 0, false
}

// parseExceptionTags extracts classification tags. List cells keep their
// elements (trimmed); scalar cells split on comma (both widths), enumeration
// comma and slash, dropping empty fragments.
func parseExceptionTags(v domain.CellValue, ok bool) []string {
	if !ok {
		return nil
	}
	if v.Kind == domain.CellList {
		tags := make([]string, 0, len(v.List))
		for _, item := range v.List {
			tags = append(tags, strings.TrimSpace(item))
		}
		return tags
	}
	var tags []string
	for _, part := range strings.FieldsFunc(v.String(), isTagDelimiter) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}
