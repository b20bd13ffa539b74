package ingestion

import (
	"strings"
	"unicode"

	"github.com/siwei1127/gyl-kuaidi/internal/domain"
)

// Field is one canonical shipment attribute extracted from a bill sheet
// regardless of the sheet's actual header wording.
type Field int

const (
	FieldWaybillNumber Field = iota
	FieldCourier
	FieldProvince
	FieldShippingDate
	FieldTotalDifference
	FieldExceptionTypes
	FieldProcessingNote
	FieldSystemAmount
	FieldBillAmount
)

// fieldAliases maps each canonical field to the header spellings seen in real
// courier bills, in priority order.
var fieldAliases = map[Field][]string{
	FieldWaybillNumber:   {"运单号", "运单编号", "运单号码", "快递单号"},
	FieldCourier:         {"快递公司", "承运公司", "物流公司", "承运商"},
	FieldProvince:        {"省", "省份", "目的省", "收件省", "到达省"},
	FieldShippingDate:    {"发货日期", "发货时间", "寄件日期", "寄件时间", "揽收时间"},
	FieldTotalDifference: {"差额", "费用差额", "总差额", "对账差额"},
	FieldExceptionTypes:  {"异常类型", "异常原因", "问题类型"},
	FieldProcessingNote:  {"备注", "处理备注", "说明"},
	FieldSystemAmount:    {"系统费用", "系统金额", "系统应付", "系统总金额", "应付金额系统", "应付金额系统值"},
	FieldBillAmount:      {"账单费用", "账单金额", "快递费用", "应付金额", "账单应付", "应付金额账单"},
}

// normalizeHeader reduces a header to its comparable form: all whitespace
// removed, parentheses and colons (half- and full-width) removed, case folded.
func normalizeHeader(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
		case r == '(' || r == ')' || r == '（' || r == '）':
		case r == ':' || r == '：':
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

// FieldLookup resolves canonical fields against the column layout of one
// sheet. Build it once per sheet with ResolveColumns.
type FieldLookup struct {
	columns map[Field][]int
}

// ResolveColumns matches a sheet's header row against the alias tables.
// Headers that match no alias are simply not resolvable; that is never an
// error. When two headers normalize to the same form the first one wins.
func ResolveColumns(headers []string) *FieldLookup {
	byNorm := make(map[string]int, len(headers))
	for i, h := range headers {
		n := normalizeHeader(h)
		if _, seen := byNorm[n]; !seen {
			byNorm[n] = i
		}
	}

	columns := make(map[Field][]int, len(fieldAliases))
	for field, aliases := range fieldAliases {
		for _, alias := range aliases {
			if idx, ok := byNorm[normalizeHeader(alias)]; ok {
				columns[field] = append(columns[field], idx)
			}
		}
	}
	return &FieldLookup{columns: columns}
}

// Pick returns the first present, non-null, non-empty value for the field in
// alias priority order. ok is false when every candidate column is absent;
// absence is a valid outcome, not an error.
func (l *FieldLookup) Pick(row domain.RawRow, field Field) (domain.CellValue, bool) {
	for _, idx := range l.columns[field] {
		if idx >= len(row) {
			continue
		}
		if v := row[idx].Value; !v.IsEmpty() {
			return v, true
		}
	}
	return domain.NullCell(), false
}
