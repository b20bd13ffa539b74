package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CellKind tags the type of a spreadsheet cell value.
type CellKind string

const (
	CellNull   CellKind = "null"
	CellText   CellKind = "text"
	CellNumber CellKind = "number"
	CellDate   CellKind = "date"
	CellList   CellKind = "list"
)

// CellValue is one spreadsheet cell. Exactly one of the value fields is
// meaningful, selected by Kind; the zero value is a null cell.
type CellValue struct {
	Kind   CellKind
	Text   string
	Number float64
	Date   time.Time
	List   []string
}

func NullCell() CellValue               { return CellValue{Kind: CellNull} }
func TextCell(s string) CellValue       { return CellValue{Kind: CellText, Text: s} }
func NumberCell(f float64) CellValue    { return CellValue{Kind: CellNumber, Number: f} }
func DateCell(t time.Time) CellValue    { return CellValue{Kind: CellDate, Date: t} }
func ListCell(items []string) CellValue { return CellValue{Kind: CellList, List: items} }

// IsEmpty reports whether the cell counts as absent for field resolution:
// null, or a string that is empty after trimming.
func (c CellValue) IsEmpty() bool {
	switch c.Kind {
	case CellNull, "":
		return true
	case CellText:
		return strings.TrimSpace(c.Text) == ""
	}
	return false
}

// String renders the cell in its plain text form. Numbers render without an
// exponent so that numeric waybill values survive stringification.
func (c CellValue) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellDate:
		return c.Date.Format(time.RFC3339)
	case CellList:
		return strings.Join(c.List, ",")
	}
	return ""
}

type cellJSON struct {
	Kind CellKind        `json:"t"`
	V    json.RawMessage `json:"v,omitempty"`
}

func (c CellValue) MarshalJSON() ([]byte, error) {
	var v any
	switch c.Kind {
	case CellNull, "":
		return json.Marshal(cellJSON{Kind: CellNull})
	case CellText:
		v = c.Text
	case CellNumber:
		v = c.Number
	case CellDate:
		v = c.Date.Format(time.RFC3339Nano)
	case CellList:
		v = c.List
	default:
		return nil, fmt.Errorf("unknown cell kind %q", c.Kind)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(cellJSON{Kind: c.Kind, V: raw})
}

func (c *CellValue) UnmarshalJSON(data []byte) error {
	var cj cellJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return err
	}
	switch cj.Kind {
	case CellNull, "":
		*c = NullCell()
	case CellText:
		var s string
		if err := json.Unmarshal(cj.V, &s); err != nil {
			return err
		}
		*c = TextCell(s)
	case CellNumber:
		var f float64
		if err := json.Unmarshal(cj.V, &f); err != nil {
			return err
		}
		*c = NumberCell(f)
	case CellDate:
		var s string
		if err := json.Unmarshal(cj.V, &s); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		*c = DateCell(t)
	case CellList:
		var l []string
		if err := json.Unmarshal(cj.V, &l); err != nil {
			return err
		}
		*c = ListCell(l)
	default:
		return fmt.Errorf("unknown cell kind %q", cj.Kind)
	}
	return nil
}

// RawEntry is one original spreadsheet column value, keyed by the sheet's
// untouched header text.
type RawEntry struct {
	Key   string    `json:"k"`
	Value CellValue `json:"v"`
}

// RawRow preserves one original spreadsheet row in column order. It is kept
// verbatim on the shipment and consulted only by the exception export.
type RawRow []RawEntry

// Get returns the value of the first entry with the given key.
func (r RawRow) Get(key string) (CellValue, bool) {
	for _, e := range r {
		if e.Key == key {
			return e.Value, true
		}
	}
	return NullCell(), false
}

// Keys returns the row's column keys in their original order.
func (r RawRow) Keys() []string {
	keys := make([]string, len(r))
	for i, e := range r {
		keys[i] = e.Key
	}
	return keys
}
