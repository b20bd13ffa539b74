package ingestion

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/siwei1127/gyl-kuaidi/internal/domain"
)

// ErrBadWorkbook marks uploads that cannot be read as a tabular workbook.
var ErrBadWorkbook = errors.New("unreadable workbook")

// Sheet is the decoded first sheet of an uploaded bill: one header row plus
// zero or more data rows aligned to it.
type Sheet struct {
	Headers []string
	Rows    []domain.RawRow
}

var (
	zipMagic = []byte{'P', 'K', 0x03, 0x04}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// DecodeWorkbook reads uploaded bytes as an xlsx workbook or, failing the zip
// signature, as CSV text. Only the first sheet is consulted and its first row
// is treated as the header row.
func DecodeWorkbook(data []byte) (*Sheet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrBadWorkbook)
	}
	if bytes.HasPrefix(data, zipMagic) {
		return decodeXLSX(data)
	}
	return decodeCSV(data)
}

func decodeXLSX(data []byte) (*Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadWorkbook, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("%w: no sheet found in file", ErrBadWorkbook)
	}

	// Raw cell values keep numbers exact and leave date cells in their
	// serial form, which the normalizer knows how to interpret.
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadWorkbook, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrBadWorkbook)
	}
	return sheetFromStrings(rows), nil
}

func decodeCSV(data []byte) (*Sheet, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadWorkbook, err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrBadWorkbook)
	}
	return sheetFromStrings(rows), nil
}

func sheetFromStrings(rows [][]string) *Sheet {
	headers := rows[0]
	sheet := &Sheet{Headers: headers}
	for _, raw := range rows[1:] {
		row := make(domain.RawRow, len(headers))
		for i, key := range headers {
			var cell string
			if i < len(raw) {
				cell = raw[i]
			}
			row[i] = domain.RawEntry{Key: key, Value: typedCell(cell)}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

// typedCell classifies one string cell: blanks become null, numeric-looking
// cells become numbers (xlsx raw mode serializes plain numbers and date
// serials this way), everything else stays text.
func typedCell(s string) domain.CellValue {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return domain.NullCell()
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return domain.NumberCell(f)
	}
	return domain.TextCell(s)
}
