package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siwei1127/gyl-kuaidi/internal/domain"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"运单号", "运单号"},
		{" 运单号 ", "运单号"},
		{"运单号（必填）", "运单号必填"},
		{"运单号(必填)", "运单号必填"},
		{"费用：", "费用"},
		{"Waybill No:", "waybillno"},
		{"差\t额", "差额"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeHeader(tt.input), "input %q", tt.input)
	}
}

func TestResolveColumnsAliases(t *testing.T) {
	lookup := ResolveColumns([]string{"快递单号", "物流公司", "省份", "发货日期", "差额"})

	row := domain.RawRow{
		{Key: "快递单号", Value: domain.TextCell("SF001")},
		{Key: "物流公司", Value: domain.TextCell("顺丰")},
		{Key: "省份", Value: domain.TextCell("浙江省")},
		{Key: "发货日期", Value: domain.TextCell("2025-02-01")},
		{Key: "差额", Value: domain.NumberCell(12.5)},
	}

	v, ok := lookup.Pick(row, FieldWaybillNumber)
	require.True(t, ok)
	assert.Equal(t, "SF001", v.Text)

	v, ok = lookup.Pick(row, FieldCourier)
	require.True(t, ok)
	assert.Equal(t, "顺丰", v.Text)

	v, ok = lookup.Pick(row, FieldTotalDifference)
	require.True(t, ok)
	assert.Equal(t, 12.5, v.Number)

	_, ok = lookup.Pick(row, FieldProcessingNote)
	assert.False(t, ok)
}

func TestResolveColumnsPriorityOrder(t *testing.T) {
	// 运单号 outranks 快递单号 even though 快递单号 comes first in the sheet.
	lookup := ResolveColumns([]string{"快递单号", "运单号"})

	row := domain.RawRow{
		{Key: "快递单号", Value: domain.TextCell("SECONDARY")},
		{Key: "运单号", Value: domain.TextCell("PRIMARY")},
	}
	v, ok := lookup.Pick(row, FieldWaybillNumber)
	require.True(t, ok)
	assert.Equal(t, "PRIMARY", v.Text)

	// When the primary column is blank the next alias fills in.
	row[1].Value = domain.TextCell("  ")
	v, ok = lookup.Pick(row, FieldWaybillNumber)
	require.True(t, ok)
	assert.Equal(t, "SECONDARY", v.Text)
}

func TestResolveColumnsUnknownHeaders(t *testing.T) {
	lookup := ResolveColumns([]string{"自定义列A", "自定义列B"})
	row := domain.RawRow{
		{Key: "自定义列A", Value: domain.TextCell("x")},
		{Key: "自定义列B", Value: domain.TextCell("y")},
	}
	_, ok := lookup.Pick(row, FieldWaybillNumber)
	assert.False(t, ok)
}

func TestPickShortRow(t *testing.T) {
	lookup := ResolveColumns([]string{"运单号", "差额"})
	row := domain.RawRow{{Key: "运单号", Value: domain.TextCell("WB1")}}

	_, ok := lookup.Pick(row, FieldTotalDifference)
	assert.False(t, ok)
}
