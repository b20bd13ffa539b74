package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

// Generates a sample courier bill workbook (xlsx and csv) with the column
// headers a real 顺丰 monthly bill export uses, plus a handful of edge-case
// rows: a blank waybill, a row with thousands separators, a zero difference
// row without tags and a plain-text shipping date.

var headers = []string{
	"运单号", "快递公司", "省份", "发货日期",
	"系统费用", "账单费用", "差额", "异常原因", "备注",
}

var provinces = []string{"浙江省", "江苏省", "广东省", "山东省", "河南省"}

var tags = []string{"重量偏差", "超区费", "包装费偏差", "燃油附加费"}

type billRow struct {
	waybill   string
	courier   string
	province  string
	date      any // float64 serial or string
	sysFee    string
	billFee   string
	diff      string
	exception string
	remark    string
}

func main() {
	rng := rand.New(rand.NewSource(7))
	baseDir := findTestdataDir()

	// Excel serial for 2025-02-01 is 45689 (epoch 1899-12-30).
	const febFirst = 45689.0

	rows := []billRow{
		// Blank waybill, must be skipped by the importer.
		{waybill: "", courier: "顺丰", province: "浙江省", date: febFirst},
		// Thousands separators in both fee columns.
		{
			waybill: "SF2025020100001", courier: "顺丰", province: "广东省",
			date: febFirst + 1, sysFee: "1,180.00", billFee: "1,192.50",
			diff: "12.50", exception: "重量偏差",
		},
		// Zero difference, no tags: stays clean.
		{
			waybill: "SF2025020100002", courier: "顺丰", province: "江苏省",
			date: febFirst + 2, sysFee: "18.00", billFee: "18.00", diff: "0",
		},
		// Non-zero difference, no reason column value: importer tags it.
		{
			waybill: "SF2025020100003", courier: "顺丰", province: "山东省",
			date: febFirst + 2, sysFee: "10.00", billFee: "13.50",
		},
		// Plain-text date and multiple delimited reasons.
		{
			waybill: "SF2025020100004", courier: "顺丰",
			date: "2025-02-04", sysFee: "25.00", billFee: "31.20",
			diff: "6.20", exception: "超区费、重量偏差", remark: "需人工复核",
		},
	}

	for i := 5; i < 60; i++ {
		sys := 8 + rng.Float64()*40
		sys = math.Round(sys*100) / 100

		bill := sys
		var exc string
		// 30% of generated rows carry a difference.
		if rng.Float64() < 0.3 {
			bill = math.Round((sys+rng.Float64()*15-5)*100) / 100
			exc = tags[rng.Intn(len(tags))]
		}
		diff := math.Round((bill-sys)*100) / 100

		rows = append(rows, billRow{
			waybill:   fmt.Sprintf("SF20250201%05d", i),
			courier:   "顺丰",
			province:  provinces[rng.Intn(len(provinces))],
			date:      febFirst + float64(rng.Intn(28)),
			sysFee:    fmt.Sprintf("%.2f", sys),
			billFee:   fmt.Sprintf("%.2f", bill),
			diff:      fmt.Sprintf("%.2f", diff),
			exception: exc,
		})
	}

	writeXLSX(filepath.Join(baseDir, "sample_bill.xlsx"), rows)
	writeCSV(filepath.Join(baseDir, "sample_bill.csv"), rows)

	fmt.Printf("Generated %d bill rows -> sample_bill.xlsx, sample_bill.csv\n", len(rows))
}

func writeXLSX(path string, rows []billRow) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		panic(err)
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{
			r.waybill, r.courier, r.province, r.date,
			r.sysFee, r.billFee, r.diff, r.exception, r.remark,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			panic(err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		panic(err)
	}
}

func writeCSV(path string, rows []billRow) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write(headers)
	for _, r := range rows {
		date := ""
		switch d := r.date.(type) {
		case string:
			date = d
		case float64:
			// CSV carries readable dates, not serials.
			epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
			date = epoch.AddDate(0, 0, int(d)).Format("2006-01-02")
		}
		w.Write([]string{
			r.waybill, r.courier, r.province, date,
			r.sysFee, r.billFee, r.diff, r.exception, r.remark,
		})
	}
}

func findTestdataDir() string {
	candidates := []string{"testdata", "./testdata"}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	return "testdata"
}
