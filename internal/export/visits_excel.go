package export

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/minegate/minegate-api/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Workbook builds a one-sheet xlsx with a bold, auto-filtered header
// row and heuristic column widths.
func Workbook(sheet string, header []string, data [][]string) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for col, h := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellStr(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	end, _ := excelize.CoordinatesToCellName(len(header), 1)
	_ = f.SetCellStyle(sheet, "A1", end, bold)
	_ = f.AutoFilter(sheet, "A1:"+end, nil)

	for r, row := range data {
		for c, val := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellStr(sheet, cell, val); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	// width from header and the first rows
	for c := 1; c <= len(header); c++ {
		max := len(header[c-1])
		for r := 0; r < len(data) && r < 50; r++ {
			if l := len(data[r][c-1]); l > max {
				max = l
			}
		}
		w := float64(max) * 0.9
		if w < 12 {
			w = 12
		}
		if w > 60 {
			w = 60
		}
		col, _ := excelize.ColumnNumberToName(c)
		_ = f.SetColWidth(sheet, col, col, w)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return &buf, nil
}

func ExternalVisitsWorkbook(visits []domain.ExternalVisit) (*bytes.Buffer, error) {
	header := []string{"ID", "Name", "Responsible", "Email", "Phone", "Articulation", "Headcount", "Date", "Time"}
	rows := make([][]string, len(visits))
	for i, v := range visits {
		rows[i] = []string{
			strconv.FormatInt(v.ID, 10),
			v.Name,
			v.Responsible,
			v.Email,
			v.Phone,
			v.Articulation,
			strconv.Itoa(v.Headcount),
			v.Date.Format(time.DateOnly),
			v.Time.Format("15:04"),
		}
	}
	return Workbook("External visits", header, rows)
}

func InternalVisitsWorkbook(visits []domain.InternalVisit) (*bytes.Buffer, error) {
	header := []string{"ID", "Name", "Responsible", "Phone", "Headcount", "Date", "Status"}
	rows := make([][]string, len(visits))
	for i, v := range visits {
		rows[i] = []string{
			strconv.FormatInt(v.ID, 10),
			v.Name,
			v.Responsible,
			v.Phone,
			strconv.Itoa(v.Headcount),
			v.Date.Format(time.DateOnly),
			string(v.Status),
		}
	}
	return Workbook("Internal visits", header, rows)
}
