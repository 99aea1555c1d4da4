package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/professorSergio12/Stock-Broker/utils"
	"github.com/xuri/excelize/v2"
)

const emptyHeader = "__EMPTY"

// oleSignature opens every compound-file (BIFF .xls) workbook.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ErrLegacyWorkbook is the cause of a DecodeError for .xls content.
var ErrLegacyWorkbook = errors.New("legacy .xls workbooks are not supported; save the file as .xlsx")

// Decode reads the first sheet of a workbook. The first row is the header row;
// every later non-blank row becomes a RawRow with one cell per header.
func Decode(buf []byte) ([]RawRow, error) {
	if len(buf) == 0 {
		return nil, &utils.DecodeError{Msg: "Failed to parse Excel file", Err: errors.New("empty upload")}
	}
	if bytes.HasPrefix(buf, oleSignature) {
		return nil, &utils.DecodeError{Msg: "Failed to parse Excel file", Err: ErrLegacyWorkbook}
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf))
	if err != nil {
		return nil, &utils.DecodeError{Msg: "Failed to parse Excel file", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, &utils.DecodeError{Msg: "Failed to parse Excel file", Err: err}
	}
	defer rows.Close()

	var (
		grid  [][]string
		width int
	)
	for rows.Next() {
		// raw values keep numbers unformatted and dates as serials
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, &utils.DecodeError{Msg: "Failed to parse Excel file", Err: err}
		}
		if isBlankRow(cols) {
			continue
		}
		if len(cols) > width {
			width = len(cols)
		}
		grid = append(grid, cols)
	}
	if err := rows.Error(); err != nil {
		return nil, &utils.DecodeError{Msg: "Failed to parse Excel file", Err: err}
	}
	if len(grid) <= 1 {
		return nil, nil
	}

	headers := headerNames(grid[0], width)
	out := make([]RawRow, 0, len(grid)-1)
	for _, cols := range grid[1:] {
		row := make(RawRow, width)
		for i := 0; i < width; i++ {
			row[i].Header = headers[i]
			if i < len(cols) && cols[i] != "" {
				v := cols[i]
				row[i].Value = &v
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// headerNames fills blank headers with __EMPTY, __EMPTY_1, ... and suffixes
// repeated headers with _1, _2, ...
func headerNames(first []string, width int) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		h := ""
		if i < len(first) {
			h = strings.TrimSpace(first[i])
		}
		if h == "" {
			h = emptyHeader
		}
		base := h
		for {
			if _, dup := seen[h]; !dup {
				break
			}
			seen[base]++
			h = fmt.Sprintf("%s_%d", base, seen[base])
		}
		seen[h] = 0
		names[i] = h
	}
	return names
}

func isBlankRow(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
