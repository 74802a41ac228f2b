// Package importer reads sprite lists from CSV and Excel files. Each row
// names a source image (or glob) and the options to render it with. It
// supports automatic delimiter detection, flexible column mapping, and
// case-insensitive header recognition.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/SpriteSlab/internal/model"
)

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Files    []model.FileSpec
	Errors   []string
	Warnings []string
}

// ColumnMapping maps semantic column roles to their indices in the data.
type ColumnMapping struct {
	Path       int
	Scale      int
	ScaleX     int
	ScaleY     int
	MaxWidth   int
	MaxHeight  int
	Trim       int
	DontExtend int
}

func unmappedColumns() ColumnMapping {
	return ColumnMapping{
		Path: -1, Scale: -1, ScaleX: -1, ScaleY: -1,
		MaxWidth: -1, MaxHeight: -1, Trim: -1, DontExtend: -1,
	}
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"path":        {"path", "file", "filename", "file name", "sprite", "image", "source"},
	"scale":       {"scale"},
	"scale_x":     {"scale_x", "scale x", "scalex", "sx"},
	"scale_y":     {"scale_y", "scale y", "scaley", "sy"},
	"max_width":   {"max_width", "max width", "maxwidth", "max_w", "width", "w"},
	"max_height":  {"max_height", "max height", "maxheight", "max_h", "height", "h"},
	"trim":        {"trim", "crop", "autotrim"},
	"dont_extend": {"dont_extend", "dont extend", "don't extend", "no_extend", "no extend", "keep size"},
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Returns the mapping and true if a header was detected, or the positional
// mapping (path, scale x, scale y, max width, max height, trim, don't extend)
// and false if no header was found.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := unmappedColumns()
	roles := map[string]*int{
		"path":        &mapping.Path,
		"scale":       &mapping.Scale,
		"scale_x":     &mapping.ScaleX,
		"scale_y":     &mapping.ScaleY,
		"max_width":   &mapping.MaxWidth,
		"max_height":  &mapping.MaxHeight,
		"trim":        &mapping.Trim,
		"dont_extend": &mapping.DontExtend,
	}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				if idx := roles[role]; *idx == -1 {
					*idx = i
				}
			}
		}
	}

	if !isHeader {
		return ColumnMapping{
			Path:       0,
			Scale:      -1,
			ScaleX:     1,
			ScaleY:     2,
			MaxWidth:   3,
			MaxHeight:  4,
			Trim:       5,
			DontExtend: 6,
		}, false
	}

	return mapping, true
}

// parseFlag converts a yes/no cell to a bool. It returns the value and
// whether the string was recognized.
func parseFlag(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "x":
		return true, true
	case "", "false", "no", "n", "0", "-":
		return false, true
	default:
		return false, false
	}
}

// getCell safely retrieves a cell value from a row by column index.
// Returns empty string if the index is out of range or negative.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseScale(row []string, idx int, rowLabel, name string) (float64, string) {
	s := getCell(row, idx)
	if s == "" {
		return 0, ""
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Sprintf("%s: Invalid %s '%s'", rowLabel, name, s)
	}
	if v < 0 {
		return 0, fmt.Sprintf("%s: %s must not be negative", rowLabel, name)
	}
	return v, ""
}

func parseSize(row []string, idx int, rowLabel, name string) (int, string) {
	s := getCell(row, idx)
	if s == "" {
		return 0, ""
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Sprintf("%s: Invalid %s '%s'", rowLabel, name, s)
	}
	if v < 0 {
		return 0, fmt.Sprintf("%s: %s must not be negative", rowLabel, name)
	}
	return v, ""
}

// parseRow extracts a FileSpec from a row using the given column mapping.
// Returns the spec, any error message, and any warning messages.
func parseRow(row []string, mapping ColumnMapping, rowLabel string) (model.FileSpec, string, []string) {
	path := getCell(row, mapping.Path)
	if path == "" {
		return model.FileSpec{}, fmt.Sprintf("%s: Missing path value", rowLabel), nil
	}

	var opts model.ConvertOptions
	scale, errMsg := parseScale(row, mapping.Scale, rowLabel, "scale")
	if errMsg != "" {
		return model.FileSpec{}, errMsg, nil
	}
	opts.ScaleX, opts.ScaleY = scale, scale

	if getCell(row, mapping.ScaleX) != "" {
		if opts.ScaleX, errMsg = parseScale(row, mapping.ScaleX, rowLabel, "scale x"); errMsg != "" {
			return model.FileSpec{}, errMsg, nil
		}
	}
	if getCell(row, mapping.ScaleY) != "" {
		if opts.ScaleY, errMsg = parseScale(row, mapping.ScaleY, rowLabel, "scale y"); errMsg != "" {
			return model.FileSpec{}, errMsg, nil
		}
	}
	if opts.MaxWidth, errMsg = parseSize(row, mapping.MaxWidth, rowLabel, "max width"); errMsg != "" {
		return model.FileSpec{}, errMsg, nil
	}
	if opts.MaxHeight, errMsg = parseSize(row, mapping.MaxHeight, rowLabel, "max height"); errMsg != "" {
		return model.FileSpec{}, errMsg, nil
	}

	var warnings []string
	flags := []struct {
		idx  int
		name string
		dst  *bool
	}{
		{mapping.Trim, "trim", &opts.Trim},
		{mapping.DontExtend, "dont extend", &opts.DontExtend},
	}
	for _, f := range flags {
		s := getCell(row, f.idx)
		v, ok := parseFlag(s)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s: Unknown %s value '%s', defaulting to no", rowLabel, f.name, s))
		}
		*f.dst = v
	}

	return model.FileSpec{Path: model.PathSpec{path}, Options: opts}, "", warnings
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Import reads a sprite list, choosing the reader by file extension.
func Import(path string) ImportResult {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ImportExcel(path)
	default:
		return ImportCSV(path)
	}
}

// ImportCSV imports sprites from a CSV file.
// It automatically detects the delimiter and maps columns by header names.
// Supports comma, semicolon, tab, and pipe delimiters.
func ImportCSV(path string) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		result.Warnings = append(result.Warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line", result.Warnings)
}

// ImportCSVFromReader imports sprites from a CSV reader with a specific delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	result := ImportResult{}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line", nil)
}

// ImportExcel imports sprites from the first sheet of an Excel workbook.
func ImportExcel(path string) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "Sheet is empty")
		return result
	}

	return importFromRows(rows, "Row", nil)
}

// importFromRows is the shared import logic for both CSV and Excel data.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{
		Warnings: initialWarnings,
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")
		if mapping.Path == -1 {
			result.Errors = append(result.Errors, "Required columns not found in header: Path")
			return result
		}
	} else if first := getCell(rows[0], 0); first != "" && filepath.Ext(first) == "" {
		// A first cell that is not a file name is an unrecognized header.
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")
	}

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		spec, errMsg, warnings := parseRow(row, mapping, rowLabel)
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		result.Warnings = append(result.Warnings, warnings...)
		result.Files = append(result.Files, spec)
	}

	return result
}
