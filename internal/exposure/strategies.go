package exposure

import (
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"treatylens/pkg/contracts/domain"
)

// Column-header synonyms accepted as a per-location insured value. Spanish
// variants first because most submissions are Spanish-language workbooks.
var valueColumnSynonyms = []string{
	"suma_asegurada",
	"valor_asegurado",
	"total_insured_value",
	"insured_value",
	"tiv",
}

// summaryCellStrategy reads a single pre-totalled cell from a summary
// sheet. Brokers that follow the regional template put the grand total in
// Resumen!G24.
type summaryCellStrategy struct {
	sheets []string
	cell   string
	min    float64
}

func (s summaryCellStrategy) Name() string { return "summary_cell" }

func (s summaryCellStrategy) Resolve(f *excelize.File) (domain.TIVResult, bool) {
	for _, sheet := range s.sheets {
		raw, err := f.GetCellValue(sheet, s.cell)
		if err != nil {
			continue
		}
		total := parseAmount(raw)
		if total > s.min {
			return domain.TIVResult{Total: total, Strategy: s.Name()}, true
		}
	}
	return domain.TIVResult{}, false
}

// fixedCellStrategy reads one well-known cell position on the first sheet.
// A second template family totals the schedule in W18.
type fixedCellStrategy struct {
	rowIdx int
	colIdx int
	min    float64
}

func (s fixedCellStrategy) Name() string { return "fixed_cell" }

func (s fixedCellStrategy) Resolve(f *excelize.File) (domain.TIVResult, bool) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.TIVResult{}, false
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil || len(rows) <= s.rowIdx || len(rows[s.rowIdx]) <= s.colIdx {
		return domain.TIVResult{}, false
	}
	total := parseAmount(rows[s.rowIdx][s.colIdx])
	if total > s.min {
		return domain.TIVResult{Total: total, Strategy: s.Name()}, true
	}
	return domain.TIVResult{}, false
}

// valueColumnStrategy scans the primary sheet for a column whose header
// matches a known insured-value synonym and sums it. When several columns
// match, the last one in sheet order wins; schedules often carry a
// per-building value early and the consolidated value later.
type valueColumnStrategy struct{}

func (valueColumnStrategy) Name() string { return "value_column" }

func (s valueColumnStrategy) Resolve(f *excelize.File) (domain.TIVResult, bool) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.TIVResult{}, false
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return domain.TIVResult{}, false
	}
	return valueColumnFromRows(rows)
}

func valueColumnFromRows(rows [][]string) (domain.TIVResult, bool) {
	for headerIdx, row := range rows {
		if headerIdx > 15 {
			break
		}
		col := -1
		for i, cell := range row {
			header := normalizeHeader(cell)
			for _, synonym := range valueColumnSynonyms {
				if strings.Contains(header, synonym) {
					col = i
				}
			}
		}
		if col < 0 {
			continue
		}
		var total float64
		for _, dataRow := range rows[headerIdx+1:] {
			if len(dataRow) <= col {
				continue
			}
			total += parseAmount(dataRow[col])
		}
		if total > 0 {
			return domain.TIVResult{Total: total, Strategy: "value_column"}, true
		}
	}
	return domain.TIVResult{}, false
}

// componentScheduleStrategy handles the schedule layout that breaks each
// location into buildings, inventory, contents and business interruption,
// on a sheet named SUM ASEG with headers on row 4 keyed by a row number
// column.
type componentScheduleStrategy struct{}

func (componentScheduleStrategy) Name() string { return "component_schedule" }

var componentColumns = map[string]func(*domain.ExposureRecord, float64){
	"edificios":       func(r *domain.ExposureRecord, v float64) { r.Structures = v },
	"inventario":      func(r *domain.ExposureRecord, v float64) { r.Inventory = v },
	"contenidos":      func(r *domain.ExposureRecord, v float64) { r.Contents = v },
	"perdidas_consec": func(r *domain.ExposureRecord, v float64) { r.BusinessInterruption = v },
}

func (s componentScheduleStrategy) Resolve(f *excelize.File) (domain.TIVResult, bool) {
	rows, err := f.GetRows("SUM ASEG")
	if err != nil || len(rows) < 4 {
		return domain.TIVResult{}, false
	}
	header := rows[3]
	keyCol, totalCol, locationCol := -1, -1, -1
	setters := map[int]func(*domain.ExposureRecord, float64){}
	for i, cell := range header {
		name := normalizeHeader(cell)
		switch {
		case name == "no":
			keyCol = i
		case strings.Contains(name, "valores_totales"):
			totalCol = i
		case strings.Contains(name, "ubicaci") || strings.Contains(name, "direcci"):
			locationCol = i
		default:
			for prefix, set := range componentColumns {
				if strings.Contains(name, prefix) {
					setters[i] = set
				}
			}
		}
	}
	if keyCol < 0 || len(setters) == 0 {
		return domain.TIVResult{}, false
	}

	var records []domain.ExposureRecord
	var total float64
	for _, row := range rows[4:] {
		if len(row) <= keyCol || strings.TrimSpace(row[keyCol]) == "" {
			continue
		}
		record := domain.ExposureRecord{}
		if locationCol >= 0 && len(row) > locationCol {
			record.Location = strings.TrimSpace(row[locationCol])
		}
		for col, set := range setters {
			if len(row) > col {
				set(&record, parseAmount(row[col]))
			}
		}
		if totalCol >= 0 && len(row) > totalCol {
			record.Total = parseAmount(row[totalCol])
		}
		if record.Total == 0 {
			record.Total = record.Structures + record.Inventory + record.Contents + record.BusinessInterruption
		}
		if record.Total == 0 {
			continue
		}
		records = append(records, record)
		total += record.Total
	}
	if total == 0 {
		return domain.TIVResult{}, false
	}
	return domain.TIVResult{Records: records, Total: total, Strategy: s.Name()}, true
}

// prefixSheetStrategy handles the public-infrastructure schedule whose
// sheet name starts with the insured's prefix, headers on row 12 keyed by
// a facility name column and valued by the building column.
type prefixSheetStrategy struct{}

func (prefixSheetStrategy) Name() string { return "prefix_sheet" }

func (s prefixSheetStrategy) Resolve(f *excelize.File) (domain.TIVResult, bool) {
	for _, sheet := range f.GetSheetList() {
		if !strings.HasPrefix(strings.ToLower(sheet), "conagua") {
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) < 12 {
			continue
		}
		header := rows[11]
		keyCol, valueCol := -1, -1
		for i, cell := range header {
			name := normalizeHeader(cell)
			switch {
			case strings.Contains(name, "nombre"):
				keyCol = i
			case strings.Contains(name, "edificio"):
				valueCol = i
			}
		}
		if keyCol < 0 || valueCol < 0 {
			continue
		}
		var records []domain.ExposureRecord
		var total float64
		for _, row := range rows[12:] {
			if len(row) <= keyCol || strings.TrimSpace(row[keyCol]) == "" {
				continue
			}
			if len(row) <= valueCol {
				continue
			}
			value := parseAmount(row[valueCol])
			if value == 0 {
				continue
			}
			records = append(records, domain.ExposureRecord{
				Location:   strings.TrimSpace(row[keyCol]),
				Structures: value,
				Total:      value,
			})
			total += value
		}
		if total > 0 {
			return domain.TIVResult{Records: records, Total: total, Strategy: s.Name()}, true
		}
	}
	return domain.TIVResult{}, false
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}

func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
