package option

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/meenmo/optcal/utils"
)

// Column names of a quote table. Aliases map to the canonical name.
const (
	ColDate     = "date"
	ColMaturity = "maturity"
	ColStrike   = "strike"
	ColSpot     = "spot"
	ColPrice    = "price"
	ColType     = "option_type"
)

var columnAliases = map[string]string{
	"date":           ColDate,
	"valuation_date": ColDate,
	"maturity":       ColMaturity,
	"expiry":         ColMaturity,
	"strike":         ColStrike,
	"spot":           ColSpot,
	"underlying":     ColSpot,
	"price":          ColPrice,
	"market_price":   ColPrice,
	"option_type":    ColType,
	"type":           ColType,
}

var requiredColumns = []string{ColDate, ColMaturity, ColStrike, ColSpot, ColPrice, ColType}

// LoadCSV reads a quote table from a CSV file.
func LoadCSV(path string) ([]Option, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "option: open csv")
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses a header-first CSV quote table.
//
// Columns are located by header name, so order is free and extra columns
// are ignored.
func ReadCSV(r io.Reader) ([]Option, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "option: read csv")
	}
	return FromRows(rows)
}

// LoadXLSX reads a quote table from one sheet of an Excel workbook.
// An empty sheet name selects the first sheet.
func LoadXLSX(path, sheet string) ([]Option, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "option: open xlsx")
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("option: workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "option: read sheet %q", sheet)
	}
	return FromRows(rows)
}

// Load dispatches on the file extension (.csv, .xlsx).
func Load(path string) ([]Option, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xlsm"):
		return LoadXLSX(path, "")
	default:
		return LoadCSV(path)
	}
}

// FromRows converts a header row plus data rows into validated Options.
// Blank rows are skipped. Errors carry the 1-based line of the table.
func FromRows(rows [][]string) ([]Option, error) {
	if len(rows) == 0 {
		return nil, errors.New("option: empty table")
	}
	index, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	out := make([]Option, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		line := i + 2
		o, err := parseRow(row, index)
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}
		out = append(out, o)
	}
	return out, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canon, ok := columnAliases[key]; ok {
			if _, dup := index[canon]; !dup {
				index[canon] = i
			}
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("option: missing columns %s", strings.Join(missing, ", "))
	}
	return index, nil
}

func parseRow(row []string, index map[string]int) (Option, error) {
	cell := func(col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, err := utils.ParseDate(cell(ColDate))
	if err != nil {
		return Option{}, &FieldError{Field: ColDate, Value: cell(ColDate), Reason: err.Error()}
	}
	maturity, err := utils.ParseDate(cell(ColMaturity))
	if err != nil {
		return Option{}, &FieldError{Field: ColMaturity, Value: cell(ColMaturity), Reason: err.Error()}
	}
	strike, err := parseNumber(ColStrike, cell(ColStrike))
	if err != nil {
		return Option{}, err
	}
	spot, err := parseNumber(ColSpot, cell(ColSpot))
	if err != nil {
		return Option{}, err
	}
	price, err := parseNumber(ColPrice, cell(ColPrice))
	if err != nil {
		return Option{}, err
	}
	typ, err := ParseType(cell(ColType))
	if err != nil {
		return Option{}, err
	}
	return New(typ, date, maturity, strike, spot, price)
}

// parseNumber goes through decimal so that NaN, Inf and hex floats, all of
// which strconv.ParseFloat accepts, are rejected.
func parseNumber(field, s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, &FieldError{Field: field, Value: s, Reason: "not a decimal number"}
	}
	return d.InexactFloat64(), nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
