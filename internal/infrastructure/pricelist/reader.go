// Package pricelist reads supplier price lists from CSV, XLSX and XLS files
// into extracted rows ready for ingestion.
package pricelist

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/monito/backend/internal/domain"
)

// Layout locates the price-list columns. Column names are matched against the
// header row case-insensitively; the first name present wins.
type Layout struct {
	HeaderRow       int      `mapstructure:"header_row"`
	NameColumns     []string `mapstructure:"name_columns"`
	PriceColumns    []string `mapstructure:"price_columns"`
	UnitColumns     []string `mapstructure:"unit_columns"`
	QuantityColumns []string `mapstructure:"quantity_columns"`
	DefaultUnit     string   `mapstructure:"default_unit"`
}

// DefaultLayout recognizes common English, Indonesian and Spanish headers
func DefaultLayout() Layout {
	return Layout{
		HeaderRow:       1,
		NameColumns:     []string{"name", "product", "item", "description", "nama", "nama barang", "produk", "producto", "descripcion", "descripción"},
		PriceColumns:    []string{"price", "unit price", "harga", "harga satuan", "precio"},
		UnitColumns:     []string{"unit", "uom", "satuan", "unidad"},
		QuantityColumns: []string{"qty", "quantity", "pack size", "isi", "jumlah", "cantidad"},
	}
}

// Read dispatches on the file extension and maps each non-empty data row to an
// ExtractedRow. Line is the row's 1-based position in the source sheet.
func Read(r io.Reader, filename string, layout Layout) ([]domain.ExtractedRow, error) {
	if layout.HeaderRow <= 0 {
		layout.HeaderRow = 1
	}

	var (
		rows [][]string
		err  error
	)
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xlsx":
		rows, err = readXLSX(r)
	case ".xls":
		rows, err = readXLS(r, layout.HeaderRow)
	case ".csv", ".tsv", ".txt":
		rows, err = readCSV(r)
	default:
		return nil, eris.Wrapf(domain.ErrInvalidRequest, "unsupported file: %s", filename)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "pricelist: read %s", filename)
	}
	if len(rows) < layout.HeaderRow {
		return nil, nil
	}

	headers := pickHeader(rows, layout.HeaderRow)
	cols, err := locateColumns(headers, layout)
	if err != nil {
		return nil, err
	}

	var out []domain.ExtractedRow
	for _, rec := range rowsToRecords(rows, len(headers), layout.HeaderRow) {
		out = append(out, cols.extract(rec, layout.DefaultUnit))
	}
	return out, nil
}

// pickHeader takes the header row and fills blanks with "Column N".
func pickHeader(rows [][]string, headerRow int) []string {
	idx := headerRow - 1
	if idx < 0 || idx >= len(rows) {
		idx = 0
	}
	h := rows[idx]
	out := make([]string, len(h))
	for i, v := range h {
		v = normalizeCell(strings.TrimPrefix(v, "\ufeff"))
		if v == "" {
			v = fmt.Sprintf("Column %d", i+1)
		}
		out[i] = v
	}
	return out
}

type record struct {
	line  int
	cells []string
}

// rowsToRecords returns data rows after the header, skipping fully empty ones.
func rowsToRecords(rows [][]string, width, headerRow int) []record {
	var out []record
	for r := headerRow; r < len(rows); r++ {
		cells := make([]string, width)
		empty := true
		for c := 0; c < width && c < len(rows[r]); c++ {
			cells[c] = normalizeCell(rows[r][c])
			if cells[c] != "" {
				empty = false
			}
		}
		if !empty {
			out = append(out, record{line: r + 1, cells: cells})
		}
	}
	return out
}

type columns struct {
	name, price, unit, quantity int
}

func locateColumns(headers []string, layout Layout) (columns, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	find := func(names []string) int {
		for _, n := range names {
			if i, ok := index[strings.ToLower(strings.TrimSpace(n))]; ok {
				return i
			}
		}
		return -1
	}

	cols := columns{
		name:     find(layout.NameColumns),
		price:    find(layout.PriceColumns),
		unit:     find(layout.UnitColumns),
		quantity: find(layout.QuantityColumns),
	}
	if cols.name < 0 || cols.price < 0 {
		return cols, eris.Wrapf(domain.ErrInvalidRequest, "header row %d has no name or price column: %v", layout.HeaderRow, headers)
	}
	return cols, nil
}

func (c columns) extract(rec record, defaultUnit string) domain.ExtractedRow {
	row := domain.ExtractedRow{
		Line:  rec.line,
		Name:  rec.cells[c.name],
		Price: parseAmount(rec.cells[c.price]),
	}
	if c.unit >= 0 {
		row.Unit = rec.cells[c.unit]
	}
	if c.quantity >= 0 {
		qty, unit := splitQuantity(rec.cells[c.quantity])
		row.Quantity = parseAmount(qty)
		if row.Unit == "" {
			row.Unit = unit
		}
	}
	if row.Unit == "" {
		row.Unit = defaultUnit
	}
	return row
}

func normalizeCell(v string) string {
	return strings.TrimSpace(strings.ReplaceAll(v, "\u00a0", " "))
}

// splitQuantity separates a trailing unit from a quantity cell such as "500 g"
func splitQuantity(cell string) (string, string) {
	i := strings.IndexFunc(cell, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '.' && r != ',' && r != ' '
	})
	if i <= 0 {
		return cell, ""
	}
	return strings.TrimSpace(cell[:i]), strings.TrimSpace(cell[i:])
}

// parseAmount reads a plain decimal, tolerating thousands separators and
// stray symbols. A lone separator followed by exactly three digits after a
// non-zero integer part is a thousands separator. Unparseable input yields zero.
func parseAmount(cell string) decimal.Decimal {
	var b strings.Builder
	for _, r := range cell {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	s := b.String()

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastComma >= 0:
		s = resolveSeparator(s, ",")
	case lastDot >= 0:
		s = resolveSeparator(s, ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func resolveSeparator(s, sep string) string {
	if strings.Count(s, sep) > 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	i := strings.Index(s, sep)
	head := strings.TrimPrefix(s[:i], "-")
	if len(s)-i-1 == 3 && head != "" && head != "0" {
		return strings.ReplaceAll(s, sep, "")
	}
	return strings.Replace(s, sep, ".", 1)
}
