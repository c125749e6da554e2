package pricelist

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"

	"github.com/monito/backend/internal/domain"
)

func TestRead_CSV(t *testing.T) {
	input := "Nama Barang,Harga,Satuan,Isi\n" +
		"Wortel,\"18.000\",kg,1\n" +
		",,,\n" +
		"Kentang,\"12,500\",,500 g\n" +
		"Cabai Merah,9000,ons,\n"

	rows, err := Read(strings.NewReader(input), "supplier.csv", DefaultLayout())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Wortel", rows[0].Name)
	assert.True(t, rows[0].Price.Equal(decimal.NewFromInt(18000)), "price = %s", rows[0].Price)
	assert.Equal(t, "kg", rows[0].Unit)

	assert.Equal(t, 4, rows[1].Line, "line numbers follow the source rows")
	assert.True(t, rows[1].Price.Equal(decimal.NewFromInt(12500)))
	assert.Equal(t, "g", rows[1].Unit, "unit split from quantity cell")
	assert.True(t, rows[1].Quantity.Equal(decimal.NewFromInt(500)))

	assert.Equal(t, "ons", rows[2].Unit)
	assert.True(t, rows[2].Quantity.IsZero())
}

func TestRead_CSV_SemicolonAndBOM(t *testing.T) {
	input := "\ufeffProducto;Precio;Unidad\nPlátano;3,50;kg\nLimón;\"1.250,75\";kg\n"

	rows, err := Read(strings.NewReader(input), "lista.CSV", DefaultLayout())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Plátano", rows[0].Name)
	assert.Equal(t, "3.5", rows[0].Price.String())
	assert.Equal(t, "1250.75", rows[1].Price.String())
}

func TestRead_HeaderRowAndDefaultUnit(t *testing.T) {
	input := "PT Sayur Segar price list\nupdated weekly\nitem,price\ncarrot,15000\n"
	layout := DefaultLayout()
	layout.HeaderRow = 3
	layout.DefaultUnit = "kg"

	rows, err := Read(strings.NewReader(input), "list.csv", layout)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].Line)
	assert.Equal(t, "kg", rows[0].Unit)
}

func TestRead_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Product", "Unit", "Price", "Qty"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Zanahoria", "kg", 17500, 2}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"Leche", "litro", "21000", ""}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rows, err := Read(bytes.NewReader(buf.Bytes()), "prices.xlsx", DefaultLayout())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Zanahoria", rows[0].Name)
	assert.Equal(t, "kg", rows[0].Unit)
	assert.True(t, rows[0].Price.Equal(decimal.NewFromInt(17500)))
	assert.True(t, rows[0].Quantity.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, "litro", rows[1].Unit)
}

func TestRead_Errors(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		_, err := Read(strings.NewReader(""), "prices.pdf", DefaultLayout())
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("missing price column", func(t *testing.T) {
		_, err := Read(strings.NewReader("name,unit\ncarrot,kg\n"), "prices.csv", DefaultLayout())
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("broken workbook", func(t *testing.T) {
		_, err := Read(strings.NewReader("not a zip"), "prices.xlsx", DefaultLayout())
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		rows, err := Read(strings.NewReader(""), "prices.csv", DefaultLayout())
		assert.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestParseAmount(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "25000", want: "25000"},
		{in: "25.000", want: "25000"},
		{in: "25,000", want: "25000"},
		{in: "1.250.000", want: "1250000"},
		{in: "1,250,000.50", want: "1250000.5"},
		{in: "1.250.000,50", want: "1250000.5"},
		{in: "3,5", want: "3.5"},
		{in: "0.250", want: "0.25"},
		{in: "12.5", want: "12.5"},
		{in: "Rp 18.500", want: "18500"},
		{in: "$ 4.99", want: "4.99"},
		{in: "", want: "0"},
		{in: "n/a", want: "0"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got := parseAmount(tc.in)
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Errorf("parseAmount(%q) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}

func TestSplitQuantity(t *testing.T) {
	testCases := []struct {
		in, qty, unit string
	}{
		{in: "500 g", qty: "500", unit: "g"},
		{in: "1,5kg", qty: "1,5", unit: "kg"},
		{in: "12", qty: "12", unit: ""},
		{in: "dozen", qty: "dozen", unit: ""},
	}
	for _, tc := range testCases {
		qty, unit := splitQuantity(tc.in)
		if qty != tc.qty || unit != tc.unit {
			t.Errorf("splitQuantity(%q) = %q, %q, want %q, %q", tc.in, qty, unit, tc.qty, tc.unit)
		}
	}
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ';', detectDelimiter([]byte("a;b;c\n1,5;2;3")))
	assert.Equal(t, '\t', detectDelimiter([]byte("a\tb\tc")))
	assert.Equal(t, ',', detectDelimiter([]byte("a,b")))
	assert.Nil(t, detectCharmap([]byte("plain ascii, utf-8 ñ")))
}
