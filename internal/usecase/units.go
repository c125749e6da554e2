package usecase

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit categories
const (
	UnitCategoryMass      = "mass"
	UnitCategoryVolume    = "volume"
	UnitCategoryCount     = "count"
	UnitCategoryPackaging = "packaging"
)

// unitSpec describes how one raw unit token maps onto a canonical unit.
// Multiplier is how many canonical units equal one input unit.
type unitSpec struct {
	Canonical  string
	Multiplier decimal.Decimal
	Category   string
}

// CanonicalUnits lists every unit prices are normalized to
var CanonicalUnits = []string{
	"kg", "liter", "pcs", "pack", "box", "bunch", "sheet", "sack",
	"tray", "cup", "bottle", "can", "jar", "bag", "pouch",
}

var unitTable = buildUnitTable()

func buildUnitTable() map[string]unitSpec {
	table := make(map[string]unitSpec)
	add := func(canonical, multiplier, category string, tokens ...string) {
		m := decimal.RequireFromString(multiplier)
		for _, token := range tokens {
			table[token] = unitSpec{Canonical: canonical, Multiplier: m, Category: category}
		}
	}

	add("kg", "1", UnitCategoryMass, "kg", "kgs", "kilo", "kilos", "kilogram", "kilograms", "kilogramo", "kilogramos")
	add("kg", "0.001", UnitCategoryMass, "g", "gr", "grs", "gram", "grams", "gramo", "gramos")
	add("kg", "0.000001", UnitCategoryMass, "mg", "milligram", "milligrams")
	add("kg", "0.1", UnitCategoryMass, "ons")
	add("kg", "0.45359237", UnitCategoryMass, "lb", "lbs", "pound", "pounds", "libra", "libras")
	add("kg", "0.028349523125", UnitCategoryMass, "oz", "ounce", "ounces")

	add("liter", "1", UnitCategoryVolume, "l", "lt", "ltr", "liter", "liters", "litre", "litres", "litro", "litros")
	add("liter", "0.001", UnitCategoryVolume, "ml", "mls", "milliliter", "milliliters", "mililiter", "mililitro", "mililitros", "cc")
	add("liter", "0.01", UnitCategoryVolume, "cl")
	add("liter", "0.1", UnitCategoryVolume, "dl")
	add("liter", "3.785411784", UnitCategoryVolume, "gal", "gallon", "gallons", "galon")

	add("pcs", "1", UnitCategoryCount, "pcs", "pc", "piece", "pieces", "ea", "each", "unit", "units",
		"biji", "buah", "butir", "ekor", "pieza", "piezas", "unidad", "unidades", "pza")
	add("pcs", "12", UnitCategoryCount, "dozen", "dz", "lusin", "docena")

	add("pack", "1", UnitCategoryPackaging, "pack", "packs", "pak", "pk", "paket", "bungkus", "paquete", "pkt")
	add("box", "1", UnitCategoryPackaging, "box", "boxes", "kotak", "dus", "kardus", "caja", "carton")
	add("bunch", "1", UnitCategoryPackaging, "bunch", "bunches", "ikat", "manojo")
	add("sheet", "1", UnitCategoryPackaging, "sheet", "sheets", "lembar", "hoja", "hojas")
	add("sack", "1", UnitCategoryPackaging, "sack", "sacks", "karung", "saco", "sacos")
	add("tray", "1", UnitCategoryPackaging, "tray", "trays", "nampan", "bandeja")
	add("cup", "1", UnitCategoryPackaging, "cup", "cups", "gelas", "cangkir", "taza")
	add("bottle", "1", UnitCategoryPackaging, "bottle", "bottles", "btl", "botol", "botella")
	add("can", "1", UnitCategoryPackaging, "can", "cans", "kaleng", "lata")
	add("jar", "1", UnitCategoryPackaging, "jar", "jars", "toples", "frasco")
	add("bag", "1", UnitCategoryPackaging, "bag", "bags", "kantong", "bolsa")
	add("pouch", "1", UnitCategoryPackaging, "pouch", "pouches", "sachet", "saset")

	return table
}

func lookupUnit(unit string) (unitSpec, bool) {
	key := strings.Trim(strings.ToLower(strings.TrimSpace(unit)), ".")
	spec, ok := unitTable[key]
	return spec, ok
}

// GetCanonicalUnit returns the canonical unit a raw unit token maps to
func GetCanonicalUnit(unit string) (string, bool) {
	spec, ok := lookupUnit(unit)
	if !ok {
		return "", false
	}
	return spec.Canonical, true
}

// UnitCategory returns the category of a raw unit token
func UnitCategory(unit string) (string, bool) {
	spec, ok := lookupUnit(unit)
	if !ok {
		return "", false
	}
	return spec.Category, true
}

// AreUnitsComparable reports whether both units resolve to the same canonical unit
func AreUnitsComparable(u1, u2 string) bool {
	a, ok := lookupUnit(u1)
	if !ok {
		return false
	}
	b, ok := lookupUnit(u2)
	if !ok {
		return false
	}
	return a.Canonical == b.Canonical
}

// ConvertQuantity expresses qty of fromUnit in toUnit
func ConvertQuantity(qty decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, bool) {
	from, ok := lookupUnit(fromUnit)
	if !ok {
		return decimal.Zero, false
	}
	to, ok := lookupUnit(toUnit)
	if !ok || from.Canonical != to.Canonical {
		return decimal.Zero, false
	}
	return qty.Mul(from.Multiplier).Div(to.Multiplier), true
}

// CalculateUnitPrice returns the price of one canonical unit. It reports false
// for non-positive amounts and unrecognized units instead of failing.
func CalculateUnitPrice(totalPrice, quantity decimal.Decimal, unit string) (decimal.Decimal, bool) {
	if !totalPrice.IsPositive() || !quantity.IsPositive() {
		return decimal.Zero, false
	}
	spec, ok := lookupUnit(unit)
	if !ok {
		return decimal.Zero, false
	}
	return totalPrice.Div(quantity.Mul(spec.Multiplier)), true
}

// DecimalFromFloat converts a float from upstream extraction, rejecting NaN and ±Inf
func DecimalFromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

// Units returns every recognized unit token, sorted
func Units() []string {
	units := make([]string, 0, len(unitTable))
	for token := range unitTable {
		units = append(units, token)
	}
	sort.Strings(units)
	return units
}
