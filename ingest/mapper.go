package ingest

import (
	"math"
	"strings"

	"github.com/professorSergio12/Stock-Broker/config"
	"github.com/professorSergio12/Stock-Broker/models"
	"github.com/professorSergio12/Stock-Broker/utils"
)

// RawCell is one header/value pair of a decoded row. A nil Value is a missing cell.
type RawCell struct {
	Header string
	Value  *string
}

// RawRow is a decoded spreadsheet row in column order.
type RawRow []RawCell

// Get returns the value under header, or nil.
func (r RawRow) Get(header string) *string {
	for _, c := range r {
		if c.Header == header {
			return c.Value
		}
	}
	return nil
}

// MapRow coerces a raw row into a Transaction and lists the headers that did not
// resolve to a stored column. It never rejects a row; callers drop empty ones.
func MapRow(raw RawRow) (models.Transaction, []string) {
	var (
		tx      models.Transaction
		unknown []string
	)
	for _, cell := range raw {
		col := NormalizeHeader(cell.Header)
		if col == "" {
			continue
		}
		kind, ok := models.ColumnKind(col)
		if !ok {
			unknown = append(unknown, col)
			continue
		}

		value := cell.Value
		if value == nil || strings.TrimSpace(*value) == "" {
			// a later duplicate header must not wipe an earlier value
			continue
		}

		if err := assign(&tx, col, kind, *value); err != nil {
			// the column registry and the struct disagree; surface the column instead of losing it
			config.LogError(config.GetLogger(), "ingest", "MapRow", "assign column", col, err)
			unknown = append(unknown, col)
		}
	}
	return tx, unknown
}

// assign coerces value by kind and stores it on tx.
func assign(tx *models.Transaction, col string, kind models.FieldKind, value string) error {
	switch kind {
	case models.KindNumeric:
		if n := parseNumber(value); n != nil {
			return tx.SetNumber(col, n)
		}
		return nil
	case models.KindDate:
		if d, ok := NormalizeDate(value); ok {
			return tx.SetText(col, &d)
		}
		return tx.SetText(col, &value)
	default:
		return tx.SetText(col, &value)
	}
}

// parseNumber returns nil for anything that is not a finite number.
func parseNumber(s string) *float64 {
	d, err := utils.ParseDecimal(s)
	if err != nil {
		return nil
	}
	f := d.InexactFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
