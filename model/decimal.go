package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Decimal wraps decimal.Decimal with decoding that tolerates the loose JSON
// extraction providers produce. Numbers and numeric strings decode normally;
// null, empty strings, and anything unparsable decode to zero rather than
// failing the whole document.
type Decimal struct {
	decimal.Decimal
}

func NewDecimal(d decimal.Decimal) Decimal {
	return Decimal{d}
}

// ParseDecimal coerces an arbitrary string to a Decimal, zero on junk.
func ParseDecimal(s string) Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Decimal{decimal.Zero}
	}
	return Decimal{v}
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.Decimal.String()), nil
}

func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		d.Decimal = decimal.Zero
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		d.Decimal = decimal.Zero
		return nil
	}
	d.Decimal = v
	return nil
}
