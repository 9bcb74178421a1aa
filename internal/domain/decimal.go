package domain

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// Decimal wraps apd.Decimal so prices keep an exact representation from the
// quote source to the response body.
type Decimal struct {
	apd.Decimal
}

// PriceScale is the number of fractional digits prices are rendered with.
const PriceScale int32 = 2

var roundingContext = func() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(20)
	ctx.Rounding = apd.RoundHalfUp
	return ctx
}()

// NewDecimalFromInt creates a Decimal from an int64
func NewDecimalFromInt(v int64) Decimal {
	d := Decimal{}
	d.SetInt64(v)
	return d
}

// NewDecimalFromString creates a Decimal from a string
func NewDecimalFromString(v string) (Decimal, error) {
	d := Decimal{}
	if _, _, err := d.SetString(v); err != nil {
		return d, fmt.Errorf("invalid decimal string %q: %w", v, err)
	}
	return d, nil
}

func (d Decimal) String() string {
	return d.Decimal.Text('f')
}

func (d Decimal) Equal(other Decimal) bool {
	return d.Decimal.Cmp(&other.Decimal) == 0
}

// Round quantizes the decimal to the given number of fractional digits,
// rounding half up. Trailing zeros are kept, so 1.5 rounded to 2 places
// renders as "1.50".
func (d Decimal) Round(places int32) (Decimal, error) {
	res := Decimal{}
	if _, err := roundingContext.Quantize(&res.Decimal, &d.Decimal, -places); err != nil {
		return res, fmt.Errorf("quantize operation failed: %w", err)
	}
	return res, nil
}

// MarshalJSON renders the decimal as a JSON string so clients never see a
// float approximation.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON accepts both quoted and bare numbers.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) > 1 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if _, _, err := d.SetString(s); err != nil {
		return fmt.Errorf("invalid decimal %s: %w", s, err)
	}
	return nil
}
