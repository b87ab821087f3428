package allocation

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float32 | float64 | int | int32 | int64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	default:
		panic("unsupported type")
	}
}

// Percent is an allocation weight expressed in percent of the whole portfolio.
//
// It is exact: 0.1+0.2 is 0.3. It is persisted as a bare JSON number.
type Percent struct {
	value decimal.Decimal
}

// Limits of the percents accepted from the outside. They are far beyond any
// allocation, but keep a short input from expanding to millions of digits
// when printed.
const (
	maxPercentDigits   = 34
	maxPercentExponent = 32
	maxPercentJSON     = 128 // bytes
)

// ErrPercentOutOfRange is returned for a percent beyond the supported precision or magnitude.
var ErrPercentOutOfRange = errors.New("percent out of range")

// P returns the Percent for value.
func P[T float32 | float64 | int | int32 | int64 | decimal.Decimal](value T) Percent {
	return Percent{value: newDecimal(value)}
}

func (p Percent) Equal(q Percent) bool            { return p.value.Equal(q.value) }
func (p Percent) Add(q Percent) Percent           { return Percent{value: p.value.Add(q.value)} }
func (p Percent) Sub(q Percent) Percent           { return Percent{value: p.value.Sub(q.value)} }
func (p Percent) Mul(q Percent) Percent           { return Percent{value: p.value.Mul(q.value)} }
func (p Percent) LessThan(q Percent) bool         { return p.value.LessThan(q.value) }
func (p Percent) GreaterThan(q Percent) bool      { return p.value.GreaterThan(q.value) }
func (p Percent) IsNegative() bool                { return p.value.IsNegative() }
func (p Percent) IsZero() bool                    { return p.value.IsZero() }
func (p Percent) Decimal() decimal.Decimal        { return p.value }
func (p Percent) Float64() float64                { return p.value.InexactFloat64() }
func (p Percent) Round(places int32) Percent      { return Percent{value: p.value.Round(places)} }
func (p Percent) Between(low, high Percent) bool  { return !p.LessThan(low) && !p.GreaterThan(high) }
func (p Percent) StringFixed(places int32) string { return p.value.StringFixed(places) }

// CheckRange returns ErrPercentOutOfRange if p has more than 34 significant
// digits or an exponent beyond ±32.
func (p Percent) CheckRange() error {
	exp := p.value.Exponent()
	if exp > maxPercentExponent || exp < -maxPercentExponent || p.value.NumDigits() > maxPercentDigits {
		return ErrPercentOutOfRange
	}
	return nil
}

// Ratio returns p as a percentage of total.
func (p Percent) Ratio(total Percent) Percent {
	return Percent{value: p.value.Div(total.value).Shift(2)}
}

// Contribution returns the share of a change in percent that an allocation of p percent accounts for.
func (p Percent) Contribution(change Percent) Percent {
	return Percent{value: p.value.Mul(change.value).Shift(-2)}
}

// String returns the shortest exact representation, without the % sign.
func (p Percent) String() string { return p.value.String() }

// MarshalJSON writes the percent as a JSON number.
func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(p.value.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal, within CheckRange.
func (p *Percent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("percent cannot be null")
	}
	if len(data) > maxPercentJSON {
		return fmt.Errorf("%w: %d bytes", ErrPercentOutOfRange, len(data))
	}
	var v decimal.Decimal
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	q := Percent{value: v}
	if err := q.CheckRange(); err != nil {
		return err
	}
	*p = q
	return nil
}
