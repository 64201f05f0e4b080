package core

import (
	"bytes"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountCents bounds a single parsed amount ($100 billion). Anything
// larger is treated as unparseable.
const MaxAmountCents = int64(1e13)

var maxCents = decimal.NewFromInt(MaxAmountCents)

type (
	// Money is a signed amount in cents.
	Money struct {
		Cents int64
	}

	// NullMoney is a Money that may be missing.
	NullMoney struct {
		Money Money
		Valid bool
	}
)

// Cents builds a Money from a cent count.
func Cents(c int64) Money { return Money{Cents: c} }

// ParseMoney converts currency text into cents.
//
// It accepts an optional sign, a leading "$", thousands separators and
// accounting-style parentheses for negatives. Fractions beyond the cent are
// rounded half away from zero. Amounts beyond MaxAmountCents are rejected.
//
//	ParseMoney("1,234.5")  -> 123450
//	ParseMoney("($12.345)") -> -1235
func ParseMoney(s string) (Money, error) {
	d, err := parseDecimalText(s)
	if err != nil {
		return Money{}, err
	}
	c := d.Shift(2).Round(0)
	if c.Abs().GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: c.IntPart()}, nil
}

// ParseQuantity parses a plain decimal cell (gallons, rates). Unparseable
// text yields an invalid NullDecimal.
func ParseQuantity(s string) decimal.NullDecimal {
	d, err := parseDecimalText(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func parseDecimalText(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	// "$-12" is seen in some exports
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = s[1:]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "eE+-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// Add saturates at ±math.MaxInt64 instead of wrapping.
func (m Money) Add(o Money) Money {
	switch {
	case o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents:
		return Money{Cents: math.MaxInt64}
	case o.Cents < 0 && m.Cents < -math.MaxInt64-o.Cents:
		return Money{Cents: -math.MaxInt64}
	}
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Neg() Money {
	if m.Cents == math.MinInt64 {
		return Money{Cents: math.MaxInt64}
	}
	return Money{Cents: -m.Cents}
}

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

// Sign returns -1, 0 or +1.
func (m Money) Sign() int {
	switch {
	case m.Cents > 0:
		return 1
	case m.Cents < 0:
		return -1
	}
	return 0
}

func (m Money) IsZero() bool { return m.Cents == 0 }

// Decimal returns the amount in dollars as an exact decimal.
func (m Money) Decimal() decimal.Decimal { return decimal.New(m.Cents, -2) }

// Dollars returns the amount as a float, for chart coordinates only.
func (m Money) Dollars() float64 { return m.Decimal().InexactFloat64() }

// DivRound divides by n, rounding half away from zero. n <= 0 yields zero.
func (m Money) DivRound(n int64) Money {
	if n <= 0 {
		return Money{}
	}
	q := decimal.NewFromInt(m.Cents).Div(decimal.NewFromInt(n)).Round(0)
	return Money{Cents: q.IntPart()}
}

// String renders the amount with two decimals and no currency symbol.
func (m Money) String() string { return m.Decimal().StringFixed(2) }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return err
	}
	m.Cents = d.Shift(2).Round(0).IntPart()
	return nil
}

// SomeMoney wraps a present amount.
func SomeMoney(m Money) NullMoney { return NullMoney{Money: m, Valid: true} }

// OrZero returns the amount, or zero when missing.
func (n NullMoney) OrZero() Money {
	if !n.Valid {
		return Money{}
	}
	return n.Money
}

func (n NullMoney) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return n.Money.MarshalJSON()
}

func (n *NullMoney) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullMoney{}
		return nil
	}
	if err := n.Money.UnmarshalJSON(b); err != nil {
		return err
	}
	n.Valid = true
	return nil
}
