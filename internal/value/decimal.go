package value

import (
	"math"
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/pkg/errors"
)

// DecimalFromInt64 returns the exact decimal for i.
func DecimalFromInt64(i int64) Decimal {
	return Decimal{D: apd.New(i, 0)}
}

// DecimalFromUint64 returns the exact decimal for u.
func DecimalFromUint64(u uint64) Decimal {
	var d apd.Decimal
	d.Coeff.SetUint64(u)
	return Decimal{D: &d}
}

// ParseDecimal parses a decimal literal, keeping every digit given,
// including trailing zeros after the decimal point.
func ParseDecimal(s string) (Decimal, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Decimal{}, errors.Wrapf(err, "parse decimal %q", s)
	}
	return Decimal{D: d}, nil
}

// DecimalFromFloat64 returns the exact value of the binary floating point
// number f, written out in full. 0.1 becomes
// 0.1000000000000000055511151231257827021181583404541015625, not 0.1.
// NaN and the infinities map to the matching special decimal forms.
func DecimalFromFloat64(f float64) Decimal {
	switch {
	case math.IsNaN(f):
		return Decimal{D: &apd.Decimal{Form: apd.NaN}}
	case math.IsInf(f, 0):
		return Decimal{D: &apd.Decimal{Form: apd.Infinite, Negative: f < 0}}
	}
	r := new(big.Rat).SetFloat64(f)
	// the denominator of a finite binary float is 2^k, which needs exactly k
	// decimal places
	places := r.Denom().BitLen() - 1
	d, _, err := apd.NewFromString(r.FloatString(places))
	if err != nil {
		// FloatString always yields a valid literal
		panic(err)
	}
	return Decimal{D: d}
}

// String renders d as plain decimal digits without an exponent.
func (d Decimal) String() string {
	if d.D == nil {
		return "0"
	}
	return d.D.Text('f')
}
