package money

import (
	"math/big"

	"custody/internal/constant"
	"custody/internal/errs"

	"github.com/shopspring/decimal"
)

// All ledger arithmetic happens in wei (*big.Int). Decimal strings exist only
// at the request/response boundary and in persisted rows; parsing back must
// be exact, so floats are never involved.

var weiPerEther = decimal.New(1, constant.EtherDecimals)

// ParseEther converts a display amount such as "1.5" into wei.
func ParseEther(amount string) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidInput, "invalid amount", err)
	}
	if d.IsNegative() {
		return nil, errs.New(errs.KindInvalidInput, "amount must not be negative")
	}
	wei := d.Mul(weiPerEther)
	if wei.Exponent() < 0 && !wei.Equal(wei.Truncate(0)) {
		return nil, errs.New(errs.KindInvalidInput, "amount has more than 18 decimal places")
	}
	return wei.BigInt(), nil
}

// FormatEther converts wei into a display decimal string ("490000000000000000" -> "0.49").
// The exponent shift is exact; Div would round past 16 decimal places.
func FormatEther(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -constant.EtherDecimals).String()
}

// ParseWei reads a persisted base-unit decimal string back into a big.Int.
func ParseWei(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errs.Newf(errs.KindInvalidInput, "malformed wei value %q", s)
	}
	return v, nil
}

// GweiToWei scales a gwei constant into wei.
func GweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(1e9))
}
