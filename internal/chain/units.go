package chain

import (
	"fmt"
	"math/big"
	"strings"
)

// tokenDecimals is the fixed-point scale of the collateral token.
const tokenDecimals = 18

var unitScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(tokenDecimals), nil)

// ParseUnits18 converts a human-readable decimal string into an 18-decimal
// base-unit integer. Digits beyond the 18th decimal place are truncated,
// never rounded up, so the conversion is deterministic and a caller can never
// be charged more than they typed. Negative amounts are rejected.
func ParseUnits18(amount string) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, fmt.Errorf("chain: empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("chain: negative amount %q", amount)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}

	// Truncate the fractional part at the token's precision.
	if len(frac) > tokenDecimals {
		frac = frac[:tokenDecimals]
	}
	frac += strings.Repeat("0", tokenDecimals-len(frac))

	wholeInt, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, fmt.Errorf("chain: invalid amount %q", amount)
	}
	fracInt, ok := new(big.Int).SetString(frac, 10)
	if !ok {
		return nil, fmt.Errorf("chain: invalid amount %q", amount)
	}

	result := new(big.Int).Mul(wholeInt, unitScale)
	return result.Add(result, fracInt), nil
}

// FormatUnits18 renders a base-unit integer as a decimal string, trimming
// trailing zeros from the fractional part.
func FormatUnits18(units *big.Int) string {
	if units == nil {
		return "0"
	}

	neg := units.Sign() < 0
	abs := new(big.Int).Abs(units)

	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(abs, unitScale, frac)

	out := whole.String()
	if frac.Sign() > 0 {
		fracStr := fmt.Sprintf("%018s", frac.String())
		fracStr = strings.TrimRight(fracStr, "0")
		out += "." + fracStr
	}
	if neg {
		out = "-" + out
	}
	return out
}
