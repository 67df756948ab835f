package service

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func units(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad units literal: " + s)
	}
	return v
}

func TestPricePercentages(t *testing.T) {
	cases := []struct {
		name    string
		yes, no *big.Int
		wantYes float64
		wantNo  float64
	}{
		{"three quarters", units("750000000000000000"), units("250000000000000000"), 75, 25},
		{"even", units("500000000000000000"), units("500000000000000000"), 50, 50},
		{"all yes", units("1000000000000000000"), units("0"), 100, 0},
		{"zero mass", units("0"), units("0"), 50, 50},
		{"nil pair", nil, nil, 50, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			yes, no := PricePercentages(tc.yes, tc.no)
			require.InDelta(t, tc.wantYes, yes, 0.0001)
			require.InDelta(t, tc.wantNo, no, 0.0001)
		})
	}
}

func TestPricePercentagesSumTo100(t *testing.T) {
	pairs := [][2]*big.Int{
		{units("333333333333333333"), units("666666666666666667")},
		{units("1"), units("2")},
		{units("999999999999999999"), units("1")},
	}
	for _, p := range pairs {
		yes, no := PricePercentages(p[0], p[1])
		require.InDelta(t, 100, yes+no, 1e-9)
	}
}
