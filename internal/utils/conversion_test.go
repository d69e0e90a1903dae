package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAmount(t *testing.T) {
	cases := []struct {
		name      string
		amount    sdkmath.Int
		precision int
		expected  sdkmath.Int
	}{
		{name: "six decimals", amount: sdkmath.NewInt(1_500_000), precision: 6, expected: sdkmath.NewIntWithDecimal(15, 17)},
		{name: "already eighteen decimals", amount: sdkmath.NewIntWithDecimal(3, 18), precision: 18, expected: sdkmath.NewIntWithDecimal(3, 18)},
		{name: "zero decimals", amount: sdkmath.NewInt(7), precision: 0, expected: sdkmath.NewIntWithDecimal(7, 18)},
		{name: "zero amount", amount: sdkmath.ZeroInt(), precision: 6, expected: sdkmath.ZeroInt()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := NormalizeAmount(tc.amount, tc.precision)
			require.NoError(t, err)
			require.Equal(t, tc.expected, result)
		})
	}
}

func TestNormalizeAmountRejects(t *testing.T) {
	_, err := NormalizeAmount(sdkmath.NewInt(1), 19)
	require.ErrorIs(t, err, ErrInvalidPrecision)

	_, err = NormalizeAmount(sdkmath.NewInt(1), -1)
	require.ErrorIs(t, err, ErrInvalidPrecision)

	_, err = NormalizeAmount(sdkmath.NewInt(-5), 6)
	require.ErrorIs(t, err, ErrAmountNegative)

	var nilInt sdkmath.Int
	_, err = NormalizeAmount(nilInt, 6)
	require.ErrorIs(t, err, ErrAmountNil)
}

func TestPriceToScaled(t *testing.T) {
	price := sdkmath.LegacyMustNewDecFromStr("2000.5")
	result, err := PriceToScaled(price)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewIntWithDecimal(20005, 14), result)

	zero, err := PriceToScaled(sdkmath.LegacyZeroDec())
	require.NoError(t, err)
	require.True(t, zero.IsZero())

	_, err = PriceToScaled(sdkmath.LegacyMustNewDecFromStr("-1"))
	require.ErrorIs(t, err, ErrPriceNegative)
}

func TestScaledToFloat64(t *testing.T) {
	result, err := ScaledToFloat64(sdkmath.NewIntWithDecimal(25, 17))
	require.NoError(t, err)
	require.InDelta(t, 2.5, result, 1e-12)

	_, err = ScaledToFloat64(sdkmath.NewInt(-1))
	require.ErrorIs(t, err, ErrAmountNegative)
}
