package engine

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestILFractionTable(t *testing.T) {
	cases := []struct {
		name     string
		lpValue  sdkmath.Int
		holding  sdkmath.Int
		expected sdkmath.Int
	}{
		{name: "no deposit", lpValue: scaled(100), holding: sdkmath.ZeroInt(), expected: sdkmath.ZeroInt()},
		{name: "break even", lpValue: scaled(4000), holding: scaled(4000), expected: sdkmath.ZeroInt()},
		{name: "gain", lpValue: scaled(5000), holding: scaled(4000), expected: sdkmath.ZeroInt()},
		{name: "fifty percent loss", lpValue: scaled(2000), holding: scaled(4000), expected: Scale.QuoRaw(2)},
		{name: "quarter loss", lpValue: scaled(3000), holding: scaled(4000), expected: Scale.QuoRaw(4)},
		{name: "total loss", lpValue: sdkmath.ZeroInt(), holding: scaled(4000), expected: Scale},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ILFraction(tc.lpValue, tc.holding)
			require.NoError(t, err)
			require.Equal(t, tc.expected, result)
		})
	}
}

func TestILFractionMonotonicInLpValue(t *testing.T) {
	holding := scaled(4000)
	previous := Scale.AddRaw(1)

	// For fixed holding value the fraction must strictly decrease as the
	// position value recovers, hitting Scale only at lpValue = 0.
	for _, lp := range []int64{0, 1, 500, 1000, 2000, 3000, 3999} {
		result, err := ILFraction(scaled(lp), holding)
		require.NoError(t, err)
		require.True(t, result.LT(previous), "ilFraction must strictly decrease as lpValue grows (lp=%d)", lp)
		previous = result
	}

	atZero, err := ILFraction(sdkmath.ZeroInt(), holding)
	require.NoError(t, err)
	require.Equal(t, Scale, atZero)

	nearZero, err := ILFraction(sdkmath.NewInt(1), holding)
	require.NoError(t, err)
	require.True(t, nearZero.LT(Scale), "any nonzero lpValue must be below 100% IL")
}

func TestILFractionRejectsBadInputs(t *testing.T) {
	var nilInt sdkmath.Int

	_, err := ILFraction(nilInt, scaled(1))
	require.ErrorIs(t, err, ErrOperandNil)

	_, err = ILFraction(sdkmath.NewInt(-1), scaled(1))
	require.ErrorIs(t, err, ErrNegative)
}
