package engine

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/ilshield/internal/types"
)

func TestEngineLifecycle(t *testing.T) {
	e := New()
	snapshot := referenceSnapshot()

	require.False(t, e.Initialized())

	_, err := e.ComputeUserShare(snapshot)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = e.ComputeLpValue(snapshot)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = e.ComputeHoldingValue(snapshot)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = e.ComputeIL(snapshot)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = e.ComputePayout(snapshot)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = e.Claim(snapshot)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = e.Policy()
	require.ErrorIs(t, err, ErrNotInitialized)
	err = e.UpdatePolicy(referencePolicy())
	require.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, e.Initialize(referencePolicy()))
	require.True(t, e.Initialized())

	policy, err := e.Policy()
	require.NoError(t, err)
	require.Equal(t, referencePolicy(), policy)

	err = e.Initialize(referencePolicy())
	require.ErrorIs(t, err, ErrAlreadyInitialized, "initialization is a one-time transition")
}

func TestInitializeRejectsInvalidPolicy(t *testing.T) {
	cases := []struct {
		name   string
		policy types.Policy
	}{
		{name: "threshold above 100%", policy: types.Policy{ThresholdBps: 10001, UpperCapBps: 10001, PayoutRatioBps: 8000}},
		{name: "cap above 100%", policy: types.Policy{ThresholdBps: 1000, UpperCapBps: 10001, PayoutRatioBps: 8000}},
		{name: "ratio above 100%", policy: types.Policy{ThresholdBps: 1000, UpperCapBps: 2000, PayoutRatioBps: 10001}},
		{name: "threshold above cap", policy: types.Policy{ThresholdBps: 2000, UpperCapBps: 1000, PayoutRatioBps: 8000}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := New()
			err := e.Initialize(tc.policy)
			require.ErrorIs(t, err, ErrInvalidPolicy)
			require.False(t, e.Initialized(), "a rejected policy must not initialize the engine")
		})
	}
}

func TestUpdatePolicyValidatesAndReplaces(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize(referencePolicy()))

	err := e.UpdatePolicy(types.Policy{ThresholdBps: 3000, UpperCapBps: 2000, PayoutRatioBps: 8000})
	require.ErrorIs(t, err, ErrInvalidPolicy)

	updated := types.Policy{ThresholdBps: 500, UpperCapBps: 3000, PayoutRatioBps: 9000}
	require.NoError(t, e.UpdatePolicy(updated))

	policy, err := e.Policy()
	require.NoError(t, err)
	require.Equal(t, updated, policy)
}

func TestReferenceScenarioPayout(t *testing.T) {
	// 50% IL, 10% threshold, 20% cap, 80% ratio:
	// coveredFraction = min(50%, 20%) - 10% = 10%
	// lossAmount      = $4000 * 10% = $400
	// payout          = $400 * 80% = $320
	e := New()
	require.NoError(t, e.Initialize(referencePolicy()))
	snapshot := referenceSnapshot()

	ilFraction, err := e.ComputeIL(snapshot)
	require.NoError(t, err)
	require.Equal(t, Scale.QuoRaw(2), ilFraction)

	payout, err := e.ComputePayout(snapshot)
	require.NoError(t, err)
	require.Equal(t, scaled(320), payout)

	settled, err := e.Claim(snapshot)
	require.NoError(t, err)
	require.Equal(t, payout, settled)
}

func TestPayoutAtThresholdIsZero(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize(referencePolicy()))

	threshold, err := BpsToFraction(referencePolicy().ThresholdBps)
	require.NoError(t, err)

	// The threshold test is strictly greater-than: an IL exactly at the
	// threshold pays nothing.
	payout, err := e.Payout(threshold, scaled(4000))
	require.NoError(t, err)
	require.True(t, payout.IsZero())

	payout, err = e.Payout(threshold.AddRaw(1), scaled(4000))
	require.NoError(t, err)
	require.False(t, payout.IsZero(), "one unit above the threshold must produce a payout")
}

func TestPayoutBelowThresholdIsZero(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize(referencePolicy()))

	fivePercent, err := BpsToFraction(500)
	require.NoError(t, err)

	payout, err := e.Payout(fivePercent, scaled(4000))
	require.NoError(t, err)
	require.True(t, payout.IsZero())
}

func TestPayoutCapPlateau(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize(referencePolicy()))
	holding := scaled(4000)

	atCap, err := BpsToFraction(referencePolicy().UpperCapBps)
	require.NoError(t, err)

	payoutAtCap, err := e.Payout(atCap, holding)
	require.NoError(t, err)

	// Everything above the cap is constant.
	for _, bps := range []uint64{2001, 5000, 10000} {
		ilFraction, err := BpsToFraction(bps)
		require.NoError(t, err)
		payout, err := e.Payout(ilFraction, holding)
		require.NoError(t, err)
		require.Equal(t, payoutAtCap, payout, "payout must plateau at the cap (il=%d bps)", bps)
	}
}

func TestPayoutMonotonicWithinBand(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize(referencePolicy()))
	holding := scaled(4000)

	previous := sdkmath.NewInt(-1)
	for _, bps := range []uint64{1001, 1100, 1250, 1500, 1750, 1999, 2000} {
		ilFraction, err := BpsToFraction(bps)
		require.NoError(t, err)
		payout, err := e.Payout(ilFraction, holding)
		require.NoError(t, err)
		require.True(t, payout.GT(previous), "payout must grow through (threshold, cap] (il=%d bps)", bps)
		previous = payout
	}
}

func TestPayoutZeroHoldingValue(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize(referencePolicy()))

	snapshot := referenceSnapshot()
	snapshot.Position.OriginalA = sdkmath.ZeroInt()
	snapshot.Position.OriginalB = sdkmath.ZeroInt()

	ilFraction, err := e.ComputeIL(snapshot)
	require.NoError(t, err)
	require.True(t, ilFraction.IsZero())

	payout, err := e.ComputePayout(snapshot)
	require.NoError(t, err)
	require.True(t, payout.IsZero())
}

func TestPayoutZeroWidthBand(t *testing.T) {
	// threshold == cap is a valid policy; the band has no width so nothing
	// is ever covered.
	e := New()
	require.NoError(t, e.Initialize(types.Policy{ThresholdBps: 1500, UpperCapBps: 1500, PayoutRatioBps: 8000}))

	ilFraction, err := BpsToFraction(5000)
	require.NoError(t, err)

	payout, err := e.Payout(ilFraction, scaled(4000))
	require.NoError(t, err)
	require.True(t, payout.IsZero())
}

func TestComputePayoutIdempotent(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize(referencePolicy()))
	snapshot := referenceSnapshot()

	first, err := e.ComputePayout(snapshot)
	require.NoError(t, err)
	second, err := e.ComputePayout(snapshot)
	require.NoError(t, err)
	third, err := e.Claim(snapshot)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, first, third)
}

func TestFullCoveragePolicy(t *testing.T) {
	// 0% threshold, 100% cap, 100% ratio pays the whole loss.
	e := New()
	require.NoError(t, e.Initialize(types.Policy{ThresholdBps: 0, UpperCapBps: 10000, PayoutRatioBps: 10000}))
	snapshot := referenceSnapshot()

	payout, err := e.ComputePayout(snapshot)
	require.NoError(t, err)
	// 50% of the $4000 holding value.
	require.Equal(t, scaled(2000), payout)
}
