/*

This file contains the policy manager: the banded payout formula and the
one-time initialization state machine gating every computation. The engine
holds no state beyond the active policy and the initialized flag; the host
injects a fresh snapshot per call and serializes concurrent access.

*/

package engine

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/ilshield/internal/types"
)

var (
	ErrNotInitialized     = errors.New("engine not initialized")
	ErrAlreadyInitialized = errors.New("engine already initialized")
	ErrInvalidPolicy      = errors.New("invalid policy")
)

// Engine applies the banded coverage policy to position snapshots. A zero
// Engine is uninitialized; every compute operation fails with
// ErrNotInitialized until Initialize has been called exactly once.
type Engine struct {
	policy      types.Policy
	initialized bool
}

func New() *Engine {
	return &Engine{}
}

// ValidatePolicy checks that all three parameters are within [0, 10000] bps
// and that the threshold does not exceed the cap. Invalid policies are
// rejected at initialization rather than silently producing zero coverage.
func ValidatePolicy(policy types.Policy) error {
	if policy.ThresholdBps > BpsDenominator {
		return fmt.Errorf("%w: threshold %d bps exceeds %d", ErrInvalidPolicy, policy.ThresholdBps, BpsDenominator)
	}
	if policy.UpperCapBps > BpsDenominator {
		return fmt.Errorf("%w: upper cap %d bps exceeds %d", ErrInvalidPolicy, policy.UpperCapBps, BpsDenominator)
	}
	if policy.PayoutRatioBps > BpsDenominator {
		return fmt.Errorf("%w: payout ratio %d bps exceeds %d", ErrInvalidPolicy, policy.PayoutRatioBps, BpsDenominator)
	}
	if policy.ThresholdBps > policy.UpperCapBps {
		return fmt.Errorf("%w: threshold %d bps exceeds upper cap %d bps", ErrInvalidPolicy, policy.ThresholdBps, policy.UpperCapBps)
	}
	return nil
}

// Initialize installs the coverage policy. It is a one-time transition:
// a second call fails with ErrAlreadyInitialized and never overwrites the
// active policy.
func (e *Engine) Initialize(policy types.Policy) error {
	if e.initialized {
		return ErrAlreadyInitialized
	}
	if err := ValidatePolicy(policy); err != nil {
		return err
	}
	e.policy = policy
	e.initialized = true
	return nil
}

// UpdatePolicy replaces the active policy after initialization, with the same
// validation Initialize applies.
func (e *Engine) UpdatePolicy(policy types.Policy) error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if err := ValidatePolicy(policy); err != nil {
		return err
	}
	e.policy = policy
	return nil
}

// Initialized reports whether the one-time policy installation has happened.
func (e *Engine) Initialized() bool {
	return e.initialized
}

// Policy returns the active coverage policy.
func (e *Engine) Policy() (types.Policy, error) {
	if !e.initialized {
		return types.Policy{}, ErrNotInitialized
	}
	return e.policy, nil
}

// ComputeUserShare returns the position's pool ownership fraction for the
// given snapshot.
func (e *Engine) ComputeUserShare(snapshot types.Snapshot) (sdkmath.Int, error) {
	if !e.initialized {
		return sdkmath.ZeroInt(), ErrNotInitialized
	}
	return UserShare(snapshot.Pool, snapshot.Position)
}

// ComputeLpValue returns the current USD value of the position.
func (e *Engine) ComputeLpValue(snapshot types.Snapshot) (sdkmath.Int, error) {
	if !e.initialized {
		return sdkmath.ZeroInt(), ErrNotInitialized
	}
	return LpValue(snapshot.Pool, snapshot.Prices, snapshot.Position)
}

// ComputeHoldingValue returns the USD value of the original deposit at the
// snapshot's prices.
func (e *Engine) ComputeHoldingValue(snapshot types.Snapshot) (sdkmath.Int, error) {
	if !e.initialized {
		return sdkmath.ZeroInt(), ErrNotInitialized
	}
	return HoldingValue(snapshot.Prices, snapshot.Position)
}

// ComputeValuation returns the full valuation for the snapshot.
func (e *Engine) ComputeValuation(snapshot types.Snapshot) (types.Valuation, error) {
	if !e.initialized {
		return types.Valuation{}, ErrNotInitialized
	}
	return Value(snapshot.Pool, snapshot.Prices, snapshot.Position)
}

// ComputeIL returns the impermanent-loss fraction for the snapshot, scaled by
// 1e18.
func (e *Engine) ComputeIL(snapshot types.Snapshot) (sdkmath.Int, error) {
	if !e.initialized {
		return sdkmath.ZeroInt(), ErrNotInitialized
	}
	valuation, err := Value(snapshot.Pool, snapshot.Prices, snapshot.Position)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return ILFraction(valuation.LpValue, valuation.HoldingValue)
}

// ComputePayout runs the full pipeline for the snapshot and applies the
// banded coverage formula. Repeated calls over the same snapshot return the
// same amount; nothing is mutated.
func (e *Engine) ComputePayout(snapshot types.Snapshot) (sdkmath.Int, error) {
	if !e.initialized {
		return sdkmath.ZeroInt(), ErrNotInitialized
	}
	valuation, err := Value(snapshot.Pool, snapshot.Prices, snapshot.Position)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	ilFraction, err := ILFraction(valuation.LpValue, valuation.HoldingValue)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return e.Payout(ilFraction, valuation.HoldingValue)
}

// Claim settles the claim for the snapshot. Settlement is a pure
// recomputation: it does not transition engine state, so re-claiming against
// the same snapshot yields the same amount. Per-user claim bookkeeping
// belongs to the host holding persistent records.
func (e *Engine) Claim(snapshot types.Snapshot) (sdkmath.Int, error) {
	return e.ComputePayout(snapshot)
}

// Payout applies the banding formula to an already-computed IL fraction and
// holding value:
//
//	cappedIl        = min(ilFraction, cap)
//	coveredFraction = cappedIl - threshold   (only when cappedIl > threshold)
//	payout          = holdingValue * coveredFraction * ratio
//
// Losses at or below the threshold pay nothing; the threshold test is
// strictly greater-than. All divisions truncate, biasing payouts downward.
func (e *Engine) Payout(ilFraction, holdingValue sdkmath.Int) (sdkmath.Int, error) {
	if !e.initialized {
		return sdkmath.ZeroInt(), ErrNotInitialized
	}
	if ilFraction.IsNil() || holdingValue.IsNil() {
		return sdkmath.ZeroInt(), ErrOperandNil
	}

	threshold, err := BpsToFraction(e.policy.ThresholdBps)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	upperCap, err := BpsToFraction(e.policy.UpperCapBps)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	ratio, err := BpsToFraction(e.policy.PayoutRatioBps)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	cappedIl := ilFraction
	if cappedIl.GT(upperCap) {
		cappedIl = upperCap
	}
	if cappedIl.LTE(threshold) {
		return sdkmath.ZeroInt(), nil
	}

	coveredFraction := cappedIl.Sub(threshold)
	if coveredFraction.IsNegative() {
		// Unreachable for a validated policy; clamp to zero coverage anyway.
		return sdkmath.ZeroInt(), nil
	}

	lossAmount, err := MulDiv(holdingValue, coveredFraction, Scale)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return MulDiv(lossAmount, ratio, Scale)
}
