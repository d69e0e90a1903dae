package insurer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/elys-network/ilshield/internal/analyzer"
	"github.com/elys-network/ilshield/internal/datafetcher"
	"github.com/elys-network/ilshield/internal/engine"
	"github.com/elys-network/ilshield/internal/logger"
	"github.com/elys-network/ilshield/internal/state"
	"github.com/elys-network/ilshield/internal/types"
)

const (
	// Export constants for use in main.go
	DEFAULT_POLICY_CONFIG_NAME    = "default_coverage"
	DEFAULT_POLICY_CONFIG_VERSION = 1
)

// Insurer is the stateful host around the valuation engine. It persists
// policies, positions and pool snapshots, refreshes pool state and oracle
// prices from the chain, and assembles a fresh snapshot for every engine
// call. A single mutex serializes all access: the engine itself is pure and
// the ledger-style sequential model is enforced here.
type Insurer struct {
	// Core dependencies
	logger     zerolog.Logger
	engine     *engine.Engine
	grpcClient *grpc.ClientConn

	// Covered pool configuration
	poolID types.PoolID
	denomA string
	denomB string

	// Policy bookkeeping
	configName string

	// Cadence of the chain sync loop, also used to annualize history metrics
	syncInterval time.Duration

	// Runtime state guarded by mu
	mu     sync.Mutex
	pool   types.PoolState
	prices types.OraclePrices
	synced bool

	cycleCount int
}

// Config holds the configuration for creating a new Insurer instance
type Config struct {
	GRPCClient   *grpc.ClientConn
	Engine       *engine.Engine
	PoolID       types.PoolID
	DenomA       string
	DenomB       string
	ConfigName   string
	SyncInterval time.Duration
}

// New creates a new Insurer instance with dependency injection
func New(cfg Config) (*Insurer, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("insurer configuration validation failed: %w", err)
	}

	ins := &Insurer{
		logger:       logger.GetForComponent("insurer_core"),
		engine:       cfg.Engine,
		grpcClient:   cfg.GRPCClient,
		poolID:       cfg.PoolID,
		denomA:       cfg.DenomA,
		denomB:       cfg.DenomB,
		configName:   cfg.ConfigName,
		syncInterval: cfg.SyncInterval,
	}

	// Seed the in-memory snapshot from the last persisted observation so the
	// API can answer before the first chain sync completes. A cold start (no
	// rows yet) is expected; any other store failure is surfaced so a broken
	// database is not mistaken for one.
	snapshot, err := state.GetLatestPoolSnapshot(cfg.PoolID)
	switch {
	case err == nil:
		ins.pool = snapshot.Pool
		ins.prices = snapshot.Prices
		ins.synced = true
		ins.logger.Info().
			Int64("snapshot_id", snapshot.SnapshotID).
			Time("taken_at", snapshot.Timestamp).
			Msg("Seeded pool state from persisted snapshot")
	case errors.Is(err, sql.ErrNoRows):
		ins.logger.Info().Msg("No persisted pool snapshot yet; awaiting first chain sync")
	default:
		ins.logger.Warn().Err(err).Msg("Failed to load persisted pool snapshot; starting without a seed")
	}

	ins.logger.Info().
		Uint64("poolID", uint64(cfg.PoolID)).
		Str("configName", cfg.ConfigName).
		Msg("Insurer instance created successfully with dependency injection")

	return ins, nil
}

func validateConfig(cfg Config) error {
	if cfg.GRPCClient == nil {
		return fmt.Errorf("gRPC client cannot be nil")
	}
	if cfg.Engine == nil {
		return fmt.Errorf("engine cannot be nil")
	}
	if cfg.PoolID == 0 {
		return fmt.Errorf("pool ID must be positive")
	}
	if cfg.DenomA == "" || cfg.DenomB == "" {
		return fmt.Errorf("pair denoms cannot be empty")
	}
	if cfg.ConfigName == "" {
		return fmt.Errorf("config name cannot be empty")
	}
	if cfg.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	return nil
}

// InitializePolicy performs the one-time policy installation: validate,
// persist as the active version, then install in the engine. Persistence
// comes first so a storage failure leaves the transition unconsumed and the
// call retryable.
func (ins *Insurer) InitializePolicy(policy types.Policy) error {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	if ins.engine.Initialized() {
		return engine.ErrAlreadyInitialized
	}
	if err := engine.ValidatePolicy(policy); err != nil {
		return err
	}

	if _, err := state.SavePolicy(policy, ins.configName, DEFAULT_POLICY_CONFIG_VERSION, true); err != nil {
		return fmt.Errorf("failed to persist coverage policy: %w", err)
	}

	if err := ins.engine.Initialize(policy); err != nil {
		return err
	}

	ins.logger.Info().
		Uint64("threshold_bps", policy.ThresholdBps).
		Uint64("upper_cap_bps", policy.UpperCapBps).
		Uint64("payout_ratio_bps", policy.PayoutRatioBps).
		Msg("Coverage policy initialized")
	return nil
}

// UpdatePolicy replaces the active policy and persists it as a new version.
func (ins *Insurer) UpdatePolicy(policy types.Policy) error {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	if err := ins.engine.UpdatePolicy(policy); err != nil {
		return err
	}

	version, err := state.NextPolicyVersion(ins.configName)
	if err != nil {
		return fmt.Errorf("failed to determine next policy version: %w", err)
	}
	if _, err := state.SavePolicy(policy, ins.configName, version, true); err != nil {
		return fmt.Errorf("failed to persist coverage policy: %w", err)
	}

	ins.logger.Info().Int("version", version).Msg("Coverage policy updated")
	return nil
}

// Policy returns the active coverage policy.
func (ins *Insurer) Policy() (types.Policy, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return ins.engine.Policy()
}

// Initialized reports whether the coverage policy has been installed.
func (ins *Insurer) Initialized() bool {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return ins.engine.Initialized()
}

// SetPoolState manually overrides the cached pool state and persists the
// observation. Used by operators when the chain feed is unavailable.
func (ins *Insurer) SetPoolState(pool types.PoolState) error {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	pool.PoolID = ins.poolID
	ins.pool = pool
	ins.synced = true
	return ins.persistSnapshotLocked()
}

// SetPrices manually overrides the cached oracle prices and persists the
// observation.
func (ins *Insurer) SetPrices(prices types.OraclePrices) error {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	ins.prices = prices
	ins.synced = true
	return ins.persistSnapshotLocked()
}

// PoolState returns the cached pool state and prices.
func (ins *Insurer) PoolState() (types.PoolState, types.OraclePrices, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	if !ins.synced {
		return types.PoolState{}, types.OraclePrices{}, fmt.Errorf("no pool snapshot available yet for pool %d", ins.poolID)
	}
	return ins.pool, ins.prices, nil
}

// UpsertPosition registers or updates an insured position.
func (ins *Insurer) UpsertPosition(position types.UserPosition) error {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return state.UpsertPosition(position)
}

// GetPosition returns the insured position for an address.
func (ins *Insurer) GetPosition(address string) (*types.UserPosition, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return state.GetPosition(address)
}

// GetValuation computes the full valuation for an address against the
// current snapshot.
func (ins *Insurer) GetValuation(address string) (types.Valuation, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	snapshot, err := ins.snapshotForLocked(address)
	if err != nil {
		return types.Valuation{}, err
	}
	return ins.engine.ComputeValuation(snapshot)
}

// GetIL computes the impermanent-loss fraction for an address.
func (ins *Insurer) GetIL(address string) (types.Valuation, string, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	snapshot, err := ins.snapshotForLocked(address)
	if err != nil {
		return types.Valuation{}, "", err
	}
	valuation, err := ins.engine.ComputeValuation(snapshot)
	if err != nil {
		return types.Valuation{}, "", err
	}
	ilFraction, err := ins.engine.ComputeIL(snapshot)
	if err != nil {
		return types.Valuation{}, "", err
	}
	return valuation, ilFraction.String(), nil
}

// GetPayout computes the payout an address would receive if it claimed now.
func (ins *Insurer) GetPayout(address string) (string, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	snapshot, err := ins.snapshotForLocked(address)
	if err != nil {
		return "", err
	}
	payout, err := ins.engine.ComputePayout(snapshot)
	if err != nil {
		return "", err
	}
	return payout.String(), nil
}

// ProcessClaim settles a claim for an address: the payout is recomputed from
// the current snapshot and a receipt is persisted. The computation itself is
// idempotent; the receipt trail is what records that a settlement happened.
func (ins *Insurer) ProcessClaim(address string) (*types.ClaimReceipt, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	snapshot, err := ins.snapshotForLocked(address)
	if err != nil {
		return nil, err
	}

	valuation, err := ins.engine.ComputeValuation(snapshot)
	if err != nil {
		return nil, err
	}
	ilFraction, err := ins.engine.ComputeIL(snapshot)
	if err != nil {
		return nil, err
	}
	payout, err := ins.engine.Claim(snapshot)
	if err != nil {
		return nil, err
	}

	receipt := types.ClaimReceipt{
		Address:      address,
		PoolID:       ins.poolID,
		ILFraction:   ilFraction,
		HoldingValue: valuation.HoldingValue,
		Payout:       payout,
		SettledAt:    time.Now(),
	}

	receiptID, err := state.SaveClaimReceipt(receipt)
	if err != nil {
		return nil, fmt.Errorf("claim computed but receipt not persisted: %w", err)
	}
	receipt.ReceiptID = receiptID

	ins.logger.Info().
		Str("address", address).
		Str("il_fraction", ilFraction.String()).
		Str("payout", payout.String()).
		Int64("receipt_id", receiptID).
		Msg("Claim settled")

	return &receipt, nil
}

// PositionHistory replays the persisted pool snapshots against the insured
// position, returning the IL time series and the annualized volatility of the
// pool's price ratio over that window.
func (ins *Insurer) PositionHistory(address string, limit int) ([]analyzer.HistoryPoint, float64, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	position, err := state.GetPosition(address)
	if err != nil {
		return nil, 0, err
	}

	snapshots, err := state.GetRecentPoolSnapshots(ins.poolID, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load pool snapshots: %w", err)
	}

	points, err := analyzer.BuildILHistory(snapshots, *position)
	if err != nil {
		return nil, 0, err
	}

	// Snapshots are taken on the sync interval; annualize accordingly.
	periodsPerYear := float64(365*24*time.Hour) / float64(ins.syncInterval)
	volatility, err := analyzer.CalculateRatioVolatility(points, periodsPerYear)
	if err != nil {
		if errors.Is(err, analyzer.ErrInsufficientData) {
			return points, 0, nil
		}
		return nil, 0, err
	}

	return points, volatility, nil
}

// snapshotForLocked assembles the engine input for an address from the cached
// pool observation and the persisted position. Caller must hold mu.
func (ins *Insurer) snapshotForLocked(address string) (types.Snapshot, error) {
	if !ins.engine.Initialized() {
		return types.Snapshot{}, engine.ErrNotInitialized
	}
	if !ins.synced {
		return types.Snapshot{}, fmt.Errorf("no pool snapshot available yet for pool %d", ins.poolID)
	}

	position, err := state.GetPosition(address)
	if err != nil {
		return types.Snapshot{}, err
	}

	return types.Snapshot{
		Pool:     ins.pool,
		Prices:   ins.prices,
		Position: *position,
	}, nil
}

// persistSnapshotLocked writes the cached observation to the snapshot store.
// Caller must hold mu.
func (ins *Insurer) persistSnapshotLocked() error {
	if _, err := state.SavePoolSnapshot(types.PoolSnapshot{
		Pool:      ins.pool,
		Prices:    ins.prices,
		Timestamp: time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to persist pool snapshot: %w", err)
	}
	return nil
}

// SyncFromChain refreshes the cached pool state and oracle prices from the
// chain and persists the observation.
func (ins *Insurer) SyncFromChain(ctx context.Context) error {
	tokenMap, err := datafetcher.GetPairTokens(ins.grpcClient, ins.denomA, ins.denomB)
	if err != nil {
		return fmt.Errorf("token pair fetch failed: %w", err)
	}

	pool, err := datafetcher.GetPoolState(ins.grpcClient, ins.poolID, ins.denomA, ins.denomB, tokenMap)
	if err != nil {
		return fmt.Errorf("pool state fetch failed: %w", err)
	}

	prices := types.OraclePrices{
		PriceA: tokenMap[ins.denomA].PriceUSD,
		PriceB: tokenMap[ins.denomB].PriceUSD,
	}

	ins.mu.Lock()
	defer ins.mu.Unlock()

	ins.pool = *pool
	ins.prices = prices
	ins.synced = true

	return ins.persistSnapshotLocked()
}

// RunLoop starts the periodic chain sync at the configured interval
func (ins *Insurer) RunLoop(ctx context.Context) {
	ins.logger.Info().
		Dur("interval", ins.syncInterval).
		Msg("Starting insurer sync loop")

	ticker := time.NewTicker(ins.syncInterval)
	defer ticker.Stop()

	// Run first cycle immediately
	ins.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			ins.logger.Info().Msg("Insurer loop stopped due to context cancellation")
			return
		case <-ticker.C:
			ins.runCycle(ctx)
		}
	}
}

func (ins *Insurer) runCycle(ctx context.Context) {
	ins.cycleCount++
	cycleLogger := ins.logger.With().Int("cycle", ins.cycleCount).Logger()
	cycleStartTime := time.Now()

	cycleLogger.Info().Msg("Initiating sync cycle")

	if err := ins.SyncFromChain(ctx); err != nil {
		cycleLogger.Error().Err(err).Msg("Sync cycle failed; keeping previous snapshot")
		return
	}

	cycleLogger.Info().
		Dur("duration", time.Since(cycleStartTime)).
		Msg("Sync cycle completed")
}
