/**
 * @description
 * The staking reward engine classifies stakes into tiers, accrues time-linear
 * rewards against an admin-funded rewards pool, and derives governance voting
 * weight from active stakes.
 *
 * @notes
 * - Accrual: rewards = amount * effectiveRate * secondsSinceLastClaim / 1e18,
 *   effectiveRate = baseRate * tierMultiplier/10000 * (10000+durationBonus)/10000.
 *   The duration bonus is the single highest applicable threshold, never a sum.
 * - Stake mutations (increase/extend) force-claim pending rewards first so a
 *   rate or tier change never applies retroactively to already-accrued time.
 * - Claims deduct the pool and update lastClaimTime before crediting the
 *   staker, so re-entry cannot claim the same accrual twice.
 */

package staking

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/vault"
)

var (
	ErrStakeNotFound        = errors.New("stake not found")
	ErrStakeInactive        = errors.New("stake is not active")
	ErrNotStakeOwner        = errors.New("caller does not own this stake")
	ErrStakeLocked          = errors.New("stake end time has not passed")
	ErrTierNotMet           = errors.New("amount and duration meet no enabled tier")
	ErrRewardsPoolExhausted = errors.New("rewards pool cannot cover accrued rewards")
	ErrZeroDuration         = errors.New("stake duration must be greater than zero")
)

// DefaultBaseRatePerSecond is roughly a 10% annual rate, scaled by 1e18.
var DefaultBaseRatePerSecond = uint256.NewInt(3_170_979_198)

// Engine is the staking ledger.
type Engine struct {
	mu sync.Mutex

	requirements map[domain.StakingTier]*domain.TierRequirement
	bonuses      []domain.DurationBonus
	stakes       map[uuid.UUID]*domain.Stake
	byOwner      map[domain.Address][]uuid.UUID

	rewardsPool       *uint256.Int
	baseRatePerSecond *uint256.Int

	vault *vault.Ledger
	now   func() time.Time
}

// NewEngine creates a staking engine with the default tier table, duration
// bonus schedule, and base reward rate.
func NewEngine(v *vault.Ledger) *Engine {
	e := &Engine{
		requirements:      make(map[domain.StakingTier]*domain.TierRequirement),
		stakes:            make(map[uuid.UUID]*domain.Stake),
		byOwner:           make(map[domain.Address][]uuid.UUID),
		rewardsPool:       new(uint256.Int),
		baseRatePerSecond: domain.Clone(DefaultBaseRatePerSecond),
		vault:             v,
		now:               time.Now,
	}
	for _, r := range defaultTierRequirements() {
		req := r
		e.requirements[req.Tier] = &req
	}
	e.bonuses = defaultDurationBonuses()
	return e
}

func defaultTierRequirements() []domain.TierRequirement {
	tokens := func(n uint64) *uint256.Int {
		return new(uint256.Int).Mul(uint256.NewInt(n), domain.WeiPerEther)
	}
	day := 24 * time.Hour
	return []domain.TierRequirement{
		{Tier: domain.TierStakeNodeOperator, MinAmount: tokens(50_000), MinDuration: 180 * day, RewardMultiplierBps: 25_000, GovWeightBps: 30_000, Enabled: true},
		{Tier: domain.TierStakeValidator, MinAmount: tokens(25_000), MinDuration: 180 * day, RewardMultiplierBps: 20_000, GovWeightBps: 25_000, Enabled: true},
		{Tier: domain.TierStakePlatinum, MinAmount: tokens(10_000), MinDuration: 180 * day, RewardMultiplierBps: 17_500, GovWeightBps: 20_000, Enabled: true},
		{Tier: domain.TierStakeGold, MinAmount: tokens(5_000), MinDuration: 90 * day, RewardMultiplierBps: 15_000, GovWeightBps: 15_000, Enabled: true},
		{Tier: domain.TierStakeSilver, MinAmount: tokens(1_000), MinDuration: 30 * day, RewardMultiplierBps: 12_500, GovWeightBps: 12_000, Enabled: true},
		{Tier: domain.TierStakeBasic, MinAmount: tokens(100), MinDuration: 7 * day, RewardMultiplierBps: 10_000, GovWeightBps: 10_000, Enabled: true},
	}
}

func defaultDurationBonuses() []domain.DurationBonus {
	day := 24 * time.Hour
	return []domain.DurationBonus{
		{Threshold: 30 * day, BonusBps: 200},
		{Threshold: 90 * day, BonusBps: 500},
		{Threshold: 180 * day, BonusBps: 1000},
		{Threshold: 365 * day, BonusBps: 2000},
	}
}

// classifyLocked walks tiers highest to lowest and returns the first enabled
// tier whose minimum amount and duration are both met.
func (e *Engine) classifyLocked(amount *uint256.Int, duration time.Duration) (domain.StakingTier, error) {
	for _, tier := range domain.TierOrder {
		req, ok := e.requirements[tier]
		if !ok || !req.Enabled {
			continue
		}
		if amount.Lt(req.MinAmount) {
			continue
		}
		if duration < req.MinDuration {
			continue
		}
		return tier, nil
	}
	return "", ErrTierNotMet
}

// durationBonusLocked returns the bonus of the highest threshold the duration
// reaches. Bonuses never stack.
func (e *Engine) durationBonusLocked(duration time.Duration) uint16 {
	var best uint16
	var bestThreshold time.Duration
	for _, b := range e.bonuses {
		if duration >= b.Threshold && b.Threshold >= bestThreshold {
			best = b.BonusBps
			bestThreshold = b.Threshold
		}
	}
	return best
}

// effectiveRateLocked folds the tier multiplier and duration bonus into the
// base per-second rate.
func (e *Engine) effectiveRateLocked(tier domain.StakingTier, duration time.Duration) (*uint256.Int, error) {
	req, ok := e.requirements[tier]
	if !ok {
		return nil, ErrTierNotMet
	}
	rate, err := domain.MulBps(e.baseRatePerSecond, req.RewardMultiplierBps)
	if err != nil {
		return nil, err
	}
	bonus := e.durationBonusLocked(duration)
	return domain.MulBps(rate, uint16(domain.BpsDenominator)+bonus)
}

// accruedLocked computes rewards owed since the stake's last claim.
func (e *Engine) accruedLocked(stake *domain.Stake, at time.Time) (*uint256.Int, error) {
	elapsed := at.Sub(stake.LastClaimTime)
	if elapsed <= 0 {
		return new(uint256.Int), nil
	}
	rate, err := e.effectiveRateLocked(stake.Tier, stake.EndTime.Sub(stake.StartTime))
	if err != nil {
		return nil, err
	}
	reward, overflow := new(uint256.Int).MulOverflow(stake.Amount, rate)
	if overflow {
		return nil, domain.ErrAmountOverflow
	}
	seconds := uint256.NewInt(uint64(elapsed / time.Second))
	reward, overflow = reward.MulOverflow(reward, seconds)
	if overflow {
		return nil, domain.ErrAmountOverflow
	}
	return reward.Div(reward, domain.WeiPerEther), nil
}

// CreateStake escrows amount from the owner's wallet and opens a stake in the
// highest tier the amount and duration qualify for.
func (e *Engine) CreateStake(owner domain.Address, amount *uint256.Int, duration time.Duration) (domain.Stake, error) {
	if owner.IsZero() {
		return domain.Stake{}, errors.New("owner address cannot be zero")
	}
	if amount == nil || amount.IsZero() {
		return domain.Stake{}, domain.ErrInvalidAmount
	}
	if duration <= 0 {
		return domain.Stake{}, ErrZeroDuration
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tier, err := e.classifyLocked(amount, duration)
	if err != nil {
		return domain.Stake{}, err
	}
	if err := e.vault.DebitWallet(owner, amount); err != nil {
		return domain.Stake{}, fmt.Errorf("escrow stake principal: %w", err)
	}

	now := e.now().UTC()
	stake := &domain.Stake{
		ID:            uuid.New(),
		Owner:         owner,
		Amount:        domain.Clone(amount),
		StartTime:     now,
		EndTime:       now.Add(duration),
		LastClaimTime: now,
		Tier:          tier,
		Active:        true,
	}
	e.stakes[stake.ID] = stake
	e.byOwner[owner] = append(e.byOwner[owner], stake.ID)
	return copyStake(stake), nil
}

// PendingRewards returns the rewards accrued but not yet claimed for a stake.
func (e *Engine) PendingRewards(stakeID uuid.UUID) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	stake, ok := e.stakes[stakeID]
	if !ok {
		return nil, ErrStakeNotFound
	}
	if !stake.Active {
		return nil, ErrStakeInactive
	}
	return e.accruedLocked(stake, e.now().UTC())
}

// claimLocked settles accrued rewards: the pool is deducted and the staker's
// claimable balance credited before lastClaimTime advances, so a failed
// credit leaves the accrual intact.
func (e *Engine) claimLocked(stake *domain.Stake, now time.Time) (*uint256.Int, error) {
	rewards, err := e.accruedLocked(stake, now)
	if err != nil {
		return nil, err
	}
	if rewards.IsZero() {
		stake.LastClaimTime = now
		return rewards, nil
	}
	if e.rewardsPool.Lt(rewards) {
		return nil, ErrRewardsPoolExhausted
	}
	e.rewardsPool.Sub(e.rewardsPool, rewards)
	if err := e.vault.CreditPending(stake.Owner, rewards); err != nil {
		e.rewardsPool.Add(e.rewardsPool, rewards)
		return nil, err
	}
	stake.LastClaimTime = now
	return rewards, nil
}

// ClaimRewards pays out accrued rewards for one stake.
func (e *Engine) ClaimRewards(caller domain.Address, stakeID uuid.UUID) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	stake, ok := e.stakes[stakeID]
	if !ok {
		return nil, ErrStakeNotFound
	}
	if stake.Owner != caller {
		return nil, ErrNotStakeOwner
	}
	if !stake.Active {
		return nil, ErrStakeInactive
	}
	return e.claimLocked(stake, e.now().UTC())
}

// IncreaseStake adds principal to an active stake. Pending rewards are
// force-claimed first so the new amount only earns from now on.
func (e *Engine) IncreaseStake(caller domain.Address, stakeID uuid.UUID, additional *uint256.Int) (domain.Stake, error) {
	if additional == nil || additional.IsZero() {
		return domain.Stake{}, domain.ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	stake, ok := e.stakes[stakeID]
	if !ok {
		return domain.Stake{}, ErrStakeNotFound
	}
	if stake.Owner != caller {
		return domain.Stake{}, ErrNotStakeOwner
	}
	if !stake.Active {
		return domain.Stake{}, ErrStakeInactive
	}

	now := e.now().UTC()
	if _, err := e.claimLocked(stake, now); err != nil {
		return domain.Stake{}, err
	}
	if err := e.vault.DebitWallet(caller, additional); err != nil {
		return domain.Stake{}, fmt.Errorf("escrow additional principal: %w", err)
	}

	newAmount := new(uint256.Int).Add(stake.Amount, additional)
	tier, err := e.classifyLocked(newAmount, stake.EndTime.Sub(stake.StartTime))
	if err != nil {
		if creditErr := e.vault.CreditWallet(caller, additional); creditErr != nil {
			return domain.Stake{}, errors.Join(err, creditErr)
		}
		return domain.Stake{}, err
	}
	stake.Amount = newAmount
	stake.Tier = tier
	return copyStake(stake), nil
}

// ExtendStake pushes the stake's end time out. Pending rewards are
// force-claimed first; the tier is re-evaluated against the new duration.
func (e *Engine) ExtendStake(caller domain.Address, stakeID uuid.UUID, additional time.Duration) (domain.Stake, error) {
	if additional <= 0 {
		return domain.Stake{}, ErrZeroDuration
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	stake, ok := e.stakes[stakeID]
	if !ok {
		return domain.Stake{}, ErrStakeNotFound
	}
	if stake.Owner != caller {
		return domain.Stake{}, ErrNotStakeOwner
	}
	if !stake.Active {
		return domain.Stake{}, ErrStakeInactive
	}

	now := e.now().UTC()
	if _, err := e.claimLocked(stake, now); err != nil {
		return domain.Stake{}, err
	}

	newEnd := stake.EndTime.Add(additional)
	tier, err := e.classifyLocked(stake.Amount, newEnd.Sub(stake.StartTime))
	if err != nil {
		return domain.Stake{}, err
	}
	stake.EndTime = newEnd
	stake.Tier = tier
	return copyStake(stake), nil
}

// Unstake closes a matured stake: final rewards are force-claimed, the stake
// deactivates, and the principal returns to the owner's wallet.
func (e *Engine) Unstake(caller domain.Address, stakeID uuid.UUID) (domain.Stake, *uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stake, ok := e.stakes[stakeID]
	if !ok {
		return domain.Stake{}, nil, ErrStakeNotFound
	}
	if stake.Owner != caller {
		return domain.Stake{}, nil, ErrNotStakeOwner
	}
	if !stake.Active {
		return domain.Stake{}, nil, ErrStakeInactive
	}

	now := e.now().UTC()
	if now.Before(stake.EndTime) {
		return domain.Stake{}, nil, ErrStakeLocked
	}

	rewards, err := e.claimLocked(stake, now)
	if err != nil {
		return domain.Stake{}, nil, err
	}
	stake.Active = false
	if err := e.vault.CreditWallet(stake.Owner, stake.Amount); err != nil {
		stake.Active = true
		return domain.Stake{}, nil, err
	}
	return copyStake(stake), rewards, nil
}

// GovernanceWeight sums amount * tierGovWeight * remainingTimeFraction over
// every active stake of an account. The fraction is full (10000 bps) once the
// end time has passed, otherwise (endTime-now)/(endTime-startTime).
func (e *Engine) GovernanceWeight(owner domain.Address) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().UTC()
	total := new(uint256.Int)
	for _, id := range e.byOwner[owner] {
		stake := e.stakes[id]
		if !stake.Active {
			continue
		}
		req, ok := e.requirements[stake.Tier]
		if !ok {
			continue
		}
		weight, err := domain.MulBps(stake.Amount, req.GovWeightBps)
		if err != nil {
			return nil, err
		}
		if now.Before(stake.EndTime) {
			remaining := uint256.NewInt(uint64(stake.EndTime.Sub(now) / time.Second))
			lifetime := uint256.NewInt(uint64(stake.EndTime.Sub(stake.StartTime) / time.Second))
			fraction, err := domain.MulDiv(remaining, uint256.NewInt(domain.BpsDenominator), lifetime)
			if err != nil {
				return nil, err
			}
			weight, err = domain.MulDiv(weight, fraction, uint256.NewInt(domain.BpsDenominator))
			if err != nil {
				return nil, err
			}
		}
		total.Add(total, weight)
	}
	return total, nil
}

// IsNodeOperator reports whether the account holds an active NodeOperator
// tier stake. The transfer engine consults this before the membership check.
func (e *Engine) IsNodeOperator(owner domain.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range e.byOwner[owner] {
		stake := e.stakes[id]
		if stake.Active && stake.Tier == domain.TierStakeNodeOperator {
			return true
		}
	}
	return false
}

// FundRewardsPool moves value from the caller's wallet into the rewards pool.
// Requires the staking admin capability.
func (e *Engine) FundRewardsPool(auth domain.AuthContext, amount *uint256.Int) error {
	if err := auth.Require(domain.CapStakingAdmin); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return domain.ErrInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.vault.DebitWallet(auth.Caller, amount); err != nil {
		return err
	}
	e.rewardsPool.Add(e.rewardsPool, amount)
	return nil
}

// RewardsPool returns a copy of the current pool balance.
func (e *Engine) RewardsPool() *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.Clone(e.rewardsPool)
}

// SetTierRequirement replaces one tier's requirement row.
func (e *Engine) SetTierRequirement(auth domain.AuthContext, req domain.TierRequirement) error {
	if err := auth.Require(domain.CapStakingAdmin); err != nil {
		return err
	}
	if req.MinAmount == nil {
		return domain.ErrInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	r := req
	r.MinAmount = domain.Clone(req.MinAmount)
	e.requirements[r.Tier] = &r
	return nil
}

// Stake returns a copy of one stake.
func (e *Engine) Stake(stakeID uuid.UUID) (domain.Stake, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	stake, ok := e.stakes[stakeID]
	if !ok {
		return domain.Stake{}, ErrStakeNotFound
	}
	return copyStake(stake), nil
}

// StakesByOwner returns copies of every stake an account holds.
func (e *Engine) StakesByOwner(owner domain.Address) []domain.Stake {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Stake, 0, len(e.byOwner[owner]))
	for _, id := range e.byOwner[owner] {
		out = append(out, copyStake(e.stakes[id]))
	}
	return out
}

// RestoreStake reloads one persisted stake during rehydration.
func (e *Engine) RestoreStake(stake domain.Stake) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := stake
	s.Amount = domain.Clone(stake.Amount)
	e.stakes[s.ID] = &s
	e.byOwner[s.Owner] = append(e.byOwner[s.Owner], s.ID)
}

// RestoreRewardsPool reloads the persisted pool balance during rehydration.
func (e *Engine) RestoreRewardsPool(balance *uint256.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rewardsPool = domain.Clone(balance)
}

// RestoreTierRequirement reloads one persisted tier row during rehydration.
func (e *Engine) RestoreTierRequirement(req domain.TierRequirement) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := req
	r.MinAmount = domain.Clone(req.MinAmount)
	e.requirements[r.Tier] = &r
}

func copyStake(s *domain.Stake) domain.Stake {
	out := *s
	out.Amount = domain.Clone(s.Amount)
	return out
}
