package staking

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/vault"
)

const day = 24 * time.Hour

func tokens(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), domain.WeiPerEther)
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestEngine pins the base rate to 1e9 per second so expected rewards are
// round numbers.
func newTestEngine(t *testing.T) (*Engine, *vault.Ledger, *testClock) {
	t.Helper()
	v := vault.NewLedger()
	e := NewEngine(v)
	e.baseRatePerSecond = uint256.NewInt(1_000_000_000)
	clock := &testClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	e.now = clock.Now
	return e, v, clock
}

func fundPool(t *testing.T, e *Engine, v *vault.Ledger, amount *uint256.Int) {
	t.Helper()
	admin := domain.NewAuthContext("0xstakeadmin", domain.CapStakingAdmin)
	if err := v.CreditWallet(admin.Caller, amount); err != nil {
		t.Fatalf("fund admin: %v", err)
	}
	if err := e.FundRewardsPool(admin, amount); err != nil {
		t.Fatalf("FundRewardsPool: %v", err)
	}
}

func TestCreateStakeClassifiesTier(t *testing.T) {
	e, v, _ := newTestEngine(t)
	owner := domain.Address("0xstaker1")
	if err := v.CreditWallet(owner, tokens(100_000)); err != nil {
		t.Fatalf("fund owner: %v", err)
	}

	cases := []struct {
		amount   *uint256.Int
		duration time.Duration
		want     domain.StakingTier
	}{
		{tokens(1_000), 90 * day, domain.TierStakeSilver},
		{tokens(5_000), 90 * day, domain.TierStakeGold},
		{tokens(50_000), 180 * day, domain.TierStakeNodeOperator},
		{tokens(1_000), 7 * day, domain.TierStakeBasic},
		{tokens(10_000), 180 * day, domain.TierStakePlatinum},
	}
	for _, tc := range cases {
		stake, err := e.CreateStake(owner, tc.amount, tc.duration)
		if err != nil {
			t.Fatalf("CreateStake(%s, %s): %v", tc.amount, tc.duration, err)
		}
		if stake.Tier != tc.want {
			t.Errorf("CreateStake(%s, %s) tier = %s, want %s", tc.amount, tc.duration, stake.Tier, tc.want)
		}
	}

	if _, err := e.CreateStake(owner, tokens(50), 365*day); !errors.Is(err, ErrTierNotMet) {
		t.Fatalf("below-minimum stake err = %v, want %v", err, ErrTierNotMet)
	}
}

func TestCreateStakeEscrowsPrincipal(t *testing.T) {
	e, v, _ := newTestEngine(t)
	owner := domain.Address("0xstaker2")
	if err := v.CreditWallet(owner, tokens(1_500)); err != nil {
		t.Fatalf("fund owner: %v", err)
	}

	if _, err := e.CreateStake(owner, tokens(1_000), 30*day); err != nil {
		t.Fatalf("CreateStake: %v", err)
	}
	if got := v.WalletBalance(owner); !got.Eq(tokens(500)) {
		t.Fatalf("owner wallet = %s, want %s", got, tokens(500))
	}
	if _, err := e.CreateStake(owner, tokens(1_000), 30*day); !errors.Is(err, vault.ErrInsufficientBalance) {
		t.Fatalf("underfunded stake err = %v, want %v", err, vault.ErrInsufficientBalance)
	}
}

func TestAccrualFormula(t *testing.T) {
	e, v, clock := newTestEngine(t)
	owner := domain.Address("0xstaker3")
	if err := v.CreditWallet(owner, tokens(1_000)); err != nil {
		t.Fatalf("fund owner: %v", err)
	}
	// Silver (multiplier 12500) with the 90-day bonus (500 bps):
	// rate = 1e9 * 1.25 * 1.05 = 1.3125e9 per second.
	stake, err := e.CreateStake(owner, tokens(1_000), 90*day)
	if err != nil {
		t.Fatalf("CreateStake: %v", err)
	}

	pending, err := e.PendingRewards(stake.ID)
	if err != nil {
		t.Fatalf("PendingRewards: %v", err)
	}
	if !pending.IsZero() {
		t.Fatalf("rewards at zero elapsed = %s, want 0", pending)
	}

	clock.Advance(time.Hour)
	pending, err = e.PendingRewards(stake.ID)
	if err != nil {
		t.Fatalf("PendingRewards: %v", err)
	}
	// 1000e18 * 1.3125e9 * 3600 / 1e18
	want := uint256.NewInt(4_725_000_000_000_000)
	if !pending.Eq(want) {
		t.Fatalf("accrued = %s, want %s", pending, want)
	}
}

func TestClaimRewardsDeductsPoolAndAdvancesClock(t *testing.T) {
	e, v, clock := newTestEngine(t)
	owner := domain.Address("0xstaker4")
	if err := v.CreditWallet(owner, tokens(1_000)); err != nil {
		t.Fatalf("fund owner: %v", err)
	}
	fundPool(t, e, v, tokens(10))

	stake, err := e.CreateStake(owner, tokens(1_000), 90*day)
	if err != nil {
		t.Fatalf("CreateStake: %v", err)
	}
	clock.Advance(time.Hour)

	rewards, err := e.ClaimRewards(owner, stake.ID)
	if err != nil {
		t.Fatalf("ClaimRewards: %v", err)
	}
	want := uint256.NewInt(4_725_000_000_000_000)
	if !rewards.Eq(want) {
		t.Fatalf("claimed = %s, want %s", rewards, want)
	}
	if got := v.PendingBalance(owner); !got.Eq(want) {
		t.Fatalf("owner pending = %s, want %s", got, want)
	}
	wantPool := new(uint256.Int).Sub(tokens(10), want)
	if got := e.RewardsPool(); !got.Eq(wantPool) {
		t.Fatalf("pool = %s, want %s", got, wantPool)
	}

	// Immediately claiming again yields nothing.
	again, err := e.ClaimRewards(owner, stake.ID)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if !again.IsZero() {
		t.Fatalf("second claim = %s, want 0", again)
	}
}

func TestClaimFailsWhenPoolExhausted(t *testing.T) {
	e, v, clock := newTestEngine(t)
	owner := domain.Address("0xstaker5")
	if err := v.CreditWallet(owner, tokens(1_000)); err != nil {
		t.Fatalf("fund owner: %v", err)
	}
	fundPool(t, e, v, uint256.NewInt(1)) // effectively empty

	stake, err := e.CreateStake(owner, tokens(1_000), 90*day)
	if err != nil {
		t.Fatalf("CreateStake: %v", err)
	}
	clock.Advance(time.Hour)

	if _, err := e.ClaimRewards(owner, stake.ID); !errors.Is(err, ErrRewardsPoolExhausted) {
		t.Fatalf("err = %v, want %v", err, ErrRewardsPoolExhausted)
	}
	// The failed claim must not burn the accrual.
	pending, err := e.PendingRewards(stake.ID)
	if err != nil {
		t.Fatalf("PendingRewards: %v", err)
	}
	if pending.IsZero() {
		t.Fatal("accrual lost after failed claim")
	}
	if got := e.RewardsPool(); !got.Eq(uint256.NewInt(1)) {
		t.Fatalf("pool mutated by failed claim: %s", got)
	}
}

func TestClaimAfterFailedAttemptPaysFullAccrual(t *testing.T) {
	e, v, clock := newTestEngine(t)
	owner := domain.Address("0xstaker12")
	if err := v.CreditWallet(owner, tokens(1_000)); err != nil {
		t.Fatalf("fund owner: %v", err)
	}
	fundPool(t, e, v, uint256.NewInt(1)) // effectively empty

	stake, err := e.CreateStake(owner, tokens(1_000), 90*day)
	if err != nil {
		t.Fatalf("CreateStake: %v", err)
	}
	clock.Advance(time.Hour)

	if _, err := e.ClaimRewards(owner, stake.ID); !errors.Is(err, ErrRewardsPoolExhausted) {
		t.Fatalf("err = %v, want %v", err, ErrRewardsPoolExhausted)
	}
	accrued, err := e.PendingRewards(stake.ID)
	if err != nil {
		t.Fatalf("PendingRewards: %v", err)
	}

	// Once the pool is funded, the retried claim settles everything accrued
	// since the last successful claim, including the failed attempt's share.
	fundPool(t, e, v, tokens(1))
	rewards, err := e.ClaimRewards(owner, stake.ID)
	if err != nil {
		t.Fatalf("ClaimRewards: %v", err)
	}
	if !rewards.Eq(accrued) {
		t.Fatalf("rewards = %s, want %s", rewards, accrued)
	}
	if got := v.PendingBalance(owner); !got.Eq(accrued) {
		t.Fatalf("pending balance = %s, want %s", got, accrued)
	}
	pending, err := e.PendingRewards(stake.ID)
	if err != nil {
		t.Fatalf("PendingRewards: %v", err)
	}
	if !pending.IsZero() {
		t.Fatalf("accrual after claim = %s, want 0", pending)
	}
}

func TestIncreaseStakeForceClaimsAndRetiers(t *testing.T) {
	e, v, clock := newTestEngine(t)
	owner := domain.Address("0xstaker6")
	if err := v.CreditWallet(owner, tokens(10_000)); err != nil {
		t.Fatalf("fund owner: %v", err)
	}
	fundPool(t, e, v, tokens(10))

	stake, err := e.CreateStake(owner, tokens(1_000), 90*day)
	if err != nil {
		t.Fatalf("CreateStake: %v", err)
	}
	if stake.Tier != domain.TierStakeSilver {
		t.Fatalf("initial tier = %s, want %s", stake.Tier, domain.TierStakeSilver)
	}
	clock.Advance(time.Hour)

	grown, err := e.IncreaseStake(owner, stake.ID, tokens(4_000))
	if err != nil {
		t.Fatalf("IncreaseStake: %v", err)
	}
	if grown.Tier != domain.TierStakeGold {
		t.Fatalf("tier after increase = %s, want %s", grown.Tier, domain.TierStakeGold)
	}
	if !grown.Amount.Eq(tokens(5_000)) {
		t.Fatalf("amount = %s, want %s", grown.Amount, tokens(5_000))
	}
	// The hour of silver-rate accrual was paid out during the increase.
	if got := v.PendingBalance(owner); got.IsZero() {
		t.Fatal("pending rewards not force-claimed on increase")
	}
	pending, err := e.PendingRewards(stake.ID)
	if err != nil {
		t.Fatalf("PendingRewards: %v", err)
	}
	if !pending.IsZero() {
		t.Fatalf("accrual after force-claim = %s, want 0", pending)
	}
}

func TestExtendStakeRetiersOnDuration(t *testing.T) {
	e, v, _ := newTestEngine(t)
	owner := domain.Address("0xstaker7")
	if err := v.CreditWallet(owner, tokens(5_000)); err != nil {
		t.Fatalf("fund owner: %v", err)
	}

	stake, err := e.CreateStake(owner, tokens(5_000), 30*day)
	if err != nil {
		t.Fatalf("CreateStake: %v", err)
	}
	if stake.Tier != domain.TierStakeSilver {
		t.Fatalf("initial tier = %s, want %s", stake.Tier, domain.TierStakeSilver)
	}

	extended, err := e.ExtendStake(owner, stake.ID, 60*day)
	if err != nil {
		t.Fatalf("ExtendStake: %v", err)
	}
	if extended.Tier != domain.TierStakeGold {
		t.Fatalf("tier after extend = %s, want %s", extended.Tier, domain.TierStakeGold)
	}
	if want := stake.EndTime.Add(60 * day); !extended.EndTime.Equal(want) {
		t.Fatalf("end time = %s, want %s", extended.EndTime, want)
	}
}

func TestUnstakeEnforcesLockAndReturnsPrincipal(t *testing.T) {
	e, v, clock := newTestEngine(t)
	owner := domain.Address("0xstaker8")
	if err := v.CreditWallet(owner, tokens(1_000)); err != nil {
		t.Fatalf("fund owner: %v", err)
	}
	fundPool(t, e, v, tokens(100))

	stake, err := e.CreateStake(owner, tokens(1_000), 30*day)
	if err != nil {
		t.Fatalf("CreateStake: %v", err)
	}

	clock.Advance(29 * day)
	if _, _, err := e.Unstake(owner, stake.ID); !errors.Is(err, ErrStakeLocked) {
		t.Fatalf("early unstake err = %v, want %v", err, ErrStakeLocked)
	}

	clock.Advance(2 * day)
	closed, rewards, err := e.Unstake(owner, stake.ID)
	if err != nil {
		t.Fatalf("Unstake: %v", err)
	}
	if closed.Active {
		t.Fatal("stake still active after unstake")
	}
	if rewards.IsZero() {
		t.Fatal("no rewards claimed on unstake")
	}
	if got := v.WalletBalance(owner); !got.Eq(tokens(1_000)) {
		t.Fatalf("principal not returned: wallet = %s, want %s", got, tokens(1_000))
	}
	if _, _, err := e.Unstake(owner, stake.ID); !errors.Is(err, ErrStakeInactive) {
		t.Fatalf("double unstake err = %v, want %v", err, ErrStakeInactive)
	}
}

func TestUnstakeRequiresOwner(t *testing.T) {
	e, v, _ := newTestEngine(t)
	owner := domain.Address("0xstaker9")
	if err := v.CreditWallet(owner, tokens(1_000)); err != nil {
		t.Fatalf("fund owner: %v", err)
	}
	stake, err := e.CreateStake(owner, tokens(1_000), 30*day)
	if err != nil {
		t.Fatalf("CreateStake: %v", err)
	}
	if _, _, err := e.Unstake("0xthief", stake.ID); !errors.Is(err, ErrNotStakeOwner) {
		t.Fatalf("err = %v, want %v", err, ErrNotStakeOwner)
	}
}

func TestGovernanceWeightDecaysWithRemainingTime(t *testing.T) {
	e, v, clock := newTestEngine(t)
	owner := domain.Address("0xvoter")
	if err := v.CreditWallet(owner, tokens(1_000)); err != nil {
		t.Fatalf("fund owner: %v", err)
	}
	if _, err := e.CreateStake(owner, tokens(1_000), 30*day); err != nil {
		t.Fatalf("CreateStake: %v", err)
	}

	// Silver governance weight is 12000 bps: full weight 1200 tokens.
	full, err := e.GovernanceWeight(owner)
	if err != nil {
		t.Fatalf("GovernanceWeight: %v", err)
	}
	if !full.Eq(tokens(1_200)) {
		t.Fatalf("full weight = %s, want %s", full, tokens(1_200))
	}

	clock.Advance(15 * day)
	half, err := e.GovernanceWeight(owner)
	if err != nil {
		t.Fatalf("GovernanceWeight: %v", err)
	}
	if !half.Eq(tokens(600)) {
		t.Fatalf("half-way weight = %s, want %s", half, tokens(600))
	}

	clock.Advance(30 * day)
	matured, err := e.GovernanceWeight(owner)
	if err != nil {
		t.Fatalf("GovernanceWeight: %v", err)
	}
	if !matured.Eq(tokens(1_200)) {
		t.Fatalf("matured weight = %s, want %s", matured, tokens(1_200))
	}
}

func TestIsNodeOperator(t *testing.T) {
	e, v, _ := newTestEngine(t)
	owner := domain.Address("0xoperator")
	if err := v.CreditWallet(owner, tokens(60_000)); err != nil {
		t.Fatalf("fund owner: %v", err)
	}
	if e.IsNodeOperator(owner) {
		t.Fatal("operator status before staking")
	}
	if _, err := e.CreateStake(owner, tokens(50_000), 180*day); err != nil {
		t.Fatalf("CreateStake: %v", err)
	}
	if !e.IsNodeOperator(owner) {
		t.Fatal("operator stake not recognized")
	}
}

func TestSetTierRequirementDisablesTier(t *testing.T) {
	e, v, _ := newTestEngine(t)
	admin := domain.NewAuthContext("0xstakeadmin", domain.CapStakingAdmin)
	if err := e.SetTierRequirement(admin, domain.TierRequirement{
		Tier:                domain.TierStakeSilver,
		MinAmount:           tokens(1_000),
		MinDuration:         30 * day,
		RewardMultiplierBps: 12_500,
		GovWeightBps:        12_000,
		Enabled:             false,
	}); err != nil {
		t.Fatalf("SetTierRequirement: %v", err)
	}

	owner := domain.Address("0xstaker10")
	if err := v.CreditWallet(owner, tokens(1_000)); err != nil {
		t.Fatalf("fund owner: %v", err)
	}
	// Silver disabled: a 30-day 1000-token stake falls through to Basic.
	stake, err := e.CreateStake(owner, tokens(1_000), 30*day)
	if err != nil {
		t.Fatalf("CreateStake: %v", err)
	}
	if stake.Tier != domain.TierStakeBasic {
		t.Fatalf("tier = %s, want %s", stake.Tier, domain.TierStakeBasic)
	}
}

func TestRestoreStakeRoundTrip(t *testing.T) {
	e, v, clock := newTestEngine(t)
	owner := domain.Address("0xstaker11")
	if err := v.CreditWallet(owner, tokens(1_000)); err != nil {
		t.Fatalf("fund owner: %v", err)
	}
	stake, err := e.CreateStake(owner, tokens(1_000), 90*day)
	if err != nil {
		t.Fatalf("CreateStake: %v", err)
	}

	rebuilt := NewEngine(vault.NewLedger())
	rebuilt.baseRatePerSecond = uint256.NewInt(1_000_000_000)
	rebuilt.now = clock.Now
	rebuilt.RestoreStake(stake)
	rebuilt.RestoreRewardsPool(tokens(10))

	clock.Advance(time.Hour)
	pending, err := rebuilt.PendingRewards(stake.ID)
	if err != nil {
		t.Fatalf("PendingRewards after restore: %v", err)
	}
	if !pending.Eq(uint256.NewInt(4_725_000_000_000_000)) {
		t.Fatalf("restored accrual = %s", pending)
	}
}
