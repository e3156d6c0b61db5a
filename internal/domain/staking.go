/**
 * @description
 * Domain models for the staking reward engine: tier requirement tables,
 * individual stakes, and duration bonus thresholds.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// StakingTier classifies a stake. Tiers are evaluated from NodeOperator down to
// Basic; the first tier whose requirements are met wins.
type StakingTier string

const (
	TierStakeNodeOperator StakingTier = "node_operator"
	TierStakeValidator    StakingTier = "validator"
	TierStakePlatinum     StakingTier = "platinum"
	TierStakeGold         StakingTier = "gold"
	TierStakeSilver       StakingTier = "silver"
	TierStakeBasic        StakingTier = "basic"
)

// TierOrder lists staking tiers highest to lowest, the order they are checked.
var TierOrder = []StakingTier{
	TierStakeNodeOperator,
	TierStakeValidator,
	TierStakePlatinum,
	TierStakeGold,
	TierStakeSilver,
	TierStakeBasic,
}

// TierRequirement defines one tier's entry thresholds and multipliers.
type TierRequirement struct {
	Tier                StakingTier
	MinAmount           *uint256.Int
	MinDuration         time.Duration
	RewardMultiplierBps uint16 // 10000 = 1x
	GovWeightBps        uint16 // 10000 = 1x
	Enabled             bool
}

// DurationBonus grants an additional reward multiplier once a stake's duration
// reaches Threshold. The single highest applicable bonus is used, never a sum.
type DurationBonus struct {
	Threshold time.Duration
	BonusBps  uint16
}

// Stake is one account's locked position.
type Stake struct {
	ID            uuid.UUID
	Owner         Address
	Amount        *uint256.Int
	StartTime     time.Time
	EndTime       time.Time
	LastClaimTime time.Time
	Tier          StakingTier
	Active        bool
}
