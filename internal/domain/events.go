/**
 * @description
 * Event payloads published to the message broker after ledger operations
 * commit. Amounts travel as base-10 strings so consumers never need 256-bit
 * integer support to read them.
 */

package domain

import "time"

// Routing keys on the ledger events exchange.
const (
	EventFeeProcessed       = "ledger.fee.processed"
	EventTreasuryDeposit    = "ledger.treasury.deposit"
	EventTreasuryWithdrawal = "ledger.treasury.withdrawal"
	EventTransferCompleted  = "ledger.transfer.completed"
	EventScheduledExecuted  = "ledger.transfer.scheduled_executed"
	EventCollectionFinal    = "ledger.collection.finalized"
	EventStakeCreated       = "ledger.staking.stake_created"
	EventRewardsClaimed     = "ledger.staking.rewards_claimed"
	EventPayoutCompleted    = "ledger.payout.completed"
)

// FeeProcessedEvent reports one fee split and its distribution legs.
type FeeProcessedEvent struct {
	TransactionID string    `json:"transaction_id"`
	FeeType       string    `json:"fee_type"`
	Payer         string    `json:"payer"`
	Creator       string    `json:"creator,omitempty"`
	Amount        string    `json:"amount"`
	Fee           string    `json:"fee"`
	Royalty       string    `json:"royalty"`
	CommunityFund string    `json:"community_fund"`
	PlatformFee   string    `json:"platform_fee"`
	Timestamp     time.Time `json:"timestamp"`
}

// TreasuryEvent reports a deposit into or withdrawal from a treasury fund.
type TreasuryEvent struct {
	FundID      string    `json:"fund_id,omitempty"`
	FundName    string    `json:"fund_name,omitempty"`
	Amount      string    `json:"amount"`
	Account     string    `json:"account"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// TransferCompletedEvent reports one settled peer-to-peer transfer.
type TransferCompletedEvent struct {
	TransferID string    `json:"transfer_id"`
	Sender     string    `json:"sender"`
	Recipient  string    `json:"recipient"`
	Amount     string    `json:"amount"`
	Fee        string    `json:"fee"`
	Tier       string    `json:"tier"`
	BatchID    string    `json:"batch_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// StakingEvent reports stake lifecycle changes and reward claims.
type StakingEvent struct {
	StakeID   string    `json:"stake_id"`
	Owner     string    `json:"owner"`
	Tier      string    `json:"tier,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Rewards   string    `json:"rewards,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PayoutEvent reports a completed pull-payment withdrawal through the
// settlement rail.
type PayoutEvent struct {
	Account   string    `json:"account"`
	Amount    string    `json:"amount"`
	Reference string    `json:"reference"`
	Timestamp time.Time `json:"timestamp"`
}
