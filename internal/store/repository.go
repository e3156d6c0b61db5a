/**
 * @description
 * This file defines the `Repository` interface, the contract for all
 * persistence the ledger service needs: configuration rows that must survive
 * restarts (fee profiles, funds, tier tables), the append-only audit journal
 * (fee transactions, deposits, expenses, transfers, contributions), and the
 * balance snapshots used to rehydrate the in-memory engines at boot.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
)

// AccountBalance is one row of the vault balance snapshot.
type AccountBalance struct {
	Address domain.Address
	Wallet  *uint256.Int
	Pending *uint256.Int
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Fee engine configuration and journal
	SaveFeeProfile(ctx context.Context, profile domain.FeeProfile) error
	ListFeeProfiles(ctx context.Context) ([]domain.FeeProfile, error)
	ReplaceVolumeTiers(ctx context.Context, tiers []domain.VolumeDiscountTier) error
	ListVolumeTiers(ctx context.Context) ([]domain.VolumeDiscountTier, error)
	InsertFeeTransaction(ctx context.Context, record domain.FeeTransactionRecord) error
	UpsertCumulativeSpend(ctx context.Context, payer domain.Address, total *uint256.Int) error
	ListCumulativeSpend(ctx context.Context) (map[domain.Address]*uint256.Int, error)

	// Treasury funds and journal
	SaveFund(ctx context.Context, fund domain.Fund) error
	ListFunds(ctx context.Context) ([]domain.Fund, error)
	InsertDeposits(ctx context.Context, deposits []domain.Deposit) error
	InsertExpenses(ctx context.Context, expenses []domain.Expense) error
	ListDeposits(ctx context.Context, fundID uuid.UUID, limit int) ([]domain.Deposit, error)
	ListExpenses(ctx context.Context, fundID uuid.UUID, limit int) ([]domain.Expense, error)

	// Transfer engine journal and configuration
	InsertTransfer(ctx context.Context, record domain.TransferRecord) error
	SetMembership(ctx context.Context, addr domain.Address, member bool) error
	ListMembers(ctx context.Context) ([]domain.Address, error)
	SaveScheduledTransfer(ctx context.Context, schedule domain.ScheduledTransfer) error
	ListScheduledTransfers(ctx context.Context) ([]domain.ScheduledTransfer, error)
	SaveCollection(ctx context.Context, collection domain.CommunityCollection) error
	ListCollections(ctx context.Context) ([]domain.CommunityCollection, error)
	InsertContribution(ctx context.Context, contribution domain.Contribution) error

	// Staking configuration and journal
	SaveStake(ctx context.Context, stake domain.Stake) error
	ListStakes(ctx context.Context) ([]domain.Stake, error)
	SaveRewardsPool(ctx context.Context, balance *uint256.Int) error
	GetRewardsPool(ctx context.Context) (*uint256.Int, error)
	SaveTierRequirement(ctx context.Context, req domain.TierRequirement) error
	ListTierRequirements(ctx context.Context) ([]domain.TierRequirement, error)

	// Vault balance snapshot
	SaveBalance(ctx context.Context, balance AccountBalance) error
	ListBalances(ctx context.Context) ([]AccountBalance, error)

	// Payout journal
	MarkPayout(ctx context.Context, id uuid.UUID, addr domain.Address, amount *uint256.Int, reference string) error
}
