/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. Monetary columns are NUMERIC(78,0) wei amounts, moved across the
 * wire as decimal strings so the full 256-bit range survives the round trip.
 * Durations are stored as whole seconds.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - github.com/holiman/uint256: 256-bit wei amounts.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
)

var (
	ErrFundNotFound    = errors.New("fund not found")
	ErrStakeNotFound   = errors.New("stake not found")
	ErrProfileNotFound = errors.New("fee profile not found")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func amountString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// SaveFeeProfile upserts one fee type's split configuration.
func (r *PostgresRepository) SaveFeeProfile(ctx context.Context, profile domain.FeeProfile) error {
	query := `
		INSERT INTO fee_profiles (fee_type, base_fee_bps, royalty_bps, community_bps, platform_bps, active, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (fee_type) DO UPDATE SET
			base_fee_bps = EXCLUDED.base_fee_bps,
			royalty_bps = EXCLUDED.royalty_bps,
			community_bps = EXCLUDED.community_bps,
			platform_bps = EXCLUDED.platform_bps,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
	`
	_, err := r.db.Exec(ctx, query,
		string(profile.Type), int(profile.BaseFeeBps), int(profile.RoyaltyBps), int(profile.CommunityBps),
		int(profile.PlatformBps), profile.Active, profile.UpdatedAt, string(profile.UpdatedBy))
	return err
}

// ListFeeProfiles returns every persisted fee profile.
func (r *PostgresRepository) ListFeeProfiles(ctx context.Context) ([]domain.FeeProfile, error) {
	query := `SELECT fee_type, base_fee_bps, royalty_bps, community_bps, platform_bps, active, updated_at, updated_by FROM fee_profiles`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.FeeProfile
	for rows.Next() {
		var p domain.FeeProfile
		var feeType, updatedBy string
		var base, royalty, community, platform int
		if err := rows.Scan(&feeType, &base, &royalty, &community, &platform, &p.Active, &p.UpdatedAt, &updatedBy); err != nil {
			return nil, err
		}
		p.Type = domain.FeeType(feeType)
		p.BaseFeeBps = uint16(base)
		p.RoyaltyBps = uint16(royalty)
		p.CommunityBps = uint16(community)
		p.PlatformBps = uint16(platform)
		p.UpdatedBy = domain.Address(updatedBy)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// ReplaceVolumeTiers swaps the whole volume discount table in one transaction.
func (r *PostgresRepository) ReplaceVolumeTiers(ctx context.Context, tiers []domain.VolumeDiscountTier) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM volume_discount_tiers`); err != nil {
		return err
	}
	for _, tier := range tiers {
		_, err := tx.Exec(ctx,
			`INSERT INTO volume_discount_tiers (threshold, discount_bps) VALUES ($1, $2)`,
			amountString(tier.Threshold), int(tier.DiscountBps))
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListVolumeTiers returns the persisted discount tiers.
func (r *PostgresRepository) ListVolumeTiers(ctx context.Context) ([]domain.VolumeDiscountTier, error) {
	rows, err := r.db.Query(ctx, `SELECT threshold::text, discount_bps FROM volume_discount_tiers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []domain.VolumeDiscountTier
	for rows.Next() {
		var threshold string
		var bps int
		if err := rows.Scan(&threshold, &bps); err != nil {
			return nil, err
		}
		amount, err := domain.ParseAmount(threshold)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, domain.VolumeDiscountTier{Threshold: amount, DiscountBps: uint16(bps)})
	}
	return tiers, rows.Err()
}

// InsertFeeTransaction appends one immutable fee event to the journal.
func (r *PostgresRepository) InsertFeeTransaction(ctx context.Context, record domain.FeeTransactionRecord) error {
	query := `
		INSERT INTO fee_transactions (id, fee_type, payer, creator, amount, fee, royalty, community_fund, platform_fee, processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		record.ID, string(record.FeeType), string(record.Payer), string(record.Creator),
		amountString(record.Amount), amountString(record.Fee), amountString(record.Royalty),
		amountString(record.CommunityFund), amountString(record.PlatformFee), record.Processed, record.CreatedAt)
	return err
}

// UpsertCumulativeSpend stores a payer's lifetime fee-bearing volume.
func (r *PostgresRepository) UpsertCumulativeSpend(ctx context.Context, payer domain.Address, total *uint256.Int) error {
	query := `
		INSERT INTO cumulative_spend (payer, total) VALUES ($1, $2)
		ON CONFLICT (payer) DO UPDATE SET total = EXCLUDED.total
	`
	_, err := r.db.Exec(ctx, query, string(payer), amountString(total))
	return err
}

// ListCumulativeSpend returns every payer's lifetime volume.
func (r *PostgresRepository) ListCumulativeSpend(ctx context.Context) (map[domain.Address]*uint256.Int, error) {
	rows, err := r.db.Query(ctx, `SELECT payer, total::text FROM cumulative_spend`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.Address]*uint256.Int)
	for rows.Next() {
		var payer, total string
		if err := rows.Scan(&payer, &total); err != nil {
			return nil, err
		}
		amount, err := domain.ParseAmount(total)
		if err != nil {
			return nil, err
		}
		out[domain.Address(payer)] = amount
	}
	return out, rows.Err()
}

// SaveFund upserts one treasury fund row.
func (r *PostgresRepository) SaveFund(ctx context.Context, fund domain.Fund) error {
	query := `
		INSERT INTO treasury_funds (id, name, allocation_bps, balance, active, is_default, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			allocation_bps = EXCLUDED.allocation_bps,
			balance = EXCLUDED.balance,
			active = EXCLUDED.active
	`
	_, err := r.db.Exec(ctx, query,
		fund.ID, fund.Name, int(fund.AllocationBps), amountString(fund.Balance),
		fund.Active, fund.Default, fund.CreatedAt, string(fund.CreatedBy))
	return err
}

// ListFunds returns every treasury fund, active or retired.
func (r *PostgresRepository) ListFunds(ctx context.Context) ([]domain.Fund, error) {
	query := `SELECT id, name, allocation_bps, balance::text, active, is_default, created_at, created_by FROM treasury_funds`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var funds []domain.Fund
	for rows.Next() {
		var f domain.Fund
		var bps int
		var balance, createdBy string
		if err := rows.Scan(&f.ID, &f.Name, &bps, &balance, &f.Active, &f.Default, &f.CreatedAt, &createdBy); err != nil {
			return nil, err
		}
		amount, err := domain.ParseAmount(balance)
		if err != nil {
			return nil, err
		}
		f.AllocationBps = uint16(bps)
		f.Balance = amount
		f.CreatedBy = domain.Address(createdBy)
		funds = append(funds, f)
	}
	return funds, rows.Err()
}

// InsertDeposits appends the deposit legs of one treasury operation.
func (r *PostgresRepository) InsertDeposits(ctx context.Context, deposits []domain.Deposit) error {
	if len(deposits) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO treasury_deposits (id, fund_id, amount, sender, description, fee_deposit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, d := range deposits {
		if _, err := tx.Exec(ctx, query, d.ID, d.FundID, amountString(d.Amount), string(d.Sender), d.Description, d.FeeDeposit, d.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// InsertExpenses appends the expense legs of one treasury withdrawal.
func (r *PostgresRepository) InsertExpenses(ctx context.Context, expenses []domain.Expense) error {
	if len(expenses) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO treasury_expenses (id, fund_id, amount, recipient, approver, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, e := range expenses {
		if _, err := tx.Exec(ctx, query, e.ID, e.FundID, amountString(e.Amount), string(e.Recipient), string(e.Approver), e.Description, e.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListDeposits returns a fund's deposit audit log, newest first.
func (r *PostgresRepository) ListDeposits(ctx context.Context, fundID uuid.UUID, limit int) ([]domain.Deposit, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, fund_id, amount::text, sender, description, fee_deposit, created_at
		FROM treasury_deposits
		WHERE fund_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, fundID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deposits []domain.Deposit
	for rows.Next() {
		var d domain.Deposit
		var amount, sender string
		if err := rows.Scan(&d.ID, &d.FundID, &amount, &sender, &d.Description, &d.FeeDeposit, &d.CreatedAt); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseAmount(amount)
		if err != nil {
			return nil, err
		}
		d.Amount = parsed
		d.Sender = domain.Address(sender)
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}

// ListExpenses returns a fund's expense audit log, newest first.
func (r *PostgresRepository) ListExpenses(ctx context.Context, fundID uuid.UUID, limit int) ([]domain.Expense, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, fund_id, amount::text, recipient, approver, description, created_at
		FROM treasury_expenses
		WHERE fund_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, fundID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []domain.Expense
	for rows.Next() {
		var e domain.Expense
		var amount, recipient, approver string
		if err := rows.Scan(&e.ID, &e.FundID, &amount, &recipient, &approver, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseAmount(amount)
		if err != nil {
			return nil, err
		}
		e.Amount = parsed
		e.Recipient = domain.Address(recipient)
		e.Approver = domain.Address(approver)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// InsertTransfer appends one settled transfer to the journal.
func (r *PostgresRepository) InsertTransfer(ctx context.Context, record domain.TransferRecord) error {
	query := `
		INSERT INTO transfers (id, sender, recipient, amount, fee, net, tier, memo, batch_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		record.ID, string(record.Sender), string(record.Recipient),
		amountString(record.Amount), amountString(record.Fee), amountString(record.Net),
		string(record.Tier), record.Memo, record.BatchID, record.CreatedAt)
	return err
}

// SetMembership upserts or removes a membership row.
func (r *PostgresRepository) SetMembership(ctx context.Context, addr domain.Address, member bool) error {
	if !member {
		_, err := r.db.Exec(ctx, `DELETE FROM memberships WHERE address = $1`, string(addr))
		return err
	}
	_, err := r.db.Exec(ctx, `INSERT INTO memberships (address) VALUES ($1) ON CONFLICT (address) DO NOTHING`, string(addr))
	return err
}

// ListMembers returns every membership address.
func (r *PostgresRepository) ListMembers(ctx context.Context) ([]domain.Address, error) {
	rows, err := r.db.Query(ctx, `SELECT address FROM memberships`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Address
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		members = append(members, domain.Address(addr))
	}
	return members, rows.Err()
}

// SaveScheduledTransfer upserts one schedule's full state.
func (r *PostgresRepository) SaveScheduledTransfer(ctx context.Context, schedule domain.ScheduledTransfer) error {
	query := `
		INSERT INTO scheduled_transfers (id, sender, recipient, net_amount, fee_per_execution, escrow_balance,
			interval_seconds, next_execution, remaining_transfers, indefinite, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			escrow_balance = EXCLUDED.escrow_balance,
			next_execution = EXCLUDED.next_execution,
			remaining_transfers = EXCLUDED.remaining_transfers,
			active = EXCLUDED.active
	`
	_, err := r.db.Exec(ctx, query,
		schedule.ID, string(schedule.Sender), string(schedule.Recipient),
		amountString(schedule.NetAmount), amountString(schedule.FeePerExecution), amountString(schedule.EscrowBalance),
		int64(schedule.Interval/time.Second), schedule.NextExecution, int64(schedule.RemainingTransfers),
		schedule.Indefinite, schedule.Active, schedule.CreatedAt)
	return err
}

// ListScheduledTransfers returns every schedule row.
func (r *PostgresRepository) ListScheduledTransfers(ctx context.Context) ([]domain.ScheduledTransfer, error) {
	query := `
		SELECT id, sender, recipient, net_amount::text, fee_per_execution::text, escrow_balance::text,
			interval_seconds, next_execution, remaining_transfers, indefinite, active, created_at
		FROM scheduled_transfers
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []domain.ScheduledTransfer
	for rows.Next() {
		var s domain.ScheduledTransfer
		var sender, recipient, net, fee, escrow string
		var intervalSeconds, remaining int64
		if err := rows.Scan(&s.ID, &sender, &recipient, &net, &fee, &escrow,
			&intervalSeconds, &s.NextExecution, &remaining, &s.Indefinite, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		if s.NetAmount, err = domain.ParseAmount(net); err != nil {
			return nil, err
		}
		if s.FeePerExecution, err = domain.ParseAmount(fee); err != nil {
			return nil, err
		}
		if s.EscrowBalance, err = domain.ParseAmount(escrow); err != nil {
			return nil, err
		}
		s.Sender = domain.Address(sender)
		s.Recipient = domain.Address(recipient)
		s.Interval = time.Duration(intervalSeconds) * time.Second
		s.RemainingTransfers = uint64(remaining)
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// SaveCollection upserts one community collection's state.
func (r *PostgresRepository) SaveCollection(ctx context.Context, collection domain.CommunityCollection) error {
	query := `
		INSERT INTO community_collections (id, creator, purpose, goal, collected, deadline, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			collected = EXCLUDED.collected,
			active = EXCLUDED.active
	`
	_, err := r.db.Exec(ctx, query,
		collection.ID, string(collection.Creator), collection.Purpose,
		amountString(collection.Goal), amountString(collection.Collected),
		collection.Deadline, collection.Active, collection.CreatedAt)
	return err
}

// ListCollections returns every community collection.
func (r *PostgresRepository) ListCollections(ctx context.Context) ([]domain.CommunityCollection, error) {
	query := `SELECT id, creator, purpose, goal::text, collected::text, deadline, active, created_at FROM community_collections`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []domain.CommunityCollection
	for rows.Next() {
		var c domain.CommunityCollection
		var creator, goal, collected string
		if err := rows.Scan(&c.ID, &creator, &c.Purpose, &goal, &collected, &c.Deadline, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		if c.Goal, err = domain.ParseAmount(goal); err != nil {
			return nil, err
		}
		if c.Collected, err = domain.ParseAmount(collected); err != nil {
			return nil, err
		}
		c.Creator = domain.Address(creator)
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// InsertContribution appends one contribution to the journal.
func (r *PostgresRepository) InsertContribution(ctx context.Context, contribution domain.Contribution) error {
	query := `INSERT INTO collection_contributions (id, collection_id, contributor, amount, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Exec(ctx, query,
		contribution.ID, contribution.CollectionID, string(contribution.Contributor),
		amountString(contribution.Amount), contribution.CreatedAt)
	return err
}

// SaveStake upserts one stake's state.
func (r *PostgresRepository) SaveStake(ctx context.Context, stake domain.Stake) error {
	query := `
		INSERT INTO stakes (id, owner, amount, start_time, end_time, last_claim_time, tier, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			amount = EXCLUDED.amount,
			end_time = EXCLUDED.end_time,
			last_claim_time = EXCLUDED.last_claim_time,
			tier = EXCLUDED.tier,
			active = EXCLUDED.active
	`
	_, err := r.db.Exec(ctx, query,
		stake.ID, string(stake.Owner), amountString(stake.Amount),
		stake.StartTime, stake.EndTime, stake.LastClaimTime, string(stake.Tier), stake.Active)
	return err
}

// ListStakes returns every stake row.
func (r *PostgresRepository) ListStakes(ctx context.Context) ([]domain.Stake, error) {
	query := `SELECT id, owner, amount::text, start_time, end_time, last_claim_time, tier, active FROM stakes`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stakes []domain.Stake
	for rows.Next() {
		var s domain.Stake
		var owner, amount, tier string
		if err := rows.Scan(&s.ID, &owner, &amount, &s.StartTime, &s.EndTime, &s.LastClaimTime, &tier, &s.Active); err != nil {
			return nil, err
		}
		if s.Amount, err = domain.ParseAmount(amount); err != nil {
			return nil, err
		}
		s.Owner = domain.Address(owner)
		s.Tier = domain.StakingTier(tier)
		stakes = append(stakes, s)
	}
	return stakes, rows.Err()
}

// SaveRewardsPool stores the staking rewards pool balance (single row table).
func (r *PostgresRepository) SaveRewardsPool(ctx context.Context, balance *uint256.Int) error {
	query := `
		INSERT INTO rewards_pool (id, balance) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET balance = EXCLUDED.balance
	`
	_, err := r.db.Exec(ctx, query, amountString(balance))
	return err
}

// GetRewardsPool loads the staking rewards pool balance, zero when unset.
func (r *PostgresRepository) GetRewardsPool(ctx context.Context) (*uint256.Int, error) {
	var balance string
	err := r.db.QueryRow(ctx, `SELECT balance::text FROM rewards_pool WHERE id = 1`).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return new(uint256.Int), nil
		}
		return nil, err
	}
	return domain.ParseAmount(balance)
}

// SaveTierRequirement upserts one staking tier row.
func (r *PostgresRepository) SaveTierRequirement(ctx context.Context, req domain.TierRequirement) error {
	query := `
		INSERT INTO staking_tiers (tier, min_amount, min_duration_seconds, reward_multiplier_bps, gov_weight_bps, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tier) DO UPDATE SET
			min_amount = EXCLUDED.min_amount,
			min_duration_seconds = EXCLUDED.min_duration_seconds,
			reward_multiplier_bps = EXCLUDED.reward_multiplier_bps,
			gov_weight_bps = EXCLUDED.gov_weight_bps,
			enabled = EXCLUDED.enabled
	`
	_, err := r.db.Exec(ctx, query,
		string(req.Tier), amountString(req.MinAmount), int64(req.MinDuration/time.Second),
		int(req.RewardMultiplierBps), int(req.GovWeightBps), req.Enabled)
	return err
}

// ListTierRequirements returns the persisted staking tier table.
func (r *PostgresRepository) ListTierRequirements(ctx context.Context) ([]domain.TierRequirement, error) {
	query := `SELECT tier, min_amount::text, min_duration_seconds, reward_multiplier_bps, gov_weight_bps, enabled FROM staking_tiers`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []domain.TierRequirement
	for rows.Next() {
		var req domain.TierRequirement
		var tier, minAmount string
		var durationSeconds int64
		var multiplier, govWeight int
		if err := rows.Scan(&tier, &minAmount, &durationSeconds, &multiplier, &govWeight, &req.Enabled); err != nil {
			return nil, err
		}
		if req.MinAmount, err = domain.ParseAmount(minAmount); err != nil {
			return nil, err
		}
		req.Tier = domain.StakingTier(tier)
		req.MinDuration = time.Duration(durationSeconds) * time.Second
		req.RewardMultiplierBps = uint16(multiplier)
		req.GovWeightBps = uint16(govWeight)
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// SaveBalance upserts one account's vault balance snapshot.
func (r *PostgresRepository) SaveBalance(ctx context.Context, balance AccountBalance) error {
	query := `
		INSERT INTO account_balances (address, wallet, pending) VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE SET wallet = EXCLUDED.wallet, pending = EXCLUDED.pending
	`
	_, err := r.db.Exec(ctx, query, string(balance.Address), amountString(balance.Wallet), amountString(balance.Pending))
	return err
}

// ListBalances returns every account balance snapshot row.
func (r *PostgresRepository) ListBalances(ctx context.Context) ([]AccountBalance, error) {
	rows, err := r.db.Query(ctx, `SELECT address, wallet::text, pending::text FROM account_balances`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []AccountBalance
	for rows.Next() {
		var addr, wallet, pending string
		if err := rows.Scan(&addr, &wallet, &pending); err != nil {
			return nil, err
		}
		b := AccountBalance{Address: domain.Address(addr)}
		if b.Wallet, err = domain.ParseAmount(wallet); err != nil {
			return nil, err
		}
		if b.Pending, err = domain.ParseAmount(pending); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// MarkPayout records one completed external payout.
func (r *PostgresRepository) MarkPayout(ctx context.Context, id uuid.UUID, addr domain.Address, amount *uint256.Int, reference string) error {
	query := `INSERT INTO payouts (id, address, amount, reference, created_at) VALUES ($1, $2, $3, $4, NOW())`
	_, err := r.db.Exec(ctx, query, id, string(addr), amountString(amount), reference)
	return err
}
