/**
 * @description
 * This file contains the core business logic orchestration for the ledger
 * service. The `Service` struct owns the four in-memory ledger engines (fees,
 * treasury, transfers, staking) plus the shared balance vault, and coordinates
 * every operation with the persistence journal, the payout gateway, and the
 * message broker.
 *
 * Key features:
 * - Engines are authoritative; Postgres is a write-behind journal plus the
 *   snapshot used to rehydrate engine state at boot.
 * - Journal failures never roll back a settled ledger operation: they are
 *   logged and the snapshot is repaired by the next write.
 * - Pull-payment withdrawals are two-phase: the claimable balance is zeroed
 *   before the external payout call and restored if the payout leg fails.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/ledger/*, internal/store: Engines and data access.
 * - pkg/payoutclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/feeengine"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/staking"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/transferengine"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/treasury"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/vault"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/store"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/pkg/payoutclient"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/pkg/rabbitmq"
)

// PayoutGateway is the settlement rail used to pay withdrawn balances out.
type PayoutGateway interface {
	InitiatePayout(ctx context.Context, recipient, amount, reference string) (*payoutclient.PayoutResponse, error)
}

// Service provides the core business logic for the ledger engines.
type Service struct {
	repo     store.Repository
	producer rabbitmq.Publisher
	payouts  PayoutGateway

	vault     *vault.Ledger
	fees      *feeengine.Engine
	treasury  *treasury.Ledger
	transfers *transferengine.Engine
	staking   *staking.Engine
}

// NewService wires the engines together: treasury over the shared vault, the
// fee engine draining its platform leg into the treasury, and the transfer
// engine consulting the staking engine for node operator status.
func NewService(repo store.Repository, producer rabbitmq.Publisher, payouts PayoutGateway, communityAccount domain.Address, transferCfg transferengine.Config) *Service {
	v := vault.NewLedger()
	tr := treasury.NewLedger(v)
	fe := feeengine.NewEngine(v, tr, communityAccount)
	st := staking.NewEngine(v)
	te := transferengine.NewEngine(v, tr, st, transferCfg)

	return &Service{
		repo:      repo,
		producer:  producer,
		payouts:   payouts,
		vault:     v,
		fees:      fe,
		treasury:  tr,
		transfers: te,
		staking:   st,
	}
}

// Rehydrate reloads every engine from the persistence snapshot. Called once at
// boot before the API starts serving.
func (s *Service) Rehydrate(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	balances, err := s.repo.ListBalances(ctx)
	if err != nil {
		return fmt.Errorf("load balances: %w", err)
	}
	for _, b := range balances {
		s.vault.RestoreWallet(b.Address, b.Wallet, b.Pending)
	}

	profiles, err := s.repo.ListFeeProfiles(ctx)
	if err != nil {
		return fmt.Errorf("load fee profiles: %w", err)
	}
	for _, p := range profiles {
		s.fees.RestoreProfile(p)
	}
	tiers, err := s.repo.ListVolumeTiers(ctx)
	if err != nil {
		return fmt.Errorf("load volume tiers: %w", err)
	}
	if len(tiers) > 0 {
		s.fees.RestoreVolumeTiers(tiers)
	}
	spend, err := s.repo.ListCumulativeSpend(ctx)
	if err != nil {
		return fmt.Errorf("load cumulative spend: %w", err)
	}
	for payer, total := range spend {
		s.fees.RestoreSpend(payer, total)
	}

	funds, err := s.repo.ListFunds(ctx)
	if err != nil {
		return fmt.Errorf("load funds: %w", err)
	}
	for _, f := range funds {
		s.treasury.RestoreFund(f)
	}

	members, err := s.repo.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}
	for _, m := range members {
		s.transfers.RestoreMember(m)
	}
	schedules, err := s.repo.ListScheduledTransfers(ctx)
	if err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}
	for _, sch := range schedules {
		s.transfers.RestoreSchedule(sch)
	}
	collections, err := s.repo.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("load collections: %w", err)
	}
	for _, c := range collections {
		s.transfers.RestoreCollection(c)
	}

	stakes, err := s.repo.ListStakes(ctx)
	if err != nil {
		return fmt.Errorf("load stakes: %w", err)
	}
	for _, st := range stakes {
		s.staking.RestoreStake(st)
	}
	pool, err := s.repo.GetRewardsPool(ctx)
	if err != nil {
		return fmt.Errorf("load rewards pool: %w", err)
	}
	s.staking.RestoreRewardsPool(pool)
	reqs, err := s.repo.ListTierRequirements(ctx)
	if err != nil {
		return fmt.Errorf("load staking tiers: %w", err)
	}
	for _, req := range reqs {
		s.staking.RestoreTierRequirement(req)
	}

	log.Printf("level=info component=ledger_service msg=\"state rehydrated\" balances=%d funds=%d schedules=%d stakes=%d", len(balances), len(funds), len(schedules), len(stakes))
	return nil
}

// journal logs a persistence failure without failing the settled operation.
func (s *Service) journal(op string, err error) {
	if err != nil {
		log.Printf("level=warn component=ledger_service msg=\"journal write failed\" op=%s err=%v", op, err)
	}
}

// persistBalances snapshots the affected accounts' vault balances.
func (s *Service) persistBalances(ctx context.Context, addrs ...domain.Address) {
	if s.repo == nil {
		return
	}
	seen := make(map[domain.Address]bool, len(addrs))
	for _, addr := range addrs {
		if addr.IsZero() || seen[addr] {
			continue
		}
		seen[addr] = true
		s.journal("save_balance", s.repo.SaveBalance(ctx, store.AccountBalance{
			Address: addr,
			Wallet:  s.vault.WalletBalance(addr),
			Pending: s.vault.PendingBalance(addr),
		}))
	}
}

// persistFunds snapshots every treasury fund row.
func (s *Service) persistFunds(ctx context.Context) {
	if s.repo == nil {
		return
	}
	for _, fund := range s.treasury.Funds() {
		s.journal("save_fund", s.repo.SaveFund(ctx, fund))
	}
}

func (s *Service) publish(ctx context.Context, routingKey string, body interface{}) {
	if s.producer == nil {
		return
	}
	if err := s.producer.Publish(ctx, rabbitmq.LedgerEventsExchange, routingKey, body); err != nil {
		log.Printf("level=warn component=ledger_service msg=\"event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}

// ---- Vault ----

// CreditWallet records inbound value from the settlement rail.
func (s *Service) CreditWallet(ctx context.Context, addr domain.Address, amount *uint256.Int) error {
	if err := s.vault.CreditWallet(addr, amount); err != nil {
		return err
	}
	s.persistBalances(ctx, addr)
	return nil
}

// WalletBalance returns an account's spendable balance.
func (s *Service) WalletBalance(addr domain.Address) *uint256.Int {
	return s.vault.WalletBalance(addr)
}

// PendingBalance returns an account's claimable balance.
func (s *Service) PendingBalance(addr domain.Address) *uint256.Int {
	return s.vault.PendingBalance(addr)
}

// WithdrawPending pays an account's whole claimable balance out through the
// settlement rail. The balance is zeroed before the external call and restored
// when the payout leg fails; without a configured gateway the balance settles
// into the local wallet instead.
func (s *Service) WithdrawPending(ctx context.Context, addr domain.Address) (*uint256.Int, error) {
	amount, err := s.vault.BeginWithdrawal(addr)
	if err != nil {
		return nil, err
	}

	reference := uuid.New()
	if s.payouts != nil {
		if _, err := s.payouts.InitiatePayout(ctx, string(addr), amount.Dec(), reference.String()); err != nil {
			s.vault.CancelWithdrawal(addr, amount)
			return nil, fmt.Errorf("payout leg: %w", err)
		}
	} else {
		if err := s.vault.CreditWallet(addr, amount); err != nil {
			s.vault.CancelWithdrawal(addr, amount)
			return nil, err
		}
	}

	if s.repo != nil {
		s.journal("mark_payout", s.repo.MarkPayout(ctx, reference, addr, amount, reference.String()))
	}
	s.persistBalances(ctx, addr)
	s.publish(ctx, domain.EventPayoutCompleted, domain.PayoutEvent{
		Account:   string(addr),
		Amount:    amount.Dec(),
		Reference: reference.String(),
		Timestamp: time.Now().UTC(),
	})
	return amount, nil
}

// ---- Fee engine ----

// CalculateFee previews a fee split without mutating state.
func (s *Service) CalculateFee(amount *uint256.Int, feeType domain.FeeType, payer domain.Address, communityOverrideBps *uint16) (domain.FeeBreakdown, error) {
	return s.fees.CalculateFee(amount, feeType, payer, communityOverrideBps)
}

// ProcessFee settles a marketplace fee event and journals the record.
func (s *Service) ProcessFee(ctx context.Context, auth domain.AuthContext, amount *uint256.Int, feeType domain.FeeType, payer, creator domain.Address, communityOverrideBps *uint16) (*domain.FeeTransactionRecord, error) {
	record, err := s.fees.ProcessFee(auth, amount, feeType, payer, creator, communityOverrideBps)
	if err != nil {
		return nil, err
	}

	if s.repo != nil {
		s.journal("insert_fee_transaction", s.repo.InsertFeeTransaction(ctx, *record))
		s.journal("upsert_cumulative_spend", s.repo.UpsertCumulativeSpend(ctx, payer, s.fees.CumulativeSpend(payer)))
	}
	s.persistFunds(ctx)
	s.persistBalances(ctx, payer, creator)
	s.publish(ctx, domain.EventFeeProcessed, domain.FeeProcessedEvent{
		TransactionID: record.ID.String(),
		FeeType:       string(record.FeeType),
		Payer:         string(record.Payer),
		Creator:       string(record.Creator),
		Amount:        record.Amount.Dec(),
		Fee:           record.Fee.Dec(),
		Royalty:       record.Royalty.Dec(),
		CommunityFund: record.CommunityFund.Dec(),
		PlatformFee:   record.PlatformFee.Dec(),
		Timestamp:     record.CreatedAt,
	})
	return record, nil
}

// SetFeeProfile replaces a fee type's split configuration.
func (s *Service) SetFeeProfile(ctx context.Context, auth domain.AuthContext, profile domain.FeeProfile) error {
	if err := s.fees.SetProfile(auth, profile); err != nil {
		return err
	}
	if s.repo != nil {
		stored, err := s.fees.Profile(profile.Type)
		if err == nil {
			s.journal("save_fee_profile", s.repo.SaveFeeProfile(ctx, stored))
		}
	}
	return nil
}

// DeactivateFeeProfile disables one fee type.
func (s *Service) DeactivateFeeProfile(ctx context.Context, auth domain.AuthContext, feeType domain.FeeType) error {
	if err := s.fees.DeactivateProfile(auth, feeType); err != nil {
		return err
	}
	if s.repo != nil {
		stored, err := s.fees.Profile(feeType)
		if err == nil {
			s.journal("save_fee_profile", s.repo.SaveFeeProfile(ctx, stored))
		}
	}
	return nil
}

// SetVolumeTier creates or replaces a volume discount tier.
func (s *Service) SetVolumeTier(ctx context.Context, auth domain.AuthContext, threshold *uint256.Int, discountBps uint16) error {
	if err := s.fees.SetVolumeTier(auth, threshold, discountBps); err != nil {
		return err
	}
	if s.repo != nil {
		s.journal("replace_volume_tiers", s.repo.ReplaceVolumeTiers(ctx, s.fees.VolumeTiers()))
	}
	return nil
}

// FeeProfiles lists every configured fee profile.
func (s *Service) FeeProfiles() []domain.FeeProfile {
	return s.fees.Profiles()
}

// FeeProfile returns one fee type's configuration.
func (s *Service) FeeProfile(feeType domain.FeeType) (domain.FeeProfile, error) {
	return s.fees.Profile(feeType)
}

// FeeTransaction returns one journaled fee record.
func (s *Service) FeeTransaction(id uuid.UUID) (domain.FeeTransactionRecord, error) {
	return s.fees.Transaction(id)
}

// CumulativeSpend returns a payer's lifetime fee-bearing volume.
func (s *Service) CumulativeSpend(payer domain.Address) *uint256.Int {
	return s.fees.CumulativeSpend(payer)
}

// VolumeDiscountBps returns the discount a payer's cumulative spend earns.
func (s *Service) VolumeDiscountBps(payer domain.Address) uint16 {
	return s.fees.VolumeDiscountBps(payer)
}

// ---- Treasury ----

// CreateFund adds a treasury fund.
func (s *Service) CreateFund(ctx context.Context, auth domain.AuthContext, name string, allocationBps uint16) (domain.Fund, error) {
	fund, err := s.treasury.CreateFund(auth, name, allocationBps)
	if err != nil {
		return domain.Fund{}, err
	}
	s.persistFunds(ctx)
	return fund, nil
}

// UpdateFundAllocation changes one fund's allocation.
func (s *Service) UpdateFundAllocation(ctx context.Context, auth domain.AuthContext, fundID uuid.UUID, allocationBps uint16) (domain.Fund, error) {
	fund, err := s.treasury.UpdateFundAllocation(auth, fundID, allocationBps)
	if err != nil {
		return domain.Fund{}, err
	}
	s.persistFunds(ctx)
	return fund, nil
}

// UpdateAllFundAllocations bulk-replaces every active fund's allocation.
func (s *Service) UpdateAllFundAllocations(ctx context.Context, auth domain.AuthContext, allocations []domain.FundAllocation) error {
	if err := s.treasury.UpdateAllFundAllocations(auth, allocations); err != nil {
		return err
	}
	s.persistFunds(ctx)
	return nil
}

// DeactivateFund retires a fund, sweeping its balance to the default fund.
func (s *Service) DeactivateFund(ctx context.Context, auth domain.AuthContext, fundID uuid.UUID) (domain.Fund, error) {
	fund, err := s.treasury.DeactivateFund(auth, fundID)
	if err != nil {
		return domain.Fund{}, err
	}
	s.persistFunds(ctx)
	return fund, nil
}

// DepositFunds moves value from the sender's wallet into the treasury.
func (s *Service) DepositFunds(ctx context.Context, sender domain.Address, amount *uint256.Int, description string) ([]domain.Deposit, error) {
	deposits, err := s.treasury.DepositFunds(sender, amount, description)
	if err != nil {
		return nil, err
	}
	if s.repo != nil {
		s.journal("insert_deposits", s.repo.InsertDeposits(ctx, deposits))
	}
	s.persistFunds(ctx)
	s.persistBalances(ctx, sender)
	s.publish(ctx, domain.EventTreasuryDeposit, domain.TreasuryEvent{
		Amount:      amount.Dec(),
		Account:     string(sender),
		Description: description,
		Timestamp:   time.Now().UTC(),
	})
	return deposits, nil
}

// DepositFees is the capability-gated fee collector deposit path.
func (s *Service) DepositFees(ctx context.Context, auth domain.AuthContext, amount *uint256.Int, description string) ([]domain.Deposit, error) {
	deposits, err := s.treasury.DepositFees(auth, amount, description)
	if err != nil {
		return nil, err
	}
	if s.repo != nil {
		s.journal("insert_deposits", s.repo.InsertDeposits(ctx, deposits))
	}
	s.persistFunds(ctx)
	s.persistBalances(ctx, auth.Caller)
	return deposits, nil
}

// WithdrawFromFund pays out of one named fund.
func (s *Service) WithdrawFromFund(ctx context.Context, auth domain.AuthContext, fundID uuid.UUID, recipient domain.Address, amount *uint256.Int, description string) (domain.Expense, error) {
	expense, err := s.treasury.Withdraw(auth, fundID, recipient, amount, description)
	if err != nil {
		return domain.Expense{}, err
	}
	if s.repo != nil {
		s.journal("insert_expenses", s.repo.InsertExpenses(ctx, []domain.Expense{expense}))
	}
	s.persistFunds(ctx)
	s.persistBalances(ctx, recipient)
	s.publish(ctx, domain.EventTreasuryWithdrawal, domain.TreasuryEvent{
		FundID:      expense.FundID.String(),
		Amount:      expense.Amount.Dec(),
		Account:     string(recipient),
		Description: description,
		Timestamp:   expense.CreatedAt,
	})
	return expense, nil
}

// WithdrawTreasuryFunds is the profit-sharing withdrawal across all funds.
func (s *Service) WithdrawTreasuryFunds(ctx context.Context, auth domain.AuthContext, recipient domain.Address, amount *uint256.Int) ([]domain.Expense, error) {
	expenses, err := s.treasury.WithdrawFunds(auth, recipient, amount)
	if err != nil {
		return nil, err
	}
	if s.repo != nil {
		s.journal("insert_expenses", s.repo.InsertExpenses(ctx, expenses))
	}
	s.persistFunds(ctx)
	s.persistBalances(ctx, recipient)
	s.publish(ctx, domain.EventTreasuryWithdrawal, domain.TreasuryEvent{
		Amount:    amount.Dec(),
		Account:   string(recipient),
		Timestamp: time.Now().UTC(),
	})
	return expenses, nil
}

// Funds lists every treasury fund.
func (s *Service) Funds() []domain.Fund {
	return s.treasury.Funds()
}

// Fund returns one treasury fund.
func (s *Service) Fund(fundID uuid.UUID) (domain.Fund, error) {
	return s.treasury.Fund(fundID)
}

// FundDeposits reads a fund's deposit audit log from the journal.
func (s *Service) FundDeposits(ctx context.Context, fundID uuid.UUID, limit int) ([]domain.Deposit, error) {
	if _, err := s.treasury.Fund(fundID); err != nil {
		return nil, err
	}
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListDeposits(ctx, fundID, limit)
}

// FundExpenses reads a fund's expense audit log from the journal.
func (s *Service) FundExpenses(ctx context.Context, fundID uuid.UUID, limit int) ([]domain.Expense, error) {
	if _, err := s.treasury.Fund(fundID); err != nil {
		return nil, err
	}
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListExpenses(ctx, fundID, limit)
}

// TreasuryBalance sums every active fund's balance.
func (s *Service) TreasuryBalance() *uint256.Int {
	return s.treasury.TotalBalance()
}

// SnapshotTreasury persists every fund row and returns the total balance as a
// decimal wei string. The cron job calls this periodically.
func (s *Service) SnapshotTreasury(ctx context.Context) string {
	s.persistFunds(ctx)
	return s.treasury.TotalBalance().Dec()
}

// ---- Transfer engine ----

// Transfer settles one peer-to-peer transfer.
func (s *Service) Transfer(ctx context.Context, sender, recipient domain.Address, amount *uint256.Int, memo string) (domain.TransferRecord, error) {
	record, err := s.transfers.Transfer(sender, recipient, amount, memo)
	if err != nil {
		return domain.TransferRecord{}, err
	}
	s.journalTransfer(ctx, record)
	return record, nil
}

// BatchTransfer settles a batch atomically.
func (s *Service) BatchTransfer(ctx context.Context, sender domain.Address, items []transferengine.BatchItem) ([]domain.TransferRecord, uuid.UUID, error) {
	records, batchID, err := s.transfers.BatchTransfer(sender, items)
	if err != nil {
		return nil, uuid.Nil, err
	}
	for _, record := range records {
		s.journalTransfer(ctx, record)
	}
	return records, batchID, nil
}

func (s *Service) journalTransfer(ctx context.Context, record domain.TransferRecord) {
	if s.repo != nil {
		s.journal("insert_transfer", s.repo.InsertTransfer(ctx, record))
	}
	s.persistFunds(ctx)
	s.persistBalances(ctx, record.Sender, record.Recipient)
	event := domain.TransferCompletedEvent{
		TransferID: record.ID.String(),
		Sender:     string(record.Sender),
		Recipient:  string(record.Recipient),
		Amount:     record.Amount.Dec(),
		Fee:        record.Fee.Dec(),
		Tier:       string(record.Tier),
		Timestamp:  record.CreatedAt,
	}
	if record.BatchID != nil {
		event.BatchID = record.BatchID.String()
	}
	s.publish(ctx, domain.EventTransferCompleted, event)
}

// SetMember grants or revokes membership.
func (s *Service) SetMember(ctx context.Context, auth domain.AuthContext, addr domain.Address, member bool) error {
	if err := s.transfers.SetMember(auth, addr, member); err != nil {
		return err
	}
	if s.repo != nil {
		s.journal("set_membership", s.repo.SetMembership(ctx, addr, member))
	}
	return nil
}

// IsMember reports membership status.
func (s *Service) IsMember(addr domain.Address) bool {
	return s.transfers.IsMember(addr)
}

// DailyUsage returns the sender's spent portion of the rolling 24h cap.
func (s *Service) DailyUsage(sender domain.Address) *uint256.Int {
	return s.transfers.DailyUsage(sender)
}

// CreateScheduledTransfer opens an escrowed recurring transfer.
func (s *Service) CreateScheduledTransfer(ctx context.Context, sender, recipient domain.Address, amount *uint256.Int, interval time.Duration, repetitions, fundedExecutions uint64) (domain.ScheduledTransfer, error) {
	schedule, err := s.transfers.CreateScheduledTransfer(sender, recipient, amount, interval, repetitions, fundedExecutions)
	if err != nil {
		return domain.ScheduledTransfer{}, err
	}
	if s.repo != nil {
		s.journal("save_schedule", s.repo.SaveScheduledTransfer(ctx, schedule))
	}
	s.persistFunds(ctx)
	s.persistBalances(ctx, sender)
	return schedule, nil
}

// ExecuteScheduledTransfer runs one due execution.
func (s *Service) ExecuteScheduledTransfer(ctx context.Context, scheduleID uuid.UUID) (domain.ScheduledTransfer, error) {
	schedule, err := s.transfers.ExecuteScheduledTransfer(scheduleID)
	if err != nil {
		return domain.ScheduledTransfer{}, err
	}
	if s.repo != nil {
		s.journal("save_schedule", s.repo.SaveScheduledTransfer(ctx, schedule))
	}
	s.persistBalances(ctx, schedule.Recipient)
	s.publish(ctx, domain.EventScheduledExecuted, domain.TransferCompletedEvent{
		TransferID: schedule.ID.String(),
		Sender:     string(schedule.Sender),
		Recipient:  string(schedule.Recipient),
		Amount:     schedule.NetAmount.Dec(),
		Fee:        schedule.FeePerExecution.Dec(),
		Timestamp:  time.Now().UTC(),
	})
	return schedule, nil
}

// TopUpScheduledTransfer escrows further executions of an indefinite schedule.
func (s *Service) TopUpScheduledTransfer(ctx context.Context, caller domain.Address, scheduleID uuid.UUID, executions uint64) (domain.ScheduledTransfer, error) {
	schedule, err := s.transfers.TopUpScheduledTransfer(caller, scheduleID, executions)
	if err != nil {
		return domain.ScheduledTransfer{}, err
	}
	if s.repo != nil {
		s.journal("save_schedule", s.repo.SaveScheduledTransfer(ctx, schedule))
	}
	s.persistFunds(ctx)
	s.persistBalances(ctx, caller)
	return schedule, nil
}

// CancelScheduledTransfer refunds an active schedule's remaining escrow.
func (s *Service) CancelScheduledTransfer(ctx context.Context, caller domain.Address, scheduleID uuid.UUID) (domain.ScheduledTransfer, error) {
	schedule, err := s.transfers.CancelScheduledTransfer(caller, scheduleID)
	if err != nil {
		return domain.ScheduledTransfer{}, err
	}
	if s.repo != nil {
		s.journal("save_schedule", s.repo.SaveScheduledTransfer(ctx, schedule))
	}
	s.persistBalances(ctx, caller)
	return schedule, nil
}

// ScheduledTransfer returns one schedule.
func (s *Service) ScheduledTransfer(scheduleID uuid.UUID) (domain.ScheduledTransfer, error) {
	return s.transfers.ScheduledTransfer(scheduleID)
}

// RunDueScheduledTransfers executes every due schedule. The cron job calls
// this; failures on one schedule never block the rest.
func (s *Service) RunDueScheduledTransfers(ctx context.Context) int {
	executed := 0
	for _, schedule := range s.transfers.DueSchedules() {
		if _, err := s.ExecuteScheduledTransfer(ctx, schedule.ID); err != nil {
			log.Printf("level=warn component=ledger_service msg=\"scheduled execution failed\" schedule_id=%s err=%v", schedule.ID, err)
			continue
		}
		executed++
	}
	return executed
}

// CreateCommunityCollection opens a contribution pool.
func (s *Service) CreateCommunityCollection(ctx context.Context, creator domain.Address, purpose string, goal *uint256.Int, deadline time.Time) (domain.CommunityCollection, error) {
	collection, err := s.transfers.CreateCommunityCollection(creator, purpose, goal, deadline)
	if err != nil {
		return domain.CommunityCollection{}, err
	}
	if s.repo != nil {
		s.journal("save_collection", s.repo.SaveCollection(ctx, collection))
	}
	return collection, nil
}

// ContributeToCollection adds funds to an open pool.
func (s *Service) ContributeToCollection(ctx context.Context, contributor domain.Address, collectionID uuid.UUID, amount *uint256.Int) (domain.Contribution, error) {
	contribution, err := s.transfers.ContributeToCollection(contributor, collectionID, amount)
	if err != nil {
		return domain.Contribution{}, err
	}
	if s.repo != nil {
		s.journal("insert_contribution", s.repo.InsertContribution(ctx, contribution))
		if collection, err := s.transfers.CommunityCollection(collectionID); err == nil {
			s.journal("save_collection", s.repo.SaveCollection(ctx, collection))
		}
	}
	s.persistBalances(ctx, contributor)
	return contribution, nil
}

// FinalizeCommunityCollection closes a pool and pays the creator.
func (s *Service) FinalizeCommunityCollection(ctx context.Context, caller domain.Address, collectionID uuid.UUID) (domain.CommunityCollection, error) {
	payout := new(uint256.Int)
	if before, err := s.transfers.CommunityCollection(collectionID); err == nil {
		payout = before.Collected
	}
	collection, err := s.transfers.FinalizeCommunityCollection(caller, collectionID)
	if err != nil {
		return domain.CommunityCollection{}, err
	}
	if s.repo != nil {
		s.journal("save_collection", s.repo.SaveCollection(ctx, collection))
	}
	s.persistBalances(ctx, caller)
	s.publish(ctx, domain.EventCollectionFinal, domain.TreasuryEvent{
		FundID:    collection.ID.String(),
		FundName:  collection.Purpose,
		Amount:    payout.Dec(),
		Account:   string(caller),
		Timestamp: time.Now().UTC(),
	})
	return collection, nil
}

// AdminPayoutFromCollection routes part of an open pool to a recipient.
func (s *Service) AdminPayoutFromCollection(ctx context.Context, auth domain.AuthContext, collectionID uuid.UUID, recipient domain.Address, amount *uint256.Int) (domain.CommunityCollection, error) {
	collection, err := s.transfers.AdminPayoutFromCollection(auth, collectionID, recipient, amount)
	if err != nil {
		return domain.CommunityCollection{}, err
	}
	if s.repo != nil {
		s.journal("save_collection", s.repo.SaveCollection(ctx, collection))
	}
	s.persistBalances(ctx, recipient)
	return collection, nil
}

// CommunityCollection returns one collection.
func (s *Service) CommunityCollection(collectionID uuid.UUID) (domain.CommunityCollection, error) {
	return s.transfers.CommunityCollection(collectionID)
}

// ExpireDueCollections closes past-deadline collections. The cron job calls this.
func (s *Service) ExpireDueCollections(ctx context.Context) int {
	expired := s.transfers.ExpireDueCollections()
	for _, collection := range expired {
		if s.repo != nil {
			s.journal("save_collection", s.repo.SaveCollection(ctx, collection))
		}
		s.persistBalances(ctx, collection.Creator)
	}
	return len(expired)
}

// ---- Staking ----

// CreateStake escrows principal into a new stake.
func (s *Service) CreateStake(ctx context.Context, owner domain.Address, amount *uint256.Int, duration time.Duration) (domain.Stake, error) {
	stake, err := s.staking.CreateStake(owner, amount, duration)
	if err != nil {
		return domain.Stake{}, err
	}
	if s.repo != nil {
		s.journal("save_stake", s.repo.SaveStake(ctx, stake))
	}
	s.persistBalances(ctx, owner)
	s.publish(ctx, domain.EventStakeCreated, domain.StakingEvent{
		StakeID:   stake.ID.String(),
		Owner:     string(stake.Owner),
		Tier:      string(stake.Tier),
		Amount:    stake.Amount.Dec(),
		Timestamp: stake.StartTime,
	})
	return stake, nil
}

// ClaimStakingRewards pays out accrued rewards for one stake.
func (s *Service) ClaimStakingRewards(ctx context.Context, caller domain.Address, stakeID uuid.UUID) (*uint256.Int, error) {
	rewards, err := s.staking.ClaimRewards(caller, stakeID)
	if err != nil {
		return nil, err
	}
	s.journalStake(ctx, stakeID)
	s.persistBalances(ctx, caller)
	s.publish(ctx, domain.EventRewardsClaimed, domain.StakingEvent{
		StakeID:   stakeID.String(),
		Owner:     string(caller),
		Rewards:   rewards.Dec(),
		Timestamp: time.Now().UTC(),
	})
	return rewards, nil
}

// IncreaseStake adds principal to an active stake.
func (s *Service) IncreaseStake(ctx context.Context, caller domain.Address, stakeID uuid.UUID, additional *uint256.Int) (domain.Stake, error) {
	stake, err := s.staking.IncreaseStake(caller, stakeID, additional)
	if err != nil {
		return domain.Stake{}, err
	}
	s.journalStake(ctx, stakeID)
	s.persistBalances(ctx, caller)
	return stake, nil
}

// ExtendStake pushes a stake's end time out.
func (s *Service) ExtendStake(ctx context.Context, caller domain.Address, stakeID uuid.UUID, additional time.Duration) (domain.Stake, error) {
	stake, err := s.staking.ExtendStake(caller, stakeID, additional)
	if err != nil {
		return domain.Stake{}, err
	}
	s.journalStake(ctx, stakeID)
	s.persistBalances(ctx, caller)
	return stake, nil
}

// Unstake closes a matured stake.
func (s *Service) Unstake(ctx context.Context, caller domain.Address, stakeID uuid.UUID) (domain.Stake, *uint256.Int, error) {
	stake, rewards, err := s.staking.Unstake(caller, stakeID)
	if err != nil {
		return domain.Stake{}, nil, err
	}
	s.journalStake(ctx, stakeID)
	s.persistBalances(ctx, caller)
	return stake, rewards, nil
}

func (s *Service) journalStake(ctx context.Context, stakeID uuid.UUID) {
	if s.repo == nil {
		return
	}
	if stake, err := s.staking.Stake(stakeID); err == nil {
		s.journal("save_stake", s.repo.SaveStake(ctx, stake))
	}
	s.journal("save_rewards_pool", s.repo.SaveRewardsPool(ctx, s.staking.RewardsPool()))
}

// PendingStakingRewards previews a stake's unclaimed rewards.
func (s *Service) PendingStakingRewards(stakeID uuid.UUID) (*uint256.Int, error) {
	return s.staking.PendingRewards(stakeID)
}

// StakesByOwner lists an account's stakes.
func (s *Service) StakesByOwner(owner domain.Address) []domain.Stake {
	return s.staking.StakesByOwner(owner)
}

// GovernanceWeight derives an account's voting weight from its active stakes.
func (s *Service) GovernanceWeight(owner domain.Address) (*uint256.Int, error) {
	return s.staking.GovernanceWeight(owner)
}

// FundRewardsPool moves value from the caller's wallet into the rewards pool.
func (s *Service) FundRewardsPool(ctx context.Context, auth domain.AuthContext, amount *uint256.Int) error {
	if err := s.staking.FundRewardsPool(auth, amount); err != nil {
		return err
	}
	if s.repo != nil {
		s.journal("save_rewards_pool", s.repo.SaveRewardsPool(ctx, s.staking.RewardsPool()))
	}
	s.persistBalances(ctx, auth.Caller)
	return nil
}

// RewardsPool returns the staking rewards pool balance.
func (s *Service) RewardsPool() *uint256.Int {
	return s.staking.RewardsPool()
}

// SetTierRequirement replaces one staking tier's requirement row.
func (s *Service) SetTierRequirement(ctx context.Context, auth domain.AuthContext, req domain.TierRequirement) error {
	if err := s.staking.SetTierRequirement(auth, req); err != nil {
		return err
	}
	if s.repo != nil {
		s.journal("save_tier_requirement", s.repo.SaveTierRequirement(ctx, req))
	}
	return nil
}
