/**
 * @description
 * The transfer engine settles peer-to-peer transfers with a tiered fee
 * schedule, enforces a rolling daily transfer cap per sender, and forwards
 * collected fees into the treasury. Recipients are paid through the
 * pull-payment vault, never pushed directly.
 *
 * @notes
 * - Sender tier precedence: node operator (via the staking engine) is checked
 *   before membership, so validators always get the operator rate.
 * - The guest fee is clamped to [minFee, maxFee]; the member and node operator
 *   rates are discount paths and skip the minimum clamp. The maximum clamp
 *   always applies.
 * - The daily cap window resets lazily on the next write after 24h, there is
 *   no timer.
 */

package transferengine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/vault"
)

var (
	ErrZeroAddress        = errors.New("address cannot be zero")
	ErrSelfTransfer       = errors.New("sender and recipient must differ")
	ErrFeeExceedsAmount   = errors.New("fee exceeds transfer amount")
	ErrDailyLimitExceeded = errors.New("daily transfer limit exceeded")
	ErrEmptyBatch         = errors.New("batch contains no transfers")
)

// NodeOperatorSource reports whether an account runs an active node, which
// grants the lowest fee tier.
type NodeOperatorSource interface {
	IsNodeOperator(addr domain.Address) bool
}

// FeeSink receives collected transfer fees (the treasury).
type FeeSink interface {
	DepositCollectedFees(sender domain.Address, amount *uint256.Int, description string) error
}

// Config carries the transfer fee schedule and caps.
type Config struct {
	GuestFeeBps        uint16
	MemberFeeBps       uint16
	NodeOperatorFeeBps uint16
	MinFee             *uint256.Int
	MaxFee             *uint256.Int
	DailyLimit         *uint256.Int // zero disables the cap
}

// DefaultConfig is the launch schedule: guest 1%, member 0.5%, operator 0.25%,
// fee clamped between 0.0001 and 1 native token, 100 token daily cap.
func DefaultConfig() Config {
	return Config{
		GuestFeeBps:        100,
		MemberFeeBps:       50,
		NodeOperatorFeeBps: 25,
		MinFee:             uint256.MustFromDecimal("100000000000000"),
		MaxFee:             domain.Clone(domain.WeiPerEther),
		DailyLimit:         new(uint256.Int).Mul(uint256.NewInt(100), domain.WeiPerEther),
	}
}

type dailyUsage struct {
	windowStart time.Time
	used        *uint256.Int
}

// BatchItem is one recipient instruction inside a batch transfer.
type BatchItem struct {
	Recipient domain.Address
	Amount    *uint256.Int
	Memo      string
}

// Engine is the transfer ledger.
type Engine struct {
	mu sync.Mutex

	cfg     Config
	members map[domain.Address]bool
	usage   map[domain.Address]*dailyUsage

	schedules   map[uuid.UUID]*domain.ScheduledTransfer
	collections map[uuid.UUID]*domain.CommunityCollection

	nodeOps NodeOperatorSource
	feeSink FeeSink
	vault   *vault.Ledger
	now     func() time.Time
}

// NewEngine creates a transfer engine with the given fee schedule.
func NewEngine(v *vault.Ledger, feeSink FeeSink, nodeOps NodeOperatorSource, cfg Config) *Engine {
	return &Engine{
		cfg:         cfg,
		members:     make(map[domain.Address]bool),
		usage:       make(map[domain.Address]*dailyUsage),
		schedules:   make(map[uuid.UUID]*domain.ScheduledTransfer),
		collections: make(map[uuid.UUID]*domain.CommunityCollection),
		nodeOps:     nodeOps,
		feeSink:     feeSink,
		vault:       v,
		now:         time.Now,
	}
}

// SetMember grants or revokes membership. Requires the admin capability.
func (e *Engine) SetMember(auth domain.AuthContext, addr domain.Address, member bool) error {
	if err := auth.Require(domain.CapAdmin); err != nil {
		return err
	}
	if addr.IsZero() {
		return ErrZeroAddress
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if member {
		e.members[addr] = true
	} else {
		delete(e.members, addr)
	}
	return nil
}

// IsMember reports whether an account holds membership.
func (e *Engine) IsMember(addr domain.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.members[addr]
}

// tierLocked classifies a sender. Node operator status takes precedence over
// membership.
func (e *Engine) tierLocked(sender domain.Address) domain.SenderTier {
	if e.nodeOps != nil && e.nodeOps.IsNodeOperator(sender) {
		return domain.TierNodeOperator
	}
	if e.members[sender] {
		return domain.TierMember
	}
	return domain.TierGuest
}

// feeLocked computes the tiered fee for one transfer.
func (e *Engine) feeLocked(sender domain.Address, amount *uint256.Int) (*uint256.Int, domain.SenderTier, error) {
	tier := e.tierLocked(sender)
	var bps uint16
	switch tier {
	case domain.TierNodeOperator:
		bps = e.cfg.NodeOperatorFeeBps
	case domain.TierMember:
		bps = e.cfg.MemberFeeBps
	default:
		bps = e.cfg.GuestFeeBps
	}

	fee, err := domain.MulBps(amount, bps)
	if err != nil {
		return nil, tier, err
	}
	// Discounted tiers skip the minimum clamp; the ceiling always applies.
	if tier == domain.TierGuest && e.cfg.MinFee != nil && fee.Lt(e.cfg.MinFee) {
		fee = domain.Clone(e.cfg.MinFee)
	}
	if e.cfg.MaxFee != nil && fee.Gt(e.cfg.MaxFee) {
		fee = domain.Clone(e.cfg.MaxFee)
	}
	if fee.Gt(amount) {
		return nil, tier, ErrFeeExceedsAmount
	}
	return fee, tier, nil
}

// consumeDailyLimitLocked charges amount against the sender's rolling 24h
// window, resetting the window lazily when it has elapsed.
func (e *Engine) consumeDailyLimitLocked(sender domain.Address, amount *uint256.Int, now time.Time) error {
	if e.cfg.DailyLimit == nil || e.cfg.DailyLimit.IsZero() {
		return nil
	}
	u, ok := e.usage[sender]
	if !ok {
		u = &dailyUsage{windowStart: now, used: new(uint256.Int)}
		e.usage[sender] = u
	}
	if now.Sub(u.windowStart) >= 24*time.Hour {
		u.windowStart = now
		u.used.Clear()
	}
	next := new(uint256.Int).Add(u.used, amount)
	if next.Gt(e.cfg.DailyLimit) {
		return ErrDailyLimitExceeded
	}
	u.used = next
	return nil
}

// refundDailyLimitLocked releases usage consumed by an operation that was
// rolled back.
func (e *Engine) refundDailyLimitLocked(sender domain.Address, amount *uint256.Int) {
	if u, ok := e.usage[sender]; ok && !u.used.Lt(amount) {
		u.used.Sub(u.used, amount)
	}
}

// Transfer settles a single peer-to-peer transfer: the sender's wallet is
// debited, the net amount is credited to the recipient's claimable balance,
// and the fee is forwarded to the treasury.
func (e *Engine) Transfer(sender, recipient domain.Address, amount *uint256.Int, memo string) (domain.TransferRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transferLocked(sender, recipient, amount, memo, nil)
}

func (e *Engine) transferLocked(sender, recipient domain.Address, amount *uint256.Int, memo string, batchID *uuid.UUID) (domain.TransferRecord, error) {
	if sender.IsZero() || recipient.IsZero() {
		return domain.TransferRecord{}, ErrZeroAddress
	}
	if sender == recipient {
		return domain.TransferRecord{}, ErrSelfTransfer
	}
	if amount == nil || amount.IsZero() {
		return domain.TransferRecord{}, domain.ErrInvalidAmount
	}

	now := e.now().UTC()
	fee, tier, err := e.feeLocked(sender, amount)
	if err != nil {
		return domain.TransferRecord{}, err
	}
	if err := e.consumeDailyLimitLocked(sender, amount, now); err != nil {
		return domain.TransferRecord{}, err
	}

	net := new(uint256.Int).Sub(amount, fee)
	if err := e.vault.DebitWallet(sender, amount); err != nil {
		e.refundDailyLimitLocked(sender, amount)
		return domain.TransferRecord{}, err
	}
	if net.Sign() > 0 {
		if err := e.vault.CreditPending(recipient, net); err != nil {
			e.refundDailyLimitLocked(sender, amount)
			if creditErr := e.vault.CreditWallet(sender, amount); creditErr != nil {
				return domain.TransferRecord{}, errors.Join(err, creditErr)
			}
			return domain.TransferRecord{}, err
		}
	}
	if fee.Sign() > 0 {
		if err := e.feeSink.DepositCollectedFees(sender, fee, "transfer fee"); err != nil {
			if net.Sign() > 0 {
				if debitErr := e.vault.DebitPending(recipient, net); debitErr != nil {
					return domain.TransferRecord{}, errors.Join(err, debitErr)
				}
			}
			e.refundDailyLimitLocked(sender, amount)
			if creditErr := e.vault.CreditWallet(sender, amount); creditErr != nil {
				return domain.TransferRecord{}, errors.Join(err, creditErr)
			}
			return domain.TransferRecord{}, fmt.Errorf("fee leg: %w", err)
		}
	}

	return domain.TransferRecord{
		ID:        uuid.New(),
		Sender:    sender,
		Recipient: recipient,
		Amount:    domain.Clone(amount),
		Fee:       fee,
		Net:       net,
		Tier:      tier,
		Memo:      memo,
		BatchID:   batchID,
		CreatedAt: now,
	}, nil
}

// BatchTransfer applies the per-recipient fee logic across the whole array
// atomically: any single failure aborts the entire batch with no mutation.
// Every item is validated and priced before the first balance moves, and the
// fee legs are settled as one treasury deposit at the end.
func (e *Engine) BatchTransfer(sender domain.Address, items []BatchItem) ([]domain.TransferRecord, uuid.UUID, error) {
	if len(items) == 0 {
		return nil, uuid.Nil, ErrEmptyBatch
	}
	if sender.IsZero() {
		return nil, uuid.Nil, ErrZeroAddress
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().UTC()
	batchID := uuid.New()
	records := make([]domain.TransferRecord, 0, len(items))
	totalAmount := new(uint256.Int)
	totalFee := new(uint256.Int)

	for i, item := range items {
		if item.Recipient.IsZero() {
			return nil, uuid.Nil, fmt.Errorf("batch item %d: %w", i, ErrZeroAddress)
		}
		if item.Recipient == sender {
			return nil, uuid.Nil, fmt.Errorf("batch item %d: %w", i, ErrSelfTransfer)
		}
		if item.Amount == nil || item.Amount.IsZero() {
			return nil, uuid.Nil, fmt.Errorf("batch item %d: %w", i, domain.ErrInvalidAmount)
		}
		fee, tier, err := e.feeLocked(sender, item.Amount)
		if err != nil {
			return nil, uuid.Nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		id := batchID
		records = append(records, domain.TransferRecord{
			ID:        uuid.New(),
			Sender:    sender,
			Recipient: item.Recipient,
			Amount:    domain.Clone(item.Amount),
			Fee:       fee,
			Net:       new(uint256.Int).Sub(item.Amount, fee),
			Tier:      tier,
			Memo:      item.Memo,
			BatchID:   &id,
			CreatedAt: now,
		})
		totalAmount.Add(totalAmount, item.Amount)
		totalFee.Add(totalFee, fee)
	}

	if err := e.consumeDailyLimitLocked(sender, totalAmount, now); err != nil {
		return nil, uuid.Nil, err
	}
	if err := e.vault.DebitWallet(sender, totalAmount); err != nil {
		e.refundDailyLimitLocked(sender, totalAmount)
		return nil, uuid.Nil, err
	}

	unwind := func(settled int) {
		for j := settled - 1; j >= 0; j-- {
			if records[j].Net.Sign() > 0 {
				if err := e.vault.DebitPending(records[j].Recipient, records[j].Net); err != nil {
					log.Printf("level=error component=transfer_engine msg=\"batch unwind failed\" batch_id=%s err=%v", batchID, err)
				}
			}
		}
		e.refundDailyLimitLocked(sender, totalAmount)
		if err := e.vault.CreditWallet(sender, totalAmount); err != nil {
			log.Printf("level=error component=transfer_engine msg=\"batch refund failed\" batch_id=%s err=%v", batchID, err)
		}
	}

	for i := range records {
		if records[i].Net.Sign() == 0 {
			continue
		}
		if err := e.vault.CreditPending(records[i].Recipient, records[i].Net); err != nil {
			unwind(i)
			return nil, uuid.Nil, err
		}
	}
	if totalFee.Sign() > 0 {
		if err := e.feeSink.DepositCollectedFees(sender, totalFee, "batch transfer fees"); err != nil {
			unwind(len(records))
			return nil, uuid.Nil, fmt.Errorf("fee leg: %w", err)
		}
	}
	return records, batchID, nil
}

// RestoreMember reloads one persisted membership row during rehydration.
func (e *Engine) RestoreMember(addr domain.Address) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.members[addr] = true
}

// DailyUsage returns how much of the rolling 24h window the sender has used.
func (e *Engine) DailyUsage(sender domain.Address) *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.usage[sender]
	if !ok || e.now().UTC().Sub(u.windowStart) >= 24*time.Hour {
		return new(uint256.Int)
	}
	return domain.Clone(u.used)
}
