/**
 * @description
 * The treasury ledger apportions deposited value across named, weighted funds
 * and settles withdrawals against fund balances. Allocations are basis points
 * and must sum to exactly 10000 across active funds after every
 * allocation-changing operation; the default "Unallocated" fund absorbs both
 * rounding remainders and allocation slack.
 *
 * @notes
 * - Funds carry an explicit existence flag (the fund map); existence is never
 *   inferred from a zero balance, so a fully-spent fund cannot be recreated.
 * - Operations compute their full plan before touching balances, so a failing
 *   precondition never leaves a partial application behind.
 * - Audit entries (Deposit/Expense) are returned to the caller for journaling
 *   rather than retained here.
 */

package treasury

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/vault"
)

var (
	ErrFundNotFound         = errors.New("fund not found")
	ErrFundInactive         = errors.New("fund is not active")
	ErrFundExists           = errors.New("fund already exists")
	ErrFundName             = errors.New("fund name cannot be empty")
	ErrDefaultFund          = errors.New("operation not permitted on the default fund")
	ErrAllocationSum        = errors.New("active fund allocations must sum to exactly 10000 bps")
	ErrAllocationIncomplete = errors.New("bulk allocation update must cover every active fund")
	ErrInsufficientBalance  = errors.New("insufficient fund balance")
	ErrZeroRecipient        = errors.New("recipient address cannot be zero")
)

// Ledger is the fund-bucketed treasury.
type Ledger struct {
	mu sync.Mutex

	funds     map[uuid.UUID]*domain.Fund
	byName    map[string]uuid.UUID
	defaultID uuid.UUID

	vault *vault.Ledger
	now   func() time.Time
}

// NewLedger creates a treasury holding only the default Unallocated fund at
// 10000 bps.
func NewLedger(v *vault.Ledger) *Ledger {
	l := &Ledger{
		funds:  make(map[uuid.UUID]*domain.Fund),
		byName: make(map[string]uuid.UUID),
		vault:  v,
		now:    time.Now,
	}
	def := &domain.Fund{
		ID:            uuid.New(),
		Name:          domain.UnallocatedFundName,
		AllocationBps: domain.BpsDenominator,
		Balance:       new(uint256.Int),
		Active:        true,
		Default:       true,
		CreatedAt:     l.now().UTC(),
	}
	l.funds[def.ID] = def
	l.byName[normalizeName(def.Name)] = def.ID
	l.defaultID = def.ID
	return l
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// renormalizeDefaultLocked rebalances the default fund's allocation so active
// allocations sum to exactly 10000 bps. Errors when the other funds already
// exceed the denominator.
func (l *Ledger) renormalizeDefaultLocked() error {
	var others int
	for id, f := range l.funds {
		if id == l.defaultID || !f.Active {
			continue
		}
		others += int(f.AllocationBps)
	}
	if others > domain.BpsDenominator {
		return ErrAllocationSum
	}
	l.funds[l.defaultID].AllocationBps = uint16(domain.BpsDenominator - others)
	return nil
}

// CreateFund adds a new active fund and renormalizes the default fund so the
// allocation invariant holds. Requires the treasurer capability.
func (l *Ledger) CreateFund(auth domain.AuthContext, name string, allocationBps uint16) (domain.Fund, error) {
	if err := auth.Require(domain.CapTreasurer); err != nil {
		return domain.Fund{}, err
	}
	if strings.TrimSpace(name) == "" {
		return domain.Fund{}, ErrFundName
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byName[normalizeName(name)]; exists {
		return domain.Fund{}, ErrFundExists
	}

	fund := &domain.Fund{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(name),
		AllocationBps: allocationBps,
		Balance:       new(uint256.Int),
		Active:        true,
		CreatedAt:     l.now().UTC(),
		CreatedBy:     auth.Caller,
	}
	l.funds[fund.ID] = fund
	l.byName[normalizeName(name)] = fund.ID

	if err := l.renormalizeDefaultLocked(); err != nil {
		delete(l.funds, fund.ID)
		delete(l.byName, normalizeName(name))
		return domain.Fund{}, err
	}
	return *fund, nil
}

// UpdateFundAllocation changes one fund's allocation and renormalizes the
// default fund.
func (l *Ledger) UpdateFundAllocation(auth domain.AuthContext, fundID uuid.UUID, allocationBps uint16) (domain.Fund, error) {
	if err := auth.Require(domain.CapTreasurer); err != nil {
		return domain.Fund{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fund, ok := l.funds[fundID]
	if !ok {
		return domain.Fund{}, ErrFundNotFound
	}
	if !fund.Active {
		return domain.Fund{}, ErrFundInactive
	}
	if fundID == l.defaultID {
		return domain.Fund{}, ErrDefaultFund
	}

	previous := fund.AllocationBps
	fund.AllocationBps = allocationBps
	if err := l.renormalizeDefaultLocked(); err != nil {
		fund.AllocationBps = previous
		return domain.Fund{}, err
	}
	return *fund, nil
}

// UpdateAllFundAllocations bulk-sets allocations for every active fund, then
// hard-validates the sum is exactly 10000 bps. No partial application.
func (l *Ledger) UpdateAllFundAllocations(auth domain.AuthContext, allocations []domain.FundAllocation) error {
	if err := auth.Require(domain.CapTreasurer); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	proposed := make(map[uuid.UUID]uint16, len(allocations))
	var sum int
	for _, a := range allocations {
		fund, ok := l.funds[a.FundID]
		if !ok {
			return ErrFundNotFound
		}
		if !fund.Active {
			return ErrFundInactive
		}
		if _, dup := proposed[a.FundID]; dup {
			return fmt.Errorf("duplicate allocation for fund %s", a.FundID)
		}
		proposed[a.FundID] = a.AllocationBps
		sum += int(a.AllocationBps)
	}
	for id, f := range l.funds {
		if !f.Active {
			continue
		}
		if _, ok := proposed[id]; !ok {
			return ErrAllocationIncomplete
		}
	}
	if sum != domain.BpsDenominator {
		return ErrAllocationSum
	}

	for id, bps := range proposed {
		l.funds[id].AllocationBps = bps
	}
	return nil
}

// DeactivateFund retires a fund: its balance is swept into the default fund
// and its allocation is released back to it. Funds are never hard-deleted.
func (l *Ledger) DeactivateFund(auth domain.AuthContext, fundID uuid.UUID) (domain.Fund, error) {
	if err := auth.Require(domain.CapTreasurer); err != nil {
		return domain.Fund{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fund, ok := l.funds[fundID]
	if !ok {
		return domain.Fund{}, ErrFundNotFound
	}
	if fundID == l.defaultID {
		return domain.Fund{}, ErrDefaultFund
	}
	if !fund.Active {
		return domain.Fund{}, ErrFundInactive
	}

	def := l.funds[l.defaultID]
	def.Balance.Add(def.Balance, fund.Balance)
	fund.Balance = new(uint256.Int)
	fund.Active = false
	fund.AllocationBps = 0
	if err := l.renormalizeDefaultLocked(); err != nil {
		return domain.Fund{}, err
	}
	return *fund, nil
}

// DepositFunds moves value from the sender's wallet into the treasury,
// apportioned across active funds by allocation.
func (l *Ledger) DepositFunds(sender domain.Address, amount *uint256.Int, description string) ([]domain.Deposit, error) {
	if amount == nil || amount.IsZero() {
		return nil, domain.ErrInvalidAmount
	}
	if err := l.vault.DebitWallet(sender, amount); err != nil {
		return nil, err
	}
	deposits, err := l.apportion(sender, amount, description, false)
	if err != nil {
		if creditErr := l.vault.CreditWallet(sender, amount); creditErr != nil {
			return nil, errors.Join(err, creditErr)
		}
		return nil, err
	}
	return deposits, nil
}

// DepositFees is the fee-collector deposit path: same apportioning, but the
// caller must hold the fee collector capability.
func (l *Ledger) DepositFees(auth domain.AuthContext, amount *uint256.Int, description string) ([]domain.Deposit, error) {
	if err := auth.Require(domain.CapFeeCollector); err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, domain.ErrInvalidAmount
	}
	if err := l.vault.DebitWallet(auth.Caller, amount); err != nil {
		return nil, err
	}
	deposits, err := l.apportion(auth.Caller, amount, description, true)
	if err != nil {
		if creditErr := l.vault.CreditWallet(auth.Caller, amount); creditErr != nil {
			return nil, errors.Join(err, creditErr)
		}
		return nil, err
	}
	return deposits, nil
}

// DepositCollectedFees absorbs value already collected by another engine (the
// fee or transfer engine debited the payer before calling in).
func (l *Ledger) DepositCollectedFees(sender domain.Address, amount *uint256.Int, description string) error {
	if amount == nil || amount.IsZero() {
		return domain.ErrInvalidAmount
	}
	_, err := l.apportion(sender, amount, description, true)
	return err
}

// apportion splits amount across active funds proportional to allocation bps,
// with the rounding remainder credited to the default fund.
func (l *Ledger) apportion(sender domain.Address, amount *uint256.Int, description string, feeDeposit bool) ([]domain.Deposit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	distributed := new(uint256.Int)
	var deposits []domain.Deposit

	credit := func(fund *domain.Fund, share *uint256.Int) {
		fund.Balance.Add(fund.Balance, share)
		distributed.Add(distributed, share)
		deposits = append(deposits, domain.Deposit{
			ID:          uuid.New(),
			FundID:      fund.ID,
			Amount:      domain.Clone(share),
			Sender:      sender,
			Description: description,
			FeeDeposit:  feeDeposit,
			CreatedAt:   now,
		})
	}

	for id, fund := range l.funds {
		if !fund.Active || id == l.defaultID {
			continue
		}
		share, err := domain.MulBps(amount, fund.AllocationBps)
		if err != nil {
			return nil, err
		}
		if share.IsZero() {
			continue
		}
		credit(fund, share)
	}

	// Default fund takes its own allocation plus all rounding remainders.
	remainder := new(uint256.Int).Sub(amount, distributed)
	if remainder.Sign() > 0 {
		credit(l.funds[l.defaultID], remainder)
	}
	return deposits, nil
}

// Withdraw pays out of a single named fund into the recipient's claimable
// balance. Requires the spender capability; fails whole when the fund is
// inactive or underfunded.
func (l *Ledger) Withdraw(auth domain.AuthContext, fundID uuid.UUID, recipient domain.Address, amount *uint256.Int, description string) (domain.Expense, error) {
	if err := auth.Require(domain.CapSpender, domain.CapTreasurer); err != nil {
		return domain.Expense{}, err
	}
	if recipient.IsZero() {
		return domain.Expense{}, ErrZeroRecipient
	}
	if amount == nil || amount.IsZero() {
		return domain.Expense{}, domain.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fund, ok := l.funds[fundID]
	if !ok {
		return domain.Expense{}, ErrFundNotFound
	}
	if !fund.Active {
		return domain.Expense{}, ErrFundInactive
	}
	if fund.Balance.Lt(amount) {
		return domain.Expense{}, ErrInsufficientBalance
	}

	fund.Balance.Sub(fund.Balance, amount)
	if err := l.vault.CreditPending(recipient, amount); err != nil {
		fund.Balance.Add(fund.Balance, amount)
		return domain.Expense{}, err
	}

	return domain.Expense{
		ID:          uuid.New(),
		FundID:      fund.ID,
		Amount:      domain.Clone(amount),
		Recipient:   recipient,
		Approver:    auth.Caller,
		Description: description,
		CreatedAt:   l.now().UTC(),
	}, nil
}

// WithdrawFunds is the profit-sharing path: it prefers draining the default
// fund, falls back to a proportional draw across all active funds relative to
// the total treasury balance, and takes any leftover shortfall from the
// default fund. Fails with no mutation when the treasury cannot cover amount.
func (l *Ledger) WithdrawFunds(auth domain.AuthContext, recipient domain.Address, amount *uint256.Int) ([]domain.Expense, error) {
	if err := auth.Require(domain.CapTreasurer); err != nil {
		return nil, err
	}
	if recipient.IsZero() {
		return nil, ErrZeroRecipient
	}
	if amount == nil || amount.IsZero() {
		return nil, domain.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	def := l.funds[l.defaultID]
	draws := make(map[uuid.UUID]*uint256.Int)

	if !def.Balance.Lt(amount) {
		draws[l.defaultID] = domain.Clone(amount)
	} else {
		total := new(uint256.Int)
		for _, fund := range l.funds {
			if fund.Active {
				total.Add(total, fund.Balance)
			}
		}
		if total.Lt(amount) {
			return nil, ErrInsufficientBalance
		}

		drawn := new(uint256.Int)
		for id, fund := range l.funds {
			if !fund.Active || fund.Balance.IsZero() {
				continue
			}
			share, err := domain.MulDiv(amount, fund.Balance, total)
			if err != nil {
				return nil, err
			}
			if share.Gt(fund.Balance) {
				share = domain.Clone(fund.Balance)
			}
			if share.IsZero() {
				continue
			}
			draws[id] = share
			drawn.Add(drawn, share)
		}

		// Rounding leaves a shortfall; the default fund is the last resort.
		shortfall := new(uint256.Int).Sub(amount, drawn)
		if shortfall.Sign() > 0 {
			defDraw, ok := draws[l.defaultID]
			if !ok {
				defDraw = new(uint256.Int)
				draws[l.defaultID] = defDraw
			}
			headroom := new(uint256.Int).Sub(def.Balance, defDraw)
			if headroom.Lt(shortfall) {
				return nil, ErrInsufficientBalance
			}
			defDraw.Add(defDraw, shortfall)
		}
	}

	// The plan is final; apply it and settle the recipient leg.
	now := l.now().UTC()
	expenses := make([]domain.Expense, 0, len(draws))
	for id, draw := range draws {
		fund := l.funds[id]
		fund.Balance.Sub(fund.Balance, draw)
		expenses = append(expenses, domain.Expense{
			ID:          uuid.New(),
			FundID:      id,
			Amount:      domain.Clone(draw),
			Recipient:   recipient,
			Approver:    auth.Caller,
			Description: "profit sharing withdrawal",
			CreatedAt:   now,
		})
	}
	if err := l.vault.CreditPending(recipient, amount); err != nil {
		for id, draw := range draws {
			l.funds[id].Balance.Add(l.funds[id].Balance, draw)
		}
		return nil, err
	}
	return expenses, nil
}

// Fund returns a copy of one fund.
func (l *Ledger) Fund(fundID uuid.UUID) (domain.Fund, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fund, ok := l.funds[fundID]
	if !ok {
		return domain.Fund{}, ErrFundNotFound
	}
	return copyFund(fund), nil
}

// FundByName resolves a fund by its case-insensitive name.
func (l *Ledger) FundByName(name string) (domain.Fund, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.byName[normalizeName(name)]
	if !ok {
		return domain.Fund{}, ErrFundNotFound
	}
	return copyFund(l.funds[id]), nil
}

// Funds returns copies of every fund, active or not.
func (l *Ledger) Funds() []domain.Fund {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Fund, 0, len(l.funds))
	for _, fund := range l.funds {
		out = append(out, copyFund(fund))
	}
	return out
}

// TotalBalance sums the balances of all active funds.
func (l *Ledger) TotalBalance() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := new(uint256.Int)
	for _, fund := range l.funds {
		if fund.Active {
			total.Add(total, fund.Balance)
		}
	}
	return total
}

// ActiveAllocationSum reports the current allocation total in bps, which must
// always be exactly 10000 for active funds.
func (l *Ledger) ActiveAllocationSum() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum int
	for _, fund := range l.funds {
		if fund.Active {
			sum += int(fund.AllocationBps)
		}
	}
	return sum
}

// RestoreFund reloads one persisted fund during rehydration. The default fund
// created by NewLedger is replaced when the persisted default arrives.
func (l *Ledger) RestoreFund(fund domain.Fund) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f := fund
	f.Balance = domain.Clone(fund.Balance)
	if f.Default {
		delete(l.funds, l.defaultID)
		delete(l.byName, normalizeName(domain.UnallocatedFundName))
		l.defaultID = f.ID
	}
	l.funds[f.ID] = &f
	l.byName[normalizeName(f.Name)] = f.ID
}

func copyFund(f *domain.Fund) domain.Fund {
	out := *f
	out.Balance = domain.Clone(f.Balance)
	return out
}
