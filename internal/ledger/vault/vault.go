/**
 * @description
 * The vault is the account balance ledger shared by every engine. It holds two
 * balances per account: the spendable wallet balance (funded by the settlement
 * rail) and the claimable pending-withdrawal balance credited by transfers,
 * treasury expenses, and staking rewards.
 *
 * @notes
 * - All access is serialized by a single mutex, reproducing the original
 *   one-operation-at-a-time transaction ordering.
 * - Withdrawal is two-phase: BeginWithdrawal zeroes the claimable balance and
 *   returns it, and the caller restores it with CancelWithdrawal if the
 *   external payout leg fails. State always mutates before the external call.
 */

package vault

import (
	"errors"
	"sync"

	"github.com/holiman/uint256"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
)

var (
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrNothingToWithdraw   = errors.New("no pending balance to withdraw")
)

type account struct {
	wallet  *uint256.Int
	pending *uint256.Int
}

// Ledger tracks wallet and pending-withdrawal balances for all accounts.
type Ledger struct {
	mu       sync.Mutex
	accounts map[domain.Address]*account
}

// NewLedger creates an empty balance ledger.
func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[domain.Address]*account)}
}

func (l *Ledger) get(addr domain.Address) *account {
	a, ok := l.accounts[addr]
	if !ok {
		a = &account{wallet: new(uint256.Int), pending: new(uint256.Int)}
		l.accounts[addr] = a
	}
	return a
}

// CreditWallet adds spendable funds to an account (settlement rail inbound).
func (l *Ledger) CreditWallet(addr domain.Address, amount *uint256.Int) error {
	if addr.IsZero() {
		return errors.New("cannot credit the zero address")
	}
	if amount == nil || amount.IsZero() {
		return domain.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.get(addr)
	a.wallet.Add(a.wallet, amount)
	return nil
}

// DebitWallet removes spendable funds, failing without mutation when the
// balance is insufficient.
func (l *Ledger) DebitWallet(addr domain.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return domain.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.get(addr)
	if a.wallet.Lt(amount) {
		return ErrInsufficientBalance
	}
	a.wallet.Sub(a.wallet, amount)
	return nil
}

// CreditPending adds to an account's claimable pull-payment balance.
func (l *Ledger) CreditPending(addr domain.Address, amount *uint256.Int) error {
	if addr.IsZero() {
		return errors.New("cannot credit the zero address")
	}
	if amount == nil || amount.IsZero() {
		return domain.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.get(addr)
	a.pending.Add(a.pending, amount)
	return nil
}

// DebitPending removes from an account's claimable balance. Used to reverse a
// pending credit when a later leg of the same operation fails.
func (l *Ledger) DebitPending(addr domain.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return domain.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.get(addr)
	if a.pending.Lt(amount) {
		return ErrInsufficientBalance
	}
	a.pending.Sub(a.pending, amount)
	return nil
}

// WalletBalance returns a copy of the account's spendable balance.
func (l *Ledger) WalletBalance(addr domain.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return domain.Clone(l.get(addr).wallet)
}

// PendingBalance returns a copy of the account's claimable balance.
func (l *Ledger) PendingBalance(addr domain.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return domain.Clone(l.get(addr).pending)
}

// BeginWithdrawal zeroes the claimable balance and returns the amount that was
// held. The balance is cleared before any external transfer is attempted so a
// re-entrant call cannot observe (and drain) the old balance twice.
func (l *Ledger) BeginWithdrawal(addr domain.Address) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.get(addr)
	if a.pending.IsZero() {
		return nil, ErrNothingToWithdraw
	}
	amount := domain.Clone(a.pending)
	a.pending.Clear()
	return amount, nil
}

// CancelWithdrawal restores a balance removed by BeginWithdrawal after a
// failed payout leg.
func (l *Ledger) CancelWithdrawal(addr domain.Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.get(addr)
	a.pending.Add(a.pending, amount)
}

// RestoreWallet reloads a persisted wallet balance during rehydration.
func (l *Ledger) RestoreWallet(addr domain.Address, wallet, pending *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.get(addr)
	a.wallet = domain.Clone(wallet)
	a.pending = domain.Clone(pending)
}

// Balances returns a snapshot of every account with a non-zero balance,
// used by the persistence journal.
func (l *Ledger) Balances() map[domain.Address][2]*uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[domain.Address][2]*uint256.Int, len(l.accounts))
	for addr, a := range l.accounts {
		if a.wallet.IsZero() && a.pending.IsZero() {
			continue
		}
		out[addr] = [2]*uint256.Int{domain.Clone(a.wallet), domain.Clone(a.pending)}
	}
	return out
}
