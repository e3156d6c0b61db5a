package vault

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
)

func TestDebitWalletFailsWithoutMutation(t *testing.T) {
	l := NewLedger()
	addr := domain.Address("0xabc")
	if err := l.CreditWallet(addr, uint256.NewInt(100)); err != nil {
		t.Fatalf("CreditWallet: %v", err)
	}

	if err := l.DebitWallet(addr, uint256.NewInt(150)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraft err = %v, want %v", err, ErrInsufficientBalance)
	}
	if got := l.WalletBalance(addr); !got.Eq(uint256.NewInt(100)) {
		t.Fatalf("wallet after failed debit = %s, want 100", got)
	}
	if err := l.DebitWallet(addr, uint256.NewInt(40)); err != nil {
		t.Fatalf("DebitWallet: %v", err)
	}
	if got := l.WalletBalance(addr); !got.Eq(uint256.NewInt(60)) {
		t.Fatalf("wallet = %s, want 60", got)
	}
}

func TestCreditRejectsZeroAddressAndZeroAmount(t *testing.T) {
	l := NewLedger()
	if err := l.CreditWallet(domain.ZeroAddress, uint256.NewInt(1)); err == nil {
		t.Fatal("credit to zero address succeeded")
	}
	if err := l.CreditWallet("0xabc", new(uint256.Int)); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("zero credit err = %v, want %v", err, domain.ErrInvalidAmount)
	}
	if err := l.CreditPending(domain.ZeroAddress, uint256.NewInt(1)); err == nil {
		t.Fatal("pending credit to zero address succeeded")
	}
}

func TestWithdrawalZeroesBeforeReturning(t *testing.T) {
	l := NewLedger()
	addr := domain.Address("0xdef")
	if err := l.CreditPending(addr, uint256.NewInt(500)); err != nil {
		t.Fatalf("CreditPending: %v", err)
	}

	amount, err := l.BeginWithdrawal(addr)
	if err != nil {
		t.Fatalf("BeginWithdrawal: %v", err)
	}
	if !amount.Eq(uint256.NewInt(500)) {
		t.Fatalf("withdrawal amount = %s, want 500", amount)
	}
	if got := l.PendingBalance(addr); !got.IsZero() {
		t.Fatalf("pending during withdrawal = %s, want 0", got)
	}
	// A second attempt while the payout is in flight finds nothing.
	if _, err := l.BeginWithdrawal(addr); !errors.Is(err, ErrNothingToWithdraw) {
		t.Fatalf("re-entrant withdrawal err = %v, want %v", err, ErrNothingToWithdraw)
	}

	l.CancelWithdrawal(addr, amount)
	if got := l.PendingBalance(addr); !got.Eq(uint256.NewInt(500)) {
		t.Fatalf("pending after cancel = %s, want 500", got)
	}
}

func TestBalancesSnapshotSkipsEmptyAccounts(t *testing.T) {
	l := NewLedger()
	if err := l.CreditWallet("0xaaa", uint256.NewInt(10)); err != nil {
		t.Fatalf("CreditWallet: %v", err)
	}
	if err := l.CreditPending("0xbbb", uint256.NewInt(20)); err != nil {
		t.Fatalf("CreditPending: %v", err)
	}
	// Touch an account without leaving a balance.
	_ = l.WalletBalance("0xccc")

	snap := l.Balances()
	if len(snap) != 2 {
		t.Fatalf("snapshot accounts = %d, want 2", len(snap))
	}
	if got := snap["0xaaa"][0]; !got.Eq(uint256.NewInt(10)) {
		t.Fatalf("0xaaa wallet = %s, want 10", got)
	}
	if got := snap["0xbbb"][1]; !got.Eq(uint256.NewInt(20)) {
		t.Fatalf("0xbbb pending = %s, want 20", got)
	}
}

func TestRestoreWalletReplacesBalances(t *testing.T) {
	l := NewLedger()
	addr := domain.Address("0xres")
	if err := l.CreditWallet(addr, uint256.NewInt(5)); err != nil {
		t.Fatalf("CreditWallet: %v", err)
	}
	l.RestoreWallet(addr, uint256.NewInt(700), uint256.NewInt(30))
	if got := l.WalletBalance(addr); !got.Eq(uint256.NewInt(700)) {
		t.Fatalf("restored wallet = %s, want 700", got)
	}
	if got := l.PendingBalance(addr); !got.Eq(uint256.NewInt(30)) {
		t.Fatalf("restored pending = %s, want 30", got)
	}
}
