package treasury

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/vault"
)

var treasurer = domain.NewAuthContext("0xtreasurer", domain.CapTreasurer)

func newTestLedger(t *testing.T) (*Ledger, *vault.Ledger) {
	t.Helper()
	v := vault.NewLedger()
	return NewLedger(v), v
}

func TestNewLedgerHasDefaultFundAtFullAllocation(t *testing.T) {
	l, _ := newTestLedger(t)
	def, err := l.FundByName(domain.UnallocatedFundName)
	if err != nil {
		t.Fatalf("FundByName: %v", err)
	}
	if !def.Default || def.AllocationBps != domain.BpsDenominator {
		t.Fatalf("default fund = %+v", def)
	}
	if sum := l.ActiveAllocationSum(); sum != domain.BpsDenominator {
		t.Fatalf("allocation sum = %d, want %d", sum, domain.BpsDenominator)
	}
}

func TestCreateFundRenormalizesDefault(t *testing.T) {
	l, _ := newTestLedger(t)

	ops, err := l.CreateFund(treasurer, "Node Operations", 3000)
	if err != nil {
		t.Fatalf("CreateFund: %v", err)
	}
	if ops.AllocationBps != 3000 {
		t.Fatalf("fund allocation = %d, want 3000", ops.AllocationBps)
	}
	def, err := l.FundByName(domain.UnallocatedFundName)
	if err != nil {
		t.Fatalf("FundByName: %v", err)
	}
	if def.AllocationBps != 7000 {
		t.Fatalf("default allocation = %d, want 7000", def.AllocationBps)
	}
	if sum := l.ActiveAllocationSum(); sum != domain.BpsDenominator {
		t.Fatalf("allocation sum = %d, want %d", sum, domain.BpsDenominator)
	}

	if _, err := l.CreateFund(treasurer, "node operations", 1000); !errors.Is(err, ErrFundExists) {
		t.Fatalf("duplicate name err = %v, want %v", err, ErrFundExists)
	}
	if _, err := l.CreateFund(treasurer, "Oversized", 8000); !errors.Is(err, ErrAllocationSum) {
		t.Fatalf("oversized allocation err = %v, want %v", err, ErrAllocationSum)
	}
	if _, err := l.FundByName("Oversized"); !errors.Is(err, ErrFundNotFound) {
		t.Fatal("rejected fund was left behind")
	}
}

func TestCreateFundRequiresTreasurer(t *testing.T) {
	l, _ := newTestLedger(t)
	nobody := domain.NewAuthContext("0xnobody")
	if _, err := l.CreateFund(nobody, "Culture Fund", 1000); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want %v", err, domain.ErrUnauthorized)
	}
}

func TestDepositApportionsWithRemainderToDefault(t *testing.T) {
	l, v := newTestLedger(t)
	if _, err := l.CreateFund(treasurer, "Education", 3333); err != nil {
		t.Fatalf("CreateFund: %v", err)
	}
	sender := domain.Address("0xdonor")
	if err := v.CreditWallet(sender, uint256.NewInt(1000)); err != nil {
		t.Fatalf("fund sender: %v", err)
	}

	deposits, err := l.DepositFunds(sender, uint256.NewInt(101), "koha")
	if err != nil {
		t.Fatalf("DepositFunds: %v", err)
	}
	if len(deposits) != 2 {
		t.Fatalf("deposit legs = %d, want 2", len(deposits))
	}
	edu, err := l.FundByName("Education")
	if err != nil {
		t.Fatalf("FundByName: %v", err)
	}
	// 101 * 3333 / 10000 = 33; remainder 68 lands on the default fund.
	if !edu.Balance.Eq(uint256.NewInt(33)) {
		t.Fatalf("education balance = %s, want 33", edu.Balance)
	}
	def, err := l.FundByName(domain.UnallocatedFundName)
	if err != nil {
		t.Fatalf("FundByName: %v", err)
	}
	if !def.Balance.Eq(uint256.NewInt(68)) {
		t.Fatalf("default balance = %s, want 68", def.Balance)
	}
	if !l.TotalBalance().Eq(uint256.NewInt(101)) {
		t.Fatalf("total = %s, want 101", l.TotalBalance())
	}
	if got := v.WalletBalance(sender); !got.Eq(uint256.NewInt(899)) {
		t.Fatalf("sender wallet = %s, want 899", got)
	}
}

func TestDepositFeesRequiresCollectorCapability(t *testing.T) {
	l, v := newTestLedger(t)
	collector := domain.NewAuthContext("0xcollector", domain.CapFeeCollector)
	if err := v.CreditWallet(collector.Caller, uint256.NewInt(500)); err != nil {
		t.Fatalf("fund collector: %v", err)
	}

	if _, err := l.DepositFees(domain.NewAuthContext("0xnobody"), uint256.NewInt(100), "fees"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want %v", err, domain.ErrUnauthorized)
	}
	deposits, err := l.DepositFees(collector, uint256.NewInt(100), "fees")
	if err != nil {
		t.Fatalf("DepositFees: %v", err)
	}
	for _, d := range deposits {
		if !d.FeeDeposit {
			t.Fatalf("deposit not flagged as fee deposit: %+v", d)
		}
	}
}

func TestDepositCollectedFeesDoesNotDebitWallet(t *testing.T) {
	l, v := newTestLedger(t)
	sender := domain.Address("0xengine")
	// The calling engine already collected the value; no wallet funding needed.
	if err := l.DepositCollectedFees(sender, uint256.NewInt(250), "platform fee"); err != nil {
		t.Fatalf("DepositCollectedFees: %v", err)
	}
	if !l.TotalBalance().Eq(uint256.NewInt(250)) {
		t.Fatalf("total = %s, want 250", l.TotalBalance())
	}
	if got := v.WalletBalance(sender); !got.IsZero() {
		t.Fatalf("sender wallet = %s, want untouched 0", got)
	}
}

func TestUpdateAllFundAllocationsAllOrNothing(t *testing.T) {
	l, _ := newTestLedger(t)
	edu, err := l.CreateFund(treasurer, "Education", 2000)
	if err != nil {
		t.Fatalf("CreateFund: %v", err)
	}
	health, err := l.CreateFund(treasurer, "Health", 3000)
	if err != nil {
		t.Fatalf("CreateFund: %v", err)
	}
	def, err := l.FundByName(domain.UnallocatedFundName)
	if err != nil {
		t.Fatalf("FundByName: %v", err)
	}

	// Missing the default fund: rejected, nothing applied.
	err = l.UpdateAllFundAllocations(treasurer, []domain.FundAllocation{
		{FundID: edu.ID, AllocationBps: 5000},
		{FundID: health.ID, AllocationBps: 5000},
	})
	if !errors.Is(err, ErrAllocationIncomplete) {
		t.Fatalf("incomplete err = %v, want %v", err, ErrAllocationIncomplete)
	}
	after, _ := l.Fund(edu.ID)
	if after.AllocationBps != 2000 {
		t.Fatalf("allocation changed by rejected update: %d", after.AllocationBps)
	}

	// Wrong sum: rejected.
	err = l.UpdateAllFundAllocations(treasurer, []domain.FundAllocation{
		{FundID: edu.ID, AllocationBps: 4000},
		{FundID: health.ID, AllocationBps: 4000},
		{FundID: def.ID, AllocationBps: 3000},
	})
	if !errors.Is(err, ErrAllocationSum) {
		t.Fatalf("bad sum err = %v, want %v", err, ErrAllocationSum)
	}

	err = l.UpdateAllFundAllocations(treasurer, []domain.FundAllocation{
		{FundID: edu.ID, AllocationBps: 4000},
		{FundID: health.ID, AllocationBps: 4000},
		{FundID: def.ID, AllocationBps: 2000},
	})
	if err != nil {
		t.Fatalf("UpdateAllFundAllocations: %v", err)
	}
	if sum := l.ActiveAllocationSum(); sum != domain.BpsDenominator {
		t.Fatalf("allocation sum = %d, want %d", sum, domain.BpsDenominator)
	}
}

func TestDeactivateFundSweepsBalanceToDefault(t *testing.T) {
	l, _ := newTestLedger(t)
	edu, err := l.CreateFund(treasurer, "Education", 5000)
	if err != nil {
		t.Fatalf("CreateFund: %v", err)
	}
	if err := l.DepositCollectedFees("0xengine", uint256.NewInt(1000), "fees"); err != nil {
		t.Fatalf("DepositCollectedFees: %v", err)
	}

	retired, err := l.DeactivateFund(treasurer, edu.ID)
	if err != nil {
		t.Fatalf("DeactivateFund: %v", err)
	}
	if retired.Active || retired.AllocationBps != 0 || !retired.Balance.IsZero() {
		t.Fatalf("retired fund = %+v", retired)
	}
	def, err := l.FundByName(domain.UnallocatedFundName)
	if err != nil {
		t.Fatalf("FundByName: %v", err)
	}
	if !def.Balance.Eq(uint256.NewInt(1000)) {
		t.Fatalf("default balance = %s, want 1000", def.Balance)
	}
	if def.AllocationBps != domain.BpsDenominator {
		t.Fatalf("default allocation = %d, want %d", def.AllocationBps, domain.BpsDenominator)
	}

	def2, _ := l.FundByName(domain.UnallocatedFundName)
	if _, err := l.DeactivateFund(treasurer, def2.ID); !errors.Is(err, ErrDefaultFund) {
		t.Fatalf("deactivate default err = %v, want %v", err, ErrDefaultFund)
	}
}

func TestWithdrawFromNamedFund(t *testing.T) {
	l, v := newTestLedger(t)
	edu, err := l.CreateFund(treasurer, "Education", 5000)
	if err != nil {
		t.Fatalf("CreateFund: %v", err)
	}
	if err := l.DepositCollectedFees("0xengine", uint256.NewInt(1000), "fees"); err != nil {
		t.Fatalf("DepositCollectedFees: %v", err)
	}

	spender := domain.NewAuthContext("0xspender", domain.CapSpender)
	recipient := domain.Address("0xschool")
	expense, err := l.Withdraw(spender, edu.ID, recipient, uint256.NewInt(300), "supplies")
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if expense.Approver != spender.Caller || !expense.Amount.Eq(uint256.NewInt(300)) {
		t.Fatalf("expense = %+v", expense)
	}
	if got := v.PendingBalance(recipient); !got.Eq(uint256.NewInt(300)) {
		t.Fatalf("recipient pending = %s, want 300", got)
	}

	if _, err := l.Withdraw(spender, edu.ID, recipient, uint256.NewInt(5000), "too much"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraft err = %v, want %v", err, ErrInsufficientBalance)
	}
	after, _ := l.Fund(edu.ID)
	if !after.Balance.Eq(uint256.NewInt(200)) {
		t.Fatalf("fund balance after failed withdraw = %s, want 200", after.Balance)
	}
}

func TestWithdrawThenDepositRestoresFundBalance(t *testing.T) {
	l, v := newTestLedger(t)
	edu, err := l.CreateFund(treasurer, "Education", 5000)
	if err != nil {
		t.Fatalf("CreateFund: %v", err)
	}

	donor := domain.Address("0xdonor")
	if err := v.CreditWallet(donor, uint256.NewInt(2000)); err != nil {
		t.Fatalf("CreditWallet: %v", err)
	}
	if _, err := l.DepositFunds(donor, uint256.NewInt(1000), "seed"); err != nil {
		t.Fatalf("DepositFunds: %v", err)
	}
	// Education 500, Unallocated 500.

	spender := domain.NewAuthContext("0xspender", domain.CapSpender)
	if _, err := l.Withdraw(spender, edu.ID, "0xschool", uint256.NewInt(300), "supplies"); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if _, err := l.DepositFunds(donor, uint256.NewInt(600), "top up"); err != nil {
		t.Fatalf("DepositFunds: %v", err)
	}

	after, _ := l.Fund(edu.ID)
	if !after.Balance.Eq(uint256.NewInt(500)) {
		t.Fatalf("education balance = %s, want 500", after.Balance)
	}
	if after.AllocationBps != 5000 {
		t.Fatalf("education allocation = %d, want 5000", after.AllocationBps)
	}
	if sum := l.ActiveAllocationSum(); sum != domain.BpsDenominator {
		t.Fatalf("allocation sum = %d, want %d", sum, domain.BpsDenominator)
	}
}

func TestWithdrawFundsPrefersDefaultThenProportional(t *testing.T) {
	l, v := newTestLedger(t)
	if _, err := l.CreateFund(treasurer, "Education", 4000); err != nil {
		t.Fatalf("CreateFund: %v", err)
	}
	if _, err := l.CreateFund(treasurer, "Health", 4000); err != nil {
		t.Fatalf("CreateFund: %v", err)
	}
	if err := l.DepositCollectedFees("0xengine", uint256.NewInt(1000), "fees"); err != nil {
		t.Fatalf("DepositCollectedFees: %v", err)
	}
	// Balances: education 400, health 400, default 200.

	recipient := domain.Address("0xshareholder")
	expenses, err := l.WithdrawFunds(treasurer, recipient, uint256.NewInt(150))
	if err != nil {
		t.Fatalf("WithdrawFunds (default path): %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("expense legs = %d, want 1 from the default fund", len(expenses))
	}
	if got := v.PendingBalance(recipient); !got.Eq(uint256.NewInt(150)) {
		t.Fatalf("recipient pending = %s, want 150", got)
	}

	// 600 exceeds the default's remaining 50: proportional draw across funds.
	expenses, err = l.WithdrawFunds(treasurer, recipient, uint256.NewInt(600))
	if err != nil {
		t.Fatalf("WithdrawFunds (proportional path): %v", err)
	}
	if len(expenses) < 2 {
		t.Fatalf("expense legs = %d, want multi-fund draw", len(expenses))
	}
	if got := v.PendingBalance(recipient); !got.Eq(uint256.NewInt(750)) {
		t.Fatalf("recipient pending = %s, want 750", got)
	}
	if !l.TotalBalance().Eq(uint256.NewInt(250)) {
		t.Fatalf("treasury total = %s, want 250", l.TotalBalance())
	}

	if _, err := l.WithdrawFunds(treasurer, recipient, uint256.NewInt(1000)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("over-withdraw err = %v, want %v", err, ErrInsufficientBalance)
	}
	if !l.TotalBalance().Eq(uint256.NewInt(250)) {
		t.Fatalf("treasury mutated by failed withdraw: %s", l.TotalBalance())
	}
}

func TestRestoreFundRoundTrip(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.CreateFund(treasurer, "Education", 2500); err != nil {
		t.Fatalf("CreateFund: %v", err)
	}
	if err := l.DepositCollectedFees("0xengine", uint256.NewInt(400), "fees"); err != nil {
		t.Fatalf("DepositCollectedFees: %v", err)
	}

	rebuilt := NewLedger(vault.NewLedger())
	for _, fund := range l.Funds() {
		rebuilt.RestoreFund(fund)
	}
	if !rebuilt.TotalBalance().Eq(l.TotalBalance()) {
		t.Fatalf("restored total = %s, want %s", rebuilt.TotalBalance(), l.TotalBalance())
	}
	if rebuilt.ActiveAllocationSum() != domain.BpsDenominator {
		t.Fatalf("restored allocation sum = %d", rebuilt.ActiveAllocationSum())
	}
	edu, err := rebuilt.FundByName("Education")
	if err != nil {
		t.Fatalf("restored FundByName: %v", err)
	}
	if !edu.Balance.Eq(uint256.NewInt(100)) {
		t.Fatalf("restored education balance = %s, want 100", edu.Balance)
	}
}
