package transferengine

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
)

func TestCreateScheduledTransferEscrowsPrincipalAndFees(t *testing.T) {
	e, v, sink, _, _ := newTestEngine(t)
	sender := domain.Address("0xsch1")
	if err := v.CreditWallet(sender, ether(100)); err != nil {
		t.Fatalf("fund sender: %v", err)
	}

	schedule, err := e.CreateScheduledTransfer(sender, "0xrec1", ether(10), time.Hour, 3, 0)
	if err != nil {
		t.Fatalf("CreateScheduledTransfer: %v", err)
	}

	// 1% guest fee per execution, three executions escrowed up front.
	feePerExec := new(uint256.Int).Div(ether(10), uint256.NewInt(100))
	if !schedule.FeePerExecution.Eq(feePerExec) {
		t.Fatalf("fee per execution = %s, want %s", schedule.FeePerExecution, feePerExec)
	}
	totalFee := new(uint256.Int).Mul(feePerExec, uint256.NewInt(3))
	wantEscrow := new(uint256.Int).Sub(ether(30), totalFee)
	if !schedule.EscrowBalance.Eq(wantEscrow) {
		t.Fatalf("escrow = %s, want %s", schedule.EscrowBalance, wantEscrow)
	}
	if got := v.WalletBalance(sender); !got.Eq(ether(70)) {
		t.Fatalf("sender wallet = %s, want %s", got, ether(70))
	}
	if !sink.total().Eq(totalFee) {
		t.Fatalf("treasury received %s, want %s", sink.total(), totalFee)
	}
}

func TestExecuteScheduledTransferNotDueLeavesStateUntouched(t *testing.T) {
	e, v, _, _, clock := newTestEngine(t)
	sender := domain.Address("0xsch2")
	if err := v.CreditWallet(sender, ether(100)); err != nil {
		t.Fatalf("fund sender: %v", err)
	}
	schedule, err := e.CreateScheduledTransfer(sender, "0xrec2", ether(10), time.Hour, 2, 0)
	if err != nil {
		t.Fatalf("CreateScheduledTransfer: %v", err)
	}

	if _, err := e.ExecuteScheduledTransfer(schedule.ID); !errors.Is(err, ErrScheduleNotDue) {
		t.Fatalf("premature execute err = %v, want %v", err, ErrScheduleNotDue)
	}
	after, err := e.ScheduledTransfer(schedule.ID)
	if err != nil {
		t.Fatalf("ScheduledTransfer: %v", err)
	}
	if after.RemainingTransfers != 2 || !after.NextExecution.Equal(schedule.NextExecution) {
		t.Fatalf("premature execute mutated schedule: %+v", after)
	}

	clock.Advance(time.Hour)
	executed, err := e.ExecuteScheduledTransfer(schedule.ID)
	if err != nil {
		t.Fatalf("ExecuteScheduledTransfer: %v", err)
	}
	if executed.RemainingTransfers != 1 {
		t.Fatalf("remaining = %d, want 1", executed.RemainingTransfers)
	}
	if got := v.PendingBalance("0xrec2"); !got.Eq(schedule.NetAmount) {
		t.Fatalf("recipient pending = %s, want %s", got, schedule.NetAmount)
	}
}

func TestScheduledTransferDeactivatesAfterLastExecution(t *testing.T) {
	e, v, _, _, clock := newTestEngine(t)
	sender := domain.Address("0xsch3")
	if err := v.CreditWallet(sender, ether(100)); err != nil {
		t.Fatalf("fund sender: %v", err)
	}
	schedule, err := e.CreateScheduledTransfer(sender, "0xrec3", ether(10), time.Hour, 2, 0)
	if err != nil {
		t.Fatalf("CreateScheduledTransfer: %v", err)
	}

	clock.Advance(time.Hour)
	if _, err := e.ExecuteScheduledTransfer(schedule.ID); err != nil {
		t.Fatalf("first execution: %v", err)
	}
	clock.Advance(time.Hour)
	final, err := e.ExecuteScheduledTransfer(schedule.ID)
	if err != nil {
		t.Fatalf("second execution: %v", err)
	}
	if final.Active {
		t.Fatal("schedule still active after last execution")
	}
	if !final.EscrowBalance.IsZero() {
		t.Fatalf("escrow after last execution = %s, want 0", final.EscrowBalance)
	}
	clock.Advance(time.Hour)
	if _, err := e.ExecuteScheduledTransfer(schedule.ID); !errors.Is(err, ErrScheduleInactive) {
		t.Fatalf("execute on finished schedule err = %v, want %v", err, ErrScheduleInactive)
	}
}

func TestIndefiniteScheduleTopUpAndExhaustion(t *testing.T) {
	e, v, _, _, clock := newTestEngine(t)
	sender := domain.Address("0xsch4")
	if err := v.CreditWallet(sender, ether(100)); err != nil {
		t.Fatalf("fund sender: %v", err)
	}
	schedule, err := e.CreateScheduledTransfer(sender, "0xrec4", ether(10), time.Hour, 0, 1)
	if err != nil {
		t.Fatalf("CreateScheduledTransfer: %v", err)
	}
	if !schedule.Indefinite {
		t.Fatal("schedule with zero repetitions should be indefinite")
	}

	clock.Advance(time.Hour)
	if _, err := e.ExecuteScheduledTransfer(schedule.ID); err != nil {
		t.Fatalf("funded execution: %v", err)
	}
	clock.Advance(time.Hour)
	if _, err := e.ExecuteScheduledTransfer(schedule.ID); !errors.Is(err, ErrEscrowExhausted) {
		t.Fatalf("unfunded execution err = %v, want %v", err, ErrEscrowExhausted)
	}

	if _, err := e.TopUpScheduledTransfer(sender, schedule.ID, 1); err != nil {
		t.Fatalf("TopUpScheduledTransfer: %v", err)
	}
	if _, err := e.ExecuteScheduledTransfer(schedule.ID); err != nil {
		t.Fatalf("execution after top-up: %v", err)
	}
	if _, err := e.TopUpScheduledTransfer("0xother", schedule.ID, 1); !errors.Is(err, ErrNotScheduleSender) {
		t.Fatalf("foreign top-up err = %v, want %v", err, ErrNotScheduleSender)
	}
}

func TestCancelScheduledTransferRefundsEscrow(t *testing.T) {
	e, v, _, _, clock := newTestEngine(t)
	sender := domain.Address("0xsch5")
	if err := v.CreditWallet(sender, ether(100)); err != nil {
		t.Fatalf("fund sender: %v", err)
	}
	schedule, err := e.CreateScheduledTransfer(sender, "0xrec5", ether(10), time.Hour, 3, 0)
	if err != nil {
		t.Fatalf("CreateScheduledTransfer: %v", err)
	}

	clock.Advance(time.Hour)
	if _, err := e.ExecuteScheduledTransfer(schedule.ID); err != nil {
		t.Fatalf("execution: %v", err)
	}

	if _, err := e.CancelScheduledTransfer("0xother", schedule.ID); !errors.Is(err, ErrNotScheduleSender) {
		t.Fatalf("foreign cancel err = %v, want %v", err, ErrNotScheduleSender)
	}
	cancelled, err := e.CancelScheduledTransfer(sender, schedule.ID)
	if err != nil {
		t.Fatalf("CancelScheduledTransfer: %v", err)
	}
	if cancelled.Active {
		t.Fatal("cancelled schedule still active")
	}

	// Two unexecuted net amounts come back; the three fees stay collected.
	twoNets := new(uint256.Int).Mul(schedule.NetAmount, uint256.NewInt(2))
	wantWallet := new(uint256.Int).Sub(ether(100), ether(30))
	wantWallet.Add(wantWallet, twoNets)
	if got := v.WalletBalance(sender); !got.Eq(wantWallet) {
		t.Fatalf("sender wallet after cancel = %s, want %s", got, wantWallet)
	}
	if _, err := e.CancelScheduledTransfer(sender, schedule.ID); !errors.Is(err, ErrScheduleInactive) {
		t.Fatalf("double cancel err = %v, want %v", err, ErrScheduleInactive)
	}
}

func TestDueSchedulesListsOnlyDue(t *testing.T) {
	e, v, _, _, clock := newTestEngine(t)
	sender := domain.Address("0xsch6")
	if err := v.CreditWallet(sender, ether(100)); err != nil {
		t.Fatalf("fund sender: %v", err)
	}
	hourly, err := e.CreateScheduledTransfer(sender, "0xrec6", ether(5), time.Hour, 2, 0)
	if err != nil {
		t.Fatalf("create hourly: %v", err)
	}
	if _, err := e.CreateScheduledTransfer(sender, "0xrec7", ether(5), 48*time.Hour, 2, 0); err != nil {
		t.Fatalf("create slow: %v", err)
	}

	clock.Advance(2 * time.Hour)
	due := e.DueSchedules()
	if len(due) != 1 || due[0].ID != hourly.ID {
		t.Fatalf("due schedules = %+v, want only the hourly one", due)
	}
}
