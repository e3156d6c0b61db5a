/**
 * @description
 * Scheduled (recurring) transfers. The principal and the fee for every funded
 * execution are escrowed when the schedule is created, so each execution only
 * moves a pre-computed net amount and can be triggered permissionlessly by
 * any caller once it is due.
 */

package transferengine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
)

var (
	ErrScheduleNotFound  = errors.New("scheduled transfer not found")
	ErrScheduleInactive  = errors.New("scheduled transfer is not active")
	ErrScheduleNotDue    = errors.New("scheduled transfer is not due yet")
	ErrNotScheduleSender = errors.New("caller did not create this schedule")
	ErrEscrowExhausted   = errors.New("schedule escrow cannot cover the next execution")
	ErrZeroInterval      = errors.New("schedule interval must be greater than zero")
	ErrZeroExecutions    = errors.New("indefinite schedules must fund at least one execution")
)

// CreateScheduledTransfer escrows funding for a recurring transfer. The fee is
// computed once at the sender's current tier and deducted up front for every
// funded execution; executions move the remaining net amount.
//
// repetitions == 0 means the schedule runs indefinitely; fundedExecutions then
// decides how many executions are escrowed up front (TopUpScheduledTransfer
// extends it later). For finite schedules every repetition is funded at
// creation and fundedExecutions is ignored.
func (e *Engine) CreateScheduledTransfer(sender, recipient domain.Address, amount *uint256.Int, interval time.Duration, repetitions, fundedExecutions uint64) (domain.ScheduledTransfer, error) {
	if sender.IsZero() || recipient.IsZero() {
		return domain.ScheduledTransfer{}, ErrZeroAddress
	}
	if sender == recipient {
		return domain.ScheduledTransfer{}, ErrSelfTransfer
	}
	if amount == nil || amount.IsZero() {
		return domain.ScheduledTransfer{}, domain.ErrInvalidAmount
	}
	if interval <= 0 {
		return domain.ScheduledTransfer{}, ErrZeroInterval
	}
	indefinite := repetitions == 0
	if indefinite {
		if fundedExecutions == 0 {
			return domain.ScheduledTransfer{}, ErrZeroExecutions
		}
	} else {
		fundedExecutions = repetitions
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fee, _, err := e.feeLocked(sender, amount)
	if err != nil {
		return domain.ScheduledTransfer{}, err
	}
	net := new(uint256.Int).Sub(amount, fee)

	executions := uint256.NewInt(fundedExecutions)
	totalEscrow, overflow := new(uint256.Int).MulOverflow(amount, executions)
	if overflow {
		return domain.ScheduledTransfer{}, domain.ErrAmountOverflow
	}
	totalFee := new(uint256.Int).Mul(fee, executions)
	netEscrow := new(uint256.Int).Sub(totalEscrow, totalFee)

	if err := e.vault.DebitWallet(sender, totalEscrow); err != nil {
		return domain.ScheduledTransfer{}, err
	}
	if totalFee.Sign() > 0 {
		if err := e.feeSink.DepositCollectedFees(sender, totalFee, "scheduled transfer fees"); err != nil {
			if creditErr := e.vault.CreditWallet(sender, totalEscrow); creditErr != nil {
				return domain.ScheduledTransfer{}, errors.Join(err, creditErr)
			}
			return domain.ScheduledTransfer{}, fmt.Errorf("fee leg: %w", err)
		}
	}

	now := e.now().UTC()
	schedule := &domain.ScheduledTransfer{
		ID:                 uuid.New(),
		Sender:             sender,
		Recipient:          recipient,
		NetAmount:          net,
		FeePerExecution:    fee,
		EscrowBalance:      netEscrow,
		Interval:           interval,
		NextExecution:      now.Add(interval),
		RemainingTransfers: repetitions,
		Indefinite:         indefinite,
		Active:             true,
		CreatedAt:          now,
	}
	e.schedules[schedule.ID] = schedule
	return copySchedule(schedule), nil
}

// ExecuteScheduledTransfer runs one due execution. Any caller may trigger it;
// a premature call fails without touching the counter or the next execution
// time.
func (e *Engine) ExecuteScheduledTransfer(scheduleID uuid.UUID) (domain.ScheduledTransfer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	schedule, ok := e.schedules[scheduleID]
	if !ok {
		return domain.ScheduledTransfer{}, ErrScheduleNotFound
	}
	if !schedule.Active {
		return domain.ScheduledTransfer{}, ErrScheduleInactive
	}
	now := e.now().UTC()
	if now.Before(schedule.NextExecution) {
		return domain.ScheduledTransfer{}, ErrScheduleNotDue
	}
	if schedule.EscrowBalance.Lt(schedule.NetAmount) {
		return domain.ScheduledTransfer{}, ErrEscrowExhausted
	}

	schedule.EscrowBalance.Sub(schedule.EscrowBalance, schedule.NetAmount)
	if schedule.NetAmount.Sign() > 0 {
		if err := e.vault.CreditPending(schedule.Recipient, schedule.NetAmount); err != nil {
			schedule.EscrowBalance.Add(schedule.EscrowBalance, schedule.NetAmount)
			return domain.ScheduledTransfer{}, err
		}
	}
	schedule.NextExecution = schedule.NextExecution.Add(schedule.Interval)
	if !schedule.Indefinite {
		schedule.RemainingTransfers--
		if schedule.RemainingTransfers == 0 {
			schedule.Active = false
		}
	}
	return copySchedule(schedule), nil
}

// TopUpScheduledTransfer escrows funding for further executions of an
// indefinite schedule. Only the original sender may top up.
func (e *Engine) TopUpScheduledTransfer(caller domain.Address, scheduleID uuid.UUID, executions uint64) (domain.ScheduledTransfer, error) {
	if executions == 0 {
		return domain.ScheduledTransfer{}, ErrZeroExecutions
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	schedule, ok := e.schedules[scheduleID]
	if !ok {
		return domain.ScheduledTransfer{}, ErrScheduleNotFound
	}
	if schedule.Sender != caller {
		return domain.ScheduledTransfer{}, ErrNotScheduleSender
	}
	if !schedule.Active {
		return domain.ScheduledTransfer{}, ErrScheduleInactive
	}

	n := uint256.NewInt(executions)
	gross := new(uint256.Int).Add(schedule.NetAmount, schedule.FeePerExecution)
	total, overflow := new(uint256.Int).MulOverflow(gross, n)
	if overflow {
		return domain.ScheduledTransfer{}, domain.ErrAmountOverflow
	}
	totalFee := new(uint256.Int).Mul(schedule.FeePerExecution, n)
	netEscrow := new(uint256.Int).Sub(total, totalFee)

	if err := e.vault.DebitWallet(caller, total); err != nil {
		return domain.ScheduledTransfer{}, err
	}
	if totalFee.Sign() > 0 {
		if err := e.feeSink.DepositCollectedFees(caller, totalFee, "scheduled transfer fees"); err != nil {
			if creditErr := e.vault.CreditWallet(caller, total); creditErr != nil {
				return domain.ScheduledTransfer{}, errors.Join(err, creditErr)
			}
			return domain.ScheduledTransfer{}, fmt.Errorf("fee leg: %w", err)
		}
	}
	schedule.EscrowBalance.Add(schedule.EscrowBalance, netEscrow)
	return copySchedule(schedule), nil
}

// CancelScheduledTransfer deactivates a schedule and refunds the remaining
// net escrow to the sender's wallet. Fees already collected are not refunded.
func (e *Engine) CancelScheduledTransfer(caller domain.Address, scheduleID uuid.UUID) (domain.ScheduledTransfer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	schedule, ok := e.schedules[scheduleID]
	if !ok {
		return domain.ScheduledTransfer{}, ErrScheduleNotFound
	}
	if schedule.Sender != caller {
		return domain.ScheduledTransfer{}, ErrNotScheduleSender
	}
	if !schedule.Active {
		return domain.ScheduledTransfer{}, ErrScheduleInactive
	}

	schedule.Active = false
	if schedule.EscrowBalance.Sign() > 0 {
		refund := domain.Clone(schedule.EscrowBalance)
		schedule.EscrowBalance.Clear()
		if err := e.vault.CreditWallet(caller, refund); err != nil {
			schedule.EscrowBalance.Set(refund)
			schedule.Active = true
			return domain.ScheduledTransfer{}, err
		}
	}
	return copySchedule(schedule), nil
}

// ScheduledTransfer returns a copy of one schedule.
func (e *Engine) ScheduledTransfer(scheduleID uuid.UUID) (domain.ScheduledTransfer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	schedule, ok := e.schedules[scheduleID]
	if !ok {
		return domain.ScheduledTransfer{}, ErrScheduleNotFound
	}
	return copySchedule(schedule), nil
}

// DueSchedules lists active schedules whose next execution time has passed.
// The cron runner uses this to trigger executions.
func (e *Engine) DueSchedules() []domain.ScheduledTransfer {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now().UTC()
	var due []domain.ScheduledTransfer
	for _, schedule := range e.schedules {
		if schedule.Active && !now.Before(schedule.NextExecution) {
			due = append(due, copySchedule(schedule))
		}
	}
	return due
}

// RestoreSchedule reloads one persisted schedule during rehydration.
func (e *Engine) RestoreSchedule(schedule domain.ScheduledTransfer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := schedule
	s.NetAmount = domain.Clone(schedule.NetAmount)
	s.FeePerExecution = domain.Clone(schedule.FeePerExecution)
	s.EscrowBalance = domain.Clone(schedule.EscrowBalance)
	e.schedules[s.ID] = &s
}

func copySchedule(s *domain.ScheduledTransfer) domain.ScheduledTransfer {
	out := *s
	out.NetAmount = domain.Clone(s.NetAmount)
	out.FeePerExecution = domain.Clone(s.FeePerExecution)
	out.EscrowBalance = domain.Clone(s.EscrowBalance)
	return out
}
