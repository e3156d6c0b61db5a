/**
 * @description
 * Domain models for the treasury ledger: weighted funds plus the append-only
 * deposit and expense audit logs.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// UnallocatedFundName is the default fund that absorbs rounding remainders and
// the allocation slack left by other funds.
const UnallocatedFundName = "Unallocated"

// Fund is a named, percentage-weighted sub-ledger within the treasury.
// Funds carry an explicit existence flag; existence is never inferred from a
// zero balance. Deactivated funds keep their audit history but hold no balance
// and no allocation.
type Fund struct {
	ID            uuid.UUID
	Name          string
	AllocationBps uint16
	Balance       *uint256.Int
	Active        bool
	Default       bool
	CreatedAt     time.Time
	CreatedBy     Address
}

// Deposit is an immutable audit entry for value entering the treasury.
type Deposit struct {
	ID          uuid.UUID
	FundID      uuid.UUID
	Amount      *uint256.Int
	Sender      Address
	Description string
	FeeDeposit  bool
	CreatedAt   time.Time
}

// Expense is an immutable audit entry for value leaving the treasury.
type Expense struct {
	ID          uuid.UUID
	FundID      uuid.UUID
	Amount      *uint256.Int
	Recipient   Address
	Approver    Address
	Description string
	CreatedAt   time.Time
}

// FundAllocation pairs a fund with a proposed allocation for bulk updates.
type FundAllocation struct {
	FundID        uuid.UUID
	AllocationBps uint16
}
