/**
 * @description
 * Domain models for the transfer engine: peer-to-peer transfers with tiered
 * fees, escrowed scheduled transfers, and community collections.
 *
 * @notes
 * - Recipients are paid through a pull-payment ledger (pendingWithdrawals):
 *   value is credited to a claimable balance and must be withdrawn separately.
 * - Scheduled transfers escrow principal plus every repetition's fee at
 *   creation time, so executions move a pre-computed net amount.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// SenderTier classifies a transfer sender for fee purposes. Node operators are
// checked before members: validator status takes precedence.
type SenderTier string

const (
	TierGuest        SenderTier = "guest"
	TierMember       SenderTier = "member"
	TierNodeOperator SenderTier = "node_operator"
)

// TransferRecord is the ledger entry written for a completed transfer.
type TransferRecord struct {
	ID        uuid.UUID
	Sender    Address
	Recipient Address
	Amount    *uint256.Int
	Fee       *uint256.Int
	Net       *uint256.Int
	Tier      SenderTier
	Memo      string
	BatchID   *uuid.UUID
	CreatedAt time.Time
}

// ScheduledTransfer is a recurring transfer whose funds (principal and fees for
// every repetition) were escrowed when it was created.
//
// RemainingTransfers == 0 means the schedule repeats indefinitely; otherwise it
// counts down on each execution and the schedule deactivates at zero.
type ScheduledTransfer struct {
	ID                 uuid.UUID
	Sender             Address
	Recipient          Address
	NetAmount          *uint256.Int // moved per execution, fee already deducted
	FeePerExecution    *uint256.Int
	EscrowBalance      *uint256.Int
	Interval           time.Duration
	NextExecution      time.Time
	RemainingTransfers uint64
	Indefinite         bool
	Active             bool
	CreatedAt          time.Time
}

// CommunityCollection pools many contributions toward a goal. Finalization is
// exactly-once, guarded by the Active flag.
type CommunityCollection struct {
	ID        uuid.UUID
	Creator   Address
	Purpose   string
	Goal      *uint256.Int
	Collected *uint256.Int
	Deadline  time.Time
	Active    bool
	CreatedAt time.Time
}

// Contribution is an immutable record of one payment into a collection.
type Contribution struct {
	ID           uuid.UUID
	CollectionID uuid.UUID
	Contributor  Address
	Amount       *uint256.Int
	CreatedAt    time.Time
}
