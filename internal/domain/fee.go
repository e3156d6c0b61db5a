/**
 * @description
 * Domain models for the fee engine: fee type profiles, volume discount tiers,
 * and the immutable record written for every processed fee event.
 *
 * @notes
 * - Percentages are basis points. A profile's royalty + community + platform
 *   splits must always sum to its base fee; that invariant is enforced on every
 *   configuration write, never re-checked at calculation time.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// FeeType tags the fee profile applied to a marketplace operation.
type FeeType string

const (
	FeeStandardSale   FeeType = "standard_sale"
	FeeAuction        FeeType = "auction"
	FeePremiumListing FeeType = "premium_listing"
	FeePhysicalItem   FeeType = "physical_item"
	FeeDigitalContent FeeType = "digital_content"
	FeeCrossCultural  FeeType = "cross_cultural"
)

// KnownFeeTypes lists every configurable fee type.
var KnownFeeTypes = []FeeType{
	FeeStandardSale,
	FeeAuction,
	FeePremiumListing,
	FeePhysicalItem,
	FeeDigitalContent,
	FeeCrossCultural,
}

// FeeProfile is the basis-point split configuration for one fee type.
// Profiles are only ever deactivated, never deleted.
type FeeProfile struct {
	Type         FeeType
	BaseFeeBps   uint16
	RoyaltyBps   uint16
	CommunityBps uint16
	PlatformBps  uint16
	Active       bool
	UpdatedAt    time.Time
	UpdatedBy    Address
}

// VolumeDiscountTier grants a fee discount once a payer's cumulative lifetime
// spend reaches Threshold. The applicable tier is the one with the highest
// threshold the payer has met.
type VolumeDiscountTier struct {
	Threshold   *uint256.Int
	DiscountBps uint16
}

// FeeBreakdown is the result of splitting a transaction amount.
type FeeBreakdown struct {
	Fee           *uint256.Int
	Royalty       *uint256.Int
	CommunityFund *uint256.Int
	PlatformFee   *uint256.Int
	DiscountBps   uint16
}

// FeeTransactionRecord is the immutable snapshot written for each processed fee
// event. Only the Processed flag may change after creation.
type FeeTransactionRecord struct {
	ID            uuid.UUID
	FeeType       FeeType
	Payer         Address
	Creator       Address
	Amount        *uint256.Int
	Fee           *uint256.Int
	Royalty       *uint256.Int
	CommunityFund *uint256.Int
	PlatformFee   *uint256.Int
	Processed     bool
	CreatedAt     time.Time
}
