/**
 * @description
 * The fee engine computes and settles marketplace fee splits. Given a
 * transaction amount, a fee type profile, and the payer's lifetime spend, it
 * derives the fee, the creator royalty, the community fund cut, and the
 * platform remainder, then distributes each leg: royalty to the creator's
 * claimable balance, community cut to the community account, and platform fee
 * into the treasury.
 *
 * @notes
 * - Royalty and community percentages apply to the gross amount while the fee
 *   itself is discounted, so royalty+community can exceed the fee. In that
 *   case the platform fee is zeroed and the royalty is scaled down
 *   proportionally, with all rounding slack going to the community fund.
 * - Every operation runs under one mutex; ledger state mutates before any
 *   cross-engine call, and failed legs roll back everything.
 */

package feeengine

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
	ErrProfileNotFound    = errors.New("fee profile not found")
	ErrProfileInactive    = errors.New("fee profile is not active")
	ErrProfileSplit       = errors.New("royalty, community and platform splits must sum to the base fee")
	ErrBaseFeeTooHigh     = errors.New("base fee exceeds 3000 bps")
	ErrDiscountTooHigh    = errors.New("volume discount exceeds 5000 bps")
	ErrZeroPayer          = errors.New("payer address cannot be zero")
	ErrTransactionUnknown = errors.New("fee transaction not found")
)

// MaxVolumeDiscountBps caps any volume discount tier at 50%.
const MaxVolumeDiscountBps = 5_000

// TreasurySink receives the platform fee leg of every processed fee.
type TreasurySink interface {
	DepositCollectedFees(sender domain.Address, amount *uint256.Int, description string) error
}

// Engine is the fee calculation and settlement ledger.
type Engine struct {
	mu sync.Mutex

	profiles map[domain.FeeType]*domain.FeeProfile
	tiers    []domain.VolumeDiscountTier
	spend    map[domain.Address]*uint256.Int
	records  map[uuid.UUID]*domain.FeeTransactionRecord

	communityAccount domain.Address
	vault            *vault.Ledger
	treasury         TreasurySink

	now func() time.Time
}

// NewEngine creates a fee engine with the default profile table and volume
// discount tiers installed.
func NewEngine(v *vault.Ledger, treasury TreasurySink, communityAccount domain.Address) *Engine {
	e := &Engine{
		profiles:         make(map[domain.FeeType]*domain.FeeProfile),
		spend:            make(map[domain.Address]*uint256.Int),
		records:          make(map[uuid.UUID]*domain.FeeTransactionRecord),
		communityAccount: communityAccount,
		vault:            v,
		treasury:         treasury,
		now:              time.Now,
	}
	for _, p := range defaultProfiles() {
		profile := p
		e.profiles[profile.Type] = &profile
	}
	e.tiers = defaultVolumeTiers()
	return e
}

// defaultProfiles returns the launch fee schedule. Each split sums to its base.
func defaultProfiles() []domain.FeeProfile {
	return []domain.FeeProfile{
		{Type: domain.FeeStandardSale, BaseFeeBps: 250, RoyaltyBps: 100, CommunityBps: 50, PlatformBps: 100, Active: true},
		{Type: domain.FeeAuction, BaseFeeBps: 300, RoyaltyBps: 100, CommunityBps: 50, PlatformBps: 150, Active: true},
		{Type: domain.FeePremiumListing, BaseFeeBps: 350, RoyaltyBps: 150, CommunityBps: 50, PlatformBps: 150, Active: true},
		{Type: domain.FeePhysicalItem, BaseFeeBps: 200, RoyaltyBps: 50, CommunityBps: 50, PlatformBps: 100, Active: true},
		{Type: domain.FeeDigitalContent, BaseFeeBps: 250, RoyaltyBps: 150, CommunityBps: 50, PlatformBps: 50, Active: true},
		{Type: domain.FeeCrossCultural, BaseFeeBps: 150, RoyaltyBps: 50, CommunityBps: 50, PlatformBps: 50, Active: true},
	}
}

func defaultVolumeTiers() []domain.VolumeDiscountTier {
	ether := func(n uint64) *uint256.Int {
		return new(uint256.Int).Mul(uint256.NewInt(n), domain.WeiPerEther)
	}
	return []domain.VolumeDiscountTier{
		{Threshold: ether(1), DiscountBps: 1000},
		{Threshold: ether(5), DiscountBps: 2000},
		{Threshold: ether(10), DiscountBps: 3000},
	}
}

// SetProfile creates or replaces a fee profile. Requires the fee admin
// capability; rejects any split that does not sum to the base fee.
func (e *Engine) SetProfile(auth domain.AuthContext, profile domain.FeeProfile) error {
	if err := auth.Require(domain.CapFeeAdmin); err != nil {
		return err
	}
	if profile.BaseFeeBps > domain.MaxBaseFeeBps {
		return ErrBaseFeeTooHigh
	}
	if int(profile.RoyaltyBps)+int(profile.CommunityBps)+int(profile.PlatformBps) != int(profile.BaseFeeBps) {
		return ErrProfileSplit
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	profile.UpdatedAt = e.now().UTC()
	profile.UpdatedBy = auth.Caller
	e.profiles[profile.Type] = &profile
	return nil
}

// DeactivateProfile disables a fee profile. Profiles are never deleted.
func (e *Engine) DeactivateProfile(auth domain.AuthContext, feeType domain.FeeType) error {
	if err := auth.Require(domain.CapFeeAdmin); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	profile, ok := e.profiles[feeType]
	if !ok {
		return ErrProfileNotFound
	}
	profile.Active = false
	profile.UpdatedAt = e.now().UTC()
	profile.UpdatedBy = auth.Caller
	return nil
}

// Profile returns a copy of the profile for a fee type.
func (e *Engine) Profile(feeType domain.FeeType) (domain.FeeProfile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	profile, ok := e.profiles[feeType]
	if !ok {
		return domain.FeeProfile{}, ErrProfileNotFound
	}
	return *profile, nil
}

// Profiles returns a copy of every configured profile.
func (e *Engine) Profiles() []domain.FeeProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.FeeProfile, 0, len(e.profiles))
	for _, p := range e.profiles {
		out = append(out, *p)
	}
	return out
}

// SetVolumeTier creates or replaces the discount tier at a spend threshold.
func (e *Engine) SetVolumeTier(auth domain.AuthContext, threshold *uint256.Int, discountBps uint16) error {
	if err := auth.Require(domain.CapFeeAdmin); err != nil {
		return err
	}
	if threshold == nil || threshold.IsZero() {
		return domain.ErrInvalidAmount
	}
	if discountBps > MaxVolumeDiscountBps {
		return ErrDiscountTooHigh
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.tiers {
		if e.tiers[i].Threshold.Eq(threshold) {
			e.tiers[i].DiscountBps = discountBps
			return nil
		}
	}
	e.tiers = append(e.tiers, domain.VolumeDiscountTier{Threshold: domain.Clone(threshold), DiscountBps: discountBps})
	return nil
}

// VolumeTiers returns a copy of the configured discount tiers.
func (e *Engine) VolumeTiers() []domain.VolumeDiscountTier {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.VolumeDiscountTier, len(e.tiers))
	for i, t := range e.tiers {
		out[i] = domain.VolumeDiscountTier{Threshold: domain.Clone(t.Threshold), DiscountBps: t.DiscountBps}
	}
	return out
}

// VolumeDiscountBps returns the discount a payer's cumulative spend earns.
func (e *Engine) VolumeDiscountBps(payer domain.Address) uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.discountFor(payer)
}

// discountFor scans every tier and keeps the discount of the highest threshold
// the payer's cumulative spend has reached. Tiers are not guaranteed sorted,
// so a first-match scan would be wrong.
func (e *Engine) discountFor(payer domain.Address) uint16 {
	cumulative, ok := e.spend[payer]
	if !ok {
		return 0
	}
	var best uint16
	bestThreshold := new(uint256.Int)
	for _, tier := range e.tiers {
		if cumulative.Lt(tier.Threshold) {
			continue
		}
		if tier.Threshold.Gt(bestThreshold) || (tier.Threshold.Eq(bestThreshold) && tier.DiscountBps > best) {
			best = tier.DiscountBps
			bestThreshold = tier.Threshold
		}
	}
	return best
}

// CalculateFee computes the fee split without mutating any state.
// communityOverrideBps, when non-nil, replaces the profile's community fund
// percentage for this calculation only.
func (e *Engine) CalculateFee(amount *uint256.Int, feeType domain.FeeType, payer domain.Address, communityOverrideBps *uint16) (domain.FeeBreakdown, error) {
	if amount == nil || amount.IsZero() {
		return domain.FeeBreakdown{}, domain.ErrInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calculateLocked(amount, feeType, payer, communityOverrideBps)
}

func (e *Engine) calculateLocked(amount *uint256.Int, feeType domain.FeeType, payer domain.Address, communityOverrideBps *uint16) (domain.FeeBreakdown, error) {
	profile, ok := e.profiles[feeType]
	if !ok {
		return domain.FeeBreakdown{}, ErrProfileNotFound
	}
	if !profile.Active {
		return domain.FeeBreakdown{}, ErrProfileInactive
	}

	fee, err := domain.MulBps(amount, profile.BaseFeeBps)
	if err != nil {
		return domain.FeeBreakdown{}, err
	}
	discount := e.discountFor(payer)
	if discount > 0 {
		fee, err = domain.MulBps(fee, uint16(domain.BpsDenominator-int(discount)))
		if err != nil {
			return domain.FeeBreakdown{}, err
		}
	}

	royalty, err := domain.MulBps(amount, profile.RoyaltyBps)
	if err != nil {
		return domain.FeeBreakdown{}, err
	}
	communityBps := profile.CommunityBps
	if communityOverrideBps != nil {
		communityBps = *communityOverrideBps
	}
	community, err := domain.MulBps(amount, communityBps)
	if err != nil {
		return domain.FeeBreakdown{}, err
	}

	platform := new(uint256.Int)
	total := new(uint256.Int).Add(royalty, community)
	if total.Gt(fee) {
		// Royalty and community were computed off the gross amount, so a
		// discounted fee can be smaller than their sum. Zero the platform fee
		// and scale the royalty so royalty+community == fee, giving the
		// rounding slack to the community fund.
		scaled, err := domain.MulDiv(royalty, fee, total)
		if err != nil {
			return domain.FeeBreakdown{}, err
		}
		royalty = scaled
		community = new(uint256.Int).Sub(fee, royalty)
	} else {
		platform.Sub(fee, total)
	}

	return domain.FeeBreakdown{
		Fee:           fee,
		Royalty:       royalty,
		CommunityFund: community,
		PlatformFee:   platform,
		DiscountBps:   discount,
	}, nil
}

// ProcessFee is the state-mutating entry point. It debits the payer's wallet
// for the fee, records an immutable FeeTransactionRecord, distributes the
// three legs, and updates the payer's cumulative spend. Any failed leg rolls
// the whole operation back.
func (e *Engine) ProcessFee(auth domain.AuthContext, amount *uint256.Int, feeType domain.FeeType, payer, creator domain.Address, communityOverrideBps *uint16) (*domain.FeeTransactionRecord, error) {
	if err := auth.Require(domain.CapMarketplace, domain.CapFeeAdmin); err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, domain.ErrInvalidAmount
	}
	if payer.IsZero() {
		return nil, ErrZeroPayer
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	split, err := e.calculateLocked(amount, feeType, payer, communityOverrideBps)
	if err != nil {
		return nil, err
	}

	royalty := split.Royalty
	platform := split.PlatformFee
	if creator.IsZero() && royalty.Sign() > 0 {
		// No creator to pay: the royalty leg folds into the platform fee.
		platform = new(uint256.Int).Add(platform, royalty)
		royalty = new(uint256.Int)
	}

	refundPayer := func() {
		if split.Fee.Sign() > 0 {
			if err := e.vault.CreditWallet(payer, split.Fee); err != nil {
				log.Printf("level=error component=fee_engine msg=\"fee refund failed\" payer=%s err=%v", payer, err)
			}
		}
	}

	if split.Fee.Sign() > 0 {
		if err := e.vault.DebitWallet(payer, split.Fee); err != nil {
			return nil, fmt.Errorf("collect fee from payer: %w", err)
		}
	}
	if royalty.Sign() > 0 {
		if err := e.vault.CreditPending(creator, royalty); err != nil {
			refundPayer()
			return nil, fmt.Errorf("royalty leg: %w", err)
		}
	}
	if split.CommunityFund.Sign() > 0 {
		if err := e.vault.CreditPending(e.communityAccount, split.CommunityFund); err != nil {
			if royalty.Sign() > 0 {
				e.rollbackPending(creator, royalty)
			}
			refundPayer()
			return nil, fmt.Errorf("community fund leg: %w", err)
		}
	}
	if platform.Sign() > 0 {
		if err := e.treasury.DepositCollectedFees(payer, platform, string(feeType)+" platform fee"); err != nil {
			if split.CommunityFund.Sign() > 0 {
				e.rollbackPending(e.communityAccount, split.CommunityFund)
			}
			if royalty.Sign() > 0 {
				e.rollbackPending(creator, royalty)
			}
			refundPayer()
			return nil, fmt.Errorf("treasury leg: %w", err)
		}
	}

	record := &domain.FeeTransactionRecord{
		ID:            uuid.New(),
		FeeType:       feeType,
		Payer:         payer,
		Creator:       creator,
		Amount:        domain.Clone(amount),
		Fee:           split.Fee,
		Royalty:       royalty,
		CommunityFund: split.CommunityFund,
		PlatformFee:   platform,
		Processed:     true,
		CreatedAt:     e.now().UTC(),
	}
	e.records[record.ID] = record

	cumulative, ok := e.spend[payer]
	if !ok {
		cumulative = new(uint256.Int)
		e.spend[payer] = cumulative
	}
	cumulative.Add(cumulative, amount)

	return record, nil
}

// rollbackPending reverses a pending credit made earlier in the same operation.
func (e *Engine) rollbackPending(addr domain.Address, amount *uint256.Int) {
	if err := e.vault.DebitPending(addr, amount); err != nil {
		log.Printf("level=error component=fee_engine msg=\"rollback of pending credit failed\" account=%s amount=%s err=%v", addr, amount.Dec(), err)
	}
}

// Transaction returns a copy of a recorded fee transaction.
func (e *Engine) Transaction(id uuid.UUID) (domain.FeeTransactionRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	record, ok := e.records[id]
	if !ok {
		return domain.FeeTransactionRecord{}, ErrTransactionUnknown
	}
	return *record, nil
}

// CumulativeSpend returns the payer's lifetime fee-bearing volume.
func (e *Engine) CumulativeSpend(payer domain.Address) *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.spend[payer]; ok {
		return domain.Clone(s)
	}
	return new(uint256.Int)
}

// RestoreProfile reloads one persisted profile during rehydration.
func (e *Engine) RestoreProfile(profile domain.FeeProfile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := profile
	e.profiles[p.Type] = &p
}

// RestoreVolumeTiers replaces the tier table during rehydration.
func (e *Engine) RestoreVolumeTiers(tiers []domain.VolumeDiscountTier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tiers = tiers
}

// RestoreSpend reloads one payer's persisted cumulative spend.
func (e *Engine) RestoreSpend(payer domain.Address, cumulative *uint256.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spend[payer] = domain.Clone(cumulative)
}
