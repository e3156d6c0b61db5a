package feeengine

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/vault"
)

const communityAccount = domain.Address("0xcommunity")

type treasuryStub struct {
	received *uint256.Int
	err      error
}

func (s *treasuryStub) DepositCollectedFees(sender domain.Address, amount *uint256.Int, description string) error {
	if s.err != nil {
		return s.err
	}
	if s.received == nil {
		s.received = new(uint256.Int)
	}
	s.received.Add(s.received, amount)
	return nil
}

func ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), domain.WeiPerEther)
}

func newTestEngine(t *testing.T) (*Engine, *vault.Ledger, *treasuryStub) {
	t.Helper()
	v := vault.NewLedger()
	sink := &treasuryStub{}
	return NewEngine(v, sink, communityAccount), v, sink
}

func TestCalculateFeeStandardSaleSplit(t *testing.T) {
	e, _, _ := newTestEngine(t)

	// 10000 at 2.5%: fee 250, split 100 royalty / 50 community / 100 platform.
	split, err := e.CalculateFee(uint256.NewInt(10_000), domain.FeeStandardSale, "0xpayer", nil)
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	if !split.Fee.Eq(uint256.NewInt(250)) {
		t.Fatalf("fee = %s, want 250", split.Fee)
	}
	if !split.Royalty.Eq(uint256.NewInt(100)) {
		t.Fatalf("royalty = %s, want 100", split.Royalty)
	}
	if !split.CommunityFund.Eq(uint256.NewInt(50)) {
		t.Fatalf("community = %s, want 50", split.CommunityFund)
	}
	if !split.PlatformFee.Eq(uint256.NewInt(100)) {
		t.Fatalf("platform = %s, want 100", split.PlatformFee)
	}
}

func TestCalculateFeeCommunityOverride(t *testing.T) {
	e, _, _ := newTestEngine(t)

	override := uint16(100)
	split, err := e.CalculateFee(uint256.NewInt(10_000), domain.FeeStandardSale, "0xpayer", &override)
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	if !split.CommunityFund.Eq(uint256.NewInt(100)) {
		t.Fatalf("community = %s, want 100", split.CommunityFund)
	}
	if !split.PlatformFee.Eq(uint256.NewInt(50)) {
		t.Fatalf("platform = %s, want 50", split.PlatformFee)
	}
}

func TestVolumeDiscountAppliesToFeeOnly(t *testing.T) {
	e, _, _ := newTestEngine(t)
	payer := domain.Address("0xwhale")
	e.RestoreSpend(payer, ether(1)) // reaches the 10% discount tier

	split, err := e.CalculateFee(uint256.NewInt(10_000), domain.FeeStandardSale, payer, nil)
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	if split.DiscountBps != 1000 {
		t.Fatalf("discount = %d bps, want 1000", split.DiscountBps)
	}
	// Fee 250 discounted 10% -> 225. Royalty 100 and community 50 stay on the
	// gross amount, platform absorbs the discount: 225-150 = 75.
	if !split.Fee.Eq(uint256.NewInt(225)) {
		t.Fatalf("fee = %s, want 225", split.Fee)
	}
	if !split.Royalty.Eq(uint256.NewInt(100)) {
		t.Fatalf("royalty = %s, want 100", split.Royalty)
	}
	if !split.PlatformFee.Eq(uint256.NewInt(75)) {
		t.Fatalf("platform = %s, want 75", split.PlatformFee)
	}
}

func TestRoyaltyScalesWhenDiscountedFeeTooSmall(t *testing.T) {
	e, _, _ := newTestEngine(t)
	payer := domain.Address("0xorca")
	e.RestoreSpend(payer, ether(10)) // 30% discount tier

	// Fee 250 discounted 30% -> 175, below royalty+community = 150+50 = 200.
	split, err := e.CalculateFee(uint256.NewInt(10_000), domain.FeeDigitalContent, payer, nil)
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	if !split.PlatformFee.IsZero() {
		t.Fatalf("platform = %s, want 0", split.PlatformFee)
	}
	// royalty scaled: 150*175/200 = 131, community takes the slack: 44.
	if !split.Royalty.Eq(uint256.NewInt(131)) {
		t.Fatalf("royalty = %s, want 131", split.Royalty)
	}
	wantCommunity := new(uint256.Int).Sub(split.Fee, split.Royalty)
	if !split.CommunityFund.Eq(wantCommunity) {
		t.Fatalf("community = %s, want %s", split.CommunityFund, wantCommunity)
	}
	sum := new(uint256.Int).Add(split.Royalty, split.CommunityFund)
	if !sum.Eq(split.Fee) {
		t.Fatalf("royalty+community = %s, want fee %s", sum, split.Fee)
	}
}

func TestProcessFeeDistributesLegsAndTracksSpend(t *testing.T) {
	e, v, sink := newTestEngine(t)
	marketplace := domain.NewAuthContext("0xmarket", domain.CapMarketplace)
	payer := domain.Address("0xbuyer")
	creator := domain.Address("0xartist")
	if err := v.CreditWallet(payer, ether(1)); err != nil {
		t.Fatalf("fund payer: %v", err)
	}

	record, err := e.ProcessFee(marketplace, uint256.NewInt(10_000), domain.FeeStandardSale, payer, creator, nil)
	if err != nil {
		t.Fatalf("ProcessFee: %v", err)
	}
	if !record.Processed {
		t.Fatal("record not marked processed")
	}
	if got := v.PendingBalance(creator); !got.Eq(uint256.NewInt(100)) {
		t.Fatalf("creator pending = %s, want 100", got)
	}
	if got := v.PendingBalance(communityAccount); !got.Eq(uint256.NewInt(50)) {
		t.Fatalf("community pending = %s, want 50", got)
	}
	if !sink.received.Eq(uint256.NewInt(100)) {
		t.Fatalf("treasury received %s, want 100", sink.received)
	}
	wantWallet := new(uint256.Int).Sub(ether(1), uint256.NewInt(250))
	if got := v.WalletBalance(payer); !got.Eq(wantWallet) {
		t.Fatalf("payer wallet = %s, want %s", got, wantWallet)
	}
	if got := e.CumulativeSpend(payer); !got.Eq(uint256.NewInt(10_000)) {
		t.Fatalf("cumulative spend = %s, want 10000", got)
	}

	stored, err := e.Transaction(record.ID)
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	if stored.ID != record.ID || !stored.Fee.Eq(record.Fee) {
		t.Fatalf("stored record mismatch: %+v", stored)
	}
}

func TestProcessFeeZeroCreatorFoldsRoyaltyIntoPlatform(t *testing.T) {
	e, v, sink := newTestEngine(t)
	marketplace := domain.NewAuthContext("0xmarket", domain.CapMarketplace)
	payer := domain.Address("0xbuyer2")
	if err := v.CreditWallet(payer, ether(1)); err != nil {
		t.Fatalf("fund payer: %v", err)
	}

	record, err := e.ProcessFee(marketplace, uint256.NewInt(10_000), domain.FeeStandardSale, payer, domain.ZeroAddress, nil)
	if err != nil {
		t.Fatalf("ProcessFee: %v", err)
	}
	if !record.Royalty.IsZero() {
		t.Fatalf("royalty = %s, want 0", record.Royalty)
	}
	if !record.PlatformFee.Eq(uint256.NewInt(200)) {
		t.Fatalf("platform = %s, want 200", record.PlatformFee)
	}
	if !sink.received.Eq(uint256.NewInt(200)) {
		t.Fatalf("treasury received %s, want 200", sink.received)
	}
}

func TestProcessFeeRollsBackOnTreasuryFailure(t *testing.T) {
	e, v, sink := newTestEngine(t)
	marketplace := domain.NewAuthContext("0xmarket", domain.CapMarketplace)
	payer := domain.Address("0xbuyer3")
	creator := domain.Address("0xartist3")
	if err := v.CreditWallet(payer, ether(1)); err != nil {
		t.Fatalf("fund payer: %v", err)
	}
	sink.err = errors.New("treasury offline")

	if _, err := e.ProcessFee(marketplace, uint256.NewInt(10_000), domain.FeeStandardSale, payer, creator, nil); err == nil {
		t.Fatal("expected treasury leg failure")
	}
	if got := v.WalletBalance(payer); !got.Eq(ether(1)) {
		t.Fatalf("payer wallet after rollback = %s, want %s", got, ether(1))
	}
	if got := v.PendingBalance(creator); !got.IsZero() {
		t.Fatalf("creator pending after rollback = %s, want 0", got)
	}
	if got := v.PendingBalance(communityAccount); !got.IsZero() {
		t.Fatalf("community pending after rollback = %s, want 0", got)
	}
	if got := e.CumulativeSpend(payer); !got.IsZero() {
		t.Fatalf("cumulative spend after rollback = %s, want 0", got)
	}
}

func TestProcessFeeRequiresCapability(t *testing.T) {
	e, _, _ := newTestEngine(t)
	nobody := domain.NewAuthContext("0xnobody")
	if _, err := e.ProcessFee(nobody, uint256.NewInt(10_000), domain.FeeStandardSale, "0xpayer", "0xcreator", nil); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want %v", err, domain.ErrUnauthorized)
	}
}

func TestSetProfileValidatesSplit(t *testing.T) {
	e, _, _ := newTestEngine(t)
	admin := domain.NewAuthContext("0xadmin", domain.CapFeeAdmin)

	bad := domain.FeeProfile{Type: domain.FeeAuction, BaseFeeBps: 300, RoyaltyBps: 100, CommunityBps: 100, PlatformBps: 50, Active: true}
	if err := e.SetProfile(admin, bad); !errors.Is(err, ErrProfileSplit) {
		t.Fatalf("bad split err = %v, want %v", err, ErrProfileSplit)
	}

	tooHigh := domain.FeeProfile{Type: domain.FeeAuction, BaseFeeBps: 3500, RoyaltyBps: 1500, CommunityBps: 1000, PlatformBps: 1000, Active: true}
	if err := e.SetProfile(admin, tooHigh); !errors.Is(err, ErrBaseFeeTooHigh) {
		t.Fatalf("high base err = %v, want %v", err, ErrBaseFeeTooHigh)
	}

	good := domain.FeeProfile{Type: domain.FeeAuction, BaseFeeBps: 400, RoyaltyBps: 200, CommunityBps: 100, PlatformBps: 100, Active: true}
	if err := e.SetProfile(admin, good); err != nil {
		t.Fatalf("SetProfile: %v", err)
	}
	stored, err := e.Profile(domain.FeeAuction)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if stored.BaseFeeBps != 400 || stored.UpdatedBy != admin.Caller {
		t.Fatalf("stored profile = %+v", stored)
	}
}

func TestDeactivatedProfileRejectsCalculation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	admin := domain.NewAuthContext("0xadmin", domain.CapFeeAdmin)
	if err := e.DeactivateProfile(admin, domain.FeePhysicalItem); err != nil {
		t.Fatalf("DeactivateProfile: %v", err)
	}
	if _, err := e.CalculateFee(uint256.NewInt(10_000), domain.FeePhysicalItem, "0xpayer", nil); !errors.Is(err, ErrProfileInactive) {
		t.Fatalf("err = %v, want %v", err, ErrProfileInactive)
	}
}

func TestSetVolumeTierCapsDiscount(t *testing.T) {
	e, _, _ := newTestEngine(t)
	admin := domain.NewAuthContext("0xadmin", domain.CapFeeAdmin)
	if err := e.SetVolumeTier(admin, ether(20), 6000); !errors.Is(err, ErrDiscountTooHigh) {
		t.Fatalf("err = %v, want %v", err, ErrDiscountTooHigh)
	}
	if err := e.SetVolumeTier(admin, ether(1), 1500); err != nil {
		t.Fatalf("SetVolumeTier: %v", err)
	}
	for _, tier := range e.VolumeTiers() {
		if tier.Threshold.Eq(ether(1)) && tier.DiscountBps != 1500 {
			t.Fatalf("updated tier discount = %d, want 1500", tier.DiscountBps)
		}
	}
}
