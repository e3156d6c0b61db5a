/**
 * @description
 * Capability-based authorization model. Every state-mutating ledger operation
 * receives an AuthContext describing the caller's account address and the set
 * of capabilities granted to it, instead of consulting a global role registry.
 */

package domain

import "errors"

// Address identifies an account. The empty string is the zero address and is
// never a valid participant in any operation.
type Address string

// ZeroAddress is the invalid null account.
const ZeroAddress Address = ""

// IsZero reports whether the address is the null account.
func (a Address) IsZero() bool { return a == ZeroAddress }

// Capability is a named permission a caller may hold.
type Capability string

const (
	CapFeeAdmin     Capability = "fee_admin"     // manage fee profiles and discount tiers
	CapMarketplace  Capability = "marketplace"   // submit fee-bearing sale events
	CapFeeCollector Capability = "fee_collector" // deposit collected fees into the treasury
	CapTreasurer    Capability = "treasurer"     // create/update funds, profit sharing
	CapSpender      Capability = "spender"       // withdraw against a named fund
	CapAdmin        Capability = "admin"         // membership registry, collection payouts
	CapStakingAdmin Capability = "staking_admin" // tier tables, rewards pool funding
)

// ErrUnauthorized is returned when the caller lacks a required capability.
var ErrUnauthorized = errors.New("caller lacks required capability")

// AuthContext carries the authenticated caller identity and granted capabilities.
type AuthContext struct {
	Caller       Address
	Capabilities map[Capability]bool
}

// NewAuthContext builds an AuthContext from a caller address and capability list.
func NewAuthContext(caller Address, caps ...Capability) AuthContext {
	granted := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		granted[c] = true
	}
	return AuthContext{Caller: caller, Capabilities: granted}
}

// Has reports whether the caller holds the given capability.
func (a AuthContext) Has(cap Capability) bool {
	return a.Capabilities[cap]
}

// HasAny reports whether the caller holds at least one of the capabilities.
func (a AuthContext) HasAny(caps ...Capability) bool {
	for _, c := range caps {
		if a.Capabilities[c] {
			return true
		}
	}
	return false
}

// Require returns ErrUnauthorized unless the caller holds one of the capabilities.
func (a AuthContext) Require(caps ...Capability) error {
	if a.HasAny(caps...) {
		return nil
	}
	return ErrUnauthorized
}
