/**
 * @description
 * Monetary primitives shared by every ledger engine. All amounts are unsigned
 * 256-bit integers denominated in the smallest native unit (wei), and all
 * percentages are expressed in basis points (1/100 of a percent).
 *
 * @notes
 * - github.com/holiman/uint256 gives us exact EVM-style integer arithmetic
 *   without the allocation overhead of math/big.
 * - Arithmetic helpers treat overflow as a hard failure: the enclosing
 *   operation must abort, never wrap silently.
 */

package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// BpsDenominator is the basis-point scale: 10000 bps == 100%.
const BpsDenominator = 10_000

// MaxBaseFeeBps caps any fee profile's base fee at 30%.
const MaxBaseFeeBps = 3_000

// WeiPerEther is 1e18, the number of wei in one ether.
var WeiPerEther = uint256.MustFromDecimal("1000000000000000000")

var (
	ErrAmountOverflow = errors.New("amount arithmetic overflow")
	ErrInvalidAmount  = errors.New("amount must be greater than zero")
)

// ParseAmount parses a base-10 wei amount from its string form.
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// MulBps returns amount * bps / 10000, erroring on overflow rather than wrapping.
func MulBps(amount *uint256.Int, bps uint16) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(amount, uint256.NewInt(uint64(bps)))
	if overflow {
		return nil, ErrAmountOverflow
	}
	return product.Div(product, uint256.NewInt(BpsDenominator)), nil
}

// MulDiv returns amount * num / den with overflow checking. den must be non-zero.
func MulDiv(amount, num, den *uint256.Int) (*uint256.Int, error) {
	if den.IsZero() {
		return nil, errors.New("division by zero")
	}
	product, overflow := new(uint256.Int).MulOverflow(amount, num)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return product.Div(product, den), nil
}

// Clone returns a defensive copy of v, treating nil as zero.
func Clone(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
