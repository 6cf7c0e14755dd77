package analytics

import "errors"

// ErrEmptyChain is returned when neither side of the chain contributes a strike,
// which leaves Max Pain and the at-the-money strike undefined.
var ErrEmptyChain = errors.New("empty option chain: no strikes to evaluate")

// ErrInvalidSpotPrice is returned when the spot price is not a finite positive number.
var ErrInvalidSpotPrice = errors.New("invalid spot price")
