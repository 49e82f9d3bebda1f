package guardian

import "errors"

// Computation-domain failures. Upstream failures are reported with the
// masa package sentinels (masa.ErrUnavailable, masa.ErrBadResponse).
var (
	// ErrNoPricedHoldings is returned when every holding in a portfolio
	// priced to zero, making the value-weighted risk score undefined.
	ErrNoPricedHoldings = errors.New("invalid input: no priced holdings")

	// ErrInsufficientPrices is returned when fewer than two holdings have
	// a non-zero price, making the correlation proxy undefined.
	ErrInsufficientPrices = errors.New("invalid input: insufficient price history")
)
