package ledger

import "errors"

var (
	// ErrNotFound is returned when an asset, buy or sell id does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidAsset is returned when an asset has no name or symbol
	ErrInvalidAsset = errors.New("invalid asset")
	// ErrInvalidEvent is returned for non-positive prices or amounts and malformed dates
	ErrInvalidEvent = errors.New("invalid event")
	// ErrStablecoinMissing is returned when settlement is requested but the
	// stablecoin is not a tracked asset
	ErrStablecoinMissing = errors.New("stablecoin asset not found")
	// ErrInsufficientStablecoin is returned when a stablecoin-funded buy
	// exceeds the stablecoin balance
	ErrInsufficientStablecoin = errors.New("insufficient stablecoin balance")
)
