package types

import (
	"cosmossdk.io/errors"
)

const ModuleName = "dex-oracle"

// Oracle errors
var (
	ErrMissingParameter         = errors.Register(ModuleName, 2, "missing parameter")
	ErrInvalidPair              = errors.Register(ModuleName, 3, "invalid pair")
	ErrInvalidParameter         = errors.Register(ModuleName, 4, "invalid parameter")
	ErrUnauthorized             = errors.Register(ModuleName, 5, "unauthorized")
	ErrNotFound                 = errors.Register(ModuleName, 6, "not found")
	ErrStale                    = errors.Register(ModuleName, 7, "stale price")
	ErrInsufficientObservations = errors.Register(ModuleName, 8, "insufficient observations")
	ErrChainCallFailed          = errors.Register(ModuleName, 9, "chain call failed")
)
