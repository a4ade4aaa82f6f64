package oracle

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/selendra/dex-sub001/oracle/chain"
	"github.com/selendra/dex-sub001/oracle/types"
)

// IsAuthorized reports whether caller holds role. onchain is the address
// recorded on-chain for the controller and owner roles and is ignored for
// the others.
func IsAuthorized(cfg types.OracleConfig, caller common.Address, role types.Role, onchain common.Address) bool {
	if caller == (common.Address{}) {
		return false
	}

	switch role {
	case types.RoleFeeder:
		return cfg.IsFeeder(caller) || (cfg.AdminIsFeeder && cfg.IsAdmin(caller))

	case types.RoleAdmin:
		return cfg.IsAdmin(caller)

	case types.RoleController, types.RoleOwner:
		return onchain != (common.Address{}) && caller == onchain

	default:
		return false
	}
}

// Caller is an authorized identity. Signer is nil when the caller was
// identified by address only.
type Caller struct {
	Address common.Address
	Signer  *chain.Signer
}

// Authority resolves callers and checks their roles. The on-chain contracts
// stay authoritative; a failed check here only saves a reverted transaction.
type Authority struct {
	logger zerolog.Logger
	cfg    types.OracleConfig
	fees   chain.FeeReader
}

// NewAuthority returns an Authority for cfg. fees is used to look up the
// controller and owner roles.
func NewAuthority(logger zerolog.Logger, cfg types.OracleConfig, fees chain.FeeReader) *Authority {
	return &Authority{
		logger: logger.With().Str("module", "authority").Logger(),
		cfg:    cfg,
		fees:   fees,
	}
}

// Authorize resolves signingKeyOrAddress and checks that it holds any of
// roles. It returns ErrUnauthorized when none match.
func (a *Authority) Authorize(ctx context.Context, signingKeyOrAddress string, roles ...types.Role) (Caller, error) {
	addr, signer, err := chain.ResolveAddress(signingKeyOrAddress)
	if err != nil {
		return Caller{}, err
	}
	caller := Caller{Address: addr, Signer: signer}

	for _, role := range roles {
		var onchain common.Address
		if role.IsOnChain() {
			onchain, err = a.onchainHolder(ctx, role)
			if err != nil {
				return Caller{}, err
			}
		}

		if IsAuthorized(a.cfg, addr, role, onchain) {
			return caller, nil
		}
	}

	telemetryUnauthorized(roles)
	a.logger.Info().
		Str("caller", addr.Hex()).
		Interface("roles", roles).
		Msg("rejected unauthorized caller")

	return Caller{}, types.ErrUnauthorized.Wrapf("%s does not hold role %v", addr.Hex(), roles)
}

// RequireSigner is like Authorize but fails unless a private key was given,
// for operations that send transactions.
func (a *Authority) RequireSigner(ctx context.Context, signingKey string, roles ...types.Role) (Caller, error) {
	caller, err := a.Authorize(ctx, signingKey, roles...)
	if err != nil {
		return Caller{}, err
	}
	if caller.Signer == nil {
		return Caller{}, types.ErrInvalidParameter.Wrap("signingKey must be a private key for this operation")
	}
	return caller, nil
}

func (a *Authority) onchainHolder(ctx context.Context, role types.Role) (common.Address, error) {
	switch role {
	case types.RoleController:
		return a.fees.ProtocolFeeController(ctx)
	case types.RoleOwner:
		return a.fees.Owner(ctx)
	default:
		return common.Address{}, nil
	}
}
