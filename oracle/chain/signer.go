package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/selendra/dex-sub001/oracle/types"
)

// Signer holds a secp256k1 key used to sign transactions for one request.
// Keys are never logged or persisted.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner parses a hex encoded private key, with or without 0x prefix.
func NewSigner(hexKey string) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, types.ErrMissingParameter.Wrap("signingKey")
	}

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, types.ErrInvalidParameter.Wrapf("signingKey is not a valid private key: %s", err)
	}

	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address returns the address derived from the signing key.
func (s *Signer) Address() common.Address {
	return s.address
}

// String implements the Stringer interface without exposing the key.
func (s *Signer) String() string {
	return s.address.Hex()
}

// TransactOpts returns bind options signing with the key for chainID.
func (s *Signer) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

// ResolveAddress accepts either a hex private key or a hex address and
// returns the caller address. The signer is only set when a key was given.
func ResolveAddress(signingKeyOrAddress string) (common.Address, *Signer, error) {
	value := strings.TrimSpace(signingKeyOrAddress)
	if value == "" {
		return common.Address{}, nil, types.ErrMissingParameter.Wrap("signingKey")
	}
	if common.IsHexAddress(value) {
		return common.HexToAddress(value), nil, nil
	}

	signer, err := NewSigner(value)
	if err != nil {
		return common.Address{}, nil, err
	}
	return signer.Address(), signer, nil
}
