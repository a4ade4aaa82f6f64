package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/selendra/dex-sub001/oracle/types"
)

const maxRequestBodyBytes = 1 << 20

var validate = validator.New()

type (
	// PairParams identifies a pool. Fee, tick spacing and hooks fall back to
	// the configured defaults when omitted.
	PairParams struct {
		TokenA      string       `json:"tokenA" validate:"required,eth_addr"`
		TokenB      string       `json:"tokenB" validate:"required,eth_addr"`
		Fee         optionalUint `json:"fee"`
		TickSpacing optionalInt  `json:"tickSpacing"`
		Hooks       string       `json:"hooks" validate:"omitempty,eth_addr"`
	}

	// FeedRequest defines the body of a single external price submission.
	FeedRequest struct {
		SigningKey string     `json:"signingKey" validate:"required"`
		Price      priceValue `json:"price" validate:"required"`
		PairParams
	}

	// FeedBatchItem is one element of a feed batch. Items are validated one
	// by one so a bad item only fails its own result.
	FeedBatchItem struct {
		Price priceValue `json:"price" validate:"required"`
		PairParams
	}

	// FeedBatchRequest defines the body of a batch of price submissions.
	FeedBatchRequest struct {
		SigningKey string          `json:"signingKey" validate:"required"`
		Pairs      []FeedBatchItem `json:"pairs" validate:"required,min=1"`
	}

	// SignedPairRequest defines the body of observe and invalidate.
	SignedPairRequest struct {
		SigningKey string `json:"signingKey" validate:"required"`
		PairParams
	}

	// SetControllerRequest defines the body of a protocol fee controller
	// change.
	SetControllerRequest struct {
		SigningKey string `json:"signingKey" validate:"required"`
		Controller string `json:"controllerAddress" validate:"required,eth_addr"`
	}

	// SetFeeRequest defines the body of a pool protocol fee change.
	SetFeeRequest struct {
		SigningKey  string       `json:"signingKey" validate:"required"`
		ProtocolFee optionalUint `json:"protocolFee"`
		PairParams
	}

	// CollectRequest defines the body of a protocol fee collection. An
	// amount of "0" or none collects the whole accrued balance.
	CollectRequest struct {
		SigningKey string `json:"signingKey" validate:"required"`
		Recipient  string `json:"recipient" validate:"required,eth_addr"`
		Token      string `json:"tokenAddress" validate:"required,eth_addr"`
		Amount     string `json:"amount"`
	}

	// AllAccruedRequest defines the body of a batched accrual read. Addresses
	// are checked per item.
	AllAccruedRequest struct {
		Tokens []string `json:"tokenAddresses" validate:"required,min=1"`
	}
)

// priceValue holds a price given as a JSON number or string. Parsing is left
// to the price validation so a malformed price fails its own item only.
type priceValue string

func (p *priceValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = priceValue(s)
		return nil
	}
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		raw = ""
	}
	*p = priceValue(raw)
	return nil
}

func (p priceValue) String() string {
	return string(p)
}

// optionalUint decodes a JSON number or numeric string. Anything else leaves
// it unset so the caller's default applies.
type optionalUint struct {
	Value uint32
	Set   bool
}

func (o *optionalUint) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if v, err := strconv.ParseUint(s, 10, 32); err == nil {
		o.Value, o.Set = uint32(v), true
	}
	return nil
}

func (o optionalUint) Or(def uint32) uint32 {
	if o.Set {
		return o.Value
	}
	return def
}

type optionalInt struct {
	Value int32
	Set   bool
}

func (o *optionalInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if v, err := strconv.ParseInt(s, 10, 32); err == nil {
		o.Value, o.Set = int32(v), true
	}
	return nil
}

func (o optionalInt) Or(def int32) int32 {
	if o.Set {
		return o.Value
	}
	return def
}

// pairParamsFromQuery reads PairParams from the URL query. Malformed numbers
// are reported rather than defaulted since a GET has no body to fall back on.
func pairParamsFromQuery(r *http.Request) (PairParams, error) {
	q := r.URL.Query()
	p := PairParams{
		TokenA: q.Get("tokenA"),
		TokenB: q.Get("tokenB"),
		Hooks:  q.Get("hooks"),
	}

	if s := q.Get("fee"); s != "" {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return PairParams{}, types.ErrInvalidParameter.Wrapf("fee: %s", s)
		}
		p.Fee = optionalUint{Value: uint32(v), Set: true}
	}
	if s := q.Get("tickSpacing"); s != "" {
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return PairParams{}, types.ErrInvalidParameter.Wrapf("tickSpacing: %s", s)
		}
		p.TickSpacing = optionalInt{Value: int32(v), Set: true}
	}

	return p, validateRequest(p)
}

// PairKey canonicalizes the params against cfg, using defaultFee when no fee
// was given.
func (p PairParams) PairKey(cfg types.OracleConfig, defaultFee uint32) (types.PairKey, error) {
	hooks := cfg.DefaultHooks
	if p.Hooks != "" {
		hooks = common.HexToAddress(p.Hooks)
	}

	return types.NewPairKey(
		common.HexToAddress(p.TokenA),
		common.HexToAddress(p.TokenB),
		p.Fee.Or(defaultFee),
		p.TickSpacing.Or(cfg.DefaultTickSpacing),
		hooks,
	)
}

// AmountInt parses the requested collect amount.
func (req CollectRequest) AmountInt() (math.Int, error) {
	if req.Amount == "" {
		return math.ZeroInt(), nil
	}
	amt, ok := math.NewIntFromString(req.Amount)
	if !ok {
		return math.Int{}, types.ErrInvalidParameter.Wrapf("amount: %s", req.Amount)
	}
	return amt, nil
}

// feedRequests validates each batch item on its own. Rejected items carry
// their error so the batch reports them in place.
func (req FeedBatchRequest) feedRequests(cfg types.OracleConfig) []types.FeedRequest {
	entries := make([]types.FeedRequest, len(req.Pairs))
	for i, item := range req.Pairs {
		if err := validateRequest(item); err != nil {
			entries[i] = types.FeedRequest{Err: err}
			continue
		}
		pair, err := item.PairKey(cfg, cfg.DefaultFee)
		if err != nil {
			entries[i] = types.FeedRequest{Err: err}
			continue
		}
		entries[i] = types.FeedRequest{Pair: pair, Price: item.Price.String()}
	}
	return entries
}

// parseTokens splits the requested tokens into parsed addresses and per
// index errors for malformed ones.
func (req AllAccruedRequest) parseTokens() ([]common.Address, map[int]error) {
	tokens := make([]common.Address, len(req.Tokens))
	invalid := map[int]error{}
	for i, t := range req.Tokens {
		if !common.IsHexAddress(t) {
			invalid[i] = types.ErrInvalidParameter.Wrapf("tokenAddresses[%d]: %s", i, t)
			continue
		}
		tokens[i] = common.HexToAddress(t)
	}
	return tokens, invalid
}

// decodeBody decodes and validates a JSON request body into dst.
func decodeBody(r *http.Request, w http.ResponseWriter, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return types.ErrInvalidParameter.Wrapf("malformed request body: %s", err)
	}
	return validateRequest(dst)
}

// validateRequest runs the struct tags and maps the first failure onto the
// error registry: absent fields are missing parameters, everything else is
// invalid.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return types.ErrInvalidParameter.Wrap(err.Error())
	}

	fe := verrs[0]
	if fe.Tag() == "required" {
		return types.ErrMissingParameter.Wrap(fe.Namespace())
	}
	return types.ErrInvalidParameter.Wrapf("%s: %v", fe.Namespace(), fe.Value())
}
