package v1

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/selendra/dex-sub001/config"
	"github.com/selendra/dex-sub001/oracle/types"
)

const (
	APIPathPrefix = "/api/v1"
)

// Router defines a router wrapper used for registering v1 API routes.
type Router struct {
	logger  zerolog.Logger
	cfg     config.Config
	oracle  Oracle
	metrics Metrics
}

// New returns a Router. metrics may be nil, in which case the metrics route
// is not registered.
func New(logger zerolog.Logger, cfg config.Config, oracle Oracle, metrics Metrics) *Router {
	return &Router{
		logger:  logger.With().Str("module", "router").Logger(),
		cfg:     cfg,
		oracle:  oracle,
		metrics: metrics,
	}
}

// RegisterRoutes register v1 API routes on the provided sub-router.
func (r *Router) RegisterRoutes(rtr *mux.Router, prefix string) {
	v1Router := rtr.PathPrefix(prefix).Subrouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: r.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		Debug:          r.cfg.Server.VerboseCORS,
	})

	read := alice.New(recoverer(r.logger), requestLogger(r.logger), requestMetrics, corsHandler.Handler)
	write := read
	if r.cfg.RateLimit.Enabled {
		write = read.Append(newIPRateLimiter(r.cfg.RateLimit).middleware)
	}

	get := func(path string, h http.HandlerFunc) {
		v1Router.Handle(path, read.ThenFunc(h)).Methods(http.MethodGet)
	}
	post := func(path string, h http.HandlerFunc) {
		v1Router.Handle(path, write.ThenFunc(h)).Methods(http.MethodPost)
	}

	get("/healthz", r.healthzHandler())
	if r.metrics != nil {
		get("/metrics", r.metricsHandler())
	}

	get("/oracle/price", pairQueryHandler(r, r.oracle.Price))
	get("/oracle/pool-price", pairQueryHandler(r, r.oracle.PoolPrice))
	get("/oracle/external-price", pairQueryHandler(r, r.oracle.ExternalPrice))
	get("/oracle/external-prices", r.externalPricesHandler())
	get("/oracle/twap", pairQueryHandler(r, r.oracle.TWAP))
	get("/oracle/observation-count", pairQueryHandler(r, r.oracle.ObservationCount))
	get("/oracle/config", r.configHandler())
	post("/oracle/feed", r.feedHandler())
	post("/oracle/feed-batch", r.feedBatchHandler())
	post("/oracle/observe", r.observeHandler())
	post("/oracle/invalidate", r.invalidateHandler())

	get("/fees/controller", r.feeControllerHandler())
	post("/fees/controller", r.setControllerHandler())
	get("/fees/accrued/{token}", r.accruedHandler())
	post("/fees/accrued", r.allAccruedHandler())
	get("/fees/pool-fee", r.poolFeeHandler())
	post("/fees/protocol-fee", r.setFeeHandler())
	post("/fees/collect", r.collectHandler())
}

// fail writes err with its mapped status, logging anything that is not a
// client error.
func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	if code := StatusFromError(err); code >= http.StatusInternalServerError {
		r.logger.Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
	}
	writeError(w, err)
}

func (r *Router) healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := r.oracle.Health(req.Context()); err != nil {
			respondWithJSON(w, http.StatusServiceUnavailable, Response{
				Success: false,
				Data:    HealthZResponse{Status: StatusUnavailable, Error: err.Error()},
				Error:   err.Error(),
			})
			return
		}
		writeSuccessResponse(w, HealthZResponse{Status: StatusAvailable})
	}
}

func (r *Router) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		format := strings.TrimSpace(req.FormValue("format"))

		gr, err := r.metrics.Gather(format)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("failed to gather metrics: %s", err))
			return
		}

		w.Header().Set("Content-Type", gr.ContentType)
		_, _ = w.Write(gr.Metrics)
	}
}

func (r *Router) configHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeSuccessResponse(w, r.oracle.Config())
	}
}

// pairQueryHandler serves a read keyed by the pair in the query string.
func pairQueryHandler[T any](
	r *Router,
	fn func(ctx context.Context, pair types.PairKey) (T, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		params, err := pairParamsFromQuery(req)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		cfg := r.oracle.Config()
		pair, err := params.PairKey(cfg, cfg.DefaultFee)
		if err != nil {
			r.fail(w, req, err)
			return
		}

		res, err := fn(req.Context(), pair)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeSuccessResponse(w, res)
	}
}

func (r *Router) feedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body FeedRequest
		if err := decodeBody(req, w, &body); err != nil {
			r.fail(w, req, err)
			return
		}
		cfg := r.oracle.Config()
		pair, err := body.PairKey(cfg, cfg.DefaultFee)
		if err != nil {
			r.fail(w, req, err)
			return
		}

		entry, err := r.oracle.Feed(req.Context(), pair, body.Price.String(), body.SigningKey)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeSuccessResponse(w, entry)
	}
}

func (r *Router) feedBatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body FeedBatchRequest
		if err := decodeBody(req, w, &body); err != nil {
			r.fail(w, req, err)
			return
		}
		entries := body.feedRequests(r.oracle.Config())

		res, err := r.oracle.FeedBatch(req.Context(), body.SigningKey, entries)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeSuccessResponse(w, res)
	}
}

func (r *Router) observeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body SignedPairRequest
		if err := decodeBody(req, w, &body); err != nil {
			r.fail(w, req, err)
			return
		}
		cfg := r.oracle.Config()
		pair, err := body.PairKey(cfg, cfg.DefaultFee)
		if err != nil {
			r.fail(w, req, err)
			return
		}

		res, err := r.oracle.Observe(req.Context(), pair, body.SigningKey)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeSuccessResponse(w, res)
	}
}

// externalPricesHandler lists every stored external price, invalidated and
// stale entries included.
func (r *Router) externalPricesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		entries, err := r.oracle.ExternalEntries(req.Context())
		if err != nil {
			r.fail(w, req, err)
			return
		}
		if entries == nil {
			entries = []types.ExternalFeedEntry{}
		}
		writeSuccessResponse(w, entries)
	}
}

func (r *Router) invalidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body SignedPairRequest
		if err := decodeBody(req, w, &body); err != nil {
			r.fail(w, req, err)
			return
		}
		cfg := r.oracle.Config()
		pair, err := body.PairKey(cfg, cfg.DefaultFee)
		if err != nil {
			r.fail(w, req, err)
			return
		}

		existed, err := r.oracle.Invalidate(req.Context(), pair, body.SigningKey)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeSuccessResponse(w, InvalidateResponse{Pair: pair, Existed: existed})
	}
}

func (r *Router) feeControllerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		res, err := r.oracle.FeeController(req.Context())
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeSuccessResponse(w, res)
	}
}

func (r *Router) setControllerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body SetControllerRequest
		if err := decodeBody(req, w, &body); err != nil {
			r.fail(w, req, err)
			return
		}
		controller := common.HexToAddress(body.Controller)

		res, err := r.oracle.SetController(req.Context(), body.SigningKey, controller)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeSuccessResponse(w, SetControllerResponse{TxResult: res, Controller: controller.Hex()})
	}
}

func (r *Router) accruedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		token := mux.Vars(req)["token"]
		if !common.IsHexAddress(token) {
			r.fail(w, req, types.ErrInvalidParameter.Wrapf("token: %s", token))
			return
		}

		res, err := r.oracle.Accrued(req.Context(), common.HexToAddress(token))
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeSuccessResponse(w, res)
	}
}

func (r *Router) allAccruedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body AllAccruedRequest
		if err := decodeBody(req, w, &body); err != nil {
			r.fail(w, req, err)
			return
		}

		tokens, invalid := body.parseTokens()
		if len(invalid) == 0 {
			res, err := r.oracle.AllAccrued(req.Context(), tokens)
			if err != nil {
				r.fail(w, req, err)
				return
			}
			writeSuccessResponse(w, res)
			return
		}

		valid := make([]common.Address, 0, len(tokens)-len(invalid))
		for i, token := range tokens {
			if _, bad := invalid[i]; !bad {
				valid = append(valid, token)
			}
		}

		fees := make([]types.AccrualResult, 0, len(tokens))
		if len(valid) > 0 {
			res, err := r.oracle.AllAccrued(req.Context(), valid)
			if err != nil {
				r.fail(w, req, err)
				return
			}
			fees = res.Fees
		}

		results := make([]types.AccrualResult, len(tokens))
		next := 0
		for i := range tokens {
			if err, bad := invalid[i]; bad {
				results[i] = types.AccrualResult{Success: false, Error: err.Error()}
				continue
			}
			results[i] = fees[next]
			next++
		}
		writeSuccessResponse(w, types.AllAccrued{Fees: results, TotalTokens: len(tokens)})
	}
}

func (r *Router) poolFeeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		params, err := pairParamsFromQuery(req)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		pair, err := params.PairKey(r.oracle.Config(), types.DefaultPoolFee)
		if err != nil {
			r.fail(w, req, err)
			return
		}

		res, err := r.oracle.PoolFee(req.Context(), pair)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeSuccessResponse(w, res)
	}
}

func (r *Router) setFeeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body SetFeeRequest
		if err := decodeBody(req, w, &body); err != nil {
			r.fail(w, req, err)
			return
		}
		pair, err := body.PairKey(r.oracle.Config(), types.DefaultPoolFee)
		if err != nil {
			r.fail(w, req, err)
			return
		}

		fee, tx, err := r.oracle.SetFee(req.Context(), body.SigningKey, pair, body.ProtocolFee.Or(0))
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeSuccessResponse(w, SetFeeResponse{TxResult: tx, PoolProtocolFee: fee})
	}
}

func (r *Router) collectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body CollectRequest
		if err := decodeBody(req, w, &body); err != nil {
			r.fail(w, req, err)
			return
		}
		amount, err := body.AmountInt()
		if err != nil {
			r.fail(w, req, err)
			return
		}

		res, err := r.oracle.Collect(
			req.Context(),
			body.SigningKey,
			common.HexToAddress(body.Recipient),
			common.HexToAddress(body.Token),
			amount,
		)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeSuccessResponse(w, res)
	}
}
