package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"tokenflow/core"
	"tokenflow/observability"
	"tokenflow/storage/eventstore"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeStateConflict  = -32010
	codeProofRejected  = -32011
	codeRateLimited    = -32020
)

// EventArchive lists archived notifications and streams new ones.
type EventArchive interface {
	List(ctx context.Context, filter eventstore.Filter) ([]eventstore.Record, error)
	Subscribe(ctx context.Context, after uint64) (<-chan eventstore.Record, func(), []eventstore.Record, error)
}

// ServerConfig controls authentication, throttling and proxy trust.
type ServerConfig struct {
	Auth              AuthConfig
	RateLimit         RateLimitConfig
	TrustProxyHeaders bool
	TrustedProxies    []string
	ReadHeaderTimeout time.Duration
	Logger            *slog.Logger
}

type Server struct {
	econ    *core.Economy
	archive EventArchive
	auth    *Authenticator
	limiter *RateLimiter
	logger  *slog.Logger
	metrics interface {
		Observe(method string, code int, d time.Duration)
		RecordThrottle(reason string)
	}

	trustProxyHeaders bool
	trustedProxies    map[string]struct{}
	readHeaderTimeout time.Duration

	serverMu   sync.Mutex
	httpServer *http.Server
}

// NewServer builds the JSON-RPC surface over econ. archive may be nil, in
// which case tf_events reports that archiving is disabled.
func NewServer(econ *core.Economy, archive EventArchive, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	trusted := make(map[string]struct{}, len(cfg.TrustedProxies))
	for _, proxy := range cfg.TrustedProxies {
		if ip := net.ParseIP(proxy); ip != nil {
			trusted[ip.String()] = struct{}{}
		}
	}
	timeout := cfg.ReadHeaderTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Server{
		econ:              econ,
		archive:           archive,
		auth:              NewAuthenticator(cfg.Auth),
		limiter:           NewRateLimiter(cfg.RateLimit),
		logger:            logger,
		metrics:           observability.RPC(),
		trustProxyHeaders: cfg.TrustProxyHeaders,
		trustedProxies:    trusted,
		readHeaderTimeout: timeout,
	}
}

// Handler returns the routed HTTP handler: /rpc, /ws/events, /healthz and
// /metrics.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Post("/rpc", s.handle)
	router.Post("/", s.handle)
	router.Get("/ws/events", s.handleEventsWS)
	router.Get("/healthz", s.handleHealth)
	router.Handle("/metrics", promhttp.Handler())
	return otelhttp.NewHandler(router, "tokenflow.rpc")
}

// Serve accepts connections on listener until Shutdown is called.
func (s *Server) Serve(listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}
	s.serverMu.Lock()
	s.httpServer = srv
	s.serverMu.Unlock()

	s.logger.Info("json-rpc server listening", slog.String("addr", listener.Addr().String()))
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rpc: listen %s: %w", addr, err)
	}
	return s.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.serverMu.Lock()
	srv := s.httpServer
	s.serverMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// statusRecorder remembers the JSON-RPC code written for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if rec, ok := w.(*statusRecorder); ok {
		rec.code = code
	}
	w.WriteHeader(status)
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	root, height := s.econ.Head()
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"height": height,
		"root":   root.Hex(),
	})
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")
	rec := &statusRecorder{ResponseWriter: w}
	started := time.Now()
	method := "unknown"
	defer func() {
		s.metrics.Observe(method, rec.code, time.Since(started))
	}()

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(rec, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(rec, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(rec, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(rec, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(rec, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	entry, ok := methods[req.Method]
	if !ok {
		writeError(rec, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
		return
	}
	method = req.Method

	if !s.limiter.Allow(s.clientSource(r)) {
		s.metrics.RecordThrottle("client")
		writeError(rec, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	if !entry.mutating {
		entry.query(s, rec, r, req)
		return
	}
	caller, authErr := s.auth.Caller(r)
	if authErr != nil {
		writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	entry.mutate(s, rec, r, req, caller)
}

type queryHandler func(s *Server, w http.ResponseWriter, r *http.Request, req *RPCRequest)

type mutateHandler func(s *Server, w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte)

type methodEntry struct {
	mutating bool
	query    queryHandler
	mutate   mutateHandler
}

func queryMethod(h queryHandler) methodEntry { return methodEntry{query: h} }

func mutatingMethod(h mutateHandler) methodEntry { return methodEntry{mutating: true, mutate: h} }

var methods map[string]methodEntry

func init() {
	methods = map[string]methodEntry{
		"tf_head":              queryMethod((*Server).handleHead),
		"tf_balance":           queryMethod((*Server).handleBalance),
		"tf_totalSupply":       queryMethod((*Server).handleTotalSupply),
		"tf_circulatingSupply": queryMethod((*Server).handleCirculatingSupply),
		"tf_taxPolicy":         queryMethod((*Server).handleTaxPolicy),
		"tf_isExempt":          queryMethod((*Server).handleIsExempt),
		"tf_calculateTax":      queryMethod((*Server).handleCalculateTax),
		"tf_rewardsPool":       queryMethod((*Server).handleRewardsPool),
		"tf_vestingSchedule":   queryMethod((*Server).handleVestingSchedule),
		"tf_vestedAmount":      queryMethod((*Server).handleVestedAmount),
		"tf_releasableAmount":  queryMethod((*Server).handleReleasableAmount),
		"tf_vestingTotals":     queryMethod((*Server).handleVestingTotals),
		"tf_airdropCampaign":   queryMethod((*Server).handleAirdropCampaign),
		"tf_canClaim":          queryMethod((*Server).handleCanClaim),
		"tf_hasClaimed":        queryMethod((*Server).handleHasClaimed),
		"tf_events":            queryMethod((*Server).handleEvents),

		"tf_transfer":               mutatingMethod((*Server).handleTransfer),
		"tf_setTaxRate":             mutatingMethod((*Server).handleSetTaxRate),
		"tf_setReservoir":           mutatingMethod((*Server).handleSetReservoir),
		"tf_setExempt":              mutatingMethod((*Server).handleSetExempt),
		"tf_distributeReward":       mutatingMethod((*Server).handleDistributeReward),
		"tf_batchDistributeRewards": mutatingMethod((*Server).handleBatchDistributeRewards),
		"tf_createVestingSchedule":  mutatingMethod((*Server).handleCreateVestingSchedule),
		"tf_releaseVested":          mutatingMethod((*Server).handleReleaseVested),
		"tf_revokeVesting":          mutatingMethod((*Server).handleRevokeVesting),
		"tf_initializeAirdrop":      mutatingMethod((*Server).handleInitializeAirdrop),
		"tf_updateAirdropRoot":      mutatingMethod((*Server).handleUpdateAirdropRoot),
		"tf_setAirdropActive":       mutatingMethod((*Server).handleSetAirdropActive),
		"tf_claimAirdrop":           mutatingMethod((*Server).handleClaimAirdrop),
		"tf_claimAirdropFor":        mutatingMethod((*Server).handleClaimAirdropFor),
		"tf_recoverUnclaimed":       mutatingMethod((*Server).handleRecoverUnclaimed),
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// clientSource resolves the rate-limit identity of r. Forwarded headers are
// honoured only from trusted proxies.
func (s *Server) clientSource(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !s.trustProxyHeaders {
		return host
	}
	if len(s.trustedProxies) > 0 {
		if _, ok := s.trustedProxies[host]; !ok {
			return host
		}
	}
	if forwarded := forwardedClient(r); forwarded != "" {
		return forwarded
	}
	return host
}
