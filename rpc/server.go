package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"synthvault/native/vault"
	"synthvault/observability/logging"
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
	codeRateLimited    = -32020
)

// Options tunes the RPC server. AuthSecret, when set, requires mutating
// methods to carry an HS256 bearer token signed with it. WriteRate bounds
// mutating calls per second (burst 2x); zero disables the limiter.
type Options struct {
	AuthSecret []byte
	WriteRate  float64
}

// Server exposes the vault engine over JSON-RPC 2.0.
type Server struct {
	engine  *vault.Engine
	log     *slog.Logger
	secret  []byte
	limiter *rate.Limiter
}

func NewServer(engine *vault.Engine, log *slog.Logger, opts Options) *Server {
	if log == nil {
		log = slog.Default()
	}
	var limiter *rate.Limiter
	if opts.WriteRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.WriteRate), int(opts.WriteRate*2)+1)
	}
	return &Server{
		engine:  engine,
		log:     log,
		secret:  opts.AuthSecret,
		limiter: limiter,
	}
}

// Router assembles the HTTP surface: the JSON-RPC endpoint at the root plus
// health and metrics endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Method(http.MethodPost, "/", otelhttp.NewHandler(http.HandlerFunc(s.handle), "vault.rpc"))
	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
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

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, 0, codeParseError, "unable to read request body", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, 0, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", nil)
		return
	}

	handler, ok := s.methods()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method), nil)
		return
	}
	if handler.mutating {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
			return
		}
		if err := s.authorize(r); err != nil {
			s.log.Warn("unauthorized rpc call",
				"method", req.Method,
				"error", err,
				logging.MaskField("authorization", r.Header.Get("Authorization")),
			)
			writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, err.Error(), nil)
			return
		}
	}
	handler.fn(w, &req)
}

type method struct {
	fn       func(http.ResponseWriter, *RPCRequest)
	mutating bool
}

func (s *Server) methods() map[string]method {
	return map[string]method{
		"vault_deposit":               {fn: s.handleDeposit, mutating: true},
		"vault_mint":                  {fn: s.handleMint, mutating: true},
		"vault_depositAndMint":        {fn: s.handleDepositAndMint, mutating: true},
		"vault_burn":                  {fn: s.handleBurn, mutating: true},
		"vault_redeem":                {fn: s.handleRedeem, mutating: true},
		"vault_redeemForDebt":         {fn: s.handleRedeemForDebt, mutating: true},
		"vault_liquidate":             {fn: s.handleLiquidate, mutating: true},
		"vault_getPosition":           {fn: s.handleGetPosition},
		"vault_getHealthFactor":       {fn: s.handleGetHealthFactor},
		"vault_calculateHealthFactor": {fn: s.handleCalculateHealthFactor},
		"vault_getCollateralValue":    {fn: s.handleGetCollateralValue},
		"vault_getUsdValue":           {fn: s.handleGetUsdValue},
		"vault_getTokenAmountFromUsd": {fn: s.handleGetTokenAmount},
		"vault_listAssets":            {fn: s.handleListAssets},
		"vault_getConstants":          {fn: s.handleGetConstants},
	}
}

func (s *Server) authorize(r *http.Request) error {
	if len(s.secret) == 0 {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return errors.New("missing bearer token")
	}
	token, err := jwt.Parse(strings.TrimSpace(header[len(prefix):]), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return fmt.Errorf("invalid bearer token: %w", err)
	}
	if !token.Valid {
		return errors.New("invalid bearer token")
	}
	return nil
}

func writeResult(w http.ResponseWriter, id int, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func writeError(w http.ResponseWriter, status, id, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(RPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	})
}
