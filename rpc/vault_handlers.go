package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/native/vault"
	"synthvault/observability/metrics"
)

type depositParams struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

type mintParams struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type depositAndMintParams struct {
	Account          string `json:"account"`
	Asset            string `json:"asset"`
	CollateralAmount string `json:"collateralAmount"`
	DebtAmount       string `json:"debtAmount"`
}

type redeemParams struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

type redeemForDebtParams struct {
	Account          string `json:"account"`
	Asset            string `json:"asset"`
	CollateralAmount string `json:"collateralAmount"`
	DebtAmount       string `json:"debtAmount"`
}

type liquidateParams struct {
	Asset       string `json:"asset"`
	Target      string `json:"target"`
	Liquidator  string `json:"liquidator"`
	DebtToCover string `json:"debtToCover"`
}

type accountParams struct {
	Address string `json:"address"`
}

type usdValueParams struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type calculateParams struct {
	Debt               string `json:"debt"`
	CollateralValueUSD string `json:"collateralValueUsd"`
}

type positionResult struct {
	Account      string            `json:"account"`
	Debt         string            `json:"debt"`
	Collateral   map[string]string `json:"collateral"`
	HealthFactor string            `json:"healthFactor,omitempty"`
}

type constantsResult struct {
	Precision            string `json:"precision"`
	LiquidationThreshold string `json:"liquidationThresholdPercent"`
	LiquidationBonus     string `json:"liquidationBonusPercent"`
	MinHealthFactor      string `json:"minHealthFactor"`
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one parameter object")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(trimmed), nil
}

// wholeTokens converts an 18-decimal amount into whole tokens for metrics.
func wholeTokens(amount *big.Int) float64 {
	value, _ := new(big.Float).Quo(
		new(big.Float).SetInt(amount),
		new(big.Float).SetInt(vault.Precision()),
	).Float64()
	return value
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

// writeEngineError maps engine failures onto JSON-RPC error codes, carrying
// the computed health factor as structured data when present.
func writeEngineError(w http.ResponseWriter, id int, err error) {
	var hfErr *vault.HealthFactorError
	switch {
	case errors.As(err, &hfErr):
		writeError(w, http.StatusConflict, id, codeServerError, "operation breaks health factor", map[string]string{
			"healthFactor": hfErr.Factor.String(),
		})
	case errors.Is(err, vault.ErrZeroAmount),
		errors.Is(err, vault.ErrUnsupportedAsset),
		errors.Is(err, vault.ErrDebtUnderflow),
		errors.Is(err, vault.ErrCollateralUnderflow):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error(), nil)
	case errors.Is(err, vault.ErrHealthFactorOk),
		errors.Is(err, vault.ErrHealthFactorNotImproved):
		writeError(w, http.StatusConflict, id, codeServerError, err.Error(), nil)
	case errors.Is(err, vault.ErrStalePrice):
		writeError(w, http.StatusServiceUnavailable, id, codeServerError, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
	}
}

func (s *Server) handleDeposit(w http.ResponseWriter, req *RPCRequest) {
	var params depositParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	err = s.engine.Deposit(account, asset, amount)
	metrics.Vault().ObserveOperation("deposit", err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleMint(w http.ResponseWriter, req *RPCRequest) {
	var params mintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	err = s.engine.Mint(account, amount)
	metrics.Vault().ObserveOperation("mint", err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	metrics.Vault().ObserveMintedTokens(wholeTokens(amount))
	writeResult(w, req.ID, true)
}

func (s *Server) handleDepositAndMint(w http.ResponseWriter, req *RPCRequest) {
	var params depositAndMintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	collateralAmount, err := parseAmount(params.CollateralAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	debtAmount, err := parseAmount(params.DebtAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	err = s.engine.DepositAndMint(account, asset, collateralAmount, debtAmount)
	metrics.Vault().ObserveOperation("depositAndMint", err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	metrics.Vault().ObserveMintedTokens(wholeTokens(debtAmount))
	writeResult(w, req.ID, true)
}

func (s *Server) handleBurn(w http.ResponseWriter, req *RPCRequest) {
	var params mintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	err = s.engine.Burn(account, amount)
	metrics.Vault().ObserveOperation("burn", err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleRedeem(w http.ResponseWriter, req *RPCRequest) {
	var params redeemParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	err = s.engine.Redeem(account, asset, amount)
	metrics.Vault().ObserveOperation("redeem", err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleRedeemForDebt(w http.ResponseWriter, req *RPCRequest) {
	var params redeemForDebtParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	collateralAmount, err := parseAmount(params.CollateralAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	debtAmount, err := parseAmount(params.DebtAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	err = s.engine.RedeemForDebt(account, asset, collateralAmount, debtAmount)
	metrics.Vault().ObserveOperation("redeemForDebt", err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleLiquidate(w http.ResponseWriter, req *RPCRequest) {
	var params liquidateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	asset, err := parseAddress(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	target, err := parseAddress(params.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	liquidator, err := parseAddress(params.Liquidator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	debtToCover, err := parseAmount(params.DebtToCover)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	err = s.engine.Liquidate(asset, target, liquidator, debtToCover)
	metrics.Vault().ObserveOperation("liquidate", err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	metrics.Vault().ObserveLiquidation()
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetPosition(w http.ResponseWriter, req *RPCRequest) {
	var params accountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	account, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	debt, err := s.engine.DebtOf(account)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	result := positionResult{
		Account:    account.Hex(),
		Debt:       debt.String(),
		Collateral: make(map[string]string),
	}
	for _, asset := range s.engine.Assets() {
		amount, err := s.engine.CollateralOf(account, asset)
		if err != nil {
			writeEngineError(w, req.ID, err)
			return
		}
		result.Collateral[asset.Hex()] = amount.String()
	}
	if factor, err := s.engine.HealthFactor(account); err == nil {
		result.HealthFactor = factor.String()
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetHealthFactor(w http.ResponseWriter, req *RPCRequest) {
	var params accountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	account, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	factor, err := s.engine.HealthFactor(account)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"healthFactor": factor.String()})
}

func (s *Server) handleCalculateHealthFactor(w http.ResponseWriter, req *RPCRequest) {
	var params calculateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	debt, err := parseAmount(params.Debt)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	value, err := parseAmount(params.CollateralValueUSD)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	factor := vault.CalculateHealthFactor(debt, value)
	writeResult(w, req.ID, map[string]string{"healthFactor": factor.String()})
}

func (s *Server) handleGetCollateralValue(w http.ResponseWriter, req *RPCRequest) {
	var params accountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	account, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	value, err := s.engine.TotalCollateralValueUSD(account)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"collateralValueUsd": value.String()})
}

func (s *Server) handleGetUsdValue(w http.ResponseWriter, req *RPCRequest) {
	var params usdValueParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	asset, err := parseAddress(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	value, err := s.engine.UsdValue(asset, amount)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"usdValue": value.String()})
}

func (s *Server) handleGetTokenAmount(w http.ResponseWriter, req *RPCRequest) {
	var params usdValueParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	asset, err := parseAddress(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	usdAmount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := s.engine.TokenAmountFromUsd(asset, usdAmount)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"tokenAmount": amount.String()})
}

func (s *Server) handleListAssets(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return
	}
	assets := s.engine.Assets()
	hexed := make([]string, 0, len(assets))
	for _, asset := range assets {
		hexed = append(hexed, asset.Hex())
	}
	writeResult(w, req.ID, hexed)
}

func (s *Server) handleGetConstants(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return
	}
	writeResult(w, req.ID, constantsResult{
		Precision:            vault.Precision().String(),
		LiquidationThreshold: vault.LiquidationThresholdPercent().String(),
		LiquidationBonus:     vault.LiquidationBonusPercent().String(),
		MinHealthFactor:      vault.MinHealthFactor().String(),
	})
}
