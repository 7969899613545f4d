package vault

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/core/events"
)

// Engine orchestrates the debt-position ledger: depositing collateral,
// minting synthetic debt against it, repaying, redeeming and liquidating
// undercollateralized positions. Every operation runs under one mutex and is
// all-or-nothing: a state snapshot is taken on entry and reverted on any
// failure, so no partial ledger mutation is ever observable. Ledger effects
// are always applied before the untrusted external token call they pay for.
type Engine struct {
	mu         sync.Mutex
	vaultAddr  common.Address
	registry   *Registry
	synth      SyntheticToken
	collateral map[common.Address]CollateralToken
	state      EngineState
	emitter    events.Emitter
}

// NewEngine constructs an engine holding collateral custody under vaultAddr.
// The collateral map binds each registered asset to its transfer primitive.
func NewEngine(vaultAddr common.Address, registry *Registry, synth SyntheticToken, collateral map[common.Address]CollateralToken) *Engine {
	tokens := make(map[common.Address]CollateralToken, len(collateral))
	for asset, token := range collateral {
		tokens[asset] = token
	}
	return &Engine{
		vaultAddr:  vaultAddr,
		registry:   registry,
		synth:      synth,
		collateral: tokens,
		emitter:    events.NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state EngineState) {
	if e == nil {
		return
	}
	e.state = state
}

// SetEmitter configures the event sink. A nil emitter restores the noop sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// VaultAddress returns the custody address collateral is held under.
func (e *Engine) VaultAddress() common.Address {
	if e == nil {
		return common.Address{}
	}
	return e.vaultAddr
}

func (e *Engine) guard() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.registry == nil {
		return errRegistryNotConfigured
	}
	return nil
}

func (e *Engine) collateralToken(asset common.Address) (CollateralToken, error) {
	token, ok := e.collateral[asset]
	if !ok || token == nil {
		return nil, errTokenNotConfigured
	}
	return token, nil
}

func positiveAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errZeroAmount
	}
	return nil
}

// Deposit locks collateral into the vault. The ledger credit is applied
// before the transfer-in so a reentrant token call can never observe the
// collateral as absent; a failed transfer unwinds the whole operation.
func (e *Engine) Deposit(account, asset common.Address, amount *big.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.state.Snapshot()
	if err := e.depositLocked(account, asset, amount); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	if err := e.state.Commit(); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	e.emitter.Emit(events.CollateralDeposited{Account: account, Asset: asset, Amount: amount})
	return nil
}

func (e *Engine) depositLocked(account, asset common.Address, amount *big.Int) error {
	if err := positiveAmount(amount); err != nil {
		return err
	}
	if !e.registry.IsApproved(asset) {
		return errUnsupportedAsset
	}
	token, err := e.collateralToken(asset)
	if err != nil {
		return err
	}

	pos, err := e.state.GetPosition(account)
	if err != nil {
		return err
	}
	pos.Collateral[asset] = new(big.Int).Add(pos.CollateralOf(asset), amount)
	if err := e.state.PutPosition(pos); err != nil {
		return err
	}

	if err := token.TransferFrom(account, e.vaultAddr, amount); err != nil {
		return fmt.Errorf("%w: %v", errTransferFailed, err)
	}
	return nil
}

// Mint creates synthetic debt against the caller's collateral. The debt is
// recorded first, the resulting health factor judged, and only then is the
// token mint primitive invoked; any failure rolls the debt back.
func (e *Engine) Mint(account common.Address, amount *big.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.state.Snapshot()
	if err := e.mintLocked(account, amount); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	if err := e.state.Commit(); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	e.emitter.Emit(events.DebtMinted{Account: account, Amount: amount})
	return nil
}

func (e *Engine) mintLocked(account common.Address, amount *big.Int) error {
	if err := positiveAmount(amount); err != nil {
		return err
	}
	pos, err := e.state.GetPosition(account)
	if err != nil {
		return err
	}
	pos.Debt = new(big.Int).Add(pos.Debt, amount)
	if err := e.state.PutPosition(pos); err != nil {
		return err
	}

	factor, err := e.positionHealthFactor(pos)
	if err != nil {
		return err
	}
	if !healthy(factor) {
		return breaksHealthFactor(factor)
	}

	if err := e.synth.Mint(account, amount); err != nil {
		return fmt.Errorf("%w: %v", errMintFailed, err)
	}
	return nil
}

// DepositAndMint composes Deposit and Mint as one atomic unit; a failure in
// either sub-step aborts the whole call, returning any collateral already
// pulled in.
func (e *Engine) DepositAndMint(account, asset common.Address, collateralAmount, debtAmount *big.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.state.Snapshot()
	if err := e.depositLocked(account, asset, collateralAmount); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	if err := e.mintLocked(account, debtAmount); err != nil {
		e.state.RevertToSnapshot(snap)
		if token, tokenErr := e.collateralToken(asset); tokenErr == nil {
			// Best effort: hand back the collateral pulled by the deposit leg.
			_ = token.TransferFrom(e.vaultAddr, account, collateralAmount)
		}
		return err
	}
	if err := e.state.Commit(); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	e.emitter.Emit(events.CollateralDeposited{Account: account, Asset: asset, Amount: collateralAmount})
	e.emitter.Emit(events.DebtMinted{Account: account, Amount: debtAmount})
	return nil
}

// Burn repays synthetic debt. The debt reduction is recorded, the caller's
// tokens are pulled and destroyed, and the health factor is re-checked as a
// general post-condition even though repaying can only improve it.
func (e *Engine) Burn(account common.Address, amount *big.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.state.Snapshot()
	if err := e.burnLocked(account, account, amount); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	if err := e.checkHealthLocked(account); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	if err := e.state.Commit(); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	e.emitter.Emit(events.DebtBurned{Account: account, Payer: account, Amount: amount})
	return nil
}

// burnLocked reduces debtor's recorded debt by amount, paid for with payer's
// synthetic tokens. The payer/debtor split exists for liquidations, where the
// liquidator pays while the target's debt shrinks.
func (e *Engine) burnLocked(debtor, payer common.Address, amount *big.Int) error {
	if err := positiveAmount(amount); err != nil {
		return err
	}
	pos, err := e.state.GetPosition(debtor)
	if err != nil {
		return err
	}
	if pos.Debt.Cmp(amount) < 0 {
		return errDebtUnderflow
	}
	pos.Debt = new(big.Int).Sub(pos.Debt, amount)
	if err := e.state.PutPosition(pos); err != nil {
		return err
	}

	if err := e.synth.TransferFrom(payer, e.vaultAddr, amount); err != nil {
		return fmt.Errorf("%w: %v", errTransferFailed, err)
	}
	if err := e.synth.Burn(e.vaultAddr, amount); err != nil {
		// Best effort: return the pulled tokens before failing the operation.
		_ = e.synth.TransferFrom(e.vaultAddr, payer, amount)
		return fmt.Errorf("%w: %v", errBurnFailed, err)
	}
	return nil
}

// Redeem withdraws collateral. The ledger debit and the resulting health
// factor are settled before the outbound transfer, so an unhealthy withdrawal
// never moves funds.
func (e *Engine) Redeem(account, asset common.Address, amount *big.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.state.Snapshot()
	if err := e.redeemLocked(account, account, asset, amount, true); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	if err := e.state.Commit(); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	e.emitter.Emit(events.CollateralRedeemed{Account: account, Recipient: account, Asset: asset, Amount: amount})
	return nil
}

// redeemLocked debits owner's collateral and transfers it to recipient. The
// liquidation path disables the owner health check: the target's own factor
// is judged separately mid-liquidation.
func (e *Engine) redeemLocked(owner, recipient, asset common.Address, amount *big.Int, checkHealth bool) error {
	if err := positiveAmount(amount); err != nil {
		return err
	}
	if !e.registry.IsApproved(asset) {
		return errUnsupportedAsset
	}
	token, err := e.collateralToken(asset)
	if err != nil {
		return err
	}

	pos, err := e.state.GetPosition(owner)
	if err != nil {
		return err
	}
	held := pos.CollateralOf(asset)
	if held.Cmp(amount) < 0 {
		return errCollateralUnderflow
	}
	pos.Collateral[asset] = held.Sub(held, amount)
	if err := e.state.PutPosition(pos); err != nil {
		return err
	}

	if checkHealth {
		factor, err := e.positionHealthFactor(pos)
		if err != nil {
			return err
		}
		if !healthy(factor) {
			return breaksHealthFactor(factor)
		}
	}

	if err := token.TransferFrom(e.vaultAddr, recipient, amount); err != nil {
		return fmt.Errorf("%w: %v", errTransferFailed, err)
	}
	return nil
}

// RedeemForDebt composes Burn and Redeem as one atomic unit: repay debt and
// withdraw collateral in a single health-checked step.
func (e *Engine) RedeemForDebt(account, asset common.Address, collateralAmount, debtAmount *big.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.state.Snapshot()
	if err := e.burnLocked(account, account, debtAmount); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	if err := e.redeemLocked(account, account, asset, collateralAmount, true); err != nil {
		e.state.RevertToSnapshot(snap)
		// Best effort: the burn leg already destroyed the caller's tokens.
		_ = e.synth.Mint(account, debtAmount)
		return err
	}
	if err := e.state.Commit(); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	e.emitter.Emit(events.DebtBurned{Account: account, Payer: account, Amount: debtAmount})
	e.emitter.Emit(events.CollateralRedeemed{Account: account, Recipient: account, Asset: asset, Amount: collateralAmount})
	return nil
}

// Liquidate lets liquidator cover debtToCover of target's debt in exchange
// for the equivalent collateral plus a fixed bonus. Only positions below the
// minimum health factor qualify, the target's factor must strictly improve,
// and the liquidator's own position must remain healthy.
//
// When aggregate collateral value has already fallen below the outstanding
// debt there may not be enough collateral to pay the bonus; the engine makes
// no guarantee of liquidator incentive under that condition.
func (e *Engine) Liquidate(asset, target, liquidator common.Address, debtToCover *big.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := positiveAmount(debtToCover); err != nil {
		return err
	}

	startingFactor, err := e.accountHealthFactor(target)
	if err != nil {
		return err
	}
	if healthy(startingFactor) {
		return errHealthFactorOk
	}

	adapter, err := e.registry.Adapter(asset)
	if err != nil {
		return err
	}
	price, err := adapter.CheckedPrice()
	if err != nil {
		return err
	}
	baseAmount := tokenAmountFromUsd(price, debtToCover)
	bonus := new(big.Int).Mul(baseAmount, liquidationBonus)
	bonus.Quo(bonus, percentDivisor)
	seize := new(big.Int).Add(baseAmount, bonus)

	snap := e.state.Snapshot()
	if err := e.redeemLocked(target, liquidator, asset, seize, false); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	if err := e.burnLocked(target, liquidator, debtToCover); err != nil {
		e.state.RevertToSnapshot(snap)
		// Best effort: claw back the collateral already handed to the liquidator.
		if token, tokenErr := e.collateralToken(asset); tokenErr == nil {
			_ = token.TransferFrom(liquidator, e.vaultAddr, seize)
		}
		return err
	}

	endingFactor, err := e.accountHealthFactor(target)
	if err == nil && endingFactor.Cmp(startingFactor) <= 0 {
		err = errHealthFactorStagnant
	}
	if err == nil {
		err = e.checkHealthLocked(liquidator)
	}
	if err != nil {
		e.state.RevertToSnapshot(snap)
		if token, tokenErr := e.collateralToken(asset); tokenErr == nil {
			_ = token.TransferFrom(liquidator, e.vaultAddr, seize)
		}
		_ = e.synth.Mint(liquidator, debtToCover)
		return err
	}

	if err := e.state.Commit(); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}
	e.emitter.Emit(events.PositionLiquidated{
		Target:      target,
		Liquidator:  liquidator,
		Asset:       asset,
		DebtCovered: debtToCover,
		Seized:      seize,
	})
	return nil
}

func (e *Engine) checkHealthLocked(account common.Address) error {
	factor, err := e.accountHealthFactor(account)
	if err != nil {
		return err
	}
	if !healthy(factor) {
		return breaksHealthFactor(factor)
	}
	return nil
}

func (e *Engine) accountHealthFactor(account common.Address) (*big.Int, error) {
	pos, err := e.state.GetPosition(account)
	if err != nil {
		return nil, err
	}
	return e.positionHealthFactor(pos)
}

func (e *Engine) positionHealthFactor(pos *Position) (*big.Int, error) {
	value, err := e.collateralValueChecked(pos)
	if err != nil {
		return nil, err
	}
	return CalculateHealthFactor(pos.Debt, value), nil
}

// collateralValueChecked sums amount*price over the registered assets in
// registry order, routing every price through the staleness-checked path.
func (e *Engine) collateralValueChecked(pos *Position) (*big.Int, error) {
	total := big.NewInt(0)
	for _, asset := range e.registry.Assets() {
		amount := pos.CollateralOf(asset)
		if amount.Sign() == 0 {
			continue
		}
		adapter, err := e.registry.Adapter(asset)
		if err != nil {
			return nil, err
		}
		price, err := adapter.CheckedPrice()
		if err != nil {
			return nil, err
		}
		total.Add(total, usdValue(price, amount))
	}
	return total, nil
}
