package tokens

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance = errors.New("tokens: insufficient balance")
	ErrAmountOverflow      = errors.New("tokens: amount exceeds 256 bits")
	ErrSupplyOverflow      = errors.New("tokens: total supply overflow")
)

// Token is an in-memory transfer primitive with 256-bit wrap-checked
// balances. It backs the vault's collateral assets in the daemon and in
// tests; production deployments substitute a real asset bridge behind the
// same interface.
type Token struct {
	symbol string

	mu       sync.Mutex
	balances map[common.Address]*uint256.Int
	supply   uint256.Int

	failNext error
}

// New constructs an empty token ledger.
func New(symbol string) *Token {
	return &Token{
		symbol:   symbol,
		balances: make(map[common.Address]*uint256.Int),
	}
}

// Symbol returns the configured token symbol.
func (t *Token) Symbol() string { return t.symbol }

// FailNext makes the next transfer report the supplied error, emulating an
// untrusted primitive that rejects the call.
func (t *Token) FailNext(err error) {
	t.mu.Lock()
	t.failNext = err
	t.mu.Unlock()
}

func (t *Token) consumeFailure() error {
	err := t.failNext
	t.failNext = nil
	return err
}

func (t *Token) balance(addr common.Address) *uint256.Int {
	bal, ok := t.balances[addr]
	if !ok {
		bal = uint256.NewInt(0)
		t.balances[addr] = bal
	}
	return bal
}

func toUint256(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrAmountOverflow
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return value, nil
}

// BalanceOf reports the current balance for the address.
func (t *Token) BalanceOf(addr common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance(addr).ToBig()
}

// TotalSupply reports the amount currently in circulation.
func (t *Token) TotalSupply() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.supply.ToBig()
}

// TransferFrom moves amount between the two addresses.
func (t *Token) TransferFrom(from, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.consumeFailure(); err != nil {
		return err
	}
	value, err := toUint256(amount)
	if err != nil {
		return err
	}
	fromBal := t.balance(from)
	if fromBal.Lt(value) {
		return ErrInsufficientBalance
	}
	fromBal.Sub(fromBal, value)
	toBal := t.balance(to)
	toBal.Add(toBal, value)
	return nil
}

// Credit seeds a balance out of thin air. Test and bootstrap helper.
func (t *Token) Credit(addr common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	value, err := toUint256(amount)
	if err != nil {
		return err
	}
	bal := t.balance(addr)
	bal.Add(bal, value)
	return nil
}

// Synthetic extends Token with the owner-gated mint/burn primitive backing
// the synthetic unit-of-account.
type Synthetic struct {
	Token

	failMint error
}

// NewSynthetic constructs an empty synthetic token ledger.
func NewSynthetic(symbol string) *Synthetic {
	return &Synthetic{Token: Token{
		symbol:   symbol,
		balances: make(map[common.Address]*uint256.Int),
	}}
}

// FailNextMint makes the next mint report the supplied error.
func (s *Synthetic) FailNextMint(err error) {
	s.mu.Lock()
	s.failMint = err
	s.mu.Unlock()
}

// Mint creates amount for the recipient.
func (s *Synthetic) Mint(to common.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failMint; err != nil {
		s.failMint = nil
		return err
	}
	value, err := toUint256(amount)
	if err != nil {
		return err
	}
	var supply uint256.Int
	if _, overflow := supply.AddOverflow(&s.supply, value); overflow {
		return ErrSupplyOverflow
	}
	s.supply.Set(&supply)
	bal := s.balance(to)
	bal.Add(bal, value)
	return nil
}

// Burn destroys amount held by the address.
func (s *Synthetic) Burn(from common.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, err := toUint256(amount)
	if err != nil {
		return err
	}
	bal := s.balance(from)
	if bal.Lt(value) {
		return ErrInsufficientBalance
	}
	bal.Sub(bal, value)
	s.supply.Sub(&s.supply, value)
	return nil
}
