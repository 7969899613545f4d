package tokens

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	holder    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	recipient = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

func TestTransferFromMovesBalance(t *testing.T) {
	token := New("WETH")
	if err := token.Credit(holder, big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := token.TransferFrom(holder, recipient, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := token.BalanceOf(holder); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("holder balance = %s, want 60", got)
	}
	if got := token.BalanceOf(recipient); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("recipient balance = %s, want 40", got)
	}
}

func TestTransferFromInsufficientBalance(t *testing.T) {
	token := New("WETH")
	if err := token.TransferFrom(holder, recipient, big.NewInt(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestTransferFromRejectsInvalidAmounts(t *testing.T) {
	token := New("WETH")
	if err := token.Credit(holder, big.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := token.TransferFrom(holder, recipient, big.NewInt(-1)); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("negative err = %v, want ErrAmountOverflow", err)
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	if err := token.TransferFrom(holder, recipient, huge); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("overflow err = %v, want ErrAmountOverflow", err)
	}
}

func TestFailNextAffectsSingleTransfer(t *testing.T) {
	token := New("WETH")
	if err := token.Credit(holder, big.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	forced := errors.New("bridge offline")
	token.FailNext(forced)
	if err := token.TransferFrom(holder, recipient, big.NewInt(1)); !errors.Is(err, forced) {
		t.Fatalf("err = %v, want forced failure", err)
	}
	if err := token.TransferFrom(holder, recipient, big.NewInt(1)); err != nil {
		t.Fatalf("second transfer: %v", err)
	}
}

func TestSyntheticMintAndBurnTrackSupply(t *testing.T) {
	synth := NewSynthetic("SVD")
	if err := synth.Mint(holder, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := synth.TotalSupply(); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("supply = %s, want 100", got)
	}
	if err := synth.Burn(holder, big.NewInt(30)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := synth.TotalSupply(); got.Cmp(big.NewInt(70)) != 0 {
		t.Fatalf("supply = %s, want 70", got)
	}
	if got := synth.BalanceOf(holder); got.Cmp(big.NewInt(70)) != 0 {
		t.Fatalf("balance = %s, want 70", got)
	}
}

func TestSyntheticBurnInsufficientBalance(t *testing.T) {
	synth := NewSynthetic("SVD")
	if err := synth.Burn(holder, big.NewInt(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestSyntheticFailNextMint(t *testing.T) {
	synth := NewSynthetic("SVD")
	forced := errors.New("minter paused")
	synth.FailNextMint(forced)
	if err := synth.Mint(holder, big.NewInt(1)); !errors.Is(err, forced) {
		t.Fatalf("err = %v, want forced failure", err)
	}
	if err := synth.Mint(holder, big.NewInt(1)); err != nil {
		t.Fatalf("second mint: %v", err)
	}
	if got := synth.TotalSupply(); got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("supply = %s, want 1", got)
	}
}
