package vault

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"

	"synthvault/core/events"
	"synthvault/storage"
	"synthvault/tokens"
)

var (
	testVault = common.HexToAddress("0x0000000000000000000000000000000000000101")
	wethAsset = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob       = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

// amt scales whole tokens to the 18-decimal engine convention.
func amt(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), precision)
}

type engineFixture struct {
	engine  *Engine
	feed    *ManualFeed
	adapter *OracleAdapter
	weth    *tokens.Token
	synth   *tokens.Synthetic
	now     time.Time
}

// newEngineFixture builds an engine over one collateral asset quoted at $2000
// with a pinned clock, funding alice and bob with 100 WETH each.
func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	now := time.Unix(1_700_000_000, 0).UTC()
	feed := NewManualFeed(big.NewInt(200_000_000_000), now)
	adapter := NewOracleAdapter(feed)
	adapter.setClock(func() time.Time { return now })
	registry, err := NewRegistry([]common.Address{wethAsset}, []*OracleAdapter{adapter})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	weth := tokens.New("WETH")
	synth := tokens.NewSynthetic("SVD")
	engine := NewEngine(testVault, registry, synth, map[common.Address]CollateralToken{wethAsset: weth})
	engine.SetState(NewKVState(storage.NewMemDB()))
	for _, account := range []common.Address{alice, bob} {
		if err := weth.Credit(account, amt(100)); err != nil {
			t.Fatalf("credit %s: %v", account.Hex(), err)
		}
	}
	return &engineFixture{engine: engine, feed: feed, adapter: adapter, weth: weth, synth: synth, now: now}
}

func (f *engineFixture) collateralOf(t *testing.T, account common.Address) *big.Int {
	t.Helper()
	held, err := f.engine.CollateralOf(account, wethAsset)
	if err != nil {
		t.Fatalf("collateral of %s: %v", account.Hex(), err)
	}
	return held
}

func (f *engineFixture) debtOf(t *testing.T, account common.Address) *big.Int {
	t.Helper()
	debt, err := f.engine.DebtOf(account)
	if err != nil {
		t.Fatalf("debt of %s: %v", account.Hex(), err)
	}
	return debt
}

func TestDepositRecordsCollateral(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.Deposit(alice, wethAsset, amt(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := f.collateralOf(t, alice); got.Cmp(amt(10)) != 0 {
		t.Fatalf("collateral = %s, want %s", got, amt(10))
	}
	if got := f.weth.BalanceOf(testVault); got.Cmp(amt(10)) != 0 {
		t.Fatalf("vault balance = %s, want %s", got, amt(10))
	}
	if got := f.weth.BalanceOf(alice); got.Cmp(amt(90)) != 0 {
		t.Fatalf("alice balance = %s, want %s", got, amt(90))
	}
}

func TestDepositRejectsZeroAmount(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.Deposit(alice, wethAsset, big.NewInt(0)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("err = %v, want ErrZeroAmount", err)
	}
	if err := f.engine.Deposit(alice, wethAsset, nil); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("nil amount err = %v, want ErrZeroAmount", err)
	}
}

func TestDepositRejectsUnapprovedAsset(t *testing.T) {
	f := newEngineFixture(t)
	unknown := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	if err := f.engine.Deposit(alice, unknown, amt(1)); !errors.Is(err, ErrUnsupportedAsset) {
		t.Fatalf("err = %v, want ErrUnsupportedAsset", err)
	}
}

func TestDepositTransferFailureRollsBack(t *testing.T) {
	f := newEngineFixture(t)
	f.weth.FailNext(errors.New("bridge offline"))
	err := f.engine.Deposit(alice, wethAsset, amt(10))
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("err = %v, want ErrTransferFailed", err)
	}
	if got := f.collateralOf(t, alice); got.Sign() != 0 {
		t.Fatalf("collateral = %s after failed deposit, want 0", got)
	}
}

func TestCollateralValuation(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.Deposit(alice, wethAsset, amt(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	value, err := f.engine.TotalCollateralValueUSD(alice)
	if err != nil {
		t.Fatalf("collateral value: %v", err)
	}
	if value.Cmp(amt(20000)) != 0 {
		t.Fatalf("value = %s, want %s", value, amt(20000))
	}
}

func TestMintRecordsDebtAndHealthFactor(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.Deposit(alice, wethAsset, amt(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := f.engine.Mint(alice, amt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := f.debtOf(t, alice); got.Cmp(amt(100)) != 0 {
		t.Fatalf("debt = %s, want %s", got, amt(100))
	}
	if got := f.synth.BalanceOf(alice); got.Cmp(amt(100)) != 0 {
		t.Fatalf("synth balance = %s, want %s", got, amt(100))
	}
	// $20000 collateral at a 50% threshold against 100 debt: factor 100.0.
	factor, err := f.engine.HealthFactor(alice)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	want := new(big.Int).Mul(big.NewInt(100), precision)
	if factor.Cmp(want) != 0 {
		t.Fatalf("health factor = %s, want %s", factor, want)
	}
}

func TestMintBreakingHealthFactorRollsBack(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.Deposit(alice, wethAsset, amt(1)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	// $2000 collateral supports at most 1000 debt.
	err := f.engine.Mint(alice, amt(1001))
	var hfErr *HealthFactorError
	if !errors.As(err, &hfErr) {
		t.Fatalf("err = %v, want HealthFactorError", err)
	}
	if hfErr.Factor.Cmp(minHealthFactor) >= 0 {
		t.Fatalf("reported factor %s not below minimum", hfErr.Factor)
	}
	if got := f.debtOf(t, alice); got.Sign() != 0 {
		t.Fatalf("debt = %s after failed mint, want 0", got)
	}
	if got := f.synth.TotalSupply(); got.Sign() != 0 {
		t.Fatalf("synth supply = %s after failed mint, want 0", got)
	}
}

func TestMintWithoutCollateralFails(t *testing.T) {
	f := newEngineFixture(t)
	err := f.engine.Mint(alice, amt(1))
	var hfErr *HealthFactorError
	if !errors.As(err, &hfErr) {
		t.Fatalf("err = %v, want HealthFactorError", err)
	}
}

func TestMintFailureRollsBackDebt(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.Deposit(alice, wethAsset, amt(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	f.synth.FailNextMint(errors.New("minter paused"))
	if err := f.engine.Mint(alice, amt(100)); !errors.Is(err, ErrMintFailed) {
		t.Fatalf("err = %v, want ErrMintFailed", err)
	}
	if got := f.debtOf(t, alice); got.Sign() != 0 {
		t.Fatalf("debt = %s after failed mint, want 0", got)
	}
}

func TestHealthFactorOfEmptyPosition(t *testing.T) {
	f := newEngineFixture(t)
	factor, err := f.engine.HealthFactor(alice)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	if factor.Cmp(ethmath.MaxBig256) != 0 {
		t.Fatalf("factor = %s, want max uint256", factor)
	}
}

func TestDepositAndMintIsAtomic(t *testing.T) {
	f := newEngineFixture(t)
	f.synth.FailNextMint(errors.New("minter paused"))
	err := f.engine.DepositAndMint(alice, wethAsset, amt(10), amt(100))
	if !errors.Is(err, ErrMintFailed) {
		t.Fatalf("err = %v, want ErrMintFailed", err)
	}
	if got := f.collateralOf(t, alice); got.Sign() != 0 {
		t.Fatalf("collateral = %s after aborted composite, want 0", got)
	}
	if got := f.weth.BalanceOf(alice); got.Cmp(amt(100)) != 0 {
		t.Fatalf("alice balance = %s, want collateral returned", got)
	}
}

func TestBurnReducesDebt(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.DepositAndMint(alice, wethAsset, amt(10), amt(100)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}
	if err := f.engine.Burn(alice, amt(40)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := f.debtOf(t, alice); got.Cmp(amt(60)) != 0 {
		t.Fatalf("debt = %s, want %s", got, amt(60))
	}
	if got := f.synth.TotalSupply(); got.Cmp(amt(60)) != 0 {
		t.Fatalf("synth supply = %s, want %s", got, amt(60))
	}
}

func TestBurnMoreThanDebtFails(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.DepositAndMint(alice, wethAsset, amt(10), amt(100)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}
	if err := f.engine.Burn(alice, amt(101)); !errors.Is(err, ErrDebtUnderflow) {
		t.Fatalf("err = %v, want ErrDebtUnderflow", err)
	}
	if got := f.debtOf(t, alice); got.Cmp(amt(100)) != 0 {
		t.Fatalf("debt = %s after failed burn, want %s", got, amt(100))
	}
}

func TestRedeemRoundTrip(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.Deposit(alice, wethAsset, amt(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := f.engine.Redeem(alice, wethAsset, amt(10)); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if got := f.collateralOf(t, alice); got.Sign() != 0 {
		t.Fatalf("collateral = %s after round trip, want 0", got)
	}
	if got := f.weth.BalanceOf(alice); got.Cmp(amt(100)) != 0 {
		t.Fatalf("alice balance = %s, want %s", got, amt(100))
	}
}

func TestRedeemBreakingHealthFactorFails(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.DepositAndMint(alice, wethAsset, amt(1), amt(900)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}
	err := f.engine.Redeem(alice, wethAsset, new(big.Int).Div(precision, big.NewInt(2)))
	var hfErr *HealthFactorError
	if !errors.As(err, &hfErr) {
		t.Fatalf("err = %v, want HealthFactorError", err)
	}
	if got := f.collateralOf(t, alice); got.Cmp(amt(1)) != 0 {
		t.Fatalf("collateral = %s after failed redeem, want %s", got, amt(1))
	}
	if got := f.weth.BalanceOf(testVault); got.Cmp(amt(1)) != 0 {
		t.Fatalf("vault balance = %s, funds moved on failed redeem", got)
	}
}

func TestRedeemMoreThanPostedFails(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.Deposit(alice, wethAsset, amt(1)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := f.engine.Redeem(alice, wethAsset, amt(2)); !errors.Is(err, ErrCollateralUnderflow) {
		t.Fatalf("err = %v, want ErrCollateralUnderflow", err)
	}
}

func TestRedeemForDebt(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.DepositAndMint(alice, wethAsset, amt(10), amt(100)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}
	if err := f.engine.RedeemForDebt(alice, wethAsset, amt(5), amt(100)); err != nil {
		t.Fatalf("redeem for debt: %v", err)
	}
	if got := f.debtOf(t, alice); got.Sign() != 0 {
		t.Fatalf("debt = %s, want 0", got)
	}
	if got := f.collateralOf(t, alice); got.Cmp(amt(5)) != 0 {
		t.Fatalf("collateral = %s, want %s", got, amt(5))
	}
	if got := f.weth.BalanceOf(alice); got.Cmp(amt(95)) != 0 {
		t.Fatalf("alice balance = %s, want %s", got, amt(95))
	}
}

func TestLiquidateHealthyPositionFails(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.DepositAndMint(alice, wethAsset, amt(10), amt(100)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}
	if err := f.engine.Liquidate(wethAsset, alice, bob, amt(50)); !errors.Is(err, ErrHealthFactorOk) {
		t.Fatalf("err = %v, want ErrHealthFactorOk", err)
	}
}

func TestLiquidateSeizesCollateralWithBonus(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.DepositAndMint(alice, wethAsset, amt(1), amt(900)); err != nil {
		t.Fatalf("alice deposit and mint: %v", err)
	}
	if err := f.engine.DepositAndMint(bob, wethAsset, amt(10), amt(900)); err != nil {
		t.Fatalf("bob deposit and mint: %v", err)
	}
	// Price drop to $1500 leaves alice at factor 750/900 < 1.
	f.feed.Update(big.NewInt(150_000_000_000), f.now)

	bobBefore := f.weth.BalanceOf(bob)
	if err := f.engine.Liquidate(wethAsset, alice, bob, amt(900)); err != nil {
		t.Fatalf("liquidate: %v", err)
	}

	// 900 USD of WETH at $1500 is 0.6 WETH, plus a 10% bonus: 0.66 WETH.
	seized := new(big.Int).Sub(f.weth.BalanceOf(bob), bobBefore)
	want, _ := new(big.Int).SetString("660000000000000000", 10)
	if seized.Cmp(want) != 0 {
		t.Fatalf("seized = %s, want %s", seized, want)
	}
	if got := f.debtOf(t, alice); got.Sign() != 0 {
		t.Fatalf("alice debt = %s after full liquidation, want 0", got)
	}
	remaining := new(big.Int).Sub(amt(1), want)
	if got := f.collateralOf(t, alice); got.Cmp(remaining) != 0 {
		t.Fatalf("alice collateral = %s, want %s", got, remaining)
	}
	if got := f.synth.BalanceOf(bob); got.Sign() != 0 {
		t.Fatalf("bob synth balance = %s, want 0 after covering debt", got)
	}
	liquidatorFactor, err := f.engine.HealthFactor(bob)
	if err != nil {
		t.Fatalf("liquidator health factor: %v", err)
	}
	if liquidatorFactor.Cmp(minHealthFactor) < 0 {
		t.Fatalf("liquidator factor = %s, want at least %s", liquidatorFactor, minHealthFactor)
	}
}

func TestLiquidateImprovesTargetHealthFactor(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.DepositAndMint(alice, wethAsset, amt(1), amt(900)); err != nil {
		t.Fatalf("alice deposit and mint: %v", err)
	}
	if err := f.engine.DepositAndMint(bob, wethAsset, amt(10), amt(900)); err != nil {
		t.Fatalf("bob deposit and mint: %v", err)
	}
	f.feed.Update(big.NewInt(150_000_000_000), f.now)
	before, err := f.engine.HealthFactor(alice)
	if err != nil {
		t.Fatalf("health factor before: %v", err)
	}
	if err := f.engine.Liquidate(wethAsset, alice, bob, amt(450)); err != nil {
		t.Fatalf("partial liquidation: %v", err)
	}
	after, err := f.engine.HealthFactor(alice)
	if err != nil {
		t.Fatalf("health factor after: %v", err)
	}
	if after.Cmp(before) <= 0 {
		t.Fatalf("health factor did not improve: before %s, after %s", before, after)
	}
	if got := f.debtOf(t, alice); got.Cmp(amt(450)) != 0 {
		t.Fatalf("alice debt = %s, want %s", got, amt(450))
	}
}

func TestLiquidateMustImproveTargetHealthFactor(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.DepositAndMint(alice, wethAsset, amt(1), amt(1000)); err != nil {
		t.Fatalf("alice deposit and mint: %v", err)
	}
	if err := f.engine.DepositAndMint(bob, wethAsset, amt(10), amt(900)); err != nil {
		t.Fatalf("bob deposit and mint: %v", err)
	}
	// At $1000 the bonus makes every seizure worth more than the debt it
	// covers, so covering 100 debt strictly worsens alice's factor.
	f.feed.Update(big.NewInt(100_000_000_000), f.now)

	bobBefore := f.weth.BalanceOf(bob)
	err := f.engine.Liquidate(wethAsset, alice, bob, amt(100))
	if !errors.Is(err, ErrHealthFactorNotImproved) {
		t.Fatalf("err = %v, want ErrHealthFactorNotImproved", err)
	}
	if got := f.debtOf(t, alice); got.Cmp(amt(1000)) != 0 {
		t.Fatalf("alice debt = %s after failed liquidation, want %s", got, amt(1000))
	}
	if got := f.collateralOf(t, alice); got.Cmp(amt(1)) != 0 {
		t.Fatalf("alice collateral = %s after failed liquidation, want %s", got, amt(1))
	}
	if got := f.weth.BalanceOf(bob); got.Cmp(bobBefore) != 0 {
		t.Fatalf("bob balance = %s, want %s returned after rollback", got, bobBefore)
	}
	if got := f.synth.BalanceOf(bob); got.Cmp(amt(900)) != 0 {
		t.Fatalf("bob synth balance = %s, want %s restored after rollback", got, amt(900))
	}
}

func TestLiquidateUnhealthyLiquidatorRollsBack(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.DepositAndMint(alice, wethAsset, amt(1), amt(900)); err != nil {
		t.Fatalf("alice deposit and mint: %v", err)
	}
	if err := f.engine.DepositAndMint(bob, wethAsset, amt(1), amt(900)); err != nil {
		t.Fatalf("bob deposit and mint: %v", err)
	}
	// The drop to $1500 leaves both positions at factor 750/900.
	f.feed.Update(big.NewInt(150_000_000_000), f.now)

	bobBefore := f.weth.BalanceOf(bob)
	err := f.engine.Liquidate(wethAsset, alice, bob, amt(900))
	var hfErr *HealthFactorError
	if !errors.As(err, &hfErr) {
		t.Fatalf("err = %v, want HealthFactorError for the liquidator", err)
	}
	if got := f.debtOf(t, alice); got.Cmp(amt(900)) != 0 {
		t.Fatalf("alice debt = %s after failed liquidation, want %s", got, amt(900))
	}
	if got := f.collateralOf(t, alice); got.Cmp(amt(1)) != 0 {
		t.Fatalf("alice collateral = %s after failed liquidation, want %s", got, amt(1))
	}
	if got := f.weth.BalanceOf(bob); got.Cmp(bobBefore) != 0 {
		t.Fatalf("bob balance = %s, want %s returned after rollback", got, bobBefore)
	}
	if got := f.synth.BalanceOf(bob); got.Cmp(amt(900)) != 0 {
		t.Fatalf("bob synth balance = %s, want %s restored after rollback", got, amt(900))
	}
}

func TestLiquidateSeizureExceedingCollateralRollsBack(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.DepositAndMint(alice, wethAsset, amt(1), amt(900)); err != nil {
		t.Fatalf("alice deposit and mint: %v", err)
	}
	if err := f.engine.DepositAndMint(bob, wethAsset, amt(10), amt(900)); err != nil {
		t.Fatalf("bob deposit and mint: %v", err)
	}
	// Crash to $100: covering 900 debt needs 9.9 WETH against 1 held.
	f.feed.Update(big.NewInt(10_000_000_000), f.now)
	if err := f.engine.Liquidate(wethAsset, alice, bob, amt(900)); !errors.Is(err, ErrCollateralUnderflow) {
		t.Fatalf("err = %v, want ErrCollateralUnderflow", err)
	}
	if got := f.debtOf(t, alice); got.Cmp(amt(900)) != 0 {
		t.Fatalf("alice debt = %s after failed liquidation, want %s", got, amt(900))
	}
	if got := f.collateralOf(t, alice); got.Cmp(amt(1)) != 0 {
		t.Fatalf("alice collateral = %s after failed liquidation, want %s", got, amt(1))
	}
}

func TestStalePriceBlocksSolvencyChecks(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.Deposit(alice, wethAsset, amt(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	f.adapter.setClock(func() time.Time { return f.now.Add(4 * time.Hour) })
	if err := f.engine.Mint(alice, amt(100)); !errors.Is(err, ErrStalePrice) {
		t.Fatalf("mint err = %v, want ErrStalePrice", err)
	}
	if _, err := f.engine.TotalCollateralValueUSD(alice); !errors.Is(err, ErrStalePrice) {
		t.Fatalf("valuation err = %v, want ErrStalePrice", err)
	}
}

func TestInformationalGettersIgnoreStaleness(t *testing.T) {
	f := newEngineFixture(t)
	f.adapter.setClock(func() time.Time { return f.now.Add(4 * time.Hour) })
	value, err := f.engine.UsdValue(wethAsset, amt(1))
	if err != nil {
		t.Fatalf("usd value: %v", err)
	}
	if value.Cmp(amt(2000)) != 0 {
		t.Fatalf("usd value = %s, want %s", value, amt(2000))
	}
	// $100 of WETH at $2000 is 0.05 WETH.
	amount, err := f.engine.TokenAmountFromUsd(wethAsset, amt(100))
	if err != nil {
		t.Fatalf("token amount: %v", err)
	}
	want, _ := new(big.Int).SetString("50000000000000000", 10)
	if amount.Cmp(want) != 0 {
		t.Fatalf("token amount = %s, want %s", amount, want)
	}
}

type recordingEmitter struct {
	emitted []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) {
	r.emitted = append(r.emitted, evt)
}

func TestEventsEmittedAfterCommit(t *testing.T) {
	f := newEngineFixture(t)
	sink := &recordingEmitter{}
	f.engine.SetEmitter(sink)

	if err := f.engine.Deposit(alice, wethAsset, amt(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := f.engine.Mint(alice, amt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	f.weth.FailNext(errors.New("bridge offline"))
	if err := f.engine.Deposit(alice, wethAsset, amt(1)); err == nil {
		t.Fatal("expected failed deposit")
	}

	if len(sink.emitted) != 2 {
		t.Fatalf("emitted %d events, want 2", len(sink.emitted))
	}
	if got := sink.emitted[0].EventType(); got != events.TypeCollateralDeposited {
		t.Fatalf("event[0] = %s, want %s", got, events.TypeCollateralDeposited)
	}
	if got := sink.emitted[1].EventType(); got != events.TypeDebtMinted {
		t.Fatalf("event[1] = %s, want %s", got, events.TypeDebtMinted)
	}
	attrs := sink.emitted[0].Attributes()
	if attrs["account"] != alice.Hex() {
		t.Fatalf("deposit event account = %s, want %s", attrs["account"], alice.Hex())
	}
}

func TestPositionsSurviveRestart(t *testing.T) {
	f := newEngineFixture(t)
	db := storage.NewMemDB()
	f.engine.SetState(NewKVState(db))
	if err := f.engine.DepositAndMint(alice, wethAsset, amt(10), amt(100)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}

	f.engine.SetState(NewKVState(db))
	if got := f.debtOf(t, alice); got.Cmp(amt(100)) != 0 {
		t.Fatalf("debt = %s after reload, want %s", got, amt(100))
	}
	if got := f.collateralOf(t, alice); got.Cmp(amt(10)) != 0 {
		t.Fatalf("collateral = %s after reload, want %s", got, amt(10))
	}
}
