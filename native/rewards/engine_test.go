package rewards

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"tokenflow/core/events"
	"tokenflow/native/common"
	"tokenflow/native/ledger"
)

type fakeLedger struct {
	balances map[[20]byte]*big.Int
	supply   *big.Int
	calls    int
}

func newFakeLedger(supply int64) *fakeLedger {
	return &fakeLedger{balances: make(map[[20]byte]*big.Int), supply: big.NewInt(supply)}
}

func (f *fakeLedger) TransferFromPool(pool common.Pool, to [20]byte, amount *big.Int) (*ledger.Settlement, error) {
	f.calls++
	from := pool.Address()
	bal := f.balance(from)
	if bal.Cmp(amount) < 0 {
		return nil, &ledger.InsufficientBalanceError{Account: from, Balance: bal, Required: amount}
	}
	f.balances[from] = new(big.Int).Sub(bal, amount)
	f.balances[to] = new(big.Int).Add(f.balance(to), amount)
	return &ledger.Settlement{From: from, To: to, Amount: amount, Net: amount, Tax: big.NewInt(0)}, nil
}

func (f *fakeLedger) balance(addr [20]byte) *big.Int {
	if bal, ok := f.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

func (f *fakeLedger) BalanceOf(addr [20]byte) (*big.Int, error) { return f.balance(addr), nil }
func (f *fakeLedger) TotalSupply() (*big.Int, error)           { return new(big.Int).Set(f.supply), nil }

type captureEmitter struct{ events []events.Event }

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

var (
	poolAddr = [20]byte{0x50}
	userX    = [20]byte{0x0e}
	userY    = [20]byte{0x0f}
)

func newTestEngine(t *testing.T, poolFunds int64) (*Engine, *fakeLedger, *captureEmitter) {
	t.Helper()
	l := newFakeLedger(100_000_000)
	l.balances[poolAddr] = big.NewInt(poolFunds)
	engine := NewEngine(common.NewPool("rewards", poolAddr))
	engine.SetLedger(l)
	emitter := &captureEmitter{}
	engine.SetEmitter(emitter)
	engine.SetNowFunc(func() time.Time { return time.Unix(1_700_000_000, 0) })
	return engine, l, emitter
}

func TestDistributeReward(t *testing.T) {
	engine, l, emitter := newTestEngine(t, 30_000_000)
	if err := engine.DistributeReward(userX, big.NewInt(100), "id1"); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	pool, _ := engine.PoolBalance()
	if pool.Cmp(big.NewInt(29_999_900)) != 0 {
		t.Fatalf("pool balance %s", pool)
	}
	if l.balance(userX).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("recipient balance %s", l.balance(userX))
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitter.events))
	}
	evt := emitter.events[0].Event()
	if evt.Type != events.TypeRewardDistributed || evt.Attr("activityId") != "id1" || evt.Attr("timestamp") != "1700000000" {
		t.Fatalf("unexpected event %+v", evt)
	}
	circulating, _ := engine.CirculatingSupply()
	if circulating.Cmp(big.NewInt(70_000_100)) != 0 {
		t.Fatalf("circulating supply %s", circulating)
	}
}

func TestDistributeRewardValidation(t *testing.T) {
	engine, l, _ := newTestEngine(t, 50)
	if err := engine.DistributeReward([20]byte{}, big.NewInt(1), "a"); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient, got %v", err)
	}
	if err := engine.DistributeReward(userX, big.NewInt(0), "a"); !errors.Is(err, common.ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	err := engine.DistributeReward(userX, big.NewInt(51), "a")
	var short *InsufficientPoolError
	if !errors.As(err, &short) {
		t.Fatalf("expected InsufficientPoolError, got %v", err)
	}
	if short.Requested.Cmp(big.NewInt(51)) != 0 || short.Available.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected quantities %+v", short)
	}
	if l.calls != 0 {
		t.Fatalf("ledger touched on failure")
	}
}

func TestBatchDistributeAllOrNothing(t *testing.T) {
	engine, l, emitter := newTestEngine(t, 150)
	recipients := [][20]byte{userX, userY}
	amounts := []*big.Int{big.NewInt(100), big.NewInt(100)}
	ids := []string{"a", "b"}
	err := engine.BatchDistributeRewards(recipients, amounts, ids)
	var short *InsufficientPoolError
	if !errors.As(err, &short) || short.Requested.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("expected aggregate InsufficientPoolError, got %v", err)
	}
	if l.calls != 0 || len(emitter.events) != 0 {
		t.Fatalf("batch partially applied")
	}

	amounts[1] = big.NewInt(50)
	if err := engine.BatchDistributeRewards(recipients, amounts, ids); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if l.balance(userX).Cmp(big.NewInt(100)) != 0 || l.balance(userY).Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected balances x=%s y=%s", l.balance(userX), l.balance(userY))
	}
	if len(emitter.events) != 2 {
		t.Fatalf("expected two events, got %d", len(emitter.events))
	}
}

func TestBatchDistributeValidation(t *testing.T) {
	engine, l, _ := newTestEngine(t, 1_000)
	err := engine.BatchDistributeRewards([][20]byte{userX}, []*big.Int{big.NewInt(1), big.NewInt(2)}, []string{"a"})
	if !errors.Is(err, ErrArityMismatch) {
		t.Fatalf("expected ErrArityMismatch, got %v", err)
	}
	if err := engine.BatchDistributeRewards(nil, nil, nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
	err = engine.BatchDistributeRewards(
		[][20]byte{userX, {}},
		[]*big.Int{big.NewInt(1), big.NewInt(1)},
		[]string{"a", "b"},
	)
	var entry *BatchEntryError
	if !errors.As(err, &entry) || entry.Index != 1 || !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected entry 1 ErrInvalidRecipient, got %v", err)
	}
	if l.calls != 0 {
		t.Fatalf("ledger touched on invalid batch")
	}
}

type reentrantEmitter struct {
	engine *Engine
	err    error
}

func (r *reentrantEmitter) Emit(events.Event) {
	if r.err == nil {
		r.err = r.engine.DistributeReward(userY, big.NewInt(1), "nested")
	}
}

func TestDistributeRejectsReentry(t *testing.T) {
	engine, l, _ := newTestEngine(t, 1_000)
	re := &reentrantEmitter{engine: engine}
	engine.SetEmitter(re)
	if err := engine.DistributeReward(userX, big.NewInt(10), "outer"); err != nil {
		t.Fatalf("outer distribute: %v", err)
	}
	if !errors.Is(re.err, common.ErrReentrantCall) {
		t.Fatalf("expected ErrReentrantCall, got %v", re.err)
	}
	if l.balance(userY).Sign() != 0 {
		t.Fatalf("nested call moved funds")
	}
}
