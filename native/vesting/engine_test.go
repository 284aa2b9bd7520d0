package vesting

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"tokenflow/core/events"
	"tokenflow/native/common"
	"tokenflow/native/ledger"
)

type mockState struct {
	schedules map[[20]byte]*Schedule
	committed *big.Int
}

func newMockState() *mockState {
	return &mockState{schedules: make(map[[20]byte]*Schedule), committed: big.NewInt(0)}
}

func (m *mockState) VestingSchedule(beneficiary [20]byte) (*Schedule, bool, error) {
	s, ok := m.schedules[beneficiary]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (m *mockState) PutVestingSchedule(schedule *Schedule) error {
	m.schedules[schedule.Beneficiary] = schedule.Clone()
	return nil
}

func (m *mockState) VestingCommitted() (*big.Int, error) { return new(big.Int).Set(m.committed), nil }
func (m *mockState) SetVestingCommitted(amount *big.Int) error {
	m.committed = new(big.Int).Set(amount)
	return nil
}

type fakeLedger struct {
	balances map[[20]byte]*big.Int
}

func (f *fakeLedger) balance(addr [20]byte) *big.Int {
	if bal, ok := f.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

func (f *fakeLedger) TransferFromPool(pool common.Pool, to [20]byte, amount *big.Int) (*ledger.Settlement, error) {
	from := pool.Address()
	bal := f.balance(from)
	if bal.Cmp(amount) < 0 {
		return nil, &ledger.InsufficientBalanceError{Account: from, Balance: bal, Required: amount}
	}
	f.balances[from] = new(big.Int).Sub(bal, amount)
	f.balances[to] = new(big.Int).Add(f.balance(to), amount)
	return &ledger.Settlement{From: from, To: to, Amount: amount, Net: amount, Tax: big.NewInt(0)}, nil
}

func (f *fakeLedger) BalanceOf(addr [20]byte) (*big.Int, error) { return f.balance(addr), nil }

type captureEmitter struct{ events []events.Event }

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

const t0 uint64 = 1_700_000_000

var (
	vaultAddr   = [20]byte{0x70}
	treasury    = [20]byte{0x01}
	beneficiary = [20]byte{0xbe}
)

type clock struct{ now uint64 }

func (c *clock) Now() time.Time { return time.Unix(int64(c.now), 0) }

func newTestEngine(t *testing.T, vaultFunds int64) (*Engine, *mockState, *fakeLedger, *clock, *captureEmitter) {
	t.Helper()
	l := &fakeLedger{balances: map[[20]byte]*big.Int{vaultAddr: big.NewInt(vaultFunds)}}
	state := newMockState()
	clk := &clock{now: t0}
	emitter := &captureEmitter{}
	engine := NewEngine(common.NewPool("vesting", vaultAddr), treasury)
	engine.SetState(state)
	engine.SetLedger(l)
	engine.SetEmitter(emitter)
	engine.SetNowFunc(clk.Now)
	return engine, state, l, clk, emitter
}

func u64(v uint64) *uint64 { return &v }

func TestVestedAmountScenario(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t, 1_000_000)
	if _, err := engine.CreateSchedule(CreateParams{Beneficiary: beneficiary, Amount: big.NewInt(1_000_000)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	cases := []struct {
		at   uint64
		want int64
	}{
		{t0, 0},
		{t0 + Year - 1, 0},
		{t0 + Year, 0},
		{t0 + Year + 3*Year/2, 500_000},
		{t0 + 4*Year, 1_000_000},
		{t0 + 10*Year, 1_000_000},
	}
	for _, tc := range cases {
		got, err := engine.VestedAmountOf(beneficiary, tc.at)
		if err != nil {
			t.Fatalf("vested at %d: %v", tc.at, err)
		}
		if got.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("vested at %d = %s want %d", tc.at, got, tc.want)
		}
	}
}

func TestVestedAmountMonotonic(t *testing.T) {
	s := &Schedule{TotalAmount: big.NewInt(987_654_321), Released: big.NewInt(0), Start: t0, Cliff: 90, Duration: 1_000}
	prev := big.NewInt(0)
	for now := t0; now <= t0+1_100; now += 7 {
		cur := VestedAmount(s, now)
		if cur.Cmp(prev) < 0 {
			t.Fatalf("vested decreased at %d", now)
		}
		prev = cur
	}
	if prev.Cmp(s.TotalAmount) != 0 {
		t.Fatalf("final vested %s", prev)
	}
}

func TestCreateScheduleValidation(t *testing.T) {
	engine, state, _, _, _ := newTestEngine(t, 1_000)
	if _, err := engine.CreateSchedule(CreateParams{Amount: big.NewInt(1)}); !errors.Is(err, common.ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
	if _, err := engine.CreateSchedule(CreateParams{Beneficiary: beneficiary, Amount: big.NewInt(0)}); !errors.Is(err, common.ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	_, err := engine.CreateSchedule(CreateParams{Beneficiary: beneficiary, Amount: big.NewInt(1), Cliff: u64(10), Duration: u64(5)})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	_, err = engine.CreateSchedule(CreateParams{Beneficiary: beneficiary, Amount: big.NewInt(1), Cliff: u64(0), Duration: u64(0)})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration for zero duration, got %v", err)
	}
	_, err = engine.CreateSchedule(CreateParams{Beneficiary: beneficiary, Amount: big.NewInt(1_001)})
	var funding *InsufficientFundingError
	if !errors.As(err, &funding) || funding.Available.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("expected InsufficientFundingError, got %v", err)
	}
	if len(state.schedules) != 0 || state.committed.Sign() != 0 {
		t.Fatalf("state mutated by failed create")
	}
}

func TestCreateScheduleOncePerBeneficiary(t *testing.T) {
	engine, state, _, clk, _ := newTestEngine(t, 1_000)
	params := CreateParams{Beneficiary: beneficiary, Amount: big.NewInt(100), Cliff: u64(0), Duration: u64(10)}
	if _, err := engine.CreateSchedule(params); err != nil {
		t.Fatalf("create: %v", err)
	}
	clk.now = t0 + 10
	if _, err := engine.Release(beneficiary); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := engine.CreateSchedule(params); !errors.Is(err, ErrScheduleExists) {
		t.Fatalf("expected ErrScheduleExists after full release, got %v", err)
	}
	if state.committed.Sign() != 0 {
		t.Fatalf("committed %s", state.committed)
	}
}

func TestCommittedLimitsFurtherSchedules(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t, 1_000)
	if _, err := engine.CreateSchedule(CreateParams{Beneficiary: beneficiary, Amount: big.NewInt(600)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	other := [20]byte{0xcc}
	_, err := engine.CreateSchedule(CreateParams{Beneficiary: other, Amount: big.NewInt(500)})
	if !errors.Is(err, ErrInsufficientFunding) {
		t.Fatalf("expected ErrInsufficientFunding, got %v", err)
	}
	unallocated, _ := engine.Unallocated()
	if unallocated.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("unallocated %s", unallocated)
	}
}

func TestReleaseTwiceFails(t *testing.T) {
	engine, state, l, clk, emitter := newTestEngine(t, 1_000_000)
	if _, err := engine.CreateSchedule(CreateParams{Beneficiary: beneficiary, Amount: big.NewInt(1_000_000)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := engine.Release(beneficiary); !errors.Is(err, ErrNoTokensToClaim) {
		t.Fatalf("expected ErrNoTokensToClaim before cliff, got %v", err)
	}
	clk.now = t0 + Year + 3*Year/2
	released, err := engine.Release(beneficiary)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("released %s", released)
	}
	if _, err := engine.Release(beneficiary); !errors.Is(err, ErrNoTokensToClaim) {
		t.Fatalf("expected ErrNoTokensToClaim on second release, got %v", err)
	}
	if l.balance(beneficiary).Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("beneficiary balance %s", l.balance(beneficiary))
	}
	if state.committed.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("committed %s", state.committed)
	}
	last := emitter.events[len(emitter.events)-1]
	if last.EventType() != events.TypeVestingReleased {
		t.Fatalf("unexpected last event %s", last.EventType())
	}
}

func TestRevokeFreezesVested(t *testing.T) {
	engine, state, l, clk, _ := newTestEngine(t, 1_000_000)
	params := CreateParams{Beneficiary: beneficiary, Amount: big.NewInt(1_000_000), Revocable: true}
	if _, err := engine.CreateSchedule(params); err != nil {
		t.Fatalf("create: %v", err)
	}
	clk.now = t0 + Year + 3*Year/2
	forfeited, err := engine.Revoke(beneficiary)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if forfeited.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("forfeited %s", forfeited)
	}
	if l.balance(treasury).Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("treasury balance %s", l.balance(treasury))
	}
	if _, err := engine.Revoke(beneficiary); !errors.Is(err, ErrScheduleAlreadyRevoked) {
		t.Fatalf("expected ErrScheduleAlreadyRevoked, got %v", err)
	}

	clk.now = t0 + 10*Year
	vested, _ := engine.VestedAmountOf(beneficiary, clk.now)
	if vested.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("vesting accrued after revoke: %s", vested)
	}
	released, err := engine.Release(beneficiary)
	if err != nil {
		t.Fatalf("release after revoke: %v", err)
	}
	if released.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("released %s", released)
	}
	if state.committed.Sign() != 0 {
		t.Fatalf("committed %s", state.committed)
	}
	if l.balance(vaultAddr).Sign() != 0 {
		t.Fatalf("vault balance %s", l.balance(vaultAddr))
	}
}

func TestRevokeErrors(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t, 1_000)
	if _, err := engine.Revoke(beneficiary); !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("expected ErrScheduleNotFound, got %v", err)
	}
	if _, err := engine.CreateSchedule(CreateParams{Beneficiary: beneficiary, Amount: big.NewInt(10)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := engine.Revoke(beneficiary); !errors.Is(err, ErrScheduleNotRevocable) {
		t.Fatalf("expected ErrScheduleNotRevocable, got %v", err)
	}
}
