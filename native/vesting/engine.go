package vesting

import (
	"math"
	"math/big"
	"time"

	"tokenflow/core/events"
	"tokenflow/native/common"
	"tokenflow/native/ledger"
)

type engineState interface {
	VestingSchedule(beneficiary [20]byte) (*Schedule, bool, error)
	PutVestingSchedule(schedule *Schedule) error
	VestingCommitted() (*big.Int, error)
	SetVestingCommitted(amount *big.Int) error
}

// Transferer moves funds out of the vesting vault and reports its balance.
type Transferer interface {
	TransferFromPool(pool common.Pool, to [20]byte, amount *big.Int) (*ledger.Settlement, error)
	BalanceOf(addr [20]byte) (*big.Int, error)
}

// Engine manages vesting schedules funded by the vesting vault.
type Engine struct {
	state    engineState
	ledger   Transferer
	vault    common.Pool
	treasury [20]byte
	emitter  events.Emitter
	nowFn    func() time.Time
}

// NewEngine constructs a vesting engine. Forfeited tokens of revoked
// schedules are returned to treasury.
func NewEngine(vault common.Pool, treasury [20]byte) *Engine {
	return &Engine{
		vault:    vault,
		treasury: treasury,
		emitter:  events.NoopEmitter{},
		nowFn:    time.Now,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetLedger(l Transferer) { e.ledger = l }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = time.Now
		return
	}
	e.nowFn = now
}

func (e *Engine) now() uint64 {
	if e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return uint64(e.nowFn().Unix())
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	return nil
}

func (e *Engine) committed() (*big.Int, error) {
	committed, err := e.state.VestingCommitted()
	if err != nil {
		return nil, err
	}
	if committed == nil {
		return big.NewInt(0), nil
	}
	return committed, nil
}

func (e *Engine) adjustCommitted(delta *big.Int) error {
	committed, err := e.committed()
	if err != nil {
		return err
	}
	return e.state.SetVestingCommitted(new(big.Int).Add(committed, delta))
}

func (e *Engine) load(beneficiary [20]byte) (*Schedule, error) {
	schedule, ok, err := e.state.VestingSchedule(beneficiary)
	if err != nil {
		return nil, err
	}
	if !ok || schedule == nil {
		return nil, ErrScheduleNotFound
	}
	return schedule, nil
}

// CreateSchedule records a new schedule and commits its amount against the
// vault's unallocated balance.
func (e *Engine) CreateSchedule(params CreateParams) (*Schedule, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if params.Beneficiary == ([20]byte{}) {
		return nil, common.ErrZeroAddress
	}
	if params.Amount == nil || params.Amount.Sign() <= 0 {
		return nil, common.ErrZeroAmount
	}
	_, exists, err := e.state.VestingSchedule(params.Beneficiary)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrScheduleExists
	}

	start := e.now()
	if params.Start != nil {
		start = *params.Start
	}
	cliff := DefaultCliff
	if params.Cliff != nil {
		cliff = *params.Cliff
	}
	duration := DefaultDuration
	if params.Duration != nil {
		duration = *params.Duration
	}
	if duration == 0 || cliff > duration || start > math.MaxUint64-duration {
		return nil, ErrInvalidDuration
	}

	available, err := e.Unallocated()
	if err != nil {
		return nil, err
	}
	if available.Cmp(params.Amount) < 0 {
		return nil, &InsufficientFundingError{Available: available, Required: new(big.Int).Set(params.Amount)}
	}

	schedule := &Schedule{
		Beneficiary: params.Beneficiary,
		TotalAmount: new(big.Int).Set(params.Amount),
		Released:    big.NewInt(0),
		Start:       start,
		Cliff:       cliff,
		Duration:    duration,
		Revocable:   params.Revocable,
	}
	if err := e.state.PutVestingSchedule(schedule); err != nil {
		return nil, err
	}
	if err := e.adjustCommitted(params.Amount); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.VestingCreated{
		Beneficiary: schedule.Beneficiary,
		Amount:      new(big.Int).Set(schedule.TotalAmount),
		Start:       start,
		Cliff:       cliff,
		Duration:    duration,
		Revocable:   schedule.Revocable,
	})
	return schedule.Clone(), nil
}

// Release pays the beneficiary everything vested but not yet released.
func (e *Engine) Release(beneficiary [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	schedule, err := e.load(beneficiary)
	if err != nil {
		return nil, err
	}
	releasable := releasableAt(schedule, e.now())
	if releasable.Sign() <= 0 {
		return nil, ErrNoTokensToClaim
	}
	if _, err := e.ledger.TransferFromPool(e.vault, beneficiary, releasable); err != nil {
		return nil, err
	}
	schedule.Released = new(big.Int).Add(cloneAmount(schedule.Released), releasable)
	if err := e.state.PutVestingSchedule(schedule); err != nil {
		return nil, err
	}
	if err := e.adjustCommitted(new(big.Int).Neg(releasable)); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.VestingReleased{Beneficiary: beneficiary, Amount: new(big.Int).Set(releasable)})
	return releasable, nil
}

// Revoke freezes the schedule at its currently vested amount and returns the
// forfeited remainder to the treasury.
func (e *Engine) Revoke(beneficiary [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	schedule, err := e.load(beneficiary)
	if err != nil {
		return nil, err
	}
	if !schedule.Revocable {
		return nil, ErrScheduleNotRevocable
	}
	if schedule.Revoked {
		return nil, ErrScheduleAlreadyRevoked
	}
	vested := VestedAmount(schedule, e.now())
	forfeited := new(big.Int).Sub(cloneAmount(schedule.TotalAmount), vested)

	schedule.TotalAmount = vested
	schedule.Revoked = true
	if err := e.state.PutVestingSchedule(schedule); err != nil {
		return nil, err
	}
	if err := e.adjustCommitted(new(big.Int).Neg(forfeited)); err != nil {
		return nil, err
	}
	if forfeited.Sign() > 0 {
		if _, err := e.ledger.TransferFromPool(e.vault, e.treasury, forfeited); err != nil {
			return nil, err
		}
	}
	e.emitter.Emit(events.VestingRevoked{
		Beneficiary: beneficiary,
		Vested:      new(big.Int).Set(vested),
		Forfeited:   new(big.Int).Set(forfeited),
		Recipient:   e.treasury,
	})
	return forfeited, nil
}

func releasableAt(schedule *Schedule, now uint64) *big.Int {
	releasable := new(big.Int).Sub(VestedAmount(schedule, now), cloneAmount(schedule.Released))
	if releasable.Sign() < 0 {
		return big.NewInt(0)
	}
	return releasable
}

// Schedule returns a copy of the beneficiary's schedule.
func (e *Engine) Schedule(beneficiary [20]byte) (*Schedule, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	schedule, err := e.load(beneficiary)
	if err != nil {
		return nil, err
	}
	return schedule.Clone(), nil
}

func (e *Engine) VestedAmountOf(beneficiary [20]byte, now uint64) (*big.Int, error) {
	schedule, err := e.Schedule(beneficiary)
	if err != nil {
		return nil, err
	}
	return VestedAmount(schedule, now), nil
}

func (e *Engine) ReleasableAmount(beneficiary [20]byte) (*big.Int, error) {
	schedule, err := e.Schedule(beneficiary)
	if err != nil {
		return nil, err
	}
	return releasableAt(schedule, e.now()), nil
}

// Committed returns the unreleased amount promised to live schedules.
func (e *Engine) Committed() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	committed, err := e.committed()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(committed), nil
}

// Unallocated returns the vault balance not yet promised to a schedule.
func (e *Engine) Unallocated() (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	holdings, err := e.ledger.BalanceOf(e.vault.Address())
	if err != nil {
		return nil, err
	}
	committed, err := e.committed()
	if err != nil {
		return nil, err
	}
	available := new(big.Int).Sub(holdings, committed)
	if available.Sign() < 0 {
		return big.NewInt(0), nil
	}
	return available, nil
}
