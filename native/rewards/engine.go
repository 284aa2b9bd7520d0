package rewards

import (
	"math/big"
	"time"

	"tokenflow/core/events"
	"tokenflow/native/common"
	"tokenflow/native/ledger"
)

// Transferer moves funds out of a system pool and reports balances.
type Transferer interface {
	TransferFromPool(pool common.Pool, to [20]byte, amount *big.Int) (*ledger.Settlement, error)
	BalanceOf(addr [20]byte) (*big.Int, error)
	TotalSupply() (*big.Int, error)
}

// Engine pays rewards out of the rewards pool.
type Engine struct {
	ledger  Transferer
	pool    common.Pool
	emitter events.Emitter
	nowFn   func() time.Time
	guard   common.ReentrancyGuard
}

// NewEngine constructs a distributor drawing from pool.
func NewEngine(pool common.Pool) *Engine {
	return &Engine{
		pool:    pool,
		emitter: events.NoopEmitter{},
		nowFn:   time.Now,
	}
}

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

func (e *Engine) Pool() common.Pool { return e.pool }

func (e *Engine) now() uint64 {
	if e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return uint64(e.nowFn().Unix())
}

// DistributeReward pays amount from the pool to recipient.
func (e *Engine) DistributeReward(recipient [20]byte, amount *big.Int, activityID string) error {
	if e == nil || e.ledger == nil {
		return errNilLedger
	}
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()

	if err := validateEntry(recipient, amount); err != nil {
		return err
	}
	if err := e.ensureAvailable(amount); err != nil {
		return err
	}
	return e.pay(recipient, amount, activityID, e.now())
}

// BatchDistributeRewards pays every entry or none. All entries are validated
// and the aggregate is checked against the pool before the first leg moves.
func (e *Engine) BatchDistributeRewards(recipients [][20]byte, amounts []*big.Int, activityIDs []string) error {
	if e == nil || e.ledger == nil {
		return errNilLedger
	}
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()

	if len(recipients) != len(amounts) || len(recipients) != len(activityIDs) {
		return &ArityMismatchError{Recipients: len(recipients), Amounts: len(amounts), ActivityIDs: len(activityIDs)}
	}
	if len(recipients) == 0 {
		return ErrEmptyBatch
	}
	total := big.NewInt(0)
	for i := range recipients {
		if err := validateEntry(recipients[i], amounts[i]); err != nil {
			return &BatchEntryError{Index: i, Err: err}
		}
		total.Add(total, amounts[i])
	}
	if err := e.ensureAvailable(total); err != nil {
		return err
	}
	ts := e.now()
	for i := range recipients {
		if err := e.pay(recipients[i], amounts[i], activityIDs[i], ts); err != nil {
			return &BatchEntryError{Index: i, Err: err}
		}
	}
	return nil
}

func validateEntry(recipient [20]byte, amount *big.Int) error {
	if recipient == ([20]byte{}) {
		return ErrInvalidRecipient
	}
	if amount == nil || amount.Sign() <= 0 {
		return common.ErrZeroAmount
	}
	return nil
}

func (e *Engine) ensureAvailable(requested *big.Int) error {
	available, err := e.PoolBalance()
	if err != nil {
		return err
	}
	if available.Cmp(requested) < 0 {
		return &InsufficientPoolError{Requested: new(big.Int).Set(requested), Available: available}
	}
	return nil
}

func (e *Engine) pay(recipient [20]byte, amount *big.Int, activityID string, ts uint64) error {
	if _, err := e.ledger.TransferFromPool(e.pool, recipient, amount); err != nil {
		return err
	}
	e.emitter.Emit(events.RewardDistributed{
		Recipient:  recipient,
		Amount:     new(big.Int).Set(amount),
		ActivityID: activityID,
		Timestamp:  ts,
	})
	return nil
}

// PoolBalance returns the spendable reward budget.
func (e *Engine) PoolBalance() (*big.Int, error) {
	if e == nil || e.ledger == nil {
		return nil, errNilLedger
	}
	return e.ledger.BalanceOf(e.pool.Address())
}

// CirculatingSupply is the total supply minus the undistributed pool.
func (e *Engine) CirculatingSupply() (*big.Int, error) {
	if e == nil || e.ledger == nil {
		return nil, errNilLedger
	}
	supply, err := e.ledger.TotalSupply()
	if err != nil {
		return nil, err
	}
	pool, err := e.PoolBalance()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(supply, pool), nil
}
