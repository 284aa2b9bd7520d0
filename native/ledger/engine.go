package ledger

import (
	"fmt"
	"math/big"

	"tokenflow/core/events"
	"tokenflow/native/common"
)

type engineState interface {
	Balance(addr [20]byte) (*big.Int, error)
	SetBalance(addr [20]byte, amount *big.Int) error
	TotalSupply() (*big.Int, error)
	SetTotalSupply(amount *big.Int) error
	SupplySealed() (bool, error)
	SealSupply() error
	LedgerPolicy() (*Policy, error)
	PutLedgerPolicy(policy *Policy) error
	LedgerExempt(addr [20]byte) (bool, error)
	SetLedgerExempt(addr [20]byte, exempt bool) error
	LedgerProtected(addr [20]byte) (bool, error)
	SetLedgerProtected(addr [20]byte, protected bool) error
	LedgerPool(addr [20]byte) (bool, error)
	SetLedgerPool(addr [20]byte, pool bool) error
}

// Engine applies balance movements and the tax-recycling policy.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

// NewEngine constructs a ledger engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

func (e *Engine) policy() (*Policy, error) {
	policy, err := e.state.LedgerPolicy()
	if err != nil {
		return nil, err
	}
	if policy == nil {
		policy = &Policy{}
	}
	return policy, nil
}

func (e *Engine) debit(addr [20]byte, amount *big.Int) error {
	balance, err := e.state.Balance(addr)
	if err != nil {
		return err
	}
	if balance == nil {
		balance = big.NewInt(0)
	}
	if balance.Cmp(amount) < 0 {
		return &InsufficientBalanceError{
			Account:  addr,
			Balance:  new(big.Int).Set(balance),
			Required: new(big.Int).Set(amount),
		}
	}
	return e.state.SetBalance(addr, new(big.Int).Sub(balance, amount))
}

func (e *Engine) credit(addr [20]byte, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	balance, err := e.state.Balance(addr)
	if err != nil {
		return err
	}
	if balance == nil {
		balance = big.NewInt(0)
	}
	return e.state.SetBalance(addr, new(big.Int).Add(balance, amount))
}

// Transfer moves amount from one account to another. A null sentinel on
// either side takes the mint or burn path, which stays open only until the
// supply is sealed.
func (e *Engine) Transfer(from, to [20]byte, amount *big.Int) (*Settlement, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	var zero [20]byte
	if from == zero && to == zero {
		return nil, common.ErrZeroAddress
	}
	if from != zero {
		pool, err := e.state.LedgerPool(from)
		if err != nil {
			return nil, err
		}
		if pool {
			return nil, fmt.Errorf("%w: %x", ErrPoolAccount, from)
		}
	}
	if from == zero || to == zero {
		return e.mintOrBurn(from, to, amount)
	}

	policy, err := e.policy()
	if err != nil {
		return nil, err
	}
	exempt, err := e.eitherExempt(from, to)
	if err != nil {
		return nil, err
	}
	rate := policy.RateBps
	if exempt {
		rate = 0
	}
	tax, net := ComputeTax(amount, rate)
	if tax.Sign() > 0 && policy.Reservoir == zero {
		return nil, ErrReservoirNotSet
	}

	if err := e.debit(from, amount); err != nil {
		return nil, err
	}
	if tax.Sign() > 0 {
		if err := e.credit(policy.Reservoir, tax); err != nil {
			return nil, err
		}
	}
	if err := e.credit(to, net); err != nil {
		return nil, err
	}

	settlement := &Settlement{From: from, To: to, Amount: new(big.Int).Set(amount), Net: net, Tax: tax}
	e.emit(events.Settlement{From: from, To: to, Net: new(big.Int).Set(net)})
	if tax.Sign() > 0 {
		settlement.Reservoir = policy.Reservoir
		e.emit(events.TaxCollected{From: from, To: to, Tax: new(big.Int).Set(tax), Destination: policy.Reservoir})
	}
	return settlement, nil
}

func (e *Engine) eitherExempt(from, to [20]byte) (bool, error) {
	fromExempt, err := e.state.LedgerExempt(from)
	if err != nil {
		return false, err
	}
	if fromExempt {
		return true, nil
	}
	return e.state.LedgerExempt(to)
}

func (e *Engine) mintOrBurn(from, to [20]byte, amount *big.Int) (*Settlement, error) {
	sealed, err := e.state.SupplySealed()
	if err != nil {
		return nil, err
	}
	if sealed {
		return nil, ErrSupplySealed
	}
	supply, err := e.state.TotalSupply()
	if err != nil {
		return nil, err
	}
	if supply == nil {
		supply = big.NewInt(0)
	}
	var zero [20]byte
	if from == zero {
		if err := e.credit(to, amount); err != nil {
			return nil, err
		}
		supply = new(big.Int).Add(supply, amount)
	} else {
		if err := e.debit(from, amount); err != nil {
			return nil, err
		}
		supply = new(big.Int).Sub(supply, amount)
	}
	if err := e.state.SetTotalSupply(supply); err != nil {
		return nil, err
	}
	e.emit(events.Settlement{From: from, To: to, Net: new(big.Int).Set(amount)})
	return &Settlement{From: from, To: to, Amount: new(big.Int).Set(amount), Net: new(big.Int).Set(amount), Tax: big.NewInt(0)}, nil
}

// TransferFromPool moves amount out of a system pool. Pool legs never pay
// tax, whatever the exemption flags say.
func (e *Engine) TransferFromPool(pool common.Pool, to [20]byte, amount *big.Int) (*Settlement, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if pool.IsZero() || to == ([20]byte{}) {
		return nil, common.ErrZeroAddress
	}
	from := pool.Address()
	if err := e.debit(from, amount); err != nil {
		return nil, err
	}
	if err := e.credit(to, amount); err != nil {
		return nil, err
	}
	e.emit(events.Settlement{From: from, To: to, Net: new(big.Int).Set(amount)})
	return &Settlement{From: from, To: to, Amount: new(big.Int).Set(amount), Net: new(big.Int).Set(amount), Tax: big.NewInt(0)}, nil
}

// RegisterPool protects the pool account and closes it to ordinary
// transfers. Funds then leave it only through TransferFromPool.
func (e *Engine) RegisterPool(pool common.Pool) error {
	if err := e.ready(); err != nil {
		return err
	}
	if pool.IsZero() {
		return common.ErrZeroAddress
	}
	if err := e.Protect(pool.Address()); err != nil {
		return err
	}
	return e.state.SetLedgerPool(pool.Address(), true)
}

// SealSupply closes the mint and burn path permanently.
func (e *Engine) SealSupply() error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.state.SealSupply()
}

// Protect marks a system account as permanently exempt.
func (e *Engine) Protect(addr [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if addr == ([20]byte{}) {
		return common.ErrZeroAddress
	}
	if err := e.state.SetLedgerExempt(addr, true); err != nil {
		return err
	}
	return e.state.SetLedgerProtected(addr, true)
}

func (e *Engine) SetTaxRate(changer [20]byte, rateBps uint32) error {
	if err := e.ready(); err != nil {
		return err
	}
	if rateBps > MaxTaxRateBps {
		return &TaxRateTooHighError{RateBps: rateBps, Max: MaxTaxRateBps}
	}
	policy, err := e.policy()
	if err != nil {
		return err
	}
	old := policy.RateBps
	updated := policy.Clone()
	updated.RateBps = rateBps
	if err := e.state.PutLedgerPolicy(updated); err != nil {
		return err
	}
	e.emit(events.TaxRateUpdated{Old: old, New: rateBps, Changer: changer})
	return nil
}

// SetReservoir replaces the tax destination. The new reservoir is exempt
// from that point on.
func (e *Engine) SetReservoir(changer [20]byte, reservoir [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if reservoir == ([20]byte{}) {
		return common.ErrZeroAddress
	}
	policy, err := e.policy()
	if err != nil {
		return err
	}
	old := policy.Reservoir
	updated := policy.Clone()
	updated.Reservoir = reservoir
	if err := e.state.PutLedgerPolicy(updated); err != nil {
		return err
	}
	if err := e.state.SetLedgerExempt(reservoir, true); err != nil {
		return err
	}
	e.emit(events.ReservoirUpdated{Old: old, New: reservoir, Changer: changer})
	return nil
}

func (e *Engine) SetExempt(changer [20]byte, addr [20]byte, exempt bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	if addr == ([20]byte{}) {
		return common.ErrZeroAddress
	}
	if !exempt {
		protected, err := e.isProtected(addr)
		if err != nil {
			return err
		}
		if protected {
			return fmt.Errorf("%w: %x", ErrProtectedAccount, addr)
		}
	}
	if err := e.state.SetLedgerExempt(addr, exempt); err != nil {
		return err
	}
	e.emit(events.ExemptionUpdated{Account: addr, Exempt: exempt, Changer: changer})
	return nil
}

func (e *Engine) isProtected(addr [20]byte) (bool, error) {
	protected, err := e.state.LedgerProtected(addr)
	if err != nil || protected {
		return protected, err
	}
	policy, err := e.policy()
	if err != nil {
		return false, err
	}
	return policy.Reservoir == addr, nil
}

func (e *Engine) BalanceOf(addr [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	balance, err := e.state.Balance(addr)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

func (e *Engine) TotalSupply() (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	supply, err := e.state.TotalSupply()
	if err != nil {
		return nil, err
	}
	if supply == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(supply), nil
}

func (e *Engine) TaxRateBps() (uint32, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	policy, err := e.policy()
	if err != nil {
		return 0, err
	}
	return policy.RateBps, nil
}

func (e *Engine) Reservoir() ([20]byte, error) {
	if err := e.ready(); err != nil {
		return [20]byte{}, err
	}
	policy, err := e.policy()
	if err != nil {
		return [20]byte{}, err
	}
	return policy.Reservoir, nil
}

func (e *Engine) IsExempt(addr [20]byte) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	return e.state.LedgerExempt(addr)
}

// CalculateTax returns the tax a non-exempt transfer of amount would pay at
// the current rate.
func (e *Engine) CalculateTax(amount *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	policy, err := e.policy()
	if err != nil {
		return nil, err
	}
	tax, _ := ComputeTax(amount, policy.RateBps)
	return tax, nil
}
