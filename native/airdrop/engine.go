package airdrop

import (
	"math/big"
	"time"

	"tokenflow/core/events"
	"tokenflow/native/common"
	"tokenflow/native/ledger"
)

type engineState interface {
	AirdropCampaign() (*Campaign, error)
	PutAirdropCampaign(campaign *Campaign) error
	AirdropClaimed(account [20]byte) (bool, error)
	SetAirdropClaimed(account [20]byte) error
}

// Transferer moves funds out of the airdrop vault and reports its balance.
type Transferer interface {
	TransferFromPool(pool common.Pool, to [20]byte, amount *big.Int) (*ledger.Settlement, error)
	BalanceOf(addr [20]byte) (*big.Int, error)
}

// Engine verifies merkle claims against the campaign root and pays them from
// the airdrop vault.
type Engine struct {
	state   engineState
	ledger  Transferer
	vault   common.Pool
	emitter events.Emitter
	nowFn   func() time.Time
	guard   common.ReentrancyGuard
}

// NewEngine constructs a claim verifier funded by vault.
func NewEngine(vault common.Pool) *Engine {
	return &Engine{
		vault:   vault,
		emitter: events.NoopEmitter{},
		nowFn:   time.Now,
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

func (e *Engine) campaign() (*Campaign, error) {
	campaign, err := e.state.AirdropCampaign()
	if err != nil {
		return nil, err
	}
	return campaign.Clone(), nil
}

func (e *Engine) initialized() (*Campaign, error) {
	campaign, err := e.campaign()
	if err != nil {
		return nil, err
	}
	if !campaign.Initialized {
		return nil, ErrNotInitialized
	}
	return campaign, nil
}

// Initialize publishes a new root and activates the campaign. Calling it
// again starts a new round; accounts that claimed earlier stay claimed.
func (e *Engine) Initialize(root [32]byte, deadline uint64, totalAllocated *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if root == ([32]byte{}) {
		return ErrInvalidRoot
	}
	if deadline <= e.now() {
		return ErrInvalidDeadline
	}
	if totalAllocated != nil && totalAllocated.Sign() < 0 {
		return ledger.ErrInvalidAmount
	}
	campaign, err := e.campaign()
	if err != nil {
		return err
	}
	campaign.Root = root
	campaign.Deadline = deadline
	campaign.TotalAllocated = cloneAmount(totalAllocated)
	campaign.TotalClaimed = big.NewInt(0)
	campaign.Active = true
	campaign.Initialized = true
	campaign.Round++
	if err := e.state.PutAirdropCampaign(campaign); err != nil {
		return err
	}
	e.emitter.Emit(events.AirdropInitialized{
		Root:           root,
		Deadline:       deadline,
		TotalAllocated: cloneAmount(campaign.TotalAllocated),
		Round:          campaign.Round,
	})
	return nil
}

// UpdateRoot swaps the commitment while the claim window is open.
func (e *Engine) UpdateRoot(root [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	campaign, err := e.initialized()
	if err != nil {
		return err
	}
	if root == ([32]byte{}) {
		return ErrInvalidRoot
	}
	if e.now() >= campaign.Deadline {
		return ErrDeadlinePassed
	}
	old := campaign.Root
	campaign.Root = root
	if err := e.state.PutAirdropCampaign(campaign); err != nil {
		return err
	}
	e.emitter.Emit(events.AirdropRootUpdated{Old: old, New: root})
	return nil
}

func (e *Engine) SetActive(active bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	campaign, err := e.initialized()
	if err != nil {
		return err
	}
	campaign.Active = active
	if err := e.state.PutAirdropCampaign(campaign); err != nil {
		return err
	}
	e.emitter.Emit(events.AirdropStatusUpdated{Active: active})
	return nil
}

// Claim pays account its allocation.
func (e *Engine) Claim(account [20]byte, amount *big.Int, proof [][32]byte) error {
	return e.ClaimFor(account, account, amount, proof)
}

// ClaimFor pays account its allocation on a submitter's behalf. The proof is
// the authorization; the submitter is only recorded.
func (e *Engine) ClaimFor(submitter, account [20]byte, amount *big.Int, proof [][32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()

	campaign, err := e.campaign()
	if err != nil {
		return err
	}
	if err := e.checkClaim(campaign, account, amount, proof); err != nil {
		return err
	}
	if err := e.state.SetAirdropClaimed(account); err != nil {
		return err
	}
	campaign.TotalClaimed = new(big.Int).Add(campaign.TotalClaimed, amount)
	if err := e.state.PutAirdropCampaign(campaign); err != nil {
		return err
	}
	if _, err := e.ledger.TransferFromPool(e.vault, account, amount); err != nil {
		return err
	}
	e.emitter.Emit(events.AirdropClaimed{Account: account, Amount: new(big.Int).Set(amount), Submitter: submitter})
	return nil
}

func (e *Engine) checkClaim(campaign *Campaign, account [20]byte, amount *big.Int, proof [][32]byte) error {
	if !campaign.Initialized || !campaign.Active {
		return ErrNotActive
	}
	if e.now() >= campaign.Deadline {
		return ErrDeadlinePassed
	}
	claimed, err := e.state.AirdropClaimed(account)
	if err != nil {
		return err
	}
	if claimed {
		return ErrAlreadyClaimed
	}
	if amount == nil || amount.Sign() <= 0 {
		return common.ErrZeroAmount
	}
	if account == ([20]byte{}) {
		return common.ErrZeroAddress
	}
	leaf, ok := Leaf(account, amount)
	if !ok || !VerifyProof(proof, campaign.Root, leaf) {
		return ErrInvalidProof
	}
	available, err := e.ledger.BalanceOf(e.vault.Address())
	if err != nil {
		return err
	}
	if available.Cmp(amount) < 0 {
		return &InsufficientBalanceError{Available: available, Required: new(big.Int).Set(amount)}
	}
	return nil
}

// RecoverUnclaimed sweeps the vault to to once the deadline has passed and
// deactivates the campaign.
func (e *Engine) RecoverUnclaimed(to [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	campaign, err := e.initialized()
	if err != nil {
		return nil, err
	}
	if to == ([20]byte{}) {
		return nil, common.ErrZeroAddress
	}
	if e.now() < campaign.Deadline {
		return nil, ErrDeadlineNotReached
	}
	remaining, err := e.ledger.BalanceOf(e.vault.Address())
	if err != nil {
		return nil, err
	}
	if remaining.Sign() > 0 {
		if _, err := e.ledger.TransferFromPool(e.vault, to, remaining); err != nil {
			return nil, err
		}
	}
	campaign.Active = false
	if err := e.state.PutAirdropCampaign(campaign); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.AirdropRecovered{To: to, Amount: new(big.Int).Set(remaining)})
	return remaining, nil
}

// Campaign returns a copy of the campaign record.
func (e *Engine) Campaign() (*Campaign, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.campaign()
}

func (e *Engine) Status() (Status, error) {
	campaign, err := e.Campaign()
	if err != nil {
		return StatusUninitialized, err
	}
	return campaign.StatusAt(e.now()), nil
}

// TimeUntilDeadline returns the seconds left in the claim window, zero once
// it has closed.
func (e *Engine) TimeUntilDeadline() (uint64, error) {
	campaign, err := e.Campaign()
	if err != nil {
		return 0, err
	}
	now := e.now()
	if !campaign.Initialized || now >= campaign.Deadline {
		return 0, nil
	}
	return campaign.Deadline - now, nil
}

// CanClaim runs every claim check without mutating state. The returned error
// is the reason a claim would fail.
func (e *Engine) CanClaim(account [20]byte, amount *big.Int, proof [][32]byte) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	campaign, err := e.campaign()
	if err != nil {
		return false, err
	}
	if err := e.checkClaim(campaign, account, amount, proof); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) HasClaimed(account [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.AirdropClaimed(account)
}
