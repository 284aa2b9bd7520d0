package airdrop

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
	campaign *Campaign
	claimed  map[[20]byte]bool
}

func newMockState() *mockState {
	return &mockState{claimed: make(map[[20]byte]bool)}
}

func (m *mockState) AirdropCampaign() (*Campaign, error) {
	if m.campaign == nil {
		return nil, nil
	}
	return m.campaign.Clone(), nil
}

func (m *mockState) PutAirdropCampaign(campaign *Campaign) error {
	m.campaign = campaign.Clone()
	return nil
}

func (m *mockState) AirdropClaimed(account [20]byte) (bool, error) { return m.claimed[account], nil }
func (m *mockState) SetAirdropClaimed(account [20]byte) error {
	m.claimed[account] = true
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

const (
	t0   uint64 = 1_700_000_000
	week uint64 = 7 * 24 * 60 * 60
)

var (
	vaultAddr = [20]byte{0xad}
	claimerX  = [20]byte{0x0e}
	relayer   = [20]byte{0x0d}
	admin     = [20]byte{0x01}
)

type clock struct{ now uint64 }

func (c *clock) Now() time.Time { return time.Unix(int64(c.now), 0) }

type fixture struct {
	engine  *Engine
	state   *mockState
	ledger  *fakeLedger
	clock   *clock
	emitter *captureEmitter
	tree    *Tree
}

func newFixture(t *testing.T, funding int64) *fixture {
	t.Helper()
	tree, err := BuildTree([]Allocation{{Account: claimerX, Amount: big.NewInt(500)}})
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	f := &fixture{
		state:   newMockState(),
		ledger:  &fakeLedger{balances: map[[20]byte]*big.Int{vaultAddr: big.NewInt(funding)}},
		clock:   &clock{now: t0},
		emitter: &captureEmitter{},
		tree:    tree,
	}
	f.engine = NewEngine(common.NewPool("airdrop", vaultAddr))
	f.engine.SetState(f.state)
	f.engine.SetLedger(f.ledger)
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(f.clock.Now)
	return f
}

func (f *fixture) initialize(t *testing.T) {
	t.Helper()
	if err := f.engine.Initialize(f.tree.Root(), t0+week, big.NewInt(10_000_000)); err != nil {
		t.Fatalf("initialize: %v", err)
	}
}

func (f *fixture) proof(t *testing.T) [][32]byte {
	t.Helper()
	proof, ok := f.tree.Proof(claimerX)
	if !ok {
		t.Fatalf("missing proof")
	}
	return proof
}

func TestClaimScenario(t *testing.T) {
	f := newFixture(t, 10_000_000)
	f.initialize(t)
	proof := f.proof(t)

	if ok, err := f.engine.CanClaim(claimerX, big.NewInt(500), proof); !ok || err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if err := f.engine.Claim(claimerX, big.NewInt(500), proof); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if f.ledger.balance(claimerX).Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("claimer balance %s", f.ledger.balance(claimerX))
	}
	if err := f.engine.Claim(claimerX, big.NewInt(500), proof); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	campaign, _ := f.engine.Campaign()
	if campaign.TotalClaimed.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("total claimed %s", campaign.TotalClaimed)
	}
	if claimed, _ := f.engine.HasClaimed(claimerX); !claimed {
		t.Fatalf("claimed flag not set")
	}
}

func TestClaimAfterDeadline(t *testing.T) {
	f := newFixture(t, 10_000_000)
	f.initialize(t)
	f.clock.now = t0 + week
	if err := f.engine.Claim(claimerX, big.NewInt(500), f.proof(t)); !errors.Is(err, ErrDeadlinePassed) {
		t.Fatalf("expected ErrDeadlinePassed, got %v", err)
	}
	if status, _ := f.engine.Status(); status != StatusExpired {
		t.Fatalf("status %s", status)
	}
	if left, _ := f.engine.TimeUntilDeadline(); left != 0 {
		t.Fatalf("time until deadline %d", left)
	}
}

func TestClaimForRelayer(t *testing.T) {
	f := newFixture(t, 1_000)
	f.initialize(t)
	if err := f.engine.ClaimFor(relayer, claimerX, big.NewInt(500), f.proof(t)); err != nil {
		t.Fatalf("claim for: %v", err)
	}
	if f.ledger.balance(relayer).Sign() != 0 {
		t.Fatalf("relayer received funds")
	}
	evt := f.emitter.events[len(f.emitter.events)-1]
	claimed, ok := evt.(events.AirdropClaimed)
	if !ok || claimed.Submitter != relayer || claimed.Account != claimerX {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestClaimInvalidProof(t *testing.T) {
	f := newFixture(t, 1_000)
	f.initialize(t)
	err := f.engine.Claim(claimerX, big.NewInt(501), f.proof(t))
	if !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof, got %v", err)
	}
	if common.KindOf(err) != common.KindProof {
		t.Fatalf("unexpected kind %s", common.KindOf(err))
	}
	if claimed, _ := f.engine.HasClaimed(claimerX); claimed {
		t.Fatalf("failed claim set flag")
	}
	if err := f.engine.Claim(relayer, big.NewInt(500), f.proof(t)); !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof for other account, got %v", err)
	}
	if err := f.engine.Claim(claimerX, big.NewInt(0), f.proof(t)); !errors.Is(err, common.ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
}

func TestClaimInsufficientVault(t *testing.T) {
	f := newFixture(t, 499)
	f.initialize(t)
	err := f.engine.Claim(claimerX, big.NewInt(500), f.proof(t))
	var short *InsufficientBalanceError
	if !errors.As(err, &short) || short.Available.Cmp(big.NewInt(499)) != 0 {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if claimed, _ := f.engine.HasClaimed(claimerX); claimed {
		t.Fatalf("failed claim set flag")
	}
}

func TestClaimNotActive(t *testing.T) {
	f := newFixture(t, 1_000)
	if err := f.engine.Claim(claimerX, big.NewInt(500), f.proof(t)); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive before init, got %v", err)
	}
	f.initialize(t)
	if err := f.engine.SetActive(false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := f.engine.Claim(claimerX, big.NewInt(500), f.proof(t)); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	if status, _ := f.engine.Status(); status != StatusDeactivated {
		t.Fatalf("status %s", status)
	}
}

func TestInitializeValidation(t *testing.T) {
	f := newFixture(t, 1_000)
	if err := f.engine.Initialize([32]byte{}, t0+week, big.NewInt(1)); !errors.Is(err, ErrInvalidRoot) {
		t.Fatalf("expected ErrInvalidRoot, got %v", err)
	}
	if err := f.engine.Initialize(f.tree.Root(), t0, big.NewInt(1)); !errors.Is(err, ErrInvalidDeadline) {
		t.Fatalf("expected ErrInvalidDeadline, got %v", err)
	}
	if err := f.engine.UpdateRoot(f.tree.Root()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := f.engine.RecoverUnclaimed(admin); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestReinitializeKeepsClaimFlags(t *testing.T) {
	f := newFixture(t, 10_000)
	f.initialize(t)
	if err := f.engine.Claim(claimerX, big.NewInt(500), f.proof(t)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	f.clock.now = t0 + 2*week
	if err := f.engine.Initialize(f.tree.Root(), t0+3*week, big.NewInt(500)); err != nil {
		t.Fatalf("reinitialize: %v", err)
	}
	campaign, _ := f.engine.Campaign()
	if campaign.Round != 2 || campaign.TotalClaimed.Sign() != 0 {
		t.Fatalf("unexpected campaign %+v", campaign)
	}
	if err := f.engine.Claim(claimerX, big.NewInt(500), f.proof(t)); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed across rounds, got %v", err)
	}
}

func TestUpdateRootWindow(t *testing.T) {
	f := newFixture(t, 1_000)
	f.initialize(t)
	other, _ := BuildTree([]Allocation{{Account: relayer, Amount: big.NewInt(7)}})
	if err := f.engine.UpdateRoot([32]byte{}); !errors.Is(err, ErrInvalidRoot) {
		t.Fatalf("expected ErrInvalidRoot, got %v", err)
	}
	if err := f.engine.UpdateRoot(other.Root()); err != nil {
		t.Fatalf("update root: %v", err)
	}
	relayerProof, _ := other.Proof(relayer)
	if err := f.engine.Claim(relayer, big.NewInt(7), relayerProof); err != nil {
		t.Fatalf("claim against new root: %v", err)
	}
	f.clock.now = t0 + week
	if err := f.engine.UpdateRoot(f.tree.Root()); !errors.Is(err, ErrDeadlinePassed) {
		t.Fatalf("expected ErrDeadlinePassed, got %v", err)
	}
}

func TestRecoverUnclaimed(t *testing.T) {
	f := newFixture(t, 10_000)
	f.initialize(t)
	if _, err := f.engine.RecoverUnclaimed(admin); !errors.Is(err, ErrDeadlineNotReached) {
		t.Fatalf("expected ErrDeadlineNotReached, got %v", err)
	}
	f.clock.now = t0 + week
	recovered, err := f.engine.RecoverUnclaimed(admin)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered.Cmp(big.NewInt(10_000)) != 0 || f.ledger.balance(admin).Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("recovered %s", recovered)
	}
	if status, _ := f.engine.Status(); status != StatusDeactivated {
		t.Fatalf("status %s", status)
	}
}

type reentrantEmitter struct {
	engine *Engine
	proof  [][32]byte
	err    error
	armed  bool
}

func (r *reentrantEmitter) Emit(evt events.Event) {
	if r.armed && r.err == nil && evt.EventType() == events.TypeAirdropClaimed {
		r.err = r.engine.Claim(claimerX, big.NewInt(500), r.proof)
	}
}

func TestClaimRejectsReentry(t *testing.T) {
	f := newFixture(t, 10_000)
	f.initialize(t)
	re := &reentrantEmitter{engine: f.engine, proof: f.proof(t), armed: true}
	f.engine.SetEmitter(re)
	if err := f.engine.Claim(claimerX, big.NewInt(500), f.proof(t)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !errors.Is(re.err, common.ErrReentrantCall) {
		t.Fatalf("expected ErrReentrantCall, got %v", re.err)
	}
	if f.ledger.balance(claimerX).Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("double payment: %s", f.ledger.balance(claimerX))
	}
}
