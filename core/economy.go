package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tokenflow/core/events"
	"tokenflow/core/state"
	"tokenflow/native/airdrop"
	"tokenflow/native/common"
	"tokenflow/native/ledger"
	"tokenflow/native/rewards"
	"tokenflow/native/vesting"
	"tokenflow/observability"
	"tokenflow/storage"
	"tokenflow/storage/trie"
)

var headKey = []byte("tokenflow/head")

type head struct {
	Root   gethcommon.Hash
	Height uint64
}

// Option customises an Economy.
type Option func(*Economy)

// WithAuthorizer replaces the state-backed capability check.
func WithAuthorizer(auth common.Authorizer) Option {
	return func(e *Economy) { e.authorizer = auth }
}

// WithPauses installs the pause switches consulted before every mutation.
func WithPauses(p common.PauseView) Option {
	return func(e *Economy) { e.pauses = p }
}

// WithEmitter receives events of committed operations.
func WithEmitter(emitter events.Emitter) Option {
	return func(e *Economy) { e.emitter = emitter }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Economy) { e.logger = logger }
}

// WithClock overrides the time source used by the engines.
func WithClock(now func() time.Time) Option {
	return func(e *Economy) { e.nowFn = now }
}

// WithAllowMigrate tolerates a schema version mismatch on open.
func WithAllowMigrate(allow bool) Option {
	return func(e *Economy) { e.allowMigrate = allow }
}

// Economy composes the ledger, distributor, vesting engine and airdrop
// verifier over one state trie. Every entry point is serialized; a mutation
// either commits as a whole or leaves no trace.
type Economy struct {
	mu       sync.Mutex
	// flushMu orders event delivery by commit height. It is taken before mu
	// is released.
	flushMu  sync.Mutex
	db       storage.Database
	trie     *trie.Trie
	height   uint64
	accounts state.SystemAccounts

	authorizer   common.Authorizer
	pauses       common.PauseView
	emitter      events.Emitter
	logger       *slog.Logger
	nowFn        func() time.Time
	allowMigrate bool
	tracer       trace.Tracer
	metrics      *observability.EconomyMetrics
}

// New opens the economy stored in db. An empty database is initialised from
// genesis; an existing one resumes at its last committed head and genesis is
// ignored.
func New(db storage.Database, genesis *Genesis, opts ...Option) (*Economy, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database must not be nil")
	}
	e := &Economy{
		db:      db,
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		nowFn:   time.Now,
		tracer:  otel.Tracer("tokenflow/core"),
		metrics: observability.Economy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.emitter == nil {
		e.emitter = events.NoopEmitter{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	stored, ok, err := e.loadHead()
	if err != nil {
		return nil, err
	}
	if ok {
		if err := e.resume(stored); err != nil {
			return nil, err
		}
		return e, nil
	}
	if err := genesis.Validate(); err != nil {
		return nil, err
	}
	if err := e.initialise(genesis); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Economy) loadHead() (head, bool, error) {
	has, err := e.db.Has(headKey)
	if err != nil || !has {
		return head{}, false, err
	}
	raw, err := e.db.Get(headKey)
	if err != nil {
		return head{}, false, err
	}
	var h head
	if err := rlp.DecodeBytes(raw, &h); err != nil {
		return head{}, false, fmt.Errorf("core: decode head: %w", err)
	}
	return h, true, nil
}

func (e *Economy) writeHead(h head) error {
	encoded, err := rlp.EncodeToBytes(h)
	if err != nil {
		return err
	}
	return e.db.Put(headKey, encoded)
}

func (e *Economy) resume(h head) error {
	tr, err := trie.NewTrie(e.db, h.Root.Bytes())
	if err != nil {
		return fmt.Errorf("core: open state at %s: %w", h.Root.Hex(), err)
	}
	if err := state.CheckSchema(tr, e.allowMigrate); err != nil {
		return err
	}
	accounts, ok, err := state.NewManager(tr).SystemAccounts()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("core: state at %s has no system accounts", h.Root.Hex())
	}
	e.trie = tr
	e.height = h.Height
	e.accounts = accounts
	e.metrics.SetHeight(h.Height)
	e.logger.Info("economy resumed", slog.Uint64("height", h.Height), slog.String("root", h.Root.Hex()))
	return nil
}

func (e *Economy) initialise(g *Genesis) error {
	tr, err := trie.NewTrie(e.db, nil)
	if err != nil {
		return err
	}
	e.accounts = g.Accounts
	s := e.newSession(tr)
	if err := g.apply(s); err != nil {
		return err
	}
	root, err := tr.Commit(0)
	if err != nil {
		return fmt.Errorf("core: commit genesis: %w", err)
	}
	if err := e.writeHead(head{Root: root, Height: 0}); err != nil {
		return err
	}
	e.trie = tr
	e.height = 0
	e.logger.Info("genesis applied",
		slog.String("root", root.Hex()),
		slog.String("totalSupply", g.TotalSupply.String()),
		slog.Int("allocations", len(g.Alloc)))
	s.buffer.FlushTo(e.emitter)
	return nil
}

// session binds fresh engines to one working trie and event buffer.
type session struct {
	manager *state.Manager
	buffer  *events.Buffer
	ledger  *ledger.Engine
	rewards *rewards.Engine
	vesting *vesting.Engine
	airdrop *airdrop.Engine
}

func (e *Economy) newSession(tr *trie.Trie) *session {
	manager := state.NewManager(tr)
	buffer := events.NewBuffer()

	ledgerEngine := ledger.NewEngine()
	ledgerEngine.SetState(manager)
	ledgerEngine.SetEmitter(buffer)

	rewardsEngine := rewards.NewEngine(common.NewPool("rewards", e.accounts.RewardsPool))
	rewardsEngine.SetLedger(ledgerEngine)
	rewardsEngine.SetEmitter(buffer)
	rewardsEngine.SetNowFunc(e.nowFn)

	vestingEngine := vesting.NewEngine(common.NewPool("vesting", e.accounts.VestingVault), e.accounts.Treasury)
	vestingEngine.SetState(manager)
	vestingEngine.SetLedger(ledgerEngine)
	vestingEngine.SetEmitter(buffer)
	vestingEngine.SetNowFunc(e.nowFn)

	airdropEngine := airdrop.NewEngine(common.NewPool("airdrop", e.accounts.AirdropVault))
	airdropEngine.SetState(manager)
	airdropEngine.SetLedger(ledgerEngine)
	airdropEngine.SetEmitter(buffer)
	airdropEngine.SetNowFunc(e.nowFn)

	return &session{
		manager: manager,
		buffer:  buffer,
		ledger:  ledgerEngine,
		rewards: rewardsEngine,
		vesting: vestingEngine,
		airdrop: airdropEngine,
	}
}

func (e *Economy) authorize(s *session, caller [20]byte, capability common.Capability) error {
	auth := e.authorizer
	if auth == nil {
		auth = s.manager
	}
	return common.Authorize(auth, caller, capability)
}

// mutate runs fn against a copy of the state. The copy replaces the live trie
// only when fn and the commit both succeed; buffered events are released
// after the state lock is dropped, in commit order.
func (e *Economy) mutate(ctx context.Context, op operation, caller [20]byte, fn func(*session) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, span := e.tracer.Start(ctx, "economy."+op.name, trace.WithAttributes(
		attribute.String("economy.module", op.module),
		attribute.String("economy.capability", string(op.capability)),
	))
	defer span.End()

	started := time.Now()
	committed, err := e.execute(op, caller, fn)
	elapsed := time.Since(started)
	if err != nil {
		kind := common.KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())
		e.metrics.Observe(op.name, kind.String(), elapsed)
		e.logger.Info("operation rejected",
			slog.String("operation", op.name),
			slog.String("kind", kind.String()),
			slog.Any("error", err))
		return err
	}
	span.SetAttributes(attribute.Int64("economy.height", int64(committed.Height)))
	e.metrics.Observe(op.name, "committed", elapsed)
	e.logger.Debug("operation committed",
		slog.String("operation", op.name),
		slog.Uint64("height", committed.Height),
		slog.String("root", committed.Root.Hex()))
	return nil
}

func (e *Economy) execute(op operation, caller [20]byte, fn func(*session) error) (head, error) {
	if err := common.Guard(e.pauses, op.module); err != nil {
		return head{}, err
	}

	e.mu.Lock()
	working := e.trie.Copy()
	s := e.newSession(working)
	if op.capability != "" {
		if err := e.authorize(s, caller, op.capability); err != nil {
			e.mu.Unlock()
			return head{}, err
		}
	}
	if err := fn(s); err != nil {
		e.mu.Unlock()
		return head{}, err
	}
	next := head{Height: e.height + 1}
	root, err := working.Commit(next.Height)
	if err != nil {
		e.mu.Unlock()
		return head{}, fmt.Errorf("core: commit: %w", err)
	}
	next.Root = root
	if err := e.writeHead(next); err != nil {
		e.mu.Unlock()
		return head{}, fmt.Errorf("core: write head: %w", err)
	}
	e.trie = working
	e.height = next.Height
	e.observeCommit(s, next.Height)
	e.flushMu.Lock()
	e.mu.Unlock()

	s.buffer.FlushTo(e.emitter)
	e.flushMu.Unlock()
	return next, nil
}

func (e *Economy) observeCommit(s *session, height uint64) {
	e.metrics.SetHeight(height)
	for _, evt := range s.buffer.Events() {
		if taxed, ok := evt.(events.TaxCollected); ok {
			e.metrics.AddTax(taxed.Tax)
		}
	}
	named := map[string][20]byte{
		"treasury":      e.accounts.Treasury,
		"rewards_pool":  e.accounts.RewardsPool,
		"vesting_vault": e.accounts.VestingVault,
		"airdrop_vault": e.accounts.AirdropVault,
	}
	for name, addr := range named {
		if balance, err := s.manager.Balance(addr); err == nil {
			e.metrics.SetSystemBalance(name, balance)
		}
	}
}

// query runs fn against the live state under the economy lock.
func (e *Economy) query(fn func(*session) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.newSession(e.trie))
}

// Head returns the committed state root and operation height.
func (e *Economy) Head() (gethcommon.Hash, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trie.Root(), e.height
}

// SystemAccounts returns the protocol-owned accounts fixed at genesis.
func (e *Economy) SystemAccounts() state.SystemAccounts {
	return e.accounts
}

// Close releases the underlying database.
func (e *Economy) Close() error {
	if e == nil || e.db == nil {
		return errors.New("core: economy not open")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.db.Close()
	e.db = nil
	return nil
}
