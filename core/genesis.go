package core

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"tokenflow/core/state"
	"tokenflow/native/common"
	"tokenflow/native/ledger"
)

var (
	ErrGenesisRequired = errors.New("core: genesis required for an empty database")
	errInvalidGenesis  = errors.New("core: invalid genesis")
)

// GenesisCampaign optionally publishes an airdrop root at genesis.
type GenesisCampaign struct {
	Root           [32]byte
	Deadline       uint64
	TotalAllocated *big.Int
}

// Genesis fixes the total supply, the system accounts and the initial
// policy. It is applied exactly once, when the database holds no state.
type Genesis struct {
	TotalSupply  *big.Int
	Accounts     state.SystemAccounts
	Reservoir    [20]byte
	TaxRateBps   uint32
	Exempt       [][20]byte
	Alloc        map[[20]byte]*big.Int
	Capabilities map[common.Capability][][20]byte
	Campaign     *GenesisCampaign
}

func invalidGenesis(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errInvalidGenesis, fmt.Sprintf(format, args...))
}

// Validate checks the genesis for internal consistency.
func (g *Genesis) Validate() error {
	if g == nil {
		return ErrGenesisRequired
	}
	if g.TotalSupply == nil || g.TotalSupply.Sign() <= 0 {
		return invalidGenesis("total supply must be positive")
	}
	seen := make(map[[20]byte]struct{}, 4)
	for _, addr := range g.Accounts.All() {
		if addr == ([20]byte{}) {
			return invalidGenesis("system accounts must be set")
		}
		if _, dup := seen[addr]; dup {
			return invalidGenesis("system accounts must be distinct")
		}
		seen[addr] = struct{}{}
	}
	if g.TaxRateBps > ledger.MaxTaxRateBps {
		return invalidGenesis("tax rate %d exceeds %d bps", g.TaxRateBps, ledger.MaxTaxRateBps)
	}
	sum := big.NewInt(0)
	for addr, amount := range g.Alloc {
		if addr == ([20]byte{}) {
			return invalidGenesis("allocation to the null account")
		}
		if amount == nil || amount.Sign() <= 0 {
			return invalidGenesis("allocation for %x must be positive", addr)
		}
		sum.Add(sum, amount)
	}
	if sum.Cmp(g.TotalSupply) != 0 {
		return invalidGenesis("allocations sum to %s, total supply is %s", sum, g.TotalSupply)
	}
	for capability, holders := range g.Capabilities {
		if !capability.Valid() {
			return invalidGenesis("unknown capability %q", capability)
		}
		for _, holder := range holders {
			if holder == ([20]byte{}) {
				return invalidGenesis("capability %s granted to the null account", capability)
			}
		}
	}
	if g.Campaign != nil && g.Campaign.Root == ([32]byte{}) {
		return invalidGenesis("campaign root must be set")
	}
	return nil
}

func (g *Genesis) reservoir() [20]byte {
	if g.Reservoir != ([20]byte{}) {
		return g.Reservoir
	}
	return g.Accounts.RewardsPool
}

func sortedAccounts(accounts [][20]byte) [][20]byte {
	out := append([][20]byte(nil), accounts...)
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// apply mints the supply and installs the initial policy in a single session.
// The supply is sealed before returning.
func (g *Genesis) apply(s *session) error {
	allocated := make([][20]byte, 0, len(g.Alloc))
	for addr := range g.Alloc {
		allocated = append(allocated, addr)
	}
	for _, addr := range sortedAccounts(allocated) {
		if _, err := s.ledger.Transfer([20]byte{}, addr, g.Alloc[addr]); err != nil {
			return fmt.Errorf("genesis: mint %x: %w", addr, err)
		}
	}
	for _, addr := range g.Accounts.All() {
		if err := s.ledger.Protect(addr); err != nil {
			return fmt.Errorf("genesis: protect %x: %w", addr, err)
		}
	}
	for _, pool := range g.Accounts.Pools() {
		if err := s.ledger.RegisterPool(pool); err != nil {
			return fmt.Errorf("genesis: register %s pool: %w", pool.Name(), err)
		}
	}
	var genesisChanger [20]byte
	if err := s.ledger.SetReservoir(genesisChanger, g.reservoir()); err != nil {
		return fmt.Errorf("genesis: reservoir: %w", err)
	}
	if err := s.ledger.SetTaxRate(genesisChanger, g.TaxRateBps); err != nil {
		return fmt.Errorf("genesis: tax rate: %w", err)
	}
	for _, addr := range sortedAccounts(g.Exempt) {
		if err := s.ledger.SetExempt(genesisChanger, addr, true); err != nil {
			return fmt.Errorf("genesis: exempt %x: %w", addr, err)
		}
	}

	capabilities := make([]common.Capability, 0, len(g.Capabilities))
	for capability := range g.Capabilities {
		capabilities = append(capabilities, capability)
	}
	sort.Slice(capabilities, func(i, j int) bool { return capabilities[i] < capabilities[j] })
	for _, capability := range capabilities {
		for _, holder := range sortedAccounts(g.Capabilities[capability]) {
			if err := s.manager.SetRole(string(capability), holder[:]); err != nil {
				return fmt.Errorf("genesis: grant %s: %w", capability, err)
			}
		}
	}

	if err := s.manager.PutSystemAccounts(g.Accounts); err != nil {
		return fmt.Errorf("genesis: system accounts: %w", err)
	}
	if err := s.manager.SetSchemaVersion(state.SchemaVersion); err != nil {
		return fmt.Errorf("genesis: state version: %w", err)
	}
	if err := s.ledger.SealSupply(); err != nil {
		return fmt.Errorf("genesis: seal: %w", err)
	}
	if g.Campaign != nil {
		if err := s.airdrop.Initialize(g.Campaign.Root, g.Campaign.Deadline, g.Campaign.TotalAllocated); err != nil {
			return fmt.Errorf("genesis: campaign: %w", err)
		}
	}

	supply, err := s.ledger.TotalSupply()
	if err != nil {
		return err
	}
	if supply.Cmp(g.TotalSupply) != 0 {
		return invalidGenesis("minted %s, expected %s", supply, g.TotalSupply)
	}
	return nil
}
