package genesis

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"tokenflow/core"
	"tokenflow/core/state"
	"tokenflow/crypto"
	"tokenflow/native/common"
)

// GenesisSpec is the JSON document describing the initial economy. Addresses
// are bech32 strings and amounts are base-10 strings.
type GenesisSpec struct {
	TotalSupply  string              `json:"totalSupply"`
	Accounts     AccountsSpec        `json:"accounts"`
	Reservoir    string              `json:"reservoir,omitempty"`
	TaxRateBps   uint32              `json:"taxRateBps"`
	Exempt       []string            `json:"exempt,omitempty"`
	Alloc        map[string]string   `json:"alloc"`
	Capabilities map[string][]string `json:"capabilities,omitempty"`
	Airdrop      *AirdropSpec        `json:"airdrop,omitempty"`
}

type AccountsSpec struct {
	Treasury     string `json:"treasury"`
	RewardsPool  string `json:"rewardsPool"`
	VestingVault string `json:"vestingVault"`
	AirdropVault string `json:"airdropVault"`
}

// AirdropSpec publishes a campaign at genesis. Deadline is RFC3339.
type AirdropSpec struct {
	Root           string `json:"root"`
	Deadline       string `json:"deadline"`
	TotalAllocated string `json:"totalAllocated"`
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := DecodeGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// DecodeGenesisSpec parses raw JSON, rejecting unknown fields.
func DecodeGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &spec, nil
}

// Build converts the document into a validated core.Genesis.
func (s *GenesisSpec) Build() (*core.Genesis, error) {
	if s == nil {
		return nil, core.ErrGenesisRequired
	}
	supply, err := parseAmountString(s.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("totalSupply: %w", err)
	}
	accounts, err := s.Accounts.parse()
	if err != nil {
		return nil, fmt.Errorf("accounts: %w", err)
	}
	g := &core.Genesis{
		TotalSupply:  supply,
		Accounts:     accounts,
		TaxRateBps:   s.TaxRateBps,
		Alloc:        make(map[[20]byte]*big.Int, len(s.Alloc)),
		Capabilities: make(map[common.Capability][][20]byte, len(s.Capabilities)),
	}
	if strings.TrimSpace(s.Reservoir) != "" {
		if g.Reservoir, err = crypto.ParseAccount(strings.TrimSpace(s.Reservoir)); err != nil {
			return nil, fmt.Errorf("reservoir: %w", err)
		}
	}
	for i, raw := range s.Exempt {
		addr, err := crypto.ParseAccount(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("exempt[%d]: %w", i, err)
		}
		g.Exempt = append(g.Exempt, addr)
	}
	for rawAddr, rawAmount := range s.Alloc {
		addr, err := crypto.ParseAccount(strings.TrimSpace(rawAddr))
		if err != nil {
			return nil, fmt.Errorf("alloc %q: %w", rawAddr, err)
		}
		if _, dup := g.Alloc[addr]; dup {
			return nil, fmt.Errorf("alloc %q: duplicate account", rawAddr)
		}
		amount, err := parseAmountString(rawAmount)
		if err != nil {
			return nil, fmt.Errorf("alloc %q: %w", rawAddr, err)
		}
		g.Alloc[addr] = amount
	}
	for name, holders := range s.Capabilities {
		capability := common.Capability(strings.TrimSpace(name))
		if !capability.Valid() {
			return nil, fmt.Errorf("capabilities: unknown capability %q", name)
		}
		for i, raw := range holders {
			addr, err := crypto.ParseAccount(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("capabilities %s[%d]: %w", name, i, err)
			}
			g.Capabilities[capability] = append(g.Capabilities[capability], addr)
		}
	}
	if s.Airdrop != nil {
		campaign, err := s.Airdrop.parse()
		if err != nil {
			return nil, fmt.Errorf("airdrop: %w", err)
		}
		g.Campaign = campaign
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Load reads and builds the genesis at path.
func Load(path string) (*core.Genesis, error) {
	spec, err := LoadGenesisSpec(path)
	if err != nil {
		return nil, err
	}
	g, err := spec.Build()
	if err != nil {
		return nil, fmt.Errorf("invalid genesis spec %q: %w", path, err)
	}
	return g, nil
}

func (a AccountsSpec) parse() (state.SystemAccounts, error) {
	var out state.SystemAccounts
	fields := []struct {
		name string
		raw  string
		dst  *[20]byte
	}{
		{"treasury", a.Treasury, &out.Treasury},
		{"rewardsPool", a.RewardsPool, &out.RewardsPool},
		{"vestingVault", a.VestingVault, &out.VestingVault},
		{"airdropVault", a.AirdropVault, &out.AirdropVault},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.raw) == "" {
			return out, fmt.Errorf("%s must be provided", f.name)
		}
		addr, err := crypto.ParseAccount(strings.TrimSpace(f.raw))
		if err != nil {
			return out, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = addr
	}
	return out, nil
}

func (a *AirdropSpec) parse() (*core.GenesisCampaign, error) {
	root, err := parseRoot(a.Root)
	if err != nil {
		return nil, err
	}
	deadline, err := time.Parse(time.RFC3339, strings.TrimSpace(a.Deadline))
	if err != nil {
		return nil, fmt.Errorf("invalid deadline %q: %w", a.Deadline, err)
	}
	if deadline.Unix() <= 0 {
		return nil, fmt.Errorf("deadline must be after the unix epoch")
	}
	total, err := parseAmountString(a.TotalAllocated)
	if err != nil {
		return nil, fmt.Errorf("totalAllocated: %w", err)
	}
	return &core.GenesisCampaign{Root: root, Deadline: uint64(deadline.Unix()), TotalAllocated: total}, nil
}

func parseRoot(value string) ([32]byte, error) {
	var root [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return root, fmt.Errorf("invalid root: %w", err)
	}
	if len(decoded) != len(root) {
		return root, fmt.Errorf("root must be 32 bytes, got %d", len(decoded))
	}
	copy(root[:], decoded)
	return root, nil
}

func parseAmountString(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount must be provided")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}
