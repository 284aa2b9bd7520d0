package genesis

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tokenflow/core"
	"tokenflow/crypto"
	"tokenflow/native/common"
	"tokenflow/storage"
)

func addr(b byte) string {
	return crypto.MustNewAddress(crypto.TokenPrefix, bytes.Repeat([]byte{b}, 20)).String()
}

func sampleSpec() GenesisSpec {
	return GenesisSpec{
		TotalSupply: "1000",
		Accounts: AccountsSpec{
			Treasury:     addr(0xa0),
			RewardsPool:  addr(0xa1),
			VestingVault: addr(0xa2),
			AirdropVault: addr(0xa3),
		},
		TaxRateBps: 200,
		Exempt:     []string{addr(0x05)},
		Alloc: map[string]string{
			addr(0xa0): "400",
			addr(0xa1): "300",
			addr(0xa2): "200",
			addr(0xa3): "90",
			addr(0x05): "10",
		},
		Capabilities: map[string][]string{
			string(common.CapTaxAdmin): {addr(0xb0)},
		},
		Airdrop: &AirdropSpec{
			Root:           "0x" + strings.Repeat("ab", 32),
			Deadline:       "2999-01-01T00:00:00Z",
			TotalAllocated: "90",
		},
	}
}

func writeSpec(t *testing.T, spec interface{}) string {
	t.Helper()
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		t.Fatalf("marshal spec: %v", err)
	}
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	return path
}

func TestLoadGenesisAndOpenEconomy(t *testing.T) {
	path := writeSpec(t, sampleSpec())

	g, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.TotalSupply.String() != "1000" {
		t.Fatalf("unexpected supply %s", g.TotalSupply)
	}
	if g.Campaign == nil || g.Campaign.TotalAllocated.String() != "90" {
		t.Fatalf("expected campaign, got %+v", g.Campaign)
	}

	econ, err := core.New(storage.NewMemDB(), g)
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	defer econ.Close()

	exempt, err := crypto.ParseAccount(addr(0x05))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	isExempt, err := econ.IsExempt(exempt)
	if err != nil || !isExempt {
		t.Fatalf("expected exempt account, got %t (%v)", isExempt, err)
	}
	admin, _ := crypto.ParseAccount(addr(0xb0))
	if !econ.HasCapability(admin, string(common.CapTaxAdmin)) {
		t.Fatalf("expected tax admin capability")
	}
	campaign, err := econ.AirdropCampaign()
	if err != nil || !campaign.Active {
		t.Fatalf("expected active campaign, got %+v (%v)", campaign, err)
	}
}

func TestGenesisDeterministicRoot(t *testing.T) {
	path := writeSpec(t, sampleSpec())
	roots := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		g, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		econ, err := core.New(storage.NewMemDB(), g)
		if err != nil {
			t.Fatalf("core.New: %v", err)
		}
		root, _ := econ.Head()
		roots = append(roots, root.Hex())
		econ.Close()
	}
	if roots[0] != roots[1] {
		t.Fatalf("expected deterministic genesis root, got %s and %s", roots[0], roots[1])
	}
}

func TestRejectsUnknownFields(t *testing.T) {
	raw := []byte(`{"totalSupply":"1","chainId":7}`)
	if _, err := DecodeGenesisSpec(raw); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestBuildRejectsInvalidSpecs(t *testing.T) {
	cases := map[string]func(*GenesisSpec){
		"supply mismatch": func(s *GenesisSpec) { s.TotalSupply = "999" },
		"bad amount":      func(s *GenesisSpec) { s.Alloc[addr(0x05)] = "ten" },
		"negative amount": func(s *GenesisSpec) { s.Alloc[addr(0x05)] = "-10" },
		"foreign prefix": func(s *GenesisSpec) {
			s.Accounts.Treasury = crypto.MustNewAddress("xx", bytes.Repeat([]byte{0xa0}, 20)).String()
		},
		"missing account":    func(s *GenesisSpec) { s.Accounts.AirdropVault = "" },
		"unknown capability": func(s *GenesisSpec) { s.Capabilities["root"] = []string{addr(0xb0)} },
		"rate too high":      func(s *GenesisSpec) { s.TaxRateBps = 1001 },
		"short root":         func(s *GenesisSpec) { s.Airdrop.Root = "0xabcd" },
		"bad deadline":       func(s *GenesisSpec) { s.Airdrop.Deadline = "tomorrow" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			spec := sampleSpec()
			mutate(&spec)
			if _, err := spec.Build(); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
}
