package config

import "tokenflow/native/common"

// Pauses holds the operator switches consulted before every mutation. System
// halts all modules.
type Pauses struct {
	System  bool `toml:"System"`
	Ledger  bool `toml:"Ledger"`
	Rewards bool `toml:"Rewards"`
	Vesting bool `toml:"Vesting"`
	Airdrop bool `toml:"Airdrop"`
}

// IsPaused implements common.PauseView.
func (p Pauses) IsPaused(module string) bool {
	if p.System {
		return true
	}
	switch module {
	case common.ModuleLedger:
		return p.Ledger
	case common.ModuleRewards:
		return p.Rewards
	case common.ModuleVesting:
		return p.Vesting
	case common.ModuleAirdrop:
		return p.Airdrop
	default:
		return false
	}
}
