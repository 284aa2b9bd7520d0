package common

// Module names used for pause switches.
const (
	ModuleLedger  = "ledger"
	ModuleRewards = "rewards"
	ModuleVesting = "vesting"
	ModuleAirdrop = "airdrop"
)

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrSystemPaused
	}
	return nil
}
