package state

import (
	"fmt"

	"tokenflow/native/airdrop"
)

const airdropClaimedPrefix = "airdrop/claimed/"

var airdropCampaignKey = []byte("airdrop/campaign")

// AirdropCampaign returns the campaign record, nil before initialisation.
func (m *Manager) AirdropCampaign() (*airdrop.Campaign, error) {
	campaign := new(airdrop.Campaign)
	ok, err := m.KVGet(airdropCampaignKey, campaign)
	if err != nil || !ok {
		return nil, err
	}
	return campaign, nil
}

func (m *Manager) PutAirdropCampaign(campaign *airdrop.Campaign) error {
	if campaign == nil {
		return fmt.Errorf("state: nil airdrop campaign")
	}
	return m.KVPut(airdropCampaignKey, campaign)
}

func (m *Manager) AirdropClaimed(account [20]byte) (bool, error) {
	return m.flag(airdropClaimedPrefix, account)
}

// SetAirdropClaimed records a claim. Flags are never cleared.
func (m *Manager) SetAirdropClaimed(account [20]byte) error {
	return m.KVPut(accountKey(airdropClaimedPrefix, account), true)
}
