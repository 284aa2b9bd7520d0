package events

import (
	"math/big"
	"strconv"

	"tokenflow/core/types"
)

const (
	// TypeSettlement is emitted for every balance movement, carrying the net leg.
	TypeSettlement = "ledger.settlement"
	// TypeTaxCollected is emitted when a transfer routes a tax leg to the reservoir.
	TypeTaxCollected = "ledger.tax.collected"
	// TypeTaxRateUpdated is emitted when the tax rate changes.
	TypeTaxRateUpdated = "ledger.tax_rate.updated"
	// TypeReservoirUpdated is emitted when the tax reservoir is replaced.
	TypeReservoirUpdated = "ledger.reservoir.updated"
	// TypeExemptionUpdated is emitted when an account's exemption flag changes.
	TypeExemptionUpdated = "ledger.exemption.updated"
)

// Settlement describes the net leg of a transfer.
type Settlement struct {
	From [20]byte
	To   [20]byte
	Net  *big.Int
}

func (Settlement) EventType() string { return TypeSettlement }

func (e Settlement) Event() *types.Event {
	return &types.Event{Type: TypeSettlement, Attributes: map[string]string{
		"from":   formatAccount(e.From),
		"to":     formatAccount(e.To),
		"amount": formatAmount(e.Net),
	}}
}

// TaxCollected describes the tax leg of a transfer.
type TaxCollected struct {
	From        [20]byte
	To          [20]byte
	Tax         *big.Int
	Destination [20]byte
}

func (TaxCollected) EventType() string { return TypeTaxCollected }

func (e TaxCollected) Event() *types.Event {
	return &types.Event{Type: TypeTaxCollected, Attributes: map[string]string{
		"from":        formatAccount(e.From),
		"to":          formatAccount(e.To),
		"tax":         formatAmount(e.Tax),
		"destination": formatAccount(e.Destination),
	}}
}

// TaxRateUpdated records a tax rate change.
type TaxRateUpdated struct {
	Old     uint32
	New     uint32
	Changer [20]byte
}

func (TaxRateUpdated) EventType() string { return TypeTaxRateUpdated }

func (e TaxRateUpdated) Event() *types.Event {
	return &types.Event{Type: TypeTaxRateUpdated, Attributes: map[string]string{
		"old":     strconv.FormatUint(uint64(e.Old), 10),
		"new":     strconv.FormatUint(uint64(e.New), 10),
		"changer": formatAccount(e.Changer),
	}}
}

// ReservoirUpdated records a reservoir replacement.
type ReservoirUpdated struct {
	Old     [20]byte
	New     [20]byte
	Changer [20]byte
}

func (ReservoirUpdated) EventType() string { return TypeReservoirUpdated }

func (e ReservoirUpdated) Event() *types.Event {
	return &types.Event{Type: TypeReservoirUpdated, Attributes: map[string]string{
		"old":     formatAccount(e.Old),
		"new":     formatAccount(e.New),
		"changer": formatAccount(e.Changer),
	}}
}

// ExemptionUpdated records a change to an account's exemption flag.
type ExemptionUpdated struct {
	Account [20]byte
	Exempt  bool
	Changer [20]byte
}

func (ExemptionUpdated) EventType() string { return TypeExemptionUpdated }

func (e ExemptionUpdated) Event() *types.Event {
	return &types.Event{Type: TypeExemptionUpdated, Attributes: map[string]string{
		"account": formatAccount(e.Account),
		"exempt":  strconv.FormatBool(e.Exempt),
		"changer": formatAccount(e.Changer),
	}}
}
