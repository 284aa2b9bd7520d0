package rpc

import (
	"fmt"
	"net/http"
	"time"

	"tokenflow/crypto"
	"tokenflow/native/vesting"
)

type createVestingParams struct {
	Beneficiary string       `json:"beneficiary"`
	Amount      AmountString `json:"amount"`
	Start       *uint64      `json:"start,omitempty"`
	Cliff       *uint64      `json:"cliff,omitempty"`
	Duration    *uint64      `json:"duration,omitempty"`
	Revocable   bool         `json:"revocable"`
}

type beneficiaryParams struct {
	Beneficiary string `json:"beneficiary"`
}

type vestedAmountParams struct {
	Beneficiary string  `json:"beneficiary"`
	At          *uint64 `json:"at,omitempty"`
}

func scheduleResult(schedule *vesting.Schedule) VestingScheduleResult {
	return VestingScheduleResult{
		Beneficiary: crypto.FormatAccount(schedule.Beneficiary),
		TotalAmount: formatAmount(schedule.TotalAmount),
		Released:    formatAmount(schedule.Released),
		Start:       schedule.Start,
		Cliff:       schedule.Cliff,
		Duration:    schedule.Duration,
		Revocable:   schedule.Revocable,
		Revoked:     schedule.Revoked,
	}
}

func (s *Server) handleVestingSchedule(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, err := decodeAddressParam(req)
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	schedule, err := s.econ.VestingSchedule(addr)
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, scheduleResult(schedule))
}

func (s *Server) handleVestedAmount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params vestedAmountParams
	if err := decodeParams(req, &params); err != nil {
		writeParamError(w, req, err)
		return
	}
	addr, err := parseAccount(params.Beneficiary)
	if err != nil {
		writeParamError(w, req, fmt.Errorf("beneficiary: %w", err))
		return
	}
	at := uint64(time.Now().Unix())
	if params.At != nil {
		at = *params.At
	}
	vested, err := s.econ.VestedAmount(addr, at)
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, formatAmount(vested))
}

func (s *Server) handleReleasableAmount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, err := decodeAddressParam(req)
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	releasable, err := s.econ.ReleasableAmount(addr)
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, formatAmount(releasable))
}

func (s *Server) handleVestingTotals(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	committed, err := s.econ.VestingCommitted()
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	unallocated, err := s.econ.VestingUnallocated()
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, VestingTotalsResult{Committed: formatAmount(committed), Unallocated: formatAmount(unallocated)})
}

func (s *Server) handleCreateVestingSchedule(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	var params createVestingParams
	if err := decodeParams(req, &params); err != nil {
		writeParamError(w, req, err)
		return
	}
	beneficiary, err := parseAccount(params.Beneficiary)
	if err != nil {
		writeParamError(w, req, fmt.Errorf("beneficiary: %w", err))
		return
	}
	amount, err := params.Amount.Int()
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	schedule, err := s.econ.CreateVestingSchedule(r.Context(), caller, vesting.CreateParams{
		Beneficiary: beneficiary,
		Amount:      amount,
		Start:       params.Start,
		Cliff:       params.Cliff,
		Duration:    params.Duration,
		Revocable:   params.Revocable,
	})
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, scheduleResult(schedule))
}

func decodeBeneficiary(req *RPCRequest) ([20]byte, error) {
	var params beneficiaryParams
	if err := decodeParams(req, &params); err != nil {
		return [20]byte{}, err
	}
	addr, err := parseAccount(params.Beneficiary)
	if err != nil {
		return [20]byte{}, fmt.Errorf("beneficiary: %w", err)
	}
	return addr, nil
}

func (s *Server) handleReleaseVested(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	beneficiary, err := decodeBeneficiary(req)
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	released, err := s.econ.ReleaseVested(r.Context(), caller, beneficiary)
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, formatAmount(released))
}

func (s *Server) handleRevokeVesting(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	beneficiary, err := decodeBeneficiary(req)
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	forfeited, err := s.econ.RevokeVesting(r.Context(), caller, beneficiary)
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, RevokeResult{Beneficiary: crypto.FormatAccount(beneficiary), Forfeited: formatAmount(forfeited)})
}
