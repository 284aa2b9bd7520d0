package rpc

import (
	"fmt"
	"net/http"
	"strings"

	"tokenflow/crypto"
	"tokenflow/native/common"
)

type initializeAirdropParams struct {
	Root           string       `json:"root"`
	Deadline       uint64       `json:"deadline"`
	TotalAllocated AmountString `json:"totalAllocated"`
}

type updateRootParams struct {
	Root string `json:"root"`
}

type setActiveParams struct {
	Active *bool `json:"active"`
}

type claimParams struct {
	Account string       `json:"account,omitempty"`
	Amount  AmountString `json:"amount"`
	Proof   []string     `json:"proof"`
}

type recoverParams struct {
	To string `json:"to"`
}

func (s *Server) handleAirdropCampaign(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	campaign, err := s.econ.AirdropCampaign()
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	status, err := s.econ.AirdropStatus()
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	remaining, err := s.econ.TimeUntilDeadline()
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, AirdropCampaignResult{
		Root:              formatHash(campaign.Root),
		Deadline:          campaign.Deadline,
		TotalAllocated:    formatAmount(campaign.TotalAllocated),
		TotalClaimed:      formatAmount(campaign.TotalClaimed),
		Active:            campaign.Active,
		Initialized:       campaign.Initialized,
		Round:             campaign.Round,
		Status:            status.String(),
		TimeUntilDeadline: remaining,
	})
}

// decodeClaim parses a claim object. When requireAccount is false the account
// field is ignored.
func decodeClaim(req *RPCRequest, requireAccount bool) (claimParams, [20]byte, error) {
	var params claimParams
	var account [20]byte
	if err := decodeParams(req, &params); err != nil {
		return params, account, err
	}
	if requireAccount {
		parsed, err := parseAccount(params.Account)
		if err != nil {
			return params, account, fmt.Errorf("account: %w", err)
		}
		account = parsed
	}
	return params, account, nil
}

func (s *Server) handleCanClaim(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	params, account, err := decodeClaim(req, true)
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	amount, err := params.Amount.Int()
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	proof, err := parseProof(params.Proof)
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	ok, err := s.econ.CanClaim(account, amount, proof)
	if err != nil && common.KindOf(err) == common.KindInternal {
		writeEconomyError(w, req, err)
		return
	}
	if err != nil {
		writeResult(w, req.ID, CanClaimResult{Claimable: false, Reason: err.Error()})
		return
	}
	writeResult(w, req.ID, CanClaimResult{Claimable: ok})
}

func (s *Server) handleHasClaimed(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, err := decodeAddressParam(req)
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	claimed, err := s.econ.HasClaimed(addr)
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, claimed)
}

func (s *Server) handleInitializeAirdrop(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	var params initializeAirdropParams
	if err := decodeParams(req, &params); err != nil {
		writeParamError(w, req, err)
		return
	}
	root, err := parseHash(params.Root)
	if err != nil {
		writeParamError(w, req, fmt.Errorf("root: %w", err))
		return
	}
	total, err := params.TotalAllocated.Int()
	if err != nil {
		writeParamError(w, req, fmt.Errorf("totalAllocated: %w", err))
		return
	}
	if err := s.econ.InitializeAirdrop(r.Context(), caller, root, params.Deadline, total); err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleUpdateAirdropRoot(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	var params updateRootParams
	if err := decodeParams(req, &params); err != nil {
		writeParamError(w, req, err)
		return
	}
	root, err := parseHash(params.Root)
	if err != nil {
		writeParamError(w, req, fmt.Errorf("root: %w", err))
		return
	}
	if err := s.econ.UpdateAirdropRoot(r.Context(), caller, root); err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleSetAirdropActive(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	var params setActiveParams
	if err := decodeParams(req, &params); err != nil {
		writeParamError(w, req, err)
		return
	}
	if params.Active == nil {
		writeParamError(w, req, fmt.Errorf("active required"))
		return
	}
	if err := s.econ.SetAirdropActive(r.Context(), caller, *params.Active); err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) claim(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte, onBehalf bool) {
	params, account, err := decodeClaim(req, onBehalf)
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	amount, err := params.Amount.Int()
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	proof, err := parseProof(params.Proof)
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	if onBehalf {
		err = s.econ.ClaimAirdropFor(r.Context(), caller, account, amount, proof)
	} else {
		account = caller
		err = s.econ.ClaimAirdrop(r.Context(), caller, amount, proof)
	}
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, BalanceResult{Address: crypto.FormatAccount(account), Balance: formatAmount(amount)})
}

func (s *Server) handleClaimAirdrop(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	s.claim(w, r, req, caller, false)
}

func (s *Server) handleClaimAirdropFor(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	s.claim(w, r, req, caller, true)
}

func (s *Server) handleRecoverUnclaimed(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	var params recoverParams
	if err := decodeParams(req, &params); err != nil {
		writeParamError(w, req, err)
		return
	}
	to, err := parseAccount(strings.TrimSpace(params.To))
	if err != nil {
		writeParamError(w, req, fmt.Errorf("to: %w", err))
		return
	}
	recovered, err := s.econ.RecoverUnclaimed(r.Context(), caller, to)
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, RecoverResult{To: crypto.FormatAccount(to), Recovered: formatAmount(recovered)})
}
