package rpc

import (
	"fmt"
	"math/big"
	"net/http"
)

type distributeRewardParams struct {
	Recipient  string       `json:"recipient"`
	Amount     AmountString `json:"amount"`
	ActivityID string       `json:"activityId"`
}

type batchDistributeParams struct {
	Entries []distributeRewardParams `json:"entries"`
}

func (s *Server) handleRewardsPool(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	balance, err := s.econ.RewardsPoolBalance()
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, formatAmount(balance))
}

func (s *Server) handleCirculatingSupply(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	circulating, err := s.econ.CirculatingSupply()
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, formatAmount(circulating))
}

func (s *Server) handleDistributeReward(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	var params distributeRewardParams
	if err := decodeParams(req, &params); err != nil {
		writeParamError(w, req, err)
		return
	}
	recipient, err := parseAccount(params.Recipient)
	if err != nil {
		writeParamError(w, req, fmt.Errorf("recipient: %w", err))
		return
	}
	amount, err := params.Amount.Int()
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	if err := s.econ.DistributeReward(r.Context(), caller, recipient, amount, params.ActivityID); err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleBatchDistributeRewards(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	var params batchDistributeParams
	if err := decodeParams(req, &params); err != nil {
		writeParamError(w, req, err)
		return
	}
	recipients := make([][20]byte, len(params.Entries))
	amounts := make([]*big.Int, len(params.Entries))
	activityIDs := make([]string, len(params.Entries))
	for i, entry := range params.Entries {
		recipient, err := parseAccount(entry.Recipient)
		if err != nil {
			writeParamError(w, req, fmt.Errorf("entries[%d].recipient: %w", i, err))
			return
		}
		amount, err := entry.Amount.Int()
		if err != nil {
			writeParamError(w, req, fmt.Errorf("entries[%d].amount: %w", i, err))
			return
		}
		recipients[i], amounts[i], activityIDs[i] = recipient, amount, entry.ActivityID
	}
	if err := s.econ.BatchDistributeRewards(r.Context(), caller, recipients, amounts, activityIDs); err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, len(params.Entries))
}
