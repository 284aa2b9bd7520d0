package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tokenflow/crypto"
)

type transferParams struct {
	To     string       `json:"to"`
	Amount AmountString `json:"amount"`
}

type setTaxRateParams struct {
	RateBps *uint32 `json:"rateBps"`
}

type setReservoirParams struct {
	Reservoir string `json:"reservoir"`
}

type setExemptParams struct {
	Account string `json:"account"`
	Exempt  bool   `json:"exempt"`
}

func (s *Server) handleHead(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	root, height := s.econ.Head()
	writeResult(w, req.ID, HeadResult{Root: root.Hex(), Height: height})
}

func (s *Server) handleBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, err := decodeAddressParam(req)
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	balance, err := s.econ.BalanceOf(addr)
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, BalanceResult{Address: crypto.FormatAccount(addr), Balance: formatAmount(balance)})
}

func (s *Server) handleTotalSupply(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	supply, err := s.econ.TotalSupply()
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, formatAmount(supply))
}

func (s *Server) handleTaxPolicy(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	rate, err := s.econ.TaxRateBps()
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	reservoir, err := s.econ.Reservoir()
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, TaxPolicyResult{RateBps: rate, Reservoir: crypto.FormatAccount(reservoir)})
}

func (s *Server) handleIsExempt(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, err := decodeAddressParam(req)
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	exempt, err := s.econ.IsExempt(addr)
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, exempt)
}

func (s *Server) handleCalculateTax(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeParamError(w, req, fmt.Errorf("expected amount parameter"))
		return
	}
	var raw AmountString
	if err := json.Unmarshal(req.Params[0], &raw); err != nil {
		writeParamError(w, req, fmt.Errorf("amount must be a string"))
		return
	}
	amount, err := raw.Int()
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	tax, err := s.econ.CalculateTax(amount)
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, formatAmount(tax))
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	var params transferParams
	if err := decodeParams(req, &params); err != nil {
		writeParamError(w, req, err)
		return
	}
	to, err := parseAccount(params.To)
	if err != nil {
		writeParamError(w, req, fmt.Errorf("to: %w", err))
		return
	}
	amount, err := params.Amount.Int()
	if err != nil {
		writeParamError(w, req, err)
		return
	}
	settlement, err := s.econ.Transfer(r.Context(), caller, to, amount)
	if err != nil {
		writeEconomyError(w, req, err)
		return
	}
	result := SettlementResult{
		From:   crypto.FormatAccount(settlement.From),
		To:     crypto.FormatAccount(settlement.To),
		Amount: formatAmount(settlement.Amount),
		Net:    formatAmount(settlement.Net),
		Tax:    formatAmount(settlement.Tax),
	}
	if settlement.Taxed() {
		result.Reservoir = crypto.FormatAccount(settlement.Reservoir)
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleSetTaxRate(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	var params setTaxRateParams
	if err := decodeParams(req, &params); err != nil {
		writeParamError(w, req, err)
		return
	}
	if params.RateBps == nil {
		writeParamError(w, req, fmt.Errorf("rateBps required"))
		return
	}
	if err := s.econ.SetTaxRate(r.Context(), caller, *params.RateBps); err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleSetReservoir(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	var params setReservoirParams
	if err := decodeParams(req, &params); err != nil {
		writeParamError(w, req, err)
		return
	}
	reservoir, err := parseAccount(params.Reservoir)
	if err != nil {
		writeParamError(w, req, fmt.Errorf("reservoir: %w", err))
		return
	}
	if err := s.econ.SetReservoir(r.Context(), caller, reservoir); err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleSetExempt(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	var params setExemptParams
	if err := decodeParams(req, &params); err != nil {
		writeParamError(w, req, err)
		return
	}
	account, err := parseAccount(params.Account)
	if err != nil {
		writeParamError(w, req, fmt.Errorf("account: %w", err))
		return
	}
	if err := s.econ.SetExempt(r.Context(), caller, account, params.Exempt); err != nil {
		writeEconomyError(w, req, err)
		return
	}
	writeResult(w, req.ID, true)
}
