package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"tokenflow/crypto"
	"tokenflow/native/common"
)

// AmountString is a base-10 token amount on the wire.
type AmountString string

func (a AmountString) Int() (*big.Int, error) {
	trimmed := strings.TrimSpace(string(a))
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", string(a))
	}
	return value, nil
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseAccount(value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("address required")
	}
	return crypto.ParseAccount(trimmed)
}

func parseHash(value string) ([32]byte, error) {
	var out [32]byte
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
	if err != nil {
		return out, fmt.Errorf("invalid hash: %w", err)
	}
	if len(decoded) != len(out) {
		return out, fmt.Errorf("hash must be 32 bytes, got %d", len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}

func parseProof(values []string) ([][32]byte, error) {
	proof := make([][32]byte, 0, len(values))
	for i, value := range values {
		node, err := parseHash(value)
		if err != nil {
			return nil, fmt.Errorf("proof[%d]: %w", i, err)
		}
		proof = append(proof, node)
	}
	return proof, nil
}

func formatHash(h [32]byte) string {
	return "0x" + hex.EncodeToString(h[:])
}

// decodeParams unmarshals the single object parameter of req into out.
func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one parameter object")
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return fmt.Errorf("invalid parameter object: %w", err)
	}
	return nil
}

// decodeAddressParam reads a single bech32 address parameter.
func decodeAddressParam(req *RPCRequest) ([20]byte, error) {
	if len(req.Params) != 1 {
		return [20]byte{}, fmt.Errorf("expected address parameter")
	}
	var raw string
	if err := json.Unmarshal(req.Params[0], &raw); err != nil {
		return [20]byte{}, fmt.Errorf("address parameter must be a string")
	}
	return parseAccount(raw)
}

func writeParamError(w http.ResponseWriter, req *RPCRequest, err error) {
	writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
}

// writeEconomyError maps a classified economy failure to its JSON-RPC code.
func writeEconomyError(w http.ResponseWriter, req *RPCRequest, err error) {
	kind := common.KindOf(err)
	status, code := http.StatusInternalServerError, codeServerError
	switch kind {
	case common.KindValidation:
		status, code = http.StatusBadRequest, codeInvalidParams
	case common.KindState:
		status, code = http.StatusConflict, codeStateConflict
	case common.KindProof:
		status, code = http.StatusUnprocessableEntity, codeProofRejected
	case common.KindAuthorization:
		status, code = http.StatusForbidden, codeUnauthorized
	}
	data := map[string]string{"kind": kind.String()}
	var unauthorized *common.UnauthorizedError
	if errors.As(err, &unauthorized) {
		data["capability"] = string(unauthorized.Capability)
	}
	writeError(w, status, req.ID, code, err.Error(), data)
}

type HeadResult struct {
	Root   string `json:"root"`
	Height uint64 `json:"height"`
}

type BalanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type TaxPolicyResult struct {
	RateBps   uint32 `json:"rateBps"`
	Reservoir string `json:"reservoir"`
}

type SettlementResult struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    string `json:"amount"`
	Net       string `json:"net"`
	Tax       string `json:"tax"`
	Reservoir string `json:"reservoir,omitempty"`
}

type VestingScheduleResult struct {
	Beneficiary string `json:"beneficiary"`
	TotalAmount string `json:"totalAmount"`
	Released    string `json:"released"`
	Start       uint64 `json:"start"`
	Cliff       uint64 `json:"cliff"`
	Duration    uint64 `json:"duration"`
	Revocable   bool   `json:"revocable"`
	Revoked     bool   `json:"revoked"`
}

type RevokeResult struct {
	Beneficiary string `json:"beneficiary"`
	Forfeited   string `json:"forfeited"`
}

type VestingTotalsResult struct {
	Committed   string `json:"committed"`
	Unallocated string `json:"unallocated"`
}

type AirdropCampaignResult struct {
	Root              string `json:"root"`
	Deadline          uint64 `json:"deadline"`
	TotalAllocated    string `json:"totalAllocated"`
	TotalClaimed      string `json:"totalClaimed"`
	Active            bool   `json:"active"`
	Initialized       bool   `json:"initialized"`
	Round             uint64 `json:"round"`
	Status            string `json:"status"`
	TimeUntilDeadline uint64 `json:"timeUntilDeadline"`
}

type CanClaimResult struct {
	Claimable bool   `json:"claimable"`
	Reason    string `json:"reason,omitempty"`
}

type RecoverResult struct {
	To        string `json:"to"`
	Recovered string `json:"recovered"`
}

type EventResult struct {
	Sequence   uint64            `json:"sequence"`
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  int64             `json:"createdAt"`
}
