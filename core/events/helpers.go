package events

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"tokenflow/crypto"
)

func formatAccount(addr [20]byte) string {
	return crypto.FormatAccount(addr)
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatHash(h [32]byte) string {
	return "0x" + hex.EncodeToString(h[:])
}
