package airdrop

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Leaf computes keccak256(keccak256(abi.encode(account, amount))). The second
// boolean is false when amount does not fit a uint256 word.
func Leaf(account [20]byte, amount *big.Int) ([32]byte, bool) {
	var leaf [32]byte
	if amount == nil || amount.Sign() < 0 {
		return leaf, false
	}
	word, overflow := uint256.FromBig(amount)
	if overflow {
		return leaf, false
	}
	encoded := make([]byte, 64)
	copy(encoded[12:32], account[:])
	amountWord := word.Bytes32()
	copy(encoded[32:], amountWord[:])
	inner := ethcrypto.Keccak256(encoded)
	copy(leaf[:], ethcrypto.Keccak256(inner))
	return leaf, true
}

func hashPair(a, b [32]byte) [32]byte {
	var out [32]byte
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	copy(out[:], ethcrypto.Keccak256(a[:], b[:]))
	return out
}

// VerifyProof folds proof into leaf with sorted-pair hashing and compares
// the result with root.
func VerifyProof(proof [][32]byte, root, leaf [32]byte) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

// Allocation is one eligible (account, amount) pair.
type Allocation struct {
	Account [20]byte
	Amount  *big.Int
}

// Tree is a sorted-pair merkle tree over allocation leaves.
type Tree struct {
	layers [][][32]byte
	index  map[[20]byte]int
	allocs map[[20]byte]*big.Int
}

// BuildTree commits to allocs. Leaves are sorted; an odd node at the end of a
// layer is carried up unchanged.
func BuildTree(allocs []Allocation) (*Tree, error) {
	if len(allocs) == 0 {
		return nil, fmt.Errorf("%w: no allocations", ErrInvalidAllocation)
	}
	type entry struct {
		account [20]byte
		leaf    [32]byte
	}
	entries := make([]entry, 0, len(allocs))
	amounts := make(map[[20]byte]*big.Int, len(allocs))
	for i, alloc := range allocs {
		if alloc.Account == ([20]byte{}) {
			return nil, fmt.Errorf("%w: entry %d has zero account", ErrInvalidAllocation, i)
		}
		if alloc.Amount == nil || alloc.Amount.Sign() <= 0 {
			return nil, fmt.Errorf("%w: entry %d has non-positive amount", ErrInvalidAllocation, i)
		}
		if _, dup := amounts[alloc.Account]; dup {
			return nil, fmt.Errorf("%w: duplicate account at entry %d", ErrInvalidAllocation, i)
		}
		leaf, ok := Leaf(alloc.Account, alloc.Amount)
		if !ok {
			return nil, fmt.Errorf("%w: entry %d amount overflows uint256", ErrInvalidAllocation, i)
		}
		amounts[alloc.Account] = new(big.Int).Set(alloc.Amount)
		entries = append(entries, entry{account: alloc.Account, leaf: leaf})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].leaf[:], entries[j].leaf[:]) < 0
	})

	leaves := make([][32]byte, len(entries))
	index := make(map[[20]byte]int, len(entries))
	for i, e := range entries {
		leaves[i] = e.leaf
		index[e.account] = i
	}
	layers := [][][32]byte{leaves}
	for current := leaves; len(current) > 1; {
		next := make([][32]byte, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			if i+1 == len(current) {
				next = append(next, current[i])
				continue
			}
			next = append(next, hashPair(current[i], current[i+1]))
		}
		layers = append(layers, next)
		current = next
	}
	return &Tree{layers: layers, index: index, allocs: amounts}, nil
}

// Root returns the commitment over every allocation.
func (t *Tree) Root() [32]byte {
	top := t.layers[len(t.layers)-1]
	return top[0]
}

// Len returns the number of allocations.
func (t *Tree) Len() int { return len(t.layers[0]) }

// Total returns the sum of every allocation.
func (t *Tree) Total() *big.Int {
	total := big.NewInt(0)
	for _, amount := range t.allocs {
		total.Add(total, amount)
	}
	return total
}

// Amount returns the allocation recorded for account.
func (t *Tree) Amount(account [20]byte) (*big.Int, bool) {
	amount, ok := t.allocs[account]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(amount), true
}

// Proof returns the sibling path for account.
func (t *Tree) Proof(account [20]byte) ([][32]byte, bool) {
	pos, ok := t.index[account]
	if !ok {
		return nil, false
	}
	proof := make([][32]byte, 0, len(t.layers))
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := pos ^ 1
		if sibling < len(layer) {
			proof = append(proof, layer[sibling])
		}
		pos /= 2
	}
	return proof, true
}
