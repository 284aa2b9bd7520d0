package airdrop

import (
	"encoding/hex"
	"math/big"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestLeafEncoding(t *testing.T) {
	account := [20]byte{0x12, 0x34}
	leaf, ok := Leaf(account, big.NewInt(500))
	if !ok {
		t.Fatalf("leaf rejected")
	}
	word := make([]byte, 64)
	copy(word[12:32], account[:])
	word[62] = 0x01
	word[63] = 0xf4
	want := ethcrypto.Keccak256(ethcrypto.Keccak256(word))
	if hex.EncodeToString(leaf[:]) != hex.EncodeToString(want) {
		t.Fatalf("leaf mismatch: %x != %x", leaf, want)
	}
	overflow := new(big.Int).Lsh(big.NewInt(1), 256)
	if _, ok := Leaf(account, overflow); ok {
		t.Fatalf("overflowing amount accepted")
	}
}

func TestSingleLeafTree(t *testing.T) {
	account := [20]byte{0x01}
	tree, err := BuildTree([]Allocation{{Account: account, Amount: big.NewInt(500)}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	leaf, _ := Leaf(account, big.NewInt(500))
	if tree.Root() != leaf {
		t.Fatalf("single leaf root should equal the leaf")
	}
	proof, ok := tree.Proof(account)
	if !ok || len(proof) != 0 {
		t.Fatalf("unexpected proof %v", proof)
	}
	if !VerifyProof(proof, tree.Root(), leaf) {
		t.Fatalf("empty proof rejected")
	}
}

func TestTreeProofsVerify(t *testing.T) {
	var allocs []Allocation
	for i := 1; i <= 7; i++ {
		allocs = append(allocs, Allocation{Account: [20]byte{byte(i)}, Amount: big.NewInt(int64(i * 100))})
	}
	tree, err := BuildTree(allocs)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if tree.Len() != 7 || tree.Total().Cmp(big.NewInt(2_800)) != 0 {
		t.Fatalf("unexpected tree size %d total %s", tree.Len(), tree.Total())
	}
	for _, alloc := range allocs {
		proof, ok := tree.Proof(alloc.Account)
		if !ok {
			t.Fatalf("missing proof for %x", alloc.Account)
		}
		leaf, _ := Leaf(alloc.Account, alloc.Amount)
		if !VerifyProof(proof, tree.Root(), leaf) {
			t.Fatalf("proof for %x rejected", alloc.Account)
		}
		wrong, _ := Leaf(alloc.Account, new(big.Int).Add(alloc.Amount, big.NewInt(1)))
		if VerifyProof(proof, tree.Root(), wrong) {
			t.Fatalf("wrong amount accepted for %x", alloc.Account)
		}
	}
}

func TestBuildTreeRejectsBadAllocations(t *testing.T) {
	cases := [][]Allocation{
		nil,
		{{Account: [20]byte{}, Amount: big.NewInt(1)}},
		{{Account: [20]byte{1}, Amount: big.NewInt(0)}},
		{{Account: [20]byte{1}, Amount: big.NewInt(1)}, {Account: [20]byte{1}, Amount: big.NewInt(2)}},
	}
	for i, allocs := range cases {
		if _, err := BuildTree(allocs); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
