package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tokenflow/crypto"
	"tokenflow/native/airdrop"
)

// allocationFile is the operator-maintained campaign list:
//
//	allocations:
//	  - account: tf1...
//	    amount: "500"
type allocationFile struct {
	Allocations []struct {
		Account string `yaml:"account"`
		Amount  string `yaml:"amount"`
	} `yaml:"allocations"`
}

type proofEntry struct {
	Amount string   `json:"amount"`
	Proof  []string `json:"proof"`
}

type treeOutput struct {
	Root   string                `json:"root"`
	Total  string                `json:"total"`
	Count  int                   `json:"count"`
	Proofs map[string]proofEntry `json:"proofs"`
}

func runAirdropCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: tokenflow-cli airdrop tree --allocations FILE [--out FILE]")
		return 1
	}
	switch args[0] {
	case "tree":
		return runAirdropTree(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown airdrop subcommand: %s\n", args[0])
		return 1
	}
}

func runAirdropTree(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("airdrop tree", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := fs.String("allocations", "", "YAML allocation list")
	out := fs.String("out", "", "write the root and proofs to this JSON file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*input) == "" {
		fmt.Fprintln(stderr, "Error: --allocations is required")
		return 1
	}
	raw, err := os.ReadFile(*input)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	result, err := buildAirdropTree(raw)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if strings.TrimSpace(*out) == "" {
		fmt.Fprintln(stdout, string(encoded))
		return 0
	}
	if err := os.WriteFile(*out, append(encoded, '\n'), 0o644); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, result.Root)
	return 0
}

func buildAirdropTree(raw []byte) (*treeOutput, error) {
	var file allocationFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode allocations: %w", err)
	}
	if len(file.Allocations) == 0 {
		return nil, fmt.Errorf("allocation list is empty")
	}
	allocs := make([]airdrop.Allocation, 0, len(file.Allocations))
	for i, entry := range file.Allocations {
		account, err := crypto.ParseAccount(strings.TrimSpace(entry.Account))
		if err != nil {
			return nil, fmt.Errorf("allocations[%d].account: %w", i, err)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(entry.Amount), 10)
		if !ok || amount.Sign() <= 0 {
			return nil, fmt.Errorf("allocations[%d].amount: invalid amount %q", i, entry.Amount)
		}
		allocs = append(allocs, airdrop.Allocation{Account: account, Amount: amount})
	}
	tree, err := airdrop.BuildTree(allocs)
	if err != nil {
		return nil, err
	}

	root := tree.Root()
	result := &treeOutput{
		Root:   "0x" + hex.EncodeToString(root[:]),
		Total:  tree.Total().String(),
		Count:  tree.Len(),
		Proofs: make(map[string]proofEntry, len(allocs)),
	}
	for _, alloc := range allocs {
		account := alloc.Account
		proof, _ := tree.Proof(account)
		amount, _ := tree.Amount(account)
		nodes := make([]string, 0, len(proof))
		for _, node := range proof {
			nodes = append(nodes, "0x"+hex.EncodeToString(node[:]))
		}
		result.Proofs[crypto.FormatAccount(account)] = proofEntry{Amount: amount.String(), Proof: nodes}
	}
	return result, nil
}
