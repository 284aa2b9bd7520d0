package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	rpcURLEnv     = "TOKENFLOW_RPC_URL"
	rpcTokenEnv   = "TOKENFLOW_RPC_TOKEN"
	keystorePass  = "TOKENFLOW_KEYSTORE_PASS"
	jwtSecretEnv  = "TOKENFLOW_JWT_SECRET"
	defaultRPCURL = "http://localhost:8545/rpc"
)

var rpcEndpoint = defaultRPCEndpoint()

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	args, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	switch args[0] {
	case "keygen":
		return runKeygen(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "token":
		return runToken(args[1:], stdout, stderr)
	case "airdrop":
		return runAirdropCommand(args[1:], stdout, stderr)
	case "call":
		return runCall(args[1:], stdout, stderr)
	case "balance":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Error: Please provide an address.")
			return 1
		}
		return callAndPrint(stdout, stderr, "tf_balance", []interface{}{args[1]})
	case "head":
		return callAndPrint(stdout, stderr, "tf_head", nil)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tokenflow-cli [--rpc URL] <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  keygen --out FILE                 Generate a key and store it in an encrypted keystore")
	fmt.Fprintln(w, "  address FILE                      Print the account held by a keystore")
	fmt.Fprintln(w, "  token --subject ADDR [--ttl 1h]   Sign an RPC bearer token (secret from "+jwtSecretEnv+")")
	fmt.Fprintln(w, "  airdrop tree --allocations FILE   Compute the merkle root and proofs for a campaign")
	fmt.Fprintln(w, "  call METHOD [PARAM_JSON...]       Issue a raw JSON-RPC call (token from "+rpcTokenEnv+")")
	fmt.Fprintln(w, "  balance ADDR                      Query an account balance")
	fmt.Fprintln(w, "  head                              Query the committed state root and height")
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv(rpcURLEnv)); v != "" {
		return v
	}
	return defaultRPCURL
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}
