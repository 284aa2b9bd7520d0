package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"tokenflow/crypto"
	"tokenflow/rpc"
)

func runToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("subject", "", "bech32 account the token authenticates")
	keystore := fs.String("keystore", "", "read the subject from a keystore file instead")
	issuer := fs.String("issuer", "tokenflow", "token issuer")
	audience := fs.String("audience", "", "token audience")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	secretEnv := fs.String("secret-env", jwtSecretEnv, "environment variable holding the HMAC secret")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	var account [20]byte
	switch {
	case strings.TrimSpace(*keystore) != "":
		addr, err := crypto.KeystoreAddress(*keystore)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		account = addr.Account()
	case strings.TrimSpace(*subject) != "":
		parsed, err := crypto.ParseAccount(*subject)
		if err != nil {
			fmt.Fprintf(stderr, "Error: invalid --subject: %v\n", err)
			return 1
		}
		account = parsed
	default:
		fmt.Fprintln(stderr, "Error: --subject or --keystore is required")
		return 1
	}

	secret := strings.TrimSpace(os.Getenv(*secretEnv))
	if secret == "" {
		fmt.Fprintf(stderr, "Error: %s is not set\n", *secretEnv)
		return 1
	}
	token, err := rpc.IssueToken(secret, *issuer, *audience, account, *ttl)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}
