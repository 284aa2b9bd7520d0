package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tokenflow/crypto"
	"tokenflow/native/airdrop"
	"tokenflow/rpc"
)

func account(b byte) string {
	return crypto.MustNewAddress(crypto.TokenPrefix, bytes.Repeat([]byte{b}, 20)).String()
}

func TestApplyGlobalFlags(t *testing.T) {
	original := rpcEndpoint
	defer func() { rpcEndpoint = original }()

	rest, err := applyGlobalFlags([]string{"--rpc", "http://node:1/rpc", "balance", "x"})
	if err != nil {
		t.Fatalf("apply flags: %v", err)
	}
	if rpcEndpoint != "http://node:1/rpc" || len(rest) != 2 || rest[0] != "balance" {
		t.Fatalf("unexpected result endpoint=%q rest=%v", rpcEndpoint, rest)
	}
	if _, err := applyGlobalFlags([]string{"--rpc"}); err == nil {
		t.Fatalf("expected error for missing --rpc value")
	}
}

func TestUnknownCommand(t *testing.T) {
	var stderr bytes.Buffer
	if code := run([]string{"mint"}, io.Discard, &stderr); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "Unknown command: mint") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestAirdropTreeProofsVerify(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "allocations.yaml")
	yamlDoc := "allocations:\n" +
		"  - account: " + account(0x02) + "\n    amount: \"500\"\n" +
		"  - account: " + account(0x03) + "\n    amount: \"700\"\n" +
		"  - account: " + account(0x04) + "\n    amount: \"50\"\n"
	if err := os.WriteFile(input, []byte(yamlDoc), 0o644); err != nil {
		t.Fatalf("write allocations: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"airdrop", "tree", "--allocations", input}, &stdout, &stderr); code != 0 {
		t.Fatalf("airdrop tree failed: %s", stderr.String())
	}
	var out treeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if out.Total != "1250" || out.Count != 3 {
		t.Fatalf("unexpected totals %+v", out)
	}
	rootBytes, err := hex.DecodeString(strings.TrimPrefix(out.Root, "0x"))
	if err != nil || len(rootBytes) != 32 {
		t.Fatalf("bad root %q", out.Root)
	}
	var root [32]byte
	copy(root[:], rootBytes)

	for addr, entry := range out.Proofs {
		acct, err := crypto.ParseAccount(addr)
		if err != nil {
			t.Fatalf("parse %s: %v", addr, err)
		}
		amount, _ := new(big.Int).SetString(entry.Amount, 10)
		leaf, ok := airdrop.Leaf(acct, amount)
		if !ok {
			t.Fatalf("leaf for %s", addr)
		}
		proof := make([][32]byte, 0, len(entry.Proof))
		for _, node := range entry.Proof {
			raw, _ := hex.DecodeString(strings.TrimPrefix(node, "0x"))
			var h [32]byte
			copy(h[:], raw)
			proof = append(proof, h)
		}
		if !airdrop.VerifyProof(proof, root, leaf) {
			t.Fatalf("proof for %s does not verify", addr)
		}
	}
}

func TestAirdropTreeRejectsDuplicates(t *testing.T) {
	doc := "allocations:\n" +
		"  - account: " + account(0x02) + "\n    amount: \"1\"\n" +
		"  - account: " + account(0x02) + "\n    amount: \"2\"\n"
	if _, err := buildAirdropTree([]byte(doc)); err == nil {
		t.Fatalf("expected duplicate allocation error")
	}
	if _, err := buildAirdropTree([]byte("allocations: []\n")); err == nil {
		t.Fatalf("expected empty allocation error")
	}
}

func TestTokenIsAcceptedByServerAuthenticator(t *testing.T) {
	secret := "cli-test-secret-0123456789abcdef!"
	t.Setenv(jwtSecretEnv, secret)
	subject := account(0x07)

	var stdout, stderr bytes.Buffer
	code := run([]string{"token", "--subject", subject, "--audience", "ops"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("token failed: %s", stderr.String())
	}

	auth := rpc.NewAuthenticator(rpc.AuthConfig{HMACSecret: secret, Issuer: "tokenflow", Audience: "ops"})
	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(stdout.String()))
	caller, rpcErr := auth.Caller(req)
	if rpcErr != nil {
		t.Fatalf("token rejected: %+v", rpcErr)
	}
	if crypto.FormatAccount(caller) != subject {
		t.Fatalf("unexpected caller %s", crypto.FormatAccount(caller))
	}
}

func TestKeygenWritesKeystore(t *testing.T) {
	t.Setenv(keystorePass, "correct horse battery")
	path := filepath.Join(t.TempDir(), "keys", "operator.json")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"keygen", "--out", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("keygen failed: %s", stderr.String())
	}
	generated := strings.TrimSpace(stdout.String())

	stdout.Reset()
	if code := run([]string{"address", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("address failed: %s", stderr.String())
	}
	if strings.TrimSpace(stdout.String()) != generated {
		t.Fatalf("address mismatch: %q vs %q", stdout.String(), generated)
	}
	if _, err := crypto.LoadFromKeystore(path, "correct horse battery"); err != nil {
		t.Fatalf("decrypt keystore: %v", err)
	}
}

func TestCallSendsBearerToken(t *testing.T) {
	var gotAuth, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotMethod = req.Method
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"height":3}}`))
	}))
	defer srv.Close()

	original := rpcEndpoint
	defer func() { rpcEndpoint = original }()
	t.Setenv(rpcTokenEnv, "abc")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--rpc", srv.URL, "call", "tf_head"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("call failed: %s", stderr.String())
	}
	if gotAuth != "Bearer abc" || gotMethod != "tf_head" {
		t.Fatalf("unexpected request auth=%q method=%q", gotAuth, gotMethod)
	}
	if !strings.Contains(stdout.String(), `"height": 3`) {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestCallReportsRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32001,"message":"unauthorized","data":{"kind":"authorization"}}}`))
	}))
	defer srv.Close()

	original := rpcEndpoint
	defer func() { rpcEndpoint = original }()

	var stderr bytes.Buffer
	if code := run([]string{"--rpc", srv.URL, "call", "tf_setTaxRate", `{"rateBps":1}`}, io.Discard, &stderr); code != 1 {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(stderr.String(), "-32001") || !strings.Contains(stderr.String(), "authorization") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}
