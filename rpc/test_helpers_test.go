package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tokenflow/core"
	"tokenflow/core/state"
	"tokenflow/native/common"
	"tokenflow/storage"
)

const (
	testSecret   = "rpc-test-secret-0123456789abcdef"
	testIssuer   = "rpc-tests"
	testAudience = "unit-tests"
)

var (
	treasury     = [20]byte{0xa0}
	rewardsPool  = [20]byte{0xa1}
	vestingVault = [20]byte{0xa2}
	airdropVault = [20]byte{0xa3}
	taxAdmin     = [20]byte{0xb0}
	distributor  = [20]byte{0xb1}
	vestAdmin    = [20]byte{0xb2}
	dropAdmin    = [20]byte{0xb3}
	alice        = [20]byte{0x01}
	bob          = [20]byte{0x02}
	carol        = [20]byte{0x03}

	testNow = time.Unix(1_700_000_000, 0)
)

func testGenesis() *core.Genesis {
	return &core.Genesis{
		TotalSupply: big.NewInt(100_000_000),
		Accounts: state.SystemAccounts{
			Treasury:     treasury,
			RewardsPool:  rewardsPool,
			VestingVault: vestingVault,
			AirdropVault: airdropVault,
		},
		TaxRateBps: 200,
		Alloc: map[[20]byte]*big.Int{
			treasury:     big.NewInt(39_000_000),
			rewardsPool:  big.NewInt(30_000_000),
			vestingVault: big.NewInt(20_000_000),
			airdropVault: big.NewInt(10_000_000),
			alice:        big.NewInt(1_000_000),
		},
		Capabilities: map[common.Capability][][20]byte{
			common.CapTaxAdmin:           {taxAdmin},
			common.CapRewardsDistributor: {distributor},
			common.CapVestingAdmin:       {vestAdmin},
			common.CapAirdropAdmin:       {dropAdmin},
		},
	}
}

type pausedModules map[string]bool

func (p pausedModules) IsPaused(module string) bool { return p[module] }

func bigInt(v int64) *big.Int { return big.NewInt(v) }

type testEnv struct {
	econ   *core.Economy
	server *Server
	http   *httptest.Server
}

func newTestEnv(t *testing.T, archive EventArchive, cfg ServerConfig, opts ...core.Option) *testEnv {
	t.Helper()
	opts = append([]core.Option{core.WithClock(func() time.Time { return testNow })}, opts...)
	econ, err := core.New(storage.NewMemDB(), testGenesis(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = econ.Close() })

	if cfg.Auth.HMACSecret == "" {
		cfg.Auth = AuthConfig{HMACSecret: testSecret, Issuer: testIssuer, Audience: testAudience}
	}
	server := NewServer(econ, archive, cfg)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{econ: econ, server: server, http: ts}
}

func tokenFor(t *testing.T, caller [20]byte) string {
	t.Helper()
	token, err := IssueToken(testSecret, testIssuer, testAudience, caller, time.Hour)
	require.NoError(t, err)
	return token
}

// call posts a JSON-RPC request. An empty token sends no Authorization header.
func (e *testEnv) call(t *testing.T, token, method string, params ...interface{}) (int, RPCResponse) {
	t.Helper()
	raw := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		encoded, err := json.Marshal(p)
		require.NoError(t, err)
		raw = append(raw, encoded)
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: raw, ID: 1})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.http.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out RPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// decodeResult re-encodes the generic result into out.
func decodeResult(t *testing.T, resp RPCResponse, out interface{}) {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected error: %+v", resp.Error)
	encoded, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(encoded, out))
}

func errorKind(t *testing.T, resp RPCResponse) string {
	t.Helper()
	require.NotNil(t, resp.Error)
	data, ok := resp.Error.Data.(map[string]interface{})
	require.True(t, ok, "error data %T", resp.Error.Data)
	kind, _ := data["kind"].(string)
	return kind
}
