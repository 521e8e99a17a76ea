package ledger

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// fakeNode is a minimal JSON-RPC node backing the token contract in
// memory.  Transactions are mined after pendingPolls receipt lookups.
type fakeNode struct {
	t   *testing.T
	abi abi.ABI

	mu           sync.Mutex
	passwords    map[common.Address]string
	balances     map[common.Address]*big.Int
	claimed      map[common.Address]bool
	unlocks      []uint64
	sent         []string
	receipts     map[common.Hash]uint64
	pendingPolls int
	neverMine    bool
	revert       bool
	burned       *big.Int
}

func newFakeNode(t *testing.T) (*fakeNode, *httptest.Server) {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		t.Fatal(err)
	}
	n := &fakeNode{
		t:         t,
		abi:       parsed,
		passwords: map[common.Address]string{},
		balances:  map[common.Address]*big.Int{},
		claimed:   map[common.Address]bool{},
		receipts:  map[common.Hash]uint64{},
		burned:    new(big.Int),
	}
	srv := httptest.NewServer(n)
	t.Cleanup(srv.Close)
	return n, srv
}

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil))
}

func (n *fakeNode) account(addr string, password string, balance int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	a := common.HexToAddress(addr)
	n.passwords[a] = password
	n.balances[a] = tokens(balance)
}

func (n *fakeNode) sentMethods() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

func (n *fakeNode) unlockDurations() []uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]uint64(nil), n.unlocks...)
}

func (n *fakeNode) balanceOf(addr string) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return new(big.Int).Set(n.balances[common.HexToAddress(addr)])
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, rerr := n.handle(req)
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rerr != nil {
		resp["error"] = rerr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *fakeNode) handle(req rpcRequest) (any, *rpcError) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch req.Method {
	case "personal_unlockAccount":
		var addr, pw string
		var secs uint64
		n.decode(req.Params[0], &addr)
		n.decode(req.Params[1], &pw)
		n.decode(req.Params[2], &secs)
		n.unlocks = append(n.unlocks, secs)
		want, ok := n.passwords[common.HexToAddress(addr)]
		if !ok || want != pw {
			return nil, &rpcError{Code: -32000, Message: "could not decrypt key with given password"}
		}
		return true, nil

	case "eth_call":
		data := n.txData(req.Params[0])
		out, err := n.call(data)
		if err != nil {
			return nil, &rpcError{Code: -32000, Message: err.Error()}
		}
		return hexutil.Encode(out), nil

	case "eth_sendTransaction":
		var tx map[string]string
		n.decode(req.Params[0], &tx)
		data := hexutil.MustDecode(tx["data"])
		m, err := n.abi.MethodById(data[:4])
		if err != nil {
			return nil, &rpcError{Code: -32000, Message: err.Error()}
		}
		args, err := m.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, &rpcError{Code: -32000, Message: err.Error()}
		}
		from := common.HexToAddress(tx["from"])
		n.sent = append(n.sent, m.Name)
		status := uint64(1)
		if n.revert {
			status = 0
		} else {
			n.apply(m.Name, from, args)
		}
		hash := common.BigToHash(big.NewInt(int64(len(n.sent))))
		n.receipts[hash] = status
		return hash.Hex(), nil

	case "eth_getTransactionReceipt":
		var h common.Hash
		n.decode(req.Params[0], &h)
		status, ok := n.receipts[h]
		if !ok || n.neverMine {
			return nil, nil
		}
		if n.pendingPolls > 0 {
			n.pendingPolls--
			return nil, nil
		}
		return map[string]any{
			"type":              "0x0",
			"status":            hexutil.EncodeUint64(status),
			"cumulativeGasUsed": "0x5208",
			"logsBloom":         "0x" + strings.Repeat("00", 256),
			"logs":              []any{},
			"transactionHash":   h.Hex(),
			"gasUsed":           "0x5208",
			"effectiveGasPrice": "0x0",
			"blockHash":         common.BigToHash(big.NewInt(99)).Hex(),
			"blockNumber":       "0x2a",
			"transactionIndex":  "0x0",
		}, nil

	case "eth_getBalance":
		return hexutil.EncodeBig(tokens(2)), nil
	case "eth_chainId":
		return hexutil.EncodeUint64(1234), nil
	case "eth_blockNumber":
		return hexutil.EncodeUint64(42), nil
	}
	return nil, &rpcError{Code: -32601, Message: "method not found: " + req.Method}
}

func (n *fakeNode) decode(raw json.RawMessage, v any) {
	if err := json.Unmarshal(raw, v); err != nil {
		n.t.Errorf("decode param %s: %v", raw, err)
	}
}

func (n *fakeNode) txData(raw json.RawMessage) []byte {
	var msg map[string]any
	n.decode(raw, &msg)
	for _, k := range []string{"input", "data"} {
		if s, ok := msg[k].(string); ok {
			return hexutil.MustDecode(s)
		}
	}
	return nil
}

func (n *fakeNode) call(data []byte) ([]byte, error) {
	m, err := n.abi.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	switch m.Name {
	case "balanceOf":
		bal, ok := n.balances[args[0].(common.Address)]
		if !ok {
			bal = new(big.Int)
		}
		return m.Outputs.Pack(bal)
	case "hasClaimedInitialGrant":
		return m.Outputs.Pack(n.claimed[args[0].(common.Address)])
	case "getStats":
		return m.Outputs.Pack(tokens(5000), tokens(6000), new(big.Int).Set(n.burned))
	case "name":
		return m.Outputs.Pack("KJB Token")
	case "symbol":
		return m.Outputs.Pack("KJB")
	case "decimals":
		return m.Outputs.Pack(uint8(18))
	case "owner":
		return m.Outputs.Pack(common.HexToAddress("0x00000000000000000000000000000000000000ff"))
	case "INITIAL_GRANT":
		return m.Outputs.Pack(tokens(1000))
	}
	return nil, nil
}

func (n *fakeNode) apply(method string, from common.Address, args []any) {
	bal := n.balances[from]
	if bal == nil {
		bal = new(big.Int)
		n.balances[from] = bal
	}
	switch method {
	case "burn":
		amt := args[0].(*big.Int)
		bal.Sub(bal, amt)
		n.burned.Add(n.burned, amt)
	case "transfer":
		to, amt := args[0].(common.Address), args[1].(*big.Int)
		bal.Sub(bal, amt)
		if n.balances[to] == nil {
			n.balances[to] = new(big.Int)
		}
		n.balances[to].Add(n.balances[to], amt)
	case "claimInitialGrant":
		bal.Add(bal, tokens(1000))
		n.claimed[from] = true
	}
}
