package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meeting-room-reservation/internal/metrics"
)

// DefaultInitialGrant is reported when INITIAL_GRANT cannot be read
// back after a claim.
var DefaultInitialGrant = decimal.NewFromInt(1000)

// Config holds the connection settings of a Client.
type Config struct {
	RPCURL          string
	ContractAddress string
	// ChainID is the chain the deployment expects; it is reported by
	// ContractInfo without a node round trip.
	ChainID        uint64
	CallTimeout    time.Duration
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

func (c *Config) applyDefaults() {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 60 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
}

// Client is the JSON-RPC Gateway.  Wallet keys live on the node, so
// transactions are submitted with eth_sendTransaction from an account
// unlocked by personal_unlockAccount.
type Client struct {
	cfg      Config
	rpc      *rpc.Client
	eth      *ethclient.Client
	abi      abi.ABI
	contract common.Address
	log      *logrus.Entry
}

var _ Gateway = (*Client)(nil)

// Dial prepares a Client for cfg.RPCURL.  HTTP endpoints are not
// contacted until the first call.
func Dial(ctx context.Context, cfg Config, log *logrus.Logger) (*Client, error) {
	cfg.applyDefaults()
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("ledger: invalid contract address %q", cfg.ContractAddress)
	}
	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, fmt.Errorf("ledger: parse token abi: %w", err)
	}
	rc, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrUnreachable, cfg.RPCURL, err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		cfg:      cfg,
		rpc:      rc,
		eth:      ethclient.NewClient(rc),
		abi:      parsed,
		contract: common.HexToAddress(cfg.ContractAddress),
		log:      log.WithField("component", "ledger"),
	}, nil
}

// Close releases the underlying RPC client.
func (c *Client) Close() { c.rpc.Close() }

// classify maps a node or transport error onto the gateway taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return fmt.Errorf("%w: %w", ErrUnreachable, err)
}

func parseAddress(s string) (common.Address, error) {
	if !ValidAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// view runs a read-only contract call and returns the decoded outputs.
func (c *Client) view(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: pack %s: %w", method, err)
	}
	defer metrics.ObserveLedgerCall(method, time.Now())
	cctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()
	out, err := c.eth.CallContract(cctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, classify(err))
	}
	vals, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrRejected, method, err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: %s returned no data", ErrRejected, method)
	}
	return vals, nil
}

func (c *Client) viewUint(ctx context.Context, method string, args ...any) (*big.Int, error) {
	vals, err := c.view(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T", ErrRejected, method, vals[0])
	}
	return v, nil
}

func (c *Client) viewString(ctx context.Context, method string) (string, error) {
	vals, err := c.view(ctx, method)
	if err != nil {
		return "", err
	}
	s, ok := vals[0].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s returned %T", ErrRejected, method, vals[0])
	}
	return s, nil
}

// Unlock asks the node to unlock address with password for d.  A
// JSON-RPC error or a false result is ErrAuthFailed; transport failures
// keep their own classification.
func (c *Client) Unlock(ctx context.Context, address, password string, d time.Duration) error {
	if _, err := parseAddress(address); err != nil {
		return err
	}
	defer metrics.ObserveLedgerCall("personal_unlockAccount", time.Now())
	cctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	var ok bool
	seconds := uint64(d / time.Second)
	if err := c.rpc.CallContext(cctx, &ok, "personal_unlockAccount", address, password, seconds); err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return fmt.Errorf("%w: %w", ErrAuthFailed, err)
		}
		return classify(err)
	}
	if !ok {
		return ErrAuthFailed
	}
	return nil
}

func (c *Client) tokenBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return c.viewUint(ctx, "balanceOf", addr)
}

// HasClaimedGrant reports whether address already received the initial
// grant.
func (c *Client) HasClaimedGrant(ctx context.Context, address string) (bool, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return false, err
	}
	vals, err := c.view(ctx, "hasClaimedInitialGrant", addr)
	if err != nil {
		return false, err
	}
	claimed, ok := vals[0].(bool)
	if !ok {
		return false, fmt.Errorf("%w: hasClaimedInitialGrant returned %T", ErrRejected, vals[0])
	}
	return claimed, nil
}

// Balance reads the token and native balances of address along with the
// grant flag and the node's chain position.
func (c *Client) Balance(ctx context.Context, address string) (*Balance, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	token, err := c.tokenBalance(ctx, addr)
	if err != nil {
		return nil, err
	}
	claimed, err := c.HasClaimedGrant(ctx, address)
	if err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()
	start := time.Now()
	native, err := c.eth.BalanceAt(cctx, addr, nil)
	metrics.ObserveLedgerCall("eth_getBalance", start)
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance: %w", classify(err))
	}
	chainID, err := c.eth.ChainID(cctx)
	if err != nil {
		return nil, fmt.Errorf("eth_chainId: %w", classify(err))
	}
	block, err := c.eth.BlockNumber(cctx)
	if err != nil {
		return nil, fmt.Errorf("eth_blockNumber: %w", classify(err))
	}

	return &Balance{
		Address:         address,
		KJBBalance:      FromBaseUnits(token),
		EthBalance:      FromBaseUnits(native),
		HasClaimedGrant: claimed,
		Network:         Network{ChainID: chainID.Uint64(), BlockNumber: block},
		Timestamp:       time.Now().UTC(),
	}, nil
}

// send submits a contract transaction from an unlocked account and
// waits for it to be mined.
func (c *Client) send(ctx context.Context, from common.Address, method string, args ...any) (*types.Receipt, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: pack %s: %w", method, err)
	}
	tx := map[string]any{
		"from": from,
		"to":   c.contract,
		"data": hexutil.Bytes(data),
	}

	var hash common.Hash
	cctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	start := time.Now()
	err = c.rpc.CallContext(cctx, &hash, "eth_sendTransaction", tx)
	metrics.ObserveLedgerCall(method, start)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, classify(err))
	}

	entry := c.log.WithFields(logrus.Fields{"method": method, "from": from.Hex(), "tx": hash.Hex()})
	entry.Info("ledger transaction submitted")

	receipt, err := c.waitMined(ctx, hash)
	if err != nil {
		entry.WithError(err).Warn("ledger transaction not confirmed")
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s in block %s", ErrReverted, hash.Hex(), receipt.BlockNumber)
	}
	entry.WithField("block", receipt.BlockNumber).Info("ledger transaction mined")
	return receipt, nil
}

// waitMined polls for the receipt of hash until it appears or the
// confirmation timeout passes.
func (c *Client) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	defer metrics.ObserveLedgerCall("wait_mined", time.Now())
	wctx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(wctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), classify(err))
		}
		select {
		case <-wctx.Done():
			return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), classify(wctx.Err()))
		case <-ticker.C:
		}
	}
}

func toReceipt(r *types.Receipt, amount decimal.Decimal) *Receipt {
	out := &Receipt{
		TxHash:    r.TxHash.Hex(),
		GasUsed:   r.GasUsed,
		Amount:    amount,
		Status:    "success",
		Timestamp: time.Now().UTC(),
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out
}

// spend unlocks from and checks that it holds at least amount tokens.
func (c *Client) spend(ctx context.Context, from, password string, amount decimal.Decimal) (common.Address, *big.Int, error) {
	addr, err := parseAddress(from)
	if err != nil {
		return common.Address{}, nil, err
	}
	if !amount.IsPositive() {
		return common.Address{}, nil, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	units, err := ToBaseUnits(amount)
	if err != nil {
		return common.Address{}, nil, err
	}
	if err := c.Unlock(ctx, from, password, TxUnlock); err != nil {
		return common.Address{}, nil, err
	}
	bal, err := c.tokenBalance(ctx, addr)
	if err != nil {
		return common.Address{}, nil, err
	}
	if bal.Cmp(units) < 0 {
		return common.Address{}, nil, fmt.Errorf("%w: balance %s, need %s",
			ErrInsufficientBalance, FromBaseUnits(bal), amount)
	}
	return addr, units, nil
}

// Burn destroys amount tokens held by address.  Nothing is submitted
// unless the unlock succeeds and the balance covers amount.
func (c *Client) Burn(ctx context.Context, address, password string, amount decimal.Decimal) (*Receipt, error) {
	addr, units, err := c.spend(ctx, address, password, amount)
	if err != nil {
		return nil, err
	}
	r, err := c.send(ctx, addr, "burn", units)
	if err != nil {
		return nil, err
	}
	out := toReceipt(r, amount)
	out.From = addr.Hex()
	return out, nil
}

// Transfer moves amount tokens from one account to another.
func (c *Client) Transfer(ctx context.Context, from, to, password string, amount decimal.Decimal) (*Receipt, error) {
	dst, err := parseAddress(to)
	if err != nil {
		return nil, err
	}
	src, units, err := c.spend(ctx, from, password, amount)
	if err != nil {
		return nil, err
	}
	r, err := c.send(ctx, src, "transfer", dst, units)
	if err != nil {
		return nil, err
	}
	out := toReceipt(r, amount)
	out.From = src.Hex()
	out.To = dst.Hex()
	return out, nil
}

// ClaimGrant claims the one-time initial grant for address.  An account
// that already claimed is refused before it is unlocked.
func (c *Client) ClaimGrant(ctx context.Context, address, password string) (*Receipt, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	claimed, err := c.HasClaimedGrant(ctx, address)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, ErrAlreadyClaimed
	}
	if err := c.Unlock(ctx, address, password, TxUnlock); err != nil {
		return nil, err
	}
	r, err := c.send(ctx, addr, "claimInitialGrant")
	if err != nil {
		return nil, err
	}
	amount := DefaultInitialGrant
	if grant, err := c.viewUint(ctx, "INITIAL_GRANT"); err == nil {
		amount = FromBaseUnits(grant)
	} else {
		c.log.WithError(err).Warn("read INITIAL_GRANT")
	}
	out := toReceipt(r, amount)
	out.To = addr.Hex()
	return out, nil
}

// Stats reads the supply counters of the token.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	vals, err := c.view(ctx, "getStats")
	if err != nil {
		return nil, err
	}
	if len(vals) != 3 {
		return nil, fmt.Errorf("%w: getStats returned %d values", ErrRejected, len(vals))
	}
	nums := make([]decimal.Decimal, 3)
	for i, v := range vals {
		n, ok := v.(*big.Int)
		if !ok {
			return nil, fmt.Errorf("%w: getStats returned %T", ErrRejected, v)
		}
		nums[i] = FromBaseUnits(n)
	}
	return &Stats{
		TotalSupply:     nums[0],
		TotalMinted:     nums[1],
		TotalBurned:     nums[2],
		ContractAddress: c.contract.Hex(),
		Timestamp:       time.Now().UTC(),
	}, nil
}

// ContractInfo reads the token metadata.
func (c *Client) ContractInfo(ctx context.Context) (*ContractInfo, error) {
	name, err := c.viewString(ctx, "name")
	if err != nil {
		return nil, err
	}
	symbol, err := c.viewString(ctx, "symbol")
	if err != nil {
		return nil, err
	}
	vals, err := c.view(ctx, "decimals")
	if err != nil {
		return nil, err
	}
	decimals, ok := vals[0].(uint8)
	if !ok {
		return nil, fmt.Errorf("%w: decimals returned %T", ErrRejected, vals[0])
	}
	vals, err = c.view(ctx, "owner")
	if err != nil {
		return nil, err
	}
	owner, ok := vals[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("%w: owner returned %T", ErrRejected, vals[0])
	}
	grant, err := c.viewUint(ctx, "INITIAL_GRANT")
	if err != nil {
		return nil, err
	}
	return &ContractInfo{
		Address:      c.contract.Hex(),
		Name:         name,
		Symbol:       symbol,
		Decimals:     decimals,
		Owner:        owner.Hex(),
		InitialGrant: FromBaseUnits(grant),
		Network:      Network{URL: c.cfg.RPCURL, ChainID: c.cfg.ChainID},
	}, nil
}
