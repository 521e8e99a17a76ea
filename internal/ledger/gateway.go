// Package ledger is the client side of the external token ledger: a node
// speaking Ethereum JSON-RPC that holds wallet keys and runs the KJB
// token contract.  The rest of the service only sees the Gateway
// interface; Client is the production implementation and Disabled stands
// in when no node is configured.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Gateway errors.  Callers match them with errors.Is; the returned
// error also wraps the underlying node or transport error.
var (
	// ErrAuthFailed means the node refused to unlock the account.
	ErrAuthFailed = errors.New("wallet authentication failed")

	// ErrInsufficientBalance is returned before anything is sent when
	// the token balance is below the requested amount.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrAlreadyClaimed is returned by ClaimGrant for an account that
	// already received the initial grant.
	ErrAlreadyClaimed = errors.New("initial grant already claimed")

	// ErrRejected means the node answered with a JSON-RPC error.
	ErrRejected = errors.New("ledger rejected the request")

	// ErrReverted means the transaction was mined with a failed status.
	ErrReverted = errors.New("ledger transaction reverted")

	ErrTimeout     = errors.New("ledger call timed out")
	ErrUnreachable = errors.New("ledger node unreachable")

	ErrInvalidAddress = errors.New("invalid wallet address")
	ErrInvalidAmount  = errors.New("invalid token amount")
)

// Unlock durations used by the service.
const (
	AuthUnlock = time.Second
	TxUnlock   = 300 * time.Second
)

// Gateway is the capability surface of the ledger.  Every method blocks
// until the node answers; methods that submit a transaction also wait
// for it to be mined.  No method retries a submission.
type Gateway interface {
	Balance(ctx context.Context, address string) (*Balance, error)
	Unlock(ctx context.Context, address, password string, d time.Duration) error
	Burn(ctx context.Context, address, password string, amount decimal.Decimal) (*Receipt, error)
	Transfer(ctx context.Context, from, to, password string, amount decimal.Decimal) (*Receipt, error)
	ClaimGrant(ctx context.Context, address, password string) (*Receipt, error)
	HasClaimedGrant(ctx context.Context, address string) (bool, error)
	Stats(ctx context.Context) (*Stats, error)
	ContractInfo(ctx context.Context) (*ContractInfo, error)
}

// Network identifies the chain a response was read from.
type Network struct {
	URL         string `json:"url,omitempty"`
	ChainID     uint64 `json:"chainId"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
}

// Balance is the token and native balance of one account.
type Balance struct {
	Address         string          `json:"address"`
	KJBBalance      decimal.Decimal `json:"kjbBalance"`
	EthBalance      decimal.Decimal `json:"ethBalance"`
	HasClaimedGrant bool            `json:"hasClaimedGrant"`
	Network         Network         `json:"network"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Receipt describes a mined transaction submitted by the gateway.
type Receipt struct {
	TxHash      string          `json:"transactionHash"`
	BlockNumber uint64          `json:"blockNumber"`
	From        string          `json:"fromAddress,omitempty"`
	To          string          `json:"toAddress,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	GasUsed     uint64          `json:"gasUsed"`
	Status      string          `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Stats is the supply summary reported by the token contract.
type Stats struct {
	TotalSupply     decimal.Decimal `json:"totalSupply"`
	TotalMinted     decimal.Decimal `json:"totalMinted"`
	TotalBurned     decimal.Decimal `json:"totalBurned"`
	ContractAddress string          `json:"contractAddress"`
	Timestamp       time.Time       `json:"timestamp"`
}

// ContractInfo is the static metadata of the token contract.
type ContractInfo struct {
	Address      string          `json:"address"`
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	Decimals     uint8           `json:"decimals"`
	Owner        string          `json:"owner"`
	InitialGrant decimal.Decimal `json:"initialGrant"`
	Network      Network         `json:"network"`
}
