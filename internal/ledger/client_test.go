package ledger

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice    = "0x00000000000000000000000000000000000000a1"
	bob      = "0x00000000000000000000000000000000000000b2"
	contract = "0x1234567890123456789012345678901234567890"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), Config{
		RPCURL:          url,
		ContractAddress: contract,
		ChainID:         1234,
		CallTimeout:     2 * time.Second,
		ConfirmTimeout:  2 * time.Second,
		PollInterval:    5 * time.Millisecond,
	}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestDialRejectsBadContract(t *testing.T) {
	_, err := Dial(context.Background(), Config{RPCURL: "http://127.0.0.1:1", ContractAddress: "nope"}, nil)
	assert.Error(t, err)
}

func TestUnlock(t *testing.T) {
	node, srv := newFakeNode(t)
	node.account(alice, "pw", 0)
	c := newTestClient(t, srv.URL)

	require.NoError(t, c.Unlock(context.Background(), alice, "pw", AuthUnlock))
	err := c.Unlock(context.Background(), alice, "wrong", AuthUnlock)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.ErrorIs(t, c.Unlock(context.Background(), "0x12", "pw", AuthUnlock), ErrInvalidAddress)
	assert.Equal(t, []uint64{1, 1}, node.unlockDurations())
}

func TestBurnWaitsForReceipt(t *testing.T) {
	node, srv := newFakeNode(t)
	node.account(alice, "pw", 100)
	node.pendingPolls = 3
	c := newTestClient(t, srv.URL)

	r, err := c.Burn(context.Background(), alice, "pw", decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.NotEmpty(t, r.TxHash)
	assert.Equal(t, uint64(42), r.BlockNumber)
	assert.Equal(t, "success", r.Status)
	assert.True(t, r.Amount.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, []string{"burn"}, node.sentMethods())
	assert.Equal(t, []uint64{300}, node.unlockDurations())
	assert.Equal(t, 0, node.balanceOf(alice).Cmp(tokens(80)))
}

func TestBurnInsufficientBalanceSendsNothing(t *testing.T) {
	node, srv := newFakeNode(t)
	node.account(alice, "pw", 10)
	c := newTestClient(t, srv.URL)

	_, err := c.Burn(context.Background(), alice, "pw", decimal.NewFromInt(20))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, node.sentMethods())
}

func TestBurnBadPasswordSendsNothing(t *testing.T) {
	node, srv := newFakeNode(t)
	node.account(alice, "pw", 100)
	c := newTestClient(t, srv.URL)

	_, err := c.Burn(context.Background(), alice, "bad", decimal.NewFromInt(20))
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Empty(t, node.sentMethods())
}

func TestBurnReverted(t *testing.T) {
	node, srv := newFakeNode(t)
	node.account(alice, "pw", 100)
	node.revert = true
	c := newTestClient(t, srv.URL)

	_, err := c.Burn(context.Background(), alice, "pw", decimal.NewFromInt(5))
	assert.ErrorIs(t, err, ErrReverted)
}

func TestBurnConfirmationTimeout(t *testing.T) {
	node, srv := newFakeNode(t)
	node.account(alice, "pw", 100)
	node.neverMine = true
	c, err := Dial(context.Background(), Config{
		RPCURL:          srv.URL,
		ContractAddress: contract,
		ConfirmTimeout:  60 * time.Millisecond,
		PollInterval:    5 * time.Millisecond,
	}, quietLogger())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Burn(context.Background(), alice, "pw", decimal.NewFromInt(5))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, []string{"burn"}, node.sentMethods())
}

func TestUnreachableNode(t *testing.T) {
	_, srv := newFakeNode(t)
	c := newTestClient(t, srv.URL)
	srv.Close()

	err := c.Unlock(context.Background(), alice, "pw", AuthUnlock)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.NotErrorIs(t, err, ErrAuthFailed)

	_, err = c.Burn(context.Background(), alice, "pw", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestTransfer(t *testing.T) {
	node, srv := newFakeNode(t)
	node.account(alice, "pw", 50)
	c := newTestClient(t, srv.URL)

	r, err := c.Transfer(context.Background(), alice, bob, "pw", decimal.RequireFromString("12.5"))
	require.NoError(t, err)
	assert.Equal(t, []string{"transfer"}, node.sentMethods())
	assert.NotEmpty(t, r.To)

	bal, err := c.Balance(context.Background(), bob)
	require.NoError(t, err)
	assert.Equal(t, "12.5", bal.KJBBalance.String())
	assert.Equal(t, "2", bal.EthBalance.String())
	assert.Equal(t, uint64(1234), bal.Network.ChainID)
	assert.Equal(t, uint64(42), bal.Network.BlockNumber)
}

func TestClaimGrant(t *testing.T) {
	node, srv := newFakeNode(t)
	node.account(alice, "pw", 0)
	c := newTestClient(t, srv.URL)

	r, err := c.ClaimGrant(context.Background(), alice, "pw")
	require.NoError(t, err)
	assert.Equal(t, "1000", r.Amount.String())

	claimed, err := c.HasClaimedGrant(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, claimed)

	unlocksBefore := len(node.unlockDurations())
	_, err = c.ClaimGrant(context.Background(), alice, "pw")
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Len(t, node.unlockDurations(), unlocksBefore, "already-claimed accounts must not be unlocked")
	assert.Equal(t, []string{"claimInitialGrant"}, node.sentMethods())
}

func TestStatsAndContractInfo(t *testing.T) {
	node, srv := newFakeNode(t)
	node.account(alice, "pw", 100)
	c := newTestClient(t, srv.URL)
	_, err := c.Burn(context.Background(), alice, "pw", decimal.NewFromInt(7))
	require.NoError(t, err)

	s, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5000", s.TotalSupply.String())
	assert.Equal(t, "7", s.TotalBurned.String())

	info, err := c.ContractInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "KJB", info.Symbol)
	assert.Equal(t, uint8(18), info.Decimals)
	assert.Equal(t, "1000", info.InitialGrant.String())
	assert.Equal(t, uint64(1234), info.Network.ChainID)
}

func TestDisabledGateway(t *testing.T) {
	var g Gateway = Disabled{}
	_, err := g.Burn(context.Background(), alice, "pw", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.ErrorIs(t, g.Unlock(context.Background(), alice, "pw", AuthUnlock), ErrUnreachable)
}
