package config

import (
	"time"

	"github.com/iliyamo/meeting-room-reservation/internal/ledger"
)

// LedgerConfig points the token gateway at a JSON-RPC node.  An empty
// RPCURL disables wallet payments.
type LedgerConfig struct {
	RPCURL          string
	ContractAddress string
	ChainID         uint64
	CallTimeout     time.Duration
	ConfirmTimeout  time.Duration
	PollInterval    time.Duration
}

// Enabled reports whether a node is configured.
func (c LedgerConfig) Enabled() bool { return c.RPCURL != "" }

// LoadLedgerConfig reads the LEDGER_* and KJB_CONTRACT_ADDRESS variables.
func LoadLedgerConfig() LedgerConfig {
	return LedgerConfig{
		RPCURL:          envStr("LEDGER_RPC_URL", ""),
		ContractAddress: envStr("KJB_CONTRACT_ADDRESS", ""),
		ChainID:         uint64(envInt("LEDGER_CHAIN_ID", 0)),
		CallTimeout:     envDur("LEDGER_CALL_TIMEOUT", 10*time.Second),
		ConfirmTimeout:  envDur("LEDGER_CONFIRM_TIMEOUT", 60*time.Second),
		PollInterval:    envDur("LEDGER_POLL_INTERVAL", time.Second),
	}
}

// Client converts the configuration for ledger.Dial.
func (c LedgerConfig) Client() ledger.Config {
	return ledger.Config{
		RPCURL:          c.RPCURL,
		ContractAddress: c.ContractAddress,
		ChainID:         c.ChainID,
		CallTimeout:     c.CallTimeout,
		ConfirmTimeout:  c.ConfirmTimeout,
		PollInterval:    c.PollInterval,
	}
}

// QueueConfig configures reservation event publishing over RabbitMQ.
type QueueConfig struct {
	URL     string
	Enabled bool
}

// LoadQueueConfig reads RABBITMQ_URL (or AMQP_URL) and QUEUE_ENABLED.
// Publishing is on by default whenever a URL is set.
func LoadQueueConfig() QueueConfig {
	url := envStr("RABBITMQ_URL", envStr("AMQP_URL", ""))
	return QueueConfig{URL: url, Enabled: envBool("QUEUE_ENABLED", url != "")}
}
