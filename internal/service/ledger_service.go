package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meeting-room-reservation/internal/ledger"
)

// LedgerService exposes the token operations of the ledger gateway with
// request validation in front of them.
type LedgerService struct {
	Ledger ledger.Gateway
	Log    *logrus.Logger
}

// GrantStatus reports whether an account already received its grant.
type GrantStatus struct {
	Address         string    `json:"address"`
	HasClaimedGrant bool      `json:"hasClaimedGrant"`
	Timestamp       time.Time `json:"timestamp"`
}

func (s *LedgerService) gateway() ledger.Gateway {
	if s.Ledger == nil {
		return ledger.Disabled{}
	}
	return s.Ledger
}

func (s *LedgerService) log() *logrus.Entry {
	l := s.Log
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithField("component", "ledger-service")
}

func checkAddress(v *validator, field, addr string) {
	if strings.TrimSpace(addr) == "" {
		v.add(field + " is required")
		return
	}
	v.check(ledger.ValidAddress(addr), field+" must be a 0x-prefixed 40 hex digit address")
}

func checkAmount(v *validator, amount string) decimal.Decimal {
	if strings.TrimSpace(amount) == "" {
		v.add("amount is required")
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		v.add("amount must be a decimal number")
		return decimal.Zero
	}
	if err := ledger.ValidateAmount(d); err != nil {
		v.add("amount must be greater than 0 and at most " + ledger.MaxTransferAmount.String())
	}
	return d
}

// Balance returns the balances of address.
func (s *LedgerService) Balance(ctx context.Context, address string) (*ledger.Balance, error) {
	var v validator
	checkAddress(&v, "address", address)
	if err := v.err(); err != nil {
		return nil, err
	}
	b, err := s.gateway().Balance(ctx, address)
	if err != nil {
		return nil, gatewayErr(err)
	}
	return b, nil
}

// Transfer moves amount tokens between two different accounts.
func (s *LedgerService) Transfer(ctx context.Context, from, to, amount, password string) (*ledger.Receipt, error) {
	var v validator
	checkAddress(&v, "fromAddress", from)
	checkAddress(&v, "toAddress", to)
	if from != "" && strings.EqualFold(from, to) {
		v.add("fromAddress and toAddress must differ")
	}
	amt := checkAmount(&v, amount)
	v.check(password != "", "password is required")
	if err := v.err(); err != nil {
		return nil, err
	}
	rc, err := s.gateway().Transfer(context.WithoutCancel(ctx), from, to, password, amt)
	if err != nil {
		s.log().WithError(err).WithFields(logrus.Fields{"from": from, "to": to, "amount": amt.String()}).Warn("transfer failed")
		return nil, gatewayErr(err)
	}
	s.log().WithFields(logrus.Fields{"from": from, "to": to, "amount": amt.String(), "tx": rc.TxHash}).Info("tokens transferred")
	return rc, nil
}

// ClaimGrant claims the one-time initial grant for address.
func (s *LedgerService) ClaimGrant(ctx context.Context, address, password string) (*ledger.Receipt, error) {
	var v validator
	checkAddress(&v, "address", address)
	v.check(password != "", "password is required")
	if err := v.err(); err != nil {
		return nil, err
	}
	rc, err := s.gateway().ClaimGrant(context.WithoutCancel(ctx), address, password)
	if err != nil {
		return nil, gatewayErr(err)
	}
	s.log().WithFields(logrus.Fields{"address": address, "tx": rc.TxHash}).Info("initial grant claimed")
	return rc, nil
}

// Burn destroys amount tokens held by address.
func (s *LedgerService) Burn(ctx context.Context, address, amount, password string) (*ledger.Receipt, error) {
	var v validator
	checkAddress(&v, "address", address)
	amt := checkAmount(&v, amount)
	v.check(password != "", "password is required")
	if err := v.err(); err != nil {
		return nil, err
	}
	rc, err := s.gateway().Burn(context.WithoutCancel(ctx), address, password, amt)
	if err != nil {
		return nil, gatewayErr(err)
	}
	s.log().WithFields(logrus.Fields{"address": address, "amount": amt.String(), "tx": rc.TxHash}).Info("tokens burned")
	return rc, nil
}

// GrantStatus reports whether address has claimed its grant.
func (s *LedgerService) GrantStatus(ctx context.Context, address string) (*GrantStatus, error) {
	var v validator
	checkAddress(&v, "address", address)
	if err := v.err(); err != nil {
		return nil, err
	}
	claimed, err := s.gateway().HasClaimedGrant(ctx, address)
	if err != nil {
		return nil, gatewayErr(err)
	}
	return &GrantStatus{Address: address, HasClaimedGrant: claimed, Timestamp: time.Now().UTC()}, nil
}

func (s *LedgerService) ContractInfo(ctx context.Context) (*ledger.ContractInfo, error) {
	info, err := s.gateway().ContractInfo(ctx)
	if err != nil {
		return nil, gatewayErr(err)
	}
	return info, nil
}

func (s *LedgerService) Stats(ctx context.Context) (*ledger.Stats, error) {
	st, err := s.gateway().Stats(ctx)
	if err != nil {
		return nil, gatewayErr(err)
	}
	return st, nil
}
