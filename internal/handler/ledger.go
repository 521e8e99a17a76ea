package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meeting-room-reservation/internal/service"
)

// LedgerHandler serves the token endpoints under /api/kjb.
type LedgerHandler struct {
	Ledger *service.LedgerService
	Log    *logrus.Logger
}

// NewLedgerHandler panics when the service is missing.
func NewLedgerHandler(l *service.LedgerService, log *logrus.Logger) *LedgerHandler {
	if l == nil {
		panic("nil ledger service passed to NewLedgerHandler")
	}
	return &LedgerHandler{Ledger: l, Log: log}
}

// Amounts are accepted as JSON numbers or numeric strings.
type transferRequest struct {
	FromAddress string      `json:"fromAddress"`
	ToAddress   string      `json:"toAddress"`
	Amount      json.Number `json:"amount"`
	Password    string      `json:"password"`
}

type walletRequest struct {
	Address  string      `json:"address"`
	Amount   json.Number `json:"amount"`
	Password string      `json:"password"`
}

// Balance handles GET /api/kjb/balance/:address.
func (h *LedgerHandler) Balance(c echo.Context) error {
	b, err := h.Ledger.Balance(c.Request().Context(), c.Param("address"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, b, "")
}

// Transfer handles POST /api/kjb/transfer.
func (h *LedgerHandler) Transfer(c echo.Context) error {
	var body transferRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	rc, err := h.Ledger.Transfer(c.Request().Context(), body.FromAddress, body.ToAddress, body.Amount.String(), body.Password)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, rc, "tokens transferred")
}

// ClaimGrant handles POST /api/kjb/claim-grant.
func (h *LedgerHandler) ClaimGrant(c echo.Context) error {
	var body walletRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	rc, err := h.Ledger.ClaimGrant(c.Request().Context(), body.Address, body.Password)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, rc, "initial grant claimed")
}

// Burn handles POST /api/kjb/burn.
func (h *LedgerHandler) Burn(c echo.Context) error {
	var body walletRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	rc, err := h.Ledger.Burn(c.Request().Context(), body.Address, body.Amount.String(), body.Password)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, rc, "tokens burned")
}

// ContractInfo handles GET /api/kjb/contract-info.
func (h *LedgerHandler) ContractInfo(c echo.Context) error {
	info, err := h.Ledger.ContractInfo(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, info, "")
}

// Stats handles GET /api/kjb/stats.
func (h *LedgerHandler) Stats(c echo.Context) error {
	st, err := h.Ledger.Stats(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, st, "")
}

// GrantStatus handles GET /api/kjb/grant-status/:address.
func (h *LedgerHandler) GrantStatus(c echo.Context) error {
	gs, err := h.Ledger.GrantStatus(c.Request().Context(), c.Param("address"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, gs, "")
}
